package classifier

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/smart-ledger/internal/analytics/features"
)

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls a Gemini model through the GenAI SDK.
// Credentials come from the environment (GOOGLE_API_KEY or Vertex settings).
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator for model.
func NewGeminiGenerator(ctx context.Context, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GeminiGenerator.Generate: generate content: %w", err)
	}
	return resp.Text(), nil
}

// geminiStrategy asks a language model to pick one of the candidate categories.
type geminiStrategy struct {
	generator Generator
}

func (geminiStrategy) Name() string { return "gemini" }

func (s geminiStrategy) Suggest(ctx context.Context, q Query) (*Suggestion, error) {
	if len(q.Candidates) == 0 || q.Normalized == "" {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("You categorize personal finance transactions.\n\n")
	fmt.Fprintf(&b, "Transaction description: %q\n", q.Description)
	fmt.Fprintf(&b, "Amount: %.2f\n\n", q.Amount)
	b.WriteString("Categories:\n")
	for _, c := range q.Candidates {
		fmt.Fprintf(&b, "- %s\n", c.Name)
	}
	b.WriteString("\nReply with exactly one category name from the list, or NONE if none fits.\n")
	b.WriteString("Do NOT add any other text.\n")

	answer, err := s.generator.Generate(ctx, b.String())
	if err != nil {
		return nil, fmt.Errorf("geminiStrategy: %w", err)
	}
	answer = features.Normalize(answer)
	for _, c := range q.Candidates {
		if features.Normalize(c.Name) == answer {
			return &Suggestion{CategoryID: c.ID, Confidence: GeminiConfidence}, nil
		}
	}
	return nil, nil
}
