package classifier

import (
	"context"
	"fmt"

	"github.com/dvloznov/smart-ledger/internal/analytics"
	"github.com/dvloznov/smart-ledger/internal/analytics/features"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

// Confidence assigned by each strategy.
const (
	MinModelProbability = 0.3
	SimilarConfidence   = 0.85
	KeywordConfidence   = 0.7
	GeminiConfidence    = 0.6
	FallbackConfidence  = 0.3

	// AutoApplyConfidence is the level at which callers may apply a
	// suggestion without asking the user.
	AutoApplyConfidence = 0.5
)

// Suggestion is a proposed category for a transaction.
type Suggestion struct {
	CategoryID string  `json:"categoryId"`
	Confidence float64 `json:"confidence"`
	Strategy   string  `json:"strategy"`
}

// AutoApply reports whether the suggestion is confident enough to apply unasked.
func (s Suggestion) AutoApply() bool {
	return s.Confidence >= AutoApplyConfidence
}

// Query is the input shared by every strategy of one suggestion request.
type Query struct {
	UserID      string
	Description string
	Normalized  string
	Amount      float64

	// Categories holds all of the user's categories in creation order.
	Categories []domain.Category
	// Candidates holds the categories matching the amount's polarity.
	Candidates []domain.Category
}

func newQuery(userID, description string, amount float64, categories []domain.Category) Query {
	polarity := domain.PolarityOf(amount)
	q := Query{
		UserID:      userID,
		Description: description,
		Normalized:  features.Normalize(description),
		Amount:      amount,
		Categories:  categories,
	}
	for _, c := range categories {
		if c.Type.Matches(polarity) {
			q.Candidates = append(q.Candidates, c)
		}
	}
	return q
}

// Owns reports whether id is one of the user's categories.
func (q Query) Owns(id string) bool {
	for _, c := range q.Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Strategy is one step of the suggestion chain. A nil suggestion with a nil
// error passes the query to the next strategy.
type Strategy interface {
	Name() string
	Suggest(ctx context.Context, q Query) (*Suggestion, error)
}

// modelStrategy asks the naive Bayes model.
type modelStrategy struct {
	model func() *Model
}

func (modelStrategy) Name() string { return "model" }

func (s modelStrategy) Suggest(_ context.Context, q Query) (*Suggestion, error) {
	m := s.model()
	if m == nil || m.Documents() == 0 {
		return nil, nil
	}
	preds := m.Classify(features.Tokens(q.Description, q.Amount))
	if len(preds) == 0 {
		return nil, nil
	}
	top := preds[0]
	// the model is shared across users
	if top.Probability <= MinModelProbability || !q.Owns(top.Label) {
		return nil, nil
	}
	return &Suggestion{CategoryID: top.Label, Confidence: top.Probability}, nil
}

// similarStrategy reuses the category of a recent transaction with a
// matching description.
type similarStrategy struct {
	transactions analytics.TransactionsProvider
	matcher      features.Matcher
	limit        int
}

func (similarStrategy) Name() string { return "similar" }

func (s similarStrategy) Suggest(ctx context.Context, q Query) (*Suggestion, error) {
	if q.Normalized == "" {
		return nil, nil
	}
	recent, err := s.transactions.FindRecent(ctx, q.UserID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("similarStrategy: find recent: %w", err)
	}
	for _, t := range recent {
		if !t.Categorized() {
			continue
		}
		if s.matcher.Match(features.Normalize(t.Description), q.Normalized) {
			return &Suggestion{CategoryID: t.CategoryID, Confidence: SimilarConfidence}, nil
		}
	}
	return nil, nil
}

// keywordStrategy matches the description against each candidate's keywords.
type keywordStrategy struct {
	keywords *Keywords
}

func (keywordStrategy) Name() string { return "keyword" }

func (s keywordStrategy) Suggest(_ context.Context, q Query) (*Suggestion, error) {
	for _, c := range q.Candidates {
		if s.keywords.MatchesCategory(q.UserID, c, q.Normalized) {
			return &Suggestion{CategoryID: c.ID, Confidence: KeywordConfidence}, nil
		}
	}
	return nil, nil
}

// fallbackStrategy picks the first category of the right polarity.
type fallbackStrategy struct{}

func (fallbackStrategy) Name() string { return "fallback" }

func (fallbackStrategy) Suggest(_ context.Context, q Query) (*Suggestion, error) {
	if len(q.Candidates) == 0 {
		return nil, nil
	}
	return &Suggestion{CategoryID: q.Candidates[0].ID, Confidence: FallbackConfidence}, nil
}
