package classifier

import (
	"math"
	"sort"
)

// Model is a multinomial naive Bayes text model with Laplace smoothing.
// A Model is never mutated once published; writers build a clone and swap it.
type Model struct {
	docs        int
	labelDocs   map[string]int
	tokenCounts map[string]map[string]int
	labelTokens map[string]int
	vocabulary  map[string]struct{}
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		labelDocs:   map[string]int{},
		tokenCounts: map[string]map[string]int{},
		labelTokens: map[string]int{},
		vocabulary:  map[string]struct{}{},
	}
}

// Documents returns the number of training documents.
func (m *Model) Documents() int {
	return m.docs
}

// Labels returns the trained labels in sorted order.
func (m *Model) Labels() []string {
	labels := make([]string, 0, len(m.labelDocs))
	for l := range m.labelDocs {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Clone returns a deep copy of m.
func (m *Model) Clone() *Model {
	c := NewModel()
	c.docs = m.docs
	for l, n := range m.labelDocs {
		c.labelDocs[l] = n
	}
	for l, counts := range m.tokenCounts {
		cp := make(map[string]int, len(counts))
		for tok, n := range counts {
			cp[tok] = n
		}
		c.tokenCounts[l] = cp
	}
	for l, n := range m.labelTokens {
		c.labelTokens[l] = n
	}
	for tok := range m.vocabulary {
		c.vocabulary[tok] = struct{}{}
	}
	return c
}

// Add records one document. It must only be called on an unpublished model.
func (m *Model) Add(label string, tokens []string) {
	if label == "" {
		return
	}
	m.docs++
	m.labelDocs[label]++
	counts, ok := m.tokenCounts[label]
	if !ok {
		counts = map[string]int{}
		m.tokenCounts[label] = counts
	}
	for _, tok := range tokens {
		counts[tok]++
		m.labelTokens[label]++
		m.vocabulary[tok] = struct{}{}
	}
}

// Prediction is one label with its posterior probability.
type Prediction struct {
	Label       string
	Probability float64
}

// Classify returns the posterior of every label given tokens, highest first.
// Tokens outside the vocabulary are ignored. Ties are broken by label.
func (m *Model) Classify(tokens []string) []Prediction {
	if m.docs == 0 {
		return nil
	}
	labels := m.Labels()
	vocab := float64(len(m.vocabulary))
	logs := make([]float64, len(labels))
	maxLog := math.Inf(-1)
	for i, l := range labels {
		lp := math.Log(float64(m.labelDocs[l]) / float64(m.docs))
		denom := float64(m.labelTokens[l]) + vocab
		for _, tok := range tokens {
			if _, known := m.vocabulary[tok]; !known {
				continue
			}
			lp += math.Log((float64(m.tokenCounts[l][tok]) + 1) / denom)
		}
		logs[i] = lp
		if lp > maxLog {
			maxLog = lp
		}
	}

	var total float64
	out := make([]Prediction, len(labels))
	for i, l := range labels {
		p := math.Exp(logs[i] - maxLog)
		out[i] = Prediction{Label: l, Probability: p}
		total += p
	}
	for i := range out {
		out[i].Probability /= total
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	return out
}
