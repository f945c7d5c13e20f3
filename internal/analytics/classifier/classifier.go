// Package classifier suggests categories for transactions. Suggestions come
// from an ordered chain of strategies: a naive Bayes model trained on the
// ledger, similar recent transactions, a keyword map, an optional language
// model and finally the first category of the right polarity.
package classifier

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/analytics"
	"github.com/dvloznov/smart-ledger/internal/analytics/features"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

// Defaults.
const (
	DefaultTrainingLimit = 5000
	DefaultRecentLimit   = 100
	minFeedbackWordLen   = 4
)

// Options tune a Classifier. Zero values select the defaults.
type Options struct {
	Keywords      *Keywords
	Matcher       features.Matcher
	TrainingLimit int
	RecentLimit   int

	// Generator enables the language model strategy when non-nil.
	Generator Generator
}

// Classifier owns the process-wide model. Suggestions read the current model
// without locking; training and feedback are serialized and publish a new
// model atomically.
type Classifier struct {
	transactions analytics.TransactionsProvider
	categories   analytics.CategoriesProvider
	keywords     *Keywords
	log          zerolog.Logger

	trainingLimit int
	chain         []Strategy
	fallback      Strategy

	mu       sync.Mutex
	feedback map[string]feedbackDoc // by transaction ID, guarded by mu
	model    atomic.Pointer[Model]
	ready    atomic.Bool
}

// feedbackDoc is a training document taught through LearnFromFeedback.
type feedbackDoc struct {
	label  string
	tokens []string
}

// New builds a classifier with an empty model. Call Train to load history.
func New(transactions analytics.TransactionsProvider, categories analytics.CategoriesProvider, log zerolog.Logger, opts Options) *Classifier {
	if opts.Keywords == nil {
		opts.Keywords = NewKeywords()
	}
	if opts.Matcher == nil {
		opts.Matcher = features.SubstringMatcher{}
	}
	if opts.TrainingLimit <= 0 {
		opts.TrainingLimit = DefaultTrainingLimit
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}

	c := &Classifier{
		transactions:  transactions,
		categories:    categories,
		keywords:      opts.Keywords,
		log:           logger.Component(log, "classifier"),
		trainingLimit: opts.TrainingLimit,
		fallback:      fallbackStrategy{},
		feedback:      map[string]feedbackDoc{},
	}
	c.model.Store(NewModel())

	c.chain = []Strategy{
		modelStrategy{model: c.model.Load},
		similarStrategy{transactions: transactions, matcher: opts.Matcher, limit: opts.RecentLimit},
		keywordStrategy{keywords: opts.Keywords},
	}
	if opts.Generator != nil {
		c.chain = append(c.chain, geminiStrategy{generator: opts.Generator})
	}
	c.chain = append(c.chain, c.fallback)
	return c
}

// Train rebuilds the model from the most recent categorized transactions of
// all users and marks the classifier ready. Feedback recorded earlier is
// replayed unless the history already carries the taught category.
func (c *Classifier) Train(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	txs, err := c.transactions.FindCategorized(ctx, c.trainingLimit)
	if err != nil {
		return fmt.Errorf("Classifier.Train: load history: %w", err)
	}

	m := NewModel()
	inHistory := make(map[string]string, len(txs))
	for _, t := range txs {
		m.Add(t.CategoryID, features.Tokens(t.Description, t.Amount.InexactFloat64()))
		inHistory[t.ID] = t.CategoryID
	}
	replayed := 0
	for id, doc := range c.feedback {
		if inHistory[id] == doc.label {
			delete(c.feedback, id)
			continue
		}
		m.Add(doc.label, doc.tokens)
		replayed++
	}
	c.model.Store(m)
	c.ready.Store(true)

	c.log.Info().Int("documents", m.Documents()).Int("labels", len(m.Labels())).
		Int("feedback_replayed", replayed).Msg("classifier trained")
	return nil
}

// Ready reports whether the startup training has completed.
func (c *Classifier) Ready() bool {
	return c.ready.Load()
}

// Documents returns the size of the current training set.
func (c *Classifier) Documents() int {
	return c.model.Load().Documents()
}

// SuggestCategory proposes a category for a transaction. It returns nil when
// the user has no category of the right polarity or when lookups fail.
func (c *Classifier) SuggestCategory(ctx context.Context, description string, amount float64, userID string) *Suggestion {
	log := c.log.With().Str("user_id", userID).Str("op", "suggest").Logger()

	categories, err := c.categories.FindAll(ctx, userID, "")
	if err != nil {
		log.Warn().Err(err).Msg("load categories failed")
		return nil
	}
	q := newQuery(userID, description, amount, categories)

	chain := c.chain
	if q.Normalized == "" {
		chain = []Strategy{c.fallback}
	}
	for _, s := range chain {
		sug, err := s.Suggest(ctx, q)
		if err != nil {
			log.Warn().Err(err).Str("strategy", s.Name()).Msg("strategy failed")
			continue
		}
		if sug != nil {
			sug.Strategy = s.Name()
			return sug
		}
	}
	return nil
}

// LearnFromFeedback records that transactionID belongs to categoryID. The
// transaction and category must belong to userID. The new document is
// visible to suggestions once this returns; a failed model update is logged
// and leaves the previous model in place.
func (c *Classifier) LearnFromFeedback(ctx context.Context, transactionID, categoryID, userID string) error {
	t, err := c.transactions.FindOne(ctx, transactionID, userID)
	if err != nil {
		return fmt.Errorf("LearnFromFeedback: %w", err)
	}
	category, err := c.categories.FindOne(ctx, categoryID, userID)
	if err != nil {
		return fmt.Errorf("LearnFromFeedback: %w", err)
	}

	c.retrain(t.ID, categoryID, features.Tokens(t.Description, t.Amount.InexactFloat64()))

	var words []string
	for _, w := range features.Words(t.Description) {
		if len([]rune(w)) >= minFeedbackWordLen {
			words = append(words, w)
		}
	}
	c.keywords.Learn(userID, category.ID, words)

	c.log.Debug().Str("user_id", userID).Str("transaction_id", transactionID).
		Str("category_id", categoryID).Int("keywords", len(words)).Msg("feedback recorded")
	return nil
}

func (c *Classifier) retrain(transactionID, label string, tokens []string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("retrain failed; keeping previous model")
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.model.Load().Clone()
	next.Add(label, tokens)
	c.model.Store(next)
	c.feedback[transactionID] = feedbackDoc{label: label, tokens: tokens}
}
