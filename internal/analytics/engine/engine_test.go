package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/smart-ledger/internal/analytics/analyticstest"
	"github.com/dvloznov/smart-ledger/internal/config"
	"github.com/dvloznov/smart-ledger/internal/database"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/infra/sqlite"
)

func TestNew_SQLite(t *testing.T) {
	db, err := database.OpenMigrated(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{Analytics: config.AnalyticsConfig{Source: "sqlite", Similarity: "substring", TrainingLimit: 10}}
	e, err := New(context.Background(), cfg, sqlite.NewRepositories(db), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	require.NoError(t, e.Classifier.Train(context.Background()))
	assert.True(t, e.Classifier.Ready())

	d, err := e.Dashboard.Build(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, d.Predictions)
}

func TestNewFromSources_Levenshtein(t *testing.T) {
	l := &analyticstest.Ledger{}
	l.AddCategory("u1", "netflix", "Streaming", domain.CategoryTypeExpense)
	l.Paid("t1", "u1", "netflix", "NETFLIX.COM", -15.99, time.Now().AddDate(0, 0, -3))

	cfg := config.AnalyticsConfig{Similarity: "levenshtein", LevenshteinMaxDistance: 2}
	e, err := NewFromSources(Sources{Transactions: l, Categories: l.CategoryProvider()}, cfg, nil, zerolog.Nop())
	require.NoError(t, err)

	s := e.Classifier.SuggestCategory(context.Background(), "netflix com", -15.99, "u1")
	require.NotNil(t, s)
	assert.Equal(t, "netflix", s.CategoryID)
	assert.Equal(t, "similar", s.Strategy)
}

func TestNewFromSources_UnknownMatcher(t *testing.T) {
	_, err := NewFromSources(Sources{}, config.AnalyticsConfig{Similarity: "cosine"}, nil, zerolog.Nop())
	assert.Error(t, err)
}
