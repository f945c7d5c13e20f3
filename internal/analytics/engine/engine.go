// Package engine assembles the analytics services from configuration.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/analytics"
	"github.com/dvloznov/smart-ledger/internal/analytics/anomaly"
	"github.com/dvloznov/smart-ledger/internal/analytics/classifier"
	"github.com/dvloznov/smart-ledger/internal/analytics/dashboard"
	"github.com/dvloznov/smart-ledger/internal/analytics/features"
	"github.com/dvloznov/smart-ledger/internal/analytics/forecast"
	"github.com/dvloznov/smart-ledger/internal/config"
	infraBQ "github.com/dvloznov/smart-ledger/internal/infra/bigquery"
	"github.com/dvloznov/smart-ledger/internal/infra/sqlite"
)

// Sources are the read providers analytics runs on.
type Sources struct {
	Transactions analytics.TransactionsProvider
	Categories   analytics.CategoriesProvider
}

// Engine bundles the analytics services sharing one set of sources.
type Engine struct {
	Classifier *classifier.Classifier
	Forecaster *forecast.Forecaster
	Detector   *anomaly.Detector
	Dashboard  *dashboard.Service

	closers []func() error
}

// New builds the engine. With analytics.source=bigquery reads go to the
// warehouse; otherwise they go to the local repositories.
func New(ctx context.Context, cfg config.Config, repos sqlite.Repositories, log zerolog.Logger) (*Engine, error) {
	e := &Engine{}
	src := Sources{Transactions: repos.Transactions, Categories: repos.Categories}

	if cfg.Analytics.Source == "bigquery" {
		w, err := infraBQ.NewWarehouse(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
		if err != nil {
			return nil, fmt.Errorf("engine.New: %w", err)
		}
		e.closers = append(e.closers, w.Close)
		src = Sources{Transactions: w.Transactions(), Categories: w.Categories()}
		log.Info().Str("project", cfg.BigQuery.ProjectID).Str("dataset", cfg.BigQuery.Dataset).Msg("analytics reading from BigQuery")
	}

	var gen classifier.Generator
	if cfg.Gemini.Enabled {
		g, err := classifier.NewGeminiGenerator(ctx, cfg.Gemini.Model)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine.New: %w", err)
		}
		gen = g
	}

	if err := e.build(src, cfg.Analytics, gen, log); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

// NewFromSources builds the engine over explicit providers.
func NewFromSources(src Sources, cfg config.AnalyticsConfig, gen classifier.Generator, log zerolog.Logger) (*Engine, error) {
	e := &Engine{}
	if err := e.build(src, cfg, gen, log); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) build(src Sources, cfg config.AnalyticsConfig, gen classifier.Generator, log zerolog.Logger) error {
	matcher, err := features.NewMatcher(cfg.Similarity, cfg.LevenshteinMaxDistance)
	if err != nil {
		return fmt.Errorf("engine.New: %w", err)
	}
	keywords, err := classifier.DefaultKeywords()
	if err != nil {
		return fmt.Errorf("engine.New: %w", err)
	}

	e.Classifier = classifier.New(src.Transactions, src.Categories, log, classifier.Options{
		Keywords:      keywords,
		Matcher:       matcher,
		TrainingLimit: cfg.TrainingLimit,
		Generator:     gen,
	})
	e.Forecaster = forecast.New(src.Transactions, src.Categories, log)
	e.Detector = anomaly.New(src.Transactions, src.Categories, matcher, log)
	e.Dashboard = dashboard.New(e.Forecaster, e.Detector, anomaly.DefaultMaxResults)
	return nil
}

// Close releases warehouse connections.
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
