// Package forecast predicts next-month spending per category from a
// weighted moving average of monthly totals.
package forecast

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/analytics"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

// Trend directions.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

const (
	// WindowMonths is the trailing history used for forecasts, including the current month.
	WindowMonths = 12

	minMonthsForWeighting = 3
	sparseConfidence      = 0.3
	trendThresholdPercent = 5.0
)

// MonthlyAggregate is the absolute total of one category in one month.
type MonthlyAggregate struct {
	Month  string  `json:"month"` // YYYY-MM
	Amount float64 `json:"amount"`
}

// CategoryPrediction is the forecast for one expense category.
type CategoryPrediction struct {
	CategoryID          string             `json:"categoryId"`
	CategoryName        string             `json:"categoryName"`
	NextMonthPrediction float64            `json:"nextMonthPrediction"`
	Confidence          float64            `json:"confidence"`
	Trend               string             `json:"trend"`
	PercentChange       float64            `json:"percentChange"`
	CurrentMonthActual  float64            `json:"currentMonthActual"`
	HistoricalData      []MonthlyAggregate `json:"historicalData"`
}

// Forecaster computes spending forecasts. Lookup failures are logged and
// produce empty results.
type Forecaster struct {
	transactions analytics.TransactionsProvider
	categories   analytics.CategoriesProvider
	log          zerolog.Logger
	now          func() time.Time
}

// New creates a Forecaster.
func New(transactions analytics.TransactionsProvider, categories analytics.CategoriesProvider, log zerolog.Logger) *Forecaster {
	return &Forecaster{
		transactions: transactions,
		categories:   categories,
		log:          logger.Component(log, "forecast"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// PredictNextMonthSpending forecasts every expense category that has paid
// transactions in the trailing window, largest prediction first.
func (f *Forecaster) PredictNextMonthSpending(ctx context.Context, userID string) []CategoryPrediction {
	log := f.log.With().Str("user_id", userID).Str("op", "predict").Logger()
	now := f.now()

	categories, err := f.categories.FindAll(ctx, userID, domain.CategoryTypeExpense)
	if err != nil {
		log.Warn().Err(err).Msg("load categories failed")
		return []CategoryPrediction{}
	}
	txs, err := f.transactions.FindByPeriod(ctx, userID, analytics.MonthStart(now, -(WindowMonths-1)), now)
	if err != nil {
		log.Warn().Err(err).Msg("load transactions failed")
		return []CategoryPrediction{}
	}

	currentMonth := analytics.MonthKey(now)
	out := []CategoryPrediction{}
	for _, c := range categories {
		history := Aggregate(txs, c.ID)
		if len(history) == 0 {
			continue
		}
		prediction, confidence := WeightedMovingAverage(history)

		var current float64
		for _, m := range history {
			if m.Month == currentMonth {
				current = m.Amount
			}
		}
		trend, pct := Trend(prediction, current)

		out = append(out, CategoryPrediction{
			CategoryID:          c.ID,
			CategoryName:        c.Name,
			NextMonthPrediction: prediction,
			Confidence:          confidence,
			Trend:               trend,
			PercentChange:       pct,
			CurrentMonthActual:  current,
			HistoricalData:      history,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextMonthPrediction > out[j].NextMonthPrediction
	})
	return out
}

// GetCategoryTrend returns one category's monthly totals for the trailing
// months (current month included), with a zero entry for every month
// without data. A non-positive months selects WindowMonths.
func (f *Forecaster) GetCategoryTrend(ctx context.Context, userID, categoryID string, months int) []MonthlyAggregate {
	log := f.log.With().Str("user_id", userID).Str("category_id", categoryID).Str("op", "trend").Logger()
	if months <= 0 {
		months = WindowMonths
	}
	now := f.now()

	if _, err := f.categories.FindOne(ctx, categoryID, userID); err != nil {
		log.Warn().Err(err).Msg("load category failed")
		return []MonthlyAggregate{}
	}
	txs, err := f.transactions.FindByPeriod(ctx, userID, analytics.MonthStart(now, -(months-1)), now)
	if err != nil {
		log.Warn().Err(err).Msg("load transactions failed")
		return []MonthlyAggregate{}
	}

	totals := map[string]float64{}
	for _, m := range Aggregate(txs, categoryID) {
		totals[m.Month] = m.Amount
	}
	out := make([]MonthlyAggregate, 0, months)
	for i := months - 1; i >= 0; i-- {
		key := analytics.MonthKey(analytics.MonthStart(now, -i))
		out = append(out, MonthlyAggregate{Month: key, Amount: totals[key]})
	}
	return out
}

// Aggregate sums the absolute amounts of the paid transactions of one
// category per calendar month, oldest month first. Months without
// transactions are absent.
func Aggregate(txs []domain.Transaction, categoryID string) []MonthlyAggregate {
	totals := map[string]float64{}
	for _, t := range txs {
		if !t.IsPaid || t.CategoryID != categoryID {
			continue
		}
		totals[analytics.MonthKey(t.Date)] += math.Abs(t.Amount.InexactFloat64())
	}
	out := make([]MonthlyAggregate, 0, len(totals))
	for month, amount := range totals {
		out = append(out, MonthlyAggregate{Month: month, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// WeightedMovingAverage predicts the next value of a monthly series. With
// fewer than three months it returns the simple mean at a fixed low
// confidence. Otherwise month i (oldest = 1) gets weight i and confidence
// falls with the coefficient of variation around the weighted average and
// rises with the amount of history, reaching full weight at a year.
func WeightedMovingAverage(history []MonthlyAggregate) (amount, confidence float64) {
	sorted := append([]MonthlyAggregate(nil), history...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Month < sorted[j].Month })

	amounts := make([]float64, len(sorted))
	for i, m := range sorted {
		amounts[i] = m.Amount
	}
	n := len(amounts)
	if n < minMonthsForWeighting {
		return analytics.Mean(amounts), sparseConfidence
	}

	var weighted, weights float64
	for i, a := range amounts {
		w := float64(i + 1)
		weighted += a * w
		weights += w
	}
	avg := weighted / weights

	var cv float64
	if avg != 0 {
		cv = analytics.StdDevAround(amounts, avg) / avg
	}
	confidence = (1 - math.Min(cv, 1)) * math.Min(float64(n)/WindowMonths, 1)
	return avg, confidence
}

// Trend compares a prediction with the current month's actual spending.
// Percent change is 0 when nothing has been spent yet this month.
func Trend(prediction, current float64) (string, float64) {
	var pct float64
	if current != 0 {
		pct = (prediction - current) / current * 100
	}
	return TrendOf(pct), pct
}

// TrendOf classifies a percent change; only moves strictly beyond 5% count.
func TrendOf(percentChange float64) string {
	switch {
	case percentChange > trendThresholdPercent:
		return TrendIncreasing
	case percentChange < -trendThresholdPercent:
		return TrendDecreasing
	}
	return TrendStable
}
