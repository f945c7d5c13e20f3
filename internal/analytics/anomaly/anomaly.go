// Package anomaly flags unusual transactions and overdue recurring payments.
package anomaly

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/analytics"
	"github.com/dvloznov/smart-ledger/internal/analytics/features"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

const (
	// AnomalyWindowDays is the history examined for outliers.
	AnomalyWindowDays = 90

	// RecurrenceWindowDays is the history examined for recurring payments.
	RecurrenceWindowDays = 180

	// DefaultMaxResults caps DetectAnomalies when no limit is given.
	DefaultMaxResults = 5

	// ZThreshold is the z-score a transaction must exceed to be flagged.
	ZThreshold = 2.0

	UncategorizedScore  = 0.7
	UncategorizedReason = "uncategorized transaction"

	minTransactions    = 5
	minGroupSize       = 3
	maxRecurrenceCV    = 0.3
	overdueFactor      = 1.5
	highBandFactor     = 0.9
	lowBandFactor      = 1.1
	zScoreForFullAlarm = 4.0
)

// CategoryStats summarizes the signed amounts of one category.
type CategoryStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// StatsOf computes CategoryStats over amounts. Standard deviation is the
// population form.
func StatsOf(amounts []float64) CategoryStats {
	if len(amounts) == 0 {
		return CategoryStats{}
	}
	s := CategoryStats{
		Mean:   analytics.Mean(amounts),
		Median: analytics.Median(amounts),
		Min:    amounts[0],
		Max:    amounts[0],
	}
	s.StdDev = analytics.StdDevAround(amounts, s.Mean)
	for _, a := range amounts[1:] {
		s.Min = math.Min(s.Min, a)
		s.Max = math.Max(s.Max, a)
	}
	return s
}

// ZScore returns |amount - mean| / stdDev. ok is false when stdDev is zero,
// in which case no amount of the group is considered unusual.
func (s CategoryStats) ZScore(amount float64) (z float64, ok bool) {
	if s.StdDev == 0 {
		return 0, false
	}
	return math.Abs(amount-s.Mean) / s.StdDev, true
}

// IsAnomalous reports whether z is strictly beyond ZThreshold.
func IsAnomalous(z float64) bool {
	return z > ZThreshold
}

// Score maps a z-score onto [0, 1]; z of 4 or more is a full alarm.
func Score(z float64) float64 {
	return math.Min(z/zScoreForFullAlarm, 1)
}

// Reason describes how far amount sits from the category's usual values.
func (s CategoryStats) Reason(amount float64) string {
	var pct float64
	if s.Mean != 0 {
		pct = math.Abs(amount-s.Mean) / math.Abs(s.Mean) * 100
	}
	if amount > s.Mean {
		label := "above normal"
		if amount > s.Max*highBandFactor {
			label = "exceptionally high"
		}
		return fmt.Sprintf("%s: %.0f%% above the category average of %.2f", label, pct, s.Mean)
	}
	label := "below normal"
	if amount < s.Min*lowBandFactor {
		label = "exceptionally low"
	}
	return fmt.Sprintf("%s: %.0f%% below the category average of %.2f", label, pct, s.Mean)
}

// AnomalyDetection is a transaction flagged as unusual.
type AnomalyDetection struct {
	TransactionID string    `json:"transactionId"`
	Description   string    `json:"description"`
	CategoryID    string    `json:"categoryId,omitempty"`
	Amount        float64   `json:"amount"`
	Date          time.Time `json:"date"`
	ZScore        float64   `json:"zScore,omitempty"`
	AnomalyScore  float64   `json:"anomalyScore"`
	Reason        string    `json:"reason"`
}

// MissingRecurrence is a recurring payment that has not shown up on time.
type MissingRecurrence struct {
	Description     string    `json:"description"`
	CategoryID      string    `json:"categoryId,omitempty"`
	Category        string    `json:"category,omitempty"`
	LastDate        time.Time `json:"lastDate"`
	ExpectedDate    time.Time `json:"expectedDate"`
	DaysPastDue     float64   `json:"daysPastDue"`
	AverageAmount   float64   `json:"averageAmount"`
	AverageInterval float64   `json:"averageInterval"`
}

// Detector finds anomalies in a user's paid transactions. Lookup failures
// are logged and produce empty results.
type Detector struct {
	transactions analytics.TransactionsProvider
	categories   analytics.CategoriesProvider
	matcher      features.Matcher
	log          zerolog.Logger
	now          func() time.Time
}

// New creates a Detector. A nil matcher selects substring matching.
func New(transactions analytics.TransactionsProvider, categories analytics.CategoriesProvider, matcher features.Matcher, log zerolog.Logger) *Detector {
	if matcher == nil {
		matcher = features.SubstringMatcher{}
	}
	return &Detector{
		transactions: transactions,
		categories:   categories,
		matcher:      matcher,
		log:          logger.Component(log, "anomaly"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// DetectAnomalies returns the strongest outliers of the last 90 days,
// together with every uncategorized transaction, highest score first.
func (d *Detector) DetectAnomalies(ctx context.Context, userID string, maxResults int) []AnomalyDetection {
	log := d.log.With().Str("user_id", userID).Str("op", "anomalies").Logger()
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	today := domain.Day(d.now())

	txs, err := d.transactions.FindByPeriod(ctx, userID, today.AddDate(0, 0, -AnomalyWindowDays), today)
	if err != nil {
		log.Warn().Err(err).Msg("load transactions failed")
		return []AnomalyDetection{}
	}
	if len(txs) < minTransactions {
		return []AnomalyDetection{}
	}

	var order []string
	groups := map[string][]domain.Transaction{}
	out := []AnomalyDetection{}
	for _, t := range txs {
		if !t.Categorized() {
			out = append(out, detection(t, 0, UncategorizedScore, UncategorizedReason))
			continue
		}
		if _, seen := groups[t.CategoryID]; !seen {
			order = append(order, t.CategoryID)
		}
		groups[t.CategoryID] = append(groups[t.CategoryID], t)
	}

	for _, id := range order {
		group := groups[id]
		if len(group) < minGroupSize {
			continue
		}
		amounts := make([]float64, len(group))
		for i, t := range group {
			amounts[i] = t.Amount.InexactFloat64()
		}
		stats := StatsOf(amounts)
		for i, t := range group {
			z, ok := stats.ZScore(amounts[i])
			if !ok || !IsAnomalous(z) {
				continue
			}
			out = append(out, detection(t, z, Score(z), stats.Reason(amounts[i])))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].AnomalyScore > out[j].AnomalyScore })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

func detection(t domain.Transaction, z, score float64, reason string) AnomalyDetection {
	return AnomalyDetection{
		TransactionID: t.ID,
		Description:   t.Description,
		CategoryID:    t.CategoryID,
		Amount:        t.Amount.InexactFloat64(),
		Date:          t.Date,
		ZScore:        z,
		AnomalyScore:  score,
		Reason:        reason,
	}
}

type recurrenceGroup struct {
	key     string
	members []domain.Transaction
}

// DetectUnusualFrequency returns recurring payments of the last 180 days
// whose next occurrence is more than half an interval overdue, most overdue first.
// Descriptions are grouped on first match in date order.
func (d *Detector) DetectUnusualFrequency(ctx context.Context, userID string) []MissingRecurrence {
	log := d.log.With().Str("user_id", userID).Str("op", "recurrence").Logger()
	today := domain.Day(d.now())

	txs, err := d.transactions.FindByPeriod(ctx, userID, today.AddDate(0, 0, -RecurrenceWindowDays), today)
	if err != nil {
		log.Warn().Err(err).Msg("load transactions failed")
		return []MissingRecurrence{}
	}

	var groups []*recurrenceGroup
	for _, t := range txs {
		key := features.Normalize(t.Description)
		if key == "" {
			continue
		}
		var target *recurrenceGroup
		for _, g := range groups {
			if d.matcher.Match(g.key, key) {
				target = g
				break
			}
		}
		if target == nil {
			target = &recurrenceGroup{key: key}
			groups = append(groups, target)
		}
		target.members = append(target.members, t)
	}

	names := map[string]string{}
	if categories, err := d.categories.FindAll(ctx, userID, ""); err != nil {
		log.Warn().Err(err).Msg("load categories failed")
	} else {
		for _, c := range categories {
			names[c.ID] = c.Name
		}
	}

	out := []MissingRecurrence{}
	for _, g := range groups {
		if len(g.members) < minGroupSize {
			continue
		}
		members := g.members
		sort.SliceStable(members, func(i, j int) bool { return members[i].Date.Before(members[j].Date) })

		intervals := make([]float64, 0, len(members)-1)
		amounts := make([]float64, len(members))
		for i, t := range members {
			amounts[i] = math.Abs(t.Amount.InexactFloat64())
			if i > 0 {
				intervals = append(intervals, days(members[i].Date.Sub(members[i-1].Date)))
			}
		}
		avg := analytics.Mean(intervals)
		if avg == 0 || analytics.StdDevAround(intervals, avg)/avg >= maxRecurrenceCV {
			continue
		}

		last := members[len(members)-1]
		since := days(today.Sub(last.Date))
		if since <= avg*overdueFactor {
			continue
		}
		out = append(out, MissingRecurrence{
			Description:     last.Description,
			CategoryID:      last.CategoryID,
			Category:        names[last.CategoryID],
			LastDate:        last.Date,
			ExpectedDate:    last.Date.AddDate(0, 0, int(math.Round(avg))),
			DaysPastDue:     since - avg,
			AverageAmount:   analytics.Mean(amounts),
			AverageInterval: avg,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysPastDue > out[j].DaysPastDue })
	return out
}

func days(d time.Duration) float64 {
	return d.Hours() / 24
}
