package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/smart-ledger/internal/analytics/anomaly"
	"github.com/dvloznov/smart-ledger/internal/analytics/forecast"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// migrations run when the database is opened
			success(cmd.OutOrStdout(), "database %s is up to date", a.cfg.Database.Path)
			return nil
		},
	}
}

func newSuggestCommand(a *app) *cobra.Command {
	var amount float64
	cmd := &cobra.Command{
		Use:   "suggest <description>",
		Short: "Suggest a category for a transaction description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.engine.Classifier.Train(ctx); err != nil {
				return err
			}

			description := strings.Join(args, " ")
			s := a.engine.Classifier.SuggestCategory(ctx, description, amount, a.userID)
			w := cmd.OutOrStdout()
			if a.json {
				return writeJSON(w, map[string]any{"suggestion": s})
			}
			if s == nil {
				warning(w, "no category of the right type for %q", description)
				return nil
			}

			name := s.CategoryID
			if c, err := a.repos.Categories.FindOne(ctx, s.CategoryID, a.userID); err == nil {
				name = c.Name
			}
			fmt.Fprintf(w, "%s  confidence %.2f via %s", bold.Sprint(name), s.Confidence, s.Strategy)
			if s.AutoApply() {
				green.Fprint(w, "  (auto-apply)")
			}
			fmt.Fprintln(w)
			return nil
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 0, "signed amount; negative for expenses")
	return cmd
}

func newForecastCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forecast",
		Short: "Predict next month's spending per expense category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			predictions := a.engine.Forecaster.PredictNextMonthSpending(cmd.Context(), a.userID)
			w := cmd.OutOrStdout()
			if a.json {
				return writeJSON(w, predictions)
			}
			printForecast(cmd, predictions)
			return nil
		},
	}
}

func printForecast(cmd *cobra.Command, predictions []forecast.CategoryPrediction) {
	w := cmd.OutOrStdout()
	header(w, "Next month forecast")
	if len(predictions) == 0 {
		fmt.Fprintln(w, "no spending history")
		return
	}
	var total float64
	for _, p := range predictions {
		total += p.NextMonthPrediction
		fmt.Fprintf(w, "%-24s %10.2f  conf %.2f  ", p.CategoryName, p.NextMonthPrediction, p.Confidence)
		trendColor(p.Trend).Fprintf(w, "%s (%+.1f%%)\n", p.Trend, p.PercentChange)
	}
	bold.Fprintf(w, "%-24s %10.2f\n", "total", total)
}

func newTrendCommand(a *app) *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "trend <category-id>",
		Short: "Show a category's monthly totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			series := a.engine.Forecaster.GetCategoryTrend(cmd.Context(), a.userID, args[0], months)
			w := cmd.OutOrStdout()
			if a.json {
				return writeJSON(w, series)
			}
			if len(series) == 0 {
				warning(w, "category %s not found", args[0])
				return nil
			}
			header(w, "Monthly totals")
			for _, m := range series {
				fmt.Fprintf(w, "%s %10.2f\n", m.Month, m.Amount)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&months, "months", forecast.WindowMonths, "number of trailing months")
	return cmd
}

func newAnomaliesCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "List unusual transactions of the last 90 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			found := a.engine.Detector.DetectAnomalies(cmd.Context(), a.userID, limit)
			w := cmd.OutOrStdout()
			if a.json {
				return writeJSON(w, found)
			}
			printAnomalies(cmd, found)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", anomaly.DefaultMaxResults, "maximum number of anomalies")
	return cmd
}

func printAnomalies(cmd *cobra.Command, found []anomaly.AnomalyDetection) {
	w := cmd.OutOrStdout()
	header(w, "Anomalies")
	if len(found) == 0 {
		fmt.Fprintln(w, "nothing unusual")
		return
	}
	for _, d := range found {
		red.Fprintf(w, "%.2f ", d.AnomalyScore)
		fmt.Fprintf(w, "%s %-24s %10.2f  %s\n", d.Date.Format(domain.DateLayout), d.Description, d.Amount, d.Reason)
	}
}

func newMissingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "missing",
		Short: "List recurring payments that are overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			missing := a.engine.Detector.DetectUnusualFrequency(cmd.Context(), a.userID)
			w := cmd.OutOrStdout()
			if a.json {
				return writeJSON(w, missing)
			}
			printMissing(cmd, missing)
			return nil
		},
	}
}

func printMissing(cmd *cobra.Command, missing []anomaly.MissingRecurrence) {
	w := cmd.OutOrStdout()
	header(w, "Missing recurrences")
	if len(missing) == 0 {
		fmt.Fprintln(w, "all recurring payments on schedule")
		return
	}
	for _, m := range missing {
		yellow.Fprintf(w, "%-24s", m.Description)
		fmt.Fprintf(w, " expected %s, %.0f days late (avg %.2f every %.0f days)\n",
			m.ExpectedDate.Format(domain.DateLayout), m.DaysPastDue, m.AverageAmount, m.AverageInterval)
	}
}

func newDashboardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show forecasts, anomalies and missing recurrences together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			d, err := a.engine.Dashboard.Build(cmd.Context(), a.userID)
			if err != nil {
				return err
			}
			if a.json {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			printForecast(cmd, d.Predictions)
			fmt.Fprintln(cmd.OutOrStdout())
			printAnomalies(cmd, d.Anomalies)
			fmt.Fprintln(cmd.OutOrStdout())
			printMissing(cmd, d.MissingRecurrences)
			return nil
		},
	}
}
