package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvloznov/smart-ledger/internal/domain"
	infraBQ "github.com/dvloznov/smart-ledger/internal/infra/bigquery"
	"github.com/dvloznov/smart-ledger/internal/reports"
)

func newExportCommand(a *app) *cobra.Command {
	var bucket, date string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a dashboard snapshot to Cloud Storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			if bucket == "" {
				bucket = a.cfg.Storage.Bucket
			}
			if bucket == "" {
				return fmt.Errorf("no bucket: pass --bucket or set storage.bucket")
			}

			ctx := cmd.Context()
			store, err := reports.NewGCSStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			uri, err := reports.NewExporter(a.engine.Dashboard, store, bucket, a.log).Export(ctx, a.userID, date)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "exported %s", uri)
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "destination bucket (defaults to storage.bucket)")
	cmd.Flags().StringVar(&date, "date", "", "report date YYYY-MM-DD (defaults to today)")
	return cmd
}

func newWarehouseSyncCommand(a *app) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "warehouse-sync",
		Short: "Copy the user's transactions into BigQuery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			if a.cfg.BigQuery.ProjectID == "" {
				return fmt.Errorf("no project: set bigquery.project_id")
			}
			from, to, err := syncRange(start, end)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			txs, err := a.repos.Transactions.List(ctx, a.userID, from, to)
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				warning(cmd.OutOrStdout(), "no transactions between %s and %s", from.Format(domain.DateLayout), to.Format(domain.DateLayout))
				return nil
			}

			w, err := infraBQ.NewWarehouse(ctx, a.cfg.BigQuery.ProjectID, a.cfg.BigQuery.Dataset)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.Transactions().InsertTransactions(ctx, txs); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "copied %d transactions to %s.%s", len(txs), a.cfg.BigQuery.ProjectID, a.cfg.BigQuery.Dataset)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first date YYYY-MM-DD (defaults to one year ago)")
	cmd.Flags().StringVar(&end, "end", "", "last date YYYY-MM-DD (defaults to today)")
	return cmd
}

// syncRange parses the optional bounds, defaulting to the last year.
func syncRange(start, end string) (time.Time, time.Time, error) {
	to := domain.Day(time.Now().UTC())
	from := to.AddDate(-1, 0, 0)
	var err error
	if start != "" {
		if from, err = time.Parse(domain.DateLayout, start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--start must be YYYY-MM-DD")
		}
	}
	if end != "" {
		if to, err = time.Parse(domain.DateLayout, end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--end must be YYYY-MM-DD")
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--end is before --start")
	}
	return from, to, nil
}
