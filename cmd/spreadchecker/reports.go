package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

var (
	reportsDryRun  bool
	reportsCompany string
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Generate and email client savings reports",
}

var reportsMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Send the previous month's report to every subscribed brokerage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReports(cmd, func(ctx context.Context, a *app) (*domain.ReportRunResult, error) {
			return a.services.Reports.RunMonthly(ctx, reportsDryRun)
		})
	},
}

var reportsTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a report covering the last 30 days to one brokerage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReports(cmd, func(ctx context.Context, a *app) (*domain.ReportRunResult, error) {
			return a.services.Reports.RunTest(ctx, reportsCompany, reportsDryRun)
		})
	},
}

func runReports(cmd *cobra.Command, run func(context.Context, *app) (*domain.ReportRunResult, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if a.services.Reports == nil {
		return errSupabaseNotConfigured
	}

	result, err := run(ctx, a)
	if err != nil {
		return err
	}

	logger.Info("report run complete",
		zap.String("run_id", result.RunID),
		zap.Int("processed", result.Processed),
		zap.Int("sent", result.Sent),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	reportsCmd.PersistentFlags().BoolVar(&reportsDryRun, "dry-run", false, "render reports without sending or recording them")
	reportsTestCmd.Flags().StringVar(&reportsCompany, "company", "", "brokerage id (required)")
	_ = reportsTestCmd.MarkFlagRequired("company")

	reportsCmd.AddCommand(reportsMonthlyCmd, reportsTestCmd)
	rootCmd.AddCommand(reportsCmd)
}
