package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/config"
	"github.com/boddenberg/spread-checker-go/internal/infra/observability"
)

const serviceName = "spread-checker"

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "spreadchecker",
	Short:         "Spread Checker backend",
	Long:          "Similar-company lookups, client savings reports and registry imports for FX brokerages.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// --- Load .env file (for local development) ---
		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}

		cfg = config.Load()
		logger = observability.NewLogger(cfg.LogLevel, serviceName)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
			_ = logger.Sync()
		} else {
			os.Stderr.WriteString(err.Error() + "\n")
		}
		os.Exit(1)
	}
}
