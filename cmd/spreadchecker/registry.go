package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/infra/registry"
)

var (
	registryCSVPath   string
	registryBatchSize int
	registryTable     string
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the company registry dataset",
}

var registryImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load a registry CSV extract into Postgres",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.DatabaseURL == "" {
			return eris.New("database url is required (DATABASE_URL)")
		}

		f, err := os.Open(registryCSVPath)
		if err != nil {
			return eris.Wrap(err, "open csv")
		}
		defer f.Close()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "connect postgres")
		}
		defer pool.Close()

		res, err := registry.NewImporter(pool, registryTable, registryBatchSize, logger).Import(ctx, f)
		if err != nil {
			return eris.Wrap(err, "import registry")
		}

		logger.Info("registry import complete",
			zap.String("csv", registryCSVPath),
			zap.Int("read", res.Read),
			zap.Int("duplicates", res.Duplicates),
			zap.Int64("upserted", res.Upserted),
			zap.Int("batches", res.Batches),
			zap.Duration("duration", res.Duration),
		)
		return nil
	},
}

func init() {
	registryImportCmd.Flags().StringVar(&registryCSVPath, "csv", "", "path to the registry CSV extract (required)")
	registryImportCmd.Flags().IntVar(&registryBatchSize, "batch-size", registry.DefaultBatchSize, "rows per COPY batch")
	registryImportCmd.Flags().StringVar(&registryTable, "table", registry.DefaultTable, "target table")
	_ = registryImportCmd.MarkFlagRequired("csv")

	registryCmd.AddCommand(registryImportCmd)
	rootCmd.AddCommand(registryCmd)
}
