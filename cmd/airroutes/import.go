package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"airroutes/internal/ingest"
	"airroutes/internal/storage"
)

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	paths := cfg.DatasetPaths()
	ds, err := ingest.LoadFiles(ctx, paths)
	if err != nil {
		return err
	}
	logger.Debug("parsed dataset files",
		zap.String("airlines", paths.Airlines),
		zap.Int("airline_records", len(ds.Airlines)),
		zap.Int("airport_records", len(ds.Airports)),
		zap.Int("route_records", len(ds.Routes)))

	imp, closer, err := storage.OpenImporter(ctx, importTarget, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	if err := imp.ImportDataset(ctx, ds); err != nil {
		return fmt.Errorf("import into %s: %w", importTarget, err)
	}

	counts, err := imp.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count rows: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d airlines, %d airports, %d routes into %s\n",
		counts.Airlines, counts.Airports, counts.Routes, importTarget)
	return nil
}
