package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"airroutes/internal/config"
	"airroutes/internal/ingest"
	"airroutes/internal/logging"
	"airroutes/internal/storage"
	"airroutes/internal/store"
)

var (
	cfg    config.Config
	logger = zap.NewNop()

	// Global flags.
	configPath string
	dataDir    string
	source     string
	hopPolicy  string
	logLevel   string

	// Command flags.
	port         int
	importTarget string

	rootCmd = &cobra.Command{
		Use:               "airroutes",
		Short:             "Serve and query the OpenFlights airline, airport and route dataset",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Load the dataset and serve the REST API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Seed a SQLite or PostgreSQL database from the .dat files",
		Long:  `Parses airlines.dat, airports.dat and routes.dat and replaces the contents of the target database's reference tables.`,
		Args:  cobra.NoArgs,
		RunE:  runImport,
	}
	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Run a one-off route query and print the result as JSON",
	}
	queryDirectCmd = &cobra.Command{
		Use:   "direct [source] [dest]",
		Short: "List nonstop routes between two airports",
		Args:  cobra.ExactArgs(2),
		RunE:  runQueryDirect,
	}
	queryOneHopCmd = &cobra.Command{
		Use:   "onehop [source] [dest]",
		Short: "List connections through exactly one intermediate airport",
		Args:  cobra.ExactArgs(2),
		RunE:  runQueryOneHop,
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Load the dataset and print what was kept and skipped",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&dataDir, "data-dir", "", "directory holding airlines.dat, airports.dat and routes.dat")
	pf.StringVar(&source, "source", "", "dataset source: files, sqlite or postgres")
	pf.StringVar(&hopPolicy, "hop-policy", "", "one-hop airline policy: collect or last-seen")
	pf.StringVar(&logLevel, "log-level", "", "log level: DEBUG, INFO, WARN or ERROR")

	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (default from config, 8080)")
	importCmd.Flags().StringVar(&importTarget, "target", storage.BackendSQLite, "database to seed: sqlite or postgres")

	queryCmd.AddCommand(queryDirectCmd, queryOneHopCmd)
	rootCmd.AddCommand(serveCmd, importCmd, queryCmd, statsCmd)
}

// loadConfig resolves configuration and builds the logger before any command runs.
// Flags take precedence over the environment and the config file.
func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if dataDir != "" {
		c.Data.Dir = dataDir
	}
	if source != "" {
		c.Data.Source = source
	}
	if hopPolicy != "" {
		c.Query.HopPolicy = hopPolicy
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if port != 0 {
		c.Server.Port = port
	}

	if err := c.Validate(); err != nil {
		return err
	}

	cfg = c
	logger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// loadStore reads the configured dataset into a new store.
func loadStore(ctx context.Context) (*store.Store, ingest.LoadReport, error) {
	src, closer, err := storage.OpenSource(ctx, cfg.Data.Source, cfg.Storage, cfg.DatasetPaths())
	if err != nil {
		return nil, ingest.LoadReport{}, err
	}
	defer func() { _ = closer.Close() }()

	ds, err := src.LoadDataset(ctx)
	if err != nil {
		return nil, ingest.LoadReport{}, fmt.Errorf("load dataset: %w", err)
	}

	s := store.New()
	report := ds.Apply(s)

	logger.Info("dataset loaded",
		zap.String("source", cfg.Data.Source),
		zap.Int("airlines", report.Airlines.Loaded),
		zap.Int("airports", report.Airports.Loaded),
		zap.Int("routes", report.Routes.Loaded),
		zap.Int("skipped", report.Airlines.Skipped()+report.Airports.Skipped()+report.Routes.Skipped()))

	return s, report, nil
}
