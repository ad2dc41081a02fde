package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"airroutes/internal/api"
	"airroutes/internal/events"
	"airroutes/internal/metrics"
	"airroutes/internal/query"
	"airroutes/internal/storage"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = logger.Sync() }()

	s, _, err := loadStore(ctx)
	if err != nil {
		return err
	}

	policy := query.ParseHopPolicy(cfg.Query.HopPolicy)
	engine := query.New(s, query.WithHopPolicy(policy))

	opts := []api.Option{
		api.WithLogger(logger.Named("api")),
		api.WithMetrics(metrics.New()),
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Events.NATSURL != "" {
		pub, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Prefix, logger.Named("events"))
		if err != nil {
			return err
		}
		defer func() {
			published, failed := pub.Counts()
			logger.Info("change events", zap.Int64("published", published), zap.Int64("failed", failed))
			if err := pub.Close(); err != nil {
				logger.Warn("failed to drain NATS connection", zap.Error(err))
			}
		}()
		pub.Attach(s)
		logger.Info("publishing change events", zap.String("url", cfg.Events.NATSURL), zap.String("prefix", cfg.Events.Prefix))
	}

	if cfg.Analytics.Enabled {
		ch, err := storage.OpenClickHouse(ctx, cfg.Storage.ClickHouse)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		defer func() { _ = ch.Close() }()

		if err := ch.CreateSchema(ctx); err != nil {
			return fmt.Errorf("clickhouse schema: %w", err)
		}

		buf := storage.NewSearchBuffer(ch, logger.Named("searchlog"),
			cfg.Analytics.BatchSize, time.Duration(cfg.Analytics.FlushSeconds)*time.Second)
		g.Go(func() error {
			return buf.Run(gctx)
		})
		defer func() {
			written, dropped := buf.Counts()
			logger.Info("search log", zap.Int("written", written), zap.Int("dropped", dropped))
		}()

		opts = append(opts, api.WithSearchLog(buf), api.WithSearchStats(ch))
	}

	server := api.NewServer(s, engine, api.Config{
		APIKeys:    cfg.Server.APIKeys,
		RateLimit:  cfg.Server.RateLimit,
		RateBurst:  cfg.Server.RateBurst,
		CORSOrigin: cfg.Server.CORSOrigin,
	}, opts...)

	logger.Info("starting",
		zap.Int("port", cfg.Server.Port),
		zap.Stringer("hop_policy", policy),
		zap.Bool("analytics", cfg.Analytics.Enabled))

	g.Go(func() error {
		return server.Run(gctx, fmt.Sprintf(":%d", cfg.Server.Port))
	})

	return g.Wait()
}
