package main

import (
	"log/slog"

	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/Log-Tools/commerce-events-pipeline/internal/metrics"
	"github.com/Log-Tools/commerce-events-pipeline/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Consume events into MongoDB until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runConsumer,
}

func runConsumer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig((*config.Config).Validate)
	if err != nil {
		return err
	}
	printConfigSummary(cfg)

	ctx, stop := signalContext()
	defer stop()

	m := metrics.New()
	supervisor := service.New(cfg, service.WithMetrics(m))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Addr != "" {
		server := metrics.NewServer(cfg.Metrics.Addr, m)
		g.Go(func() error {
			return server.Run(gctx)
		})
	}
	g.Go(func() error {
		return supervisor.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("event consumer stopped", "error", err)
		return err
	}
	slog.Info("event consumer stopped")
	return nil
}
