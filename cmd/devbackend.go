package main

import (
	"context"
	"time"

	"degradation_monitor/internal/devbackend"
	"degradation_monitor/internal/logger"
	"degradation_monitor/internal/server"

	"github.com/spf13/cobra"
)

func newDevBackendCmd() *cobra.Command {
	var (
		seed    int64
		samples int
	)
	cmd := &cobra.Command{
		Use:   "devbackend",
		Short: "Run an in-memory analysis API with synthetic work records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, v, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.Get(cfg.Log.Level)
			watchConfig(v, log)

			store := devbackend.NewStore(devbackend.DefaultTree())
			bus := devbackend.NewEventBus()
			start := time.Now().Add(-time.Duration(samples) * 24 * time.Hour)
			feeder := devbackend.NewFeeder(store, bus, start, seed)
			feeder.Seed(samples)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go feeder.Run(ctx, cfg.DevBackend.FeedInterval)

			backend := devbackend.New(store, bus, log)
			srv := server.New(cfg.DevBackend.Port, backend.Routes()).WithoutWriteTimeout()
			runHTTPServer(srv, "devbackend", log)
			log.Infow("devbackend_started", "addr", srv.Addr(), "leaves", len(store.Leaves()), "feed_interval", cfg.DevBackend.FeedInterval)

			waitForShutdown(cancel, srv, log)
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for the synthetic series")
	cmd.Flags().IntVar(&samples, "samples", 60, "history samples per leaf written at startup")
	return cmd
}
