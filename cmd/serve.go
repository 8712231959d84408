package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"degradation_monitor/internal/config"
	"degradation_monitor/internal/gateway"
	"degradation_monitor/internal/handlers"
	"degradation_monitor/internal/logger"
	"degradation_monitor/internal/repository"
	"degradation_monitor/internal/repository/db"
	"degradation_monitor/internal/server"
	"degradation_monitor/internal/service"
	"degradation_monitor/internal/session"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the console API and the live baseline session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, v, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireSigningKey(); err != nil {
				return err
			}
			log := logger.Get(cfg.Log.Level)
			watchConfig(v, log)
			return serve(cfg, log)
		},
	}
}

func serve(cfg config.Config, log *logger.Logger) error {
	sqlDB, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	gw := gateway.NewClient(cfg.API.BaseURL, cfg.API.Timeout, gateway.WithLogger(log))
	services := service.NewService(service.Deps{
		Repos:   repos,
		Gateway: gw,
		Log:     log,
		Bounds: session.Bounds{
			Min:     cfg.Baseline.SensitivityMin,
			Max:     cfg.Baseline.SensitivityMax,
			Default: cfg.Baseline.SensitivityDefault,
		},
		Debounce: cfg.Dashboard.Debounce,
		FanOut:   fanOutLimit(cfg),
		Schedule: cfg.Analysis.Schedule,
		Auth: service.AuthConfig{
			SigningKey: cfg.Auth.SigningKey,
			TokenTTL:   cfg.Auth.TokenTTL,
		},
	})

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopServices, err := services.Start(ctx)
	if err != nil {
		log.Warnw("dashboard_listener_not_started", "err", err)
	}
	go services.Scheduler.Run(ctx)

	apiHandler := handlers.NewHandler(services, log)
	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	runHTTPServer(srv, "console", log)
	log.Infow("console_started", "addr", srv.Addr(), "api", cfg.API.BaseURL)

	waitForShutdown(cancel, srv, log)
	stopServices()
	return nil
}

// fanOutLimit is the per-leaf summary concurrency, or 0 for the server summary.
func fanOutLimit(cfg config.Config) int {
	if cfg.Dashboard.Summary != config.SummaryFanOut {
		return 0
	}
	return cfg.Dashboard.FanOutLimit
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg config.Config, log *logger.Logger) (*sql.DB, error) {
	dbPath := cfg.DB.Path
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		dbPath = "app.db"
	}
	return db.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, name string, log *logger.Logger) {
	go func() {
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "server", name, "addr", srv.Addr(), "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
