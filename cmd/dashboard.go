package main

import (
	"context"
	"os"

	"degradation_monitor/internal/config"
	"degradation_monitor/internal/dashboard"
	"degradation_monitor/internal/gateway"
	"degradation_monitor/internal/models"
	"degradation_monitor/internal/report"

	"github.com/spf13/cobra"
)

func newDashboardCmd() *cobra.Command {
	var (
		noColor bool
		fanOut  bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard summary of every leaf category",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if fanOut {
				cfg.Dashboard.Summary = config.SummaryFanOut
			}
			gw := gateway.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
			rows, err := summary(cmd.Context(), gw, cfg)
			if err != nil {
				return err
			}
			return report.WriteDashboard(os.Stdout, rows, !noColor)
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&fanOut, "fanout", false, "build rows from per-leaf requests instead of the summary endpoint")
	return cmd
}

func summary(ctx context.Context, gw *gateway.Client, cfg config.Config) ([]models.DashboardRow, error) {
	if limit := fanOutLimit(cfg); limit > 0 {
		return dashboard.NewFanOutSummarizer(gw, limit).Summary(ctx)
	}
	return gw.DashboardSummary(ctx)
}
