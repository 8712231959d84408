// @title                       Degradation Monitor Console API
// @version                     1.0
// @description                 Baseline configuration and dashboard API for equipment degradation monitoring.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"fmt"
	"os"

	"degradation_monitor/internal/config"
	"degradation_monitor/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "degradation_monitor/docs"
)

// configPath is set by the persistent --config flag.
var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "degradation_monitor",
		Short:         "Equipment degradation baseline console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default configs/config.yml)")
	root.AddCommand(newServeCmd(), newDevBackendCmd(), newDashboardCmd())
	return root
}

// loadConfig reads the config file (when present), env overrides and defaults.
func loadConfig() (config.Config, *viper.Viper, error) {
	v := config.New(configPath)
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, v, nil
}

// watchConfig re-applies the log level whenever the config file changes.
// Other settings take effect on restart.
func watchConfig(v *viper.Viper, log *logger.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := config.Decode(v)
		if err != nil {
			log.Warnw("config_reload_rejected", "file", e.Name, "err", err)
			return
		}
		log.SetLevel(cfg.Log.Level)
		log.Infow("config_reloaded", "file", e.Name, "op", e.Op.String(), "log_level", log.Level())
	})
	v.WatchConfig()
}
