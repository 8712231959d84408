package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults for every tunable knob. A missing config file is fine; env vars and
// these values fill the gaps.
const (
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultDBPath          = "app.db"
	defaultAPIBaseURL      = "http://localhost:8000/api"
	defaultAPITimeout      = 30 * time.Second
	defaultTokenTTL        = time.Hour
	defaultSensitivityMin  = 0.25
	defaultSensitivityMax  = 0.75
	defaultSensitivity     = 0.5
	defaultDebounce        = 2 * time.Second
	defaultSummarySource   = SummaryServer
	defaultFanOutLimit     = 8
	defaultDevBackendPort  = "8000"
	defaultDevFeedInterval = 5 * time.Second

	envPrefix = "DEGMON"
)

var (
	errSensitivityBounds  = errors.New("baseline.sensitivity_min must be < baseline.sensitivity_max")
	errSensitivityDefault = errors.New("baseline.sensitivity_default must lie within [sensitivity_min, sensitivity_max]")
	errMissingSigningKey  = errors.New("auth.signing_key must be set")
	errSummarySource      = errors.New("dashboard.summary must be \"server\" or \"fanout\"")
)

// Dashboard summary sources.
const (
	SummaryServer = "server" // GET /dashboard/summary
	SummaryFanOut = "fanout" // per-leaf results and baseline fetches
)

type Config struct {
	Port       string           `mapstructure:"port"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	API        APIConfig        `mapstructure:"api"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Baseline   BaselineConfig   `mapstructure:"baseline"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	DevBackend DevBackendConfig `mapstructure:"devbackend"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// APIConfig points at the external analysis API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// BaselineConfig bounds the sensitivity slider.
type BaselineConfig struct {
	SensitivityMin     float64 `mapstructure:"sensitivity_min"`
	SensitivityMax     float64 `mapstructure:"sensitivity_max"`
	SensitivityDefault float64 `mapstructure:"sensitivity_default"`
}

type DashboardConfig struct {
	Debounce    time.Duration `mapstructure:"debounce"`
	Summary     string        `mapstructure:"summary"`
	FanOutLimit int           `mapstructure:"fanout_limit"`
}

// AnalysisConfig holds the optional 5-field cron schedule for batch analysis.
type AnalysisConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type DevBackendConfig struct {
	Port         string        `mapstructure:"port"`
	FeedInterval time.Duration `mapstructure:"feed_interval"`
}

// New returns a viper instance preloaded with defaults and env bindings.
// configPath may be empty, in which case ./configs/config.yml is tried.
func New(configPath string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("configs") // configs/config.yml
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", defaultPort)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("db.path", defaultDBPath)
	v.SetDefault("api.base_url", defaultAPIBaseURL)
	v.SetDefault("api.timeout", defaultAPITimeout)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", defaultTokenTTL)
	v.SetDefault("baseline.sensitivity_min", defaultSensitivityMin)
	v.SetDefault("baseline.sensitivity_max", defaultSensitivityMax)
	v.SetDefault("baseline.sensitivity_default", defaultSensitivity)
	v.SetDefault("dashboard.debounce", defaultDebounce)
	v.SetDefault("dashboard.summary", defaultSummarySource)
	v.SetDefault("dashboard.fanout_limit", defaultFanOutLimit)
	v.SetDefault("analysis.schedule", "")
	v.SetDefault("devbackend.port", defaultDevBackendPort)
	v.SetDefault("devbackend.feed_interval", defaultDevFeedInterval)
}

// Load reads the config file (when present) and decodes it into a Config.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return Decode(v)
}

// Decode converts the current viper state into a validated Config.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	b := c.Baseline
	if b.SensitivityMin >= b.SensitivityMax {
		return errSensitivityBounds
	}
	if b.SensitivityDefault < b.SensitivityMin || b.SensitivityDefault > b.SensitivityMax {
		return errSensitivityDefault
	}
	if s := c.Dashboard.Summary; s != SummaryServer && s != SummaryFanOut {
		return errSummarySource
	}
	return nil
}

// RequireSigningKey fails when the console is started without a JWT key.
func (c Config) RequireSigningKey() error {
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return errMissingSigningKey
	}
	return nil
}
