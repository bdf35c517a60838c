package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"emergency_dashboard/internal/dashboard"
	"emergency_dashboard/internal/verification"

	"github.com/spf13/viper"
)

const envPrefix = "E119"

// InMemoryDSN keeps the timeline in a private in-memory SQLite database.
const InMemoryDSN = "file:timeline?mode=memory&cache=shared"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Port         string             `mapstructure:"port"`
	LogLevel     string             `mapstructure:"log_level"`
	DB           DBConfig           `mapstructure:"db"`
	Dashboard    DashboardConfig    `mapstructure:"dashboard"`
	Verification VerificationConfig `mapstructure:"verification"`
	Feed         FeedConfig         `mapstructure:"feed"`
	WS           WSConfig           `mapstructure:"ws"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type DashboardConfig struct {
	ClockIntervalMS    int `mapstructure:"clock_interval_ms"`
	ProgressIntervalMS int `mapstructure:"progress_interval_ms"`
	MetricsIntervalMS  int `mapstructure:"metrics_interval_ms"`
	InitialProgress    int `mapstructure:"initial_progress"`
}

type VerificationConfig struct {
	DurationSeconds      int  `mapstructure:"duration_seconds"`
	BlockSubmitOnExpiry  bool `mapstructure:"block_submit_on_expiry"`
	RetainExpiredSeconds int  `mapstructure:"retain_expired_seconds"`
}

type FeedConfig struct {
	Path string `mapstructure:"path"`
}

type WSConfig struct {
	Buffer         int      `mapstructure:"buffer"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", InMemoryDSN)
	v.SetDefault("dashboard.clock_interval_ms", dashboard.DefaultClockInterval.Milliseconds())
	v.SetDefault("dashboard.progress_interval_ms", dashboard.DefaultProgressInterval.Milliseconds())
	v.SetDefault("dashboard.metrics_interval_ms", dashboard.DefaultMetricsInterval.Milliseconds())
	v.SetDefault("dashboard.initial_progress", dashboard.DefaultInitialProgress)
	v.SetDefault("verification.duration_seconds", verification.DefaultSeconds)
	v.SetDefault("verification.block_submit_on_expiry", false)
	v.SetDefault("verification.retain_expired_seconds", int(verification.DefaultRetainExpired/time.Second))
	v.SetDefault("feed.path", "")
	v.SetDefault("ws.buffer", 16)
	v.SetDefault("ws.allowed_origins", []string{})
}

// Load reads config.yml from dir (a missing file leaves the defaults), then
// applies E119_* environment overrides, e.g. E119_DASHBOARD_METRICS_INTERVAL_MS.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component could run with. Dashboard intervals
// are not checked here: a bad interval disables only its own projection.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: port is empty", ErrInvalidConfig)
	}
	if err := dashboard.ValidateProgress(c.Dashboard.InitialProgress); err != nil {
		return fmt.Errorf("%w: dashboard.initial_progress: %w", ErrInvalidConfig, err)
	}
	if c.Verification.DurationSeconds < 0 {
		return fmt.Errorf("%w: verification.duration_seconds=%d", ErrInvalidConfig, c.Verification.DurationSeconds)
	}
	if c.WS.Buffer <= 0 {
		return fmt.Errorf("%w: ws.buffer=%d", ErrInvalidConfig, c.WS.Buffer)
	}
	return nil
}

// DashboardView converts the dashboard section for dashboard.Mount.
func (c *Config) DashboardView() dashboard.Config {
	cfg := dashboard.DefaultConfig()
	cfg.ClockInterval = ms(c.Dashboard.ClockIntervalMS)
	cfg.ProgressInterval = ms(c.Dashboard.ProgressIntervalMS)
	cfg.MetricsInterval = ms(c.Dashboard.MetricsIntervalMS)
	cfg.InitialProgress = c.Dashboard.InitialProgress
	return cfg
}

// VerificationFlow converts the verification section for verification.Start.
func (c *Config) VerificationFlow() verification.Config {
	return verification.Config{
		Seconds:             c.Verification.DurationSeconds,
		BlockSubmitOnExpiry: c.Verification.BlockSubmitOnExpiry,
		RetainExpired:       time.Duration(c.Verification.RetainExpiredSeconds) * time.Second,
	}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
