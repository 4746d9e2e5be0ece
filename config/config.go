package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds runtime configuration for the detection engine. Values may be
// loaded from a config file and overridden by SCREENTRIGGER_* environment
// variables.
type Config struct {
	Debug bool `mapstructure:"debug"`

	// Loop timing
	CaptureIntervalMs int `mapstructure:"capture_interval_ms"`
	ErrorBackoffMs    int `mapstructure:"error_backoff_ms"`
	StopTimeoutMs     int `mapstructure:"stop_timeout_ms"`

	// Template matching defaults
	Threshold   float64 `mapstructure:"threshold"`
	MinScale    float64 `mapstructure:"min_scale"`
	MaxScale    float64 `mapstructure:"max_scale"`
	ScaleStep   float64 `mapstructure:"scale_step"`
	StopOnScore float64 `mapstructure:"stop_on_score"`

	// Template cache
	TemplateCacheSize int `mapstructure:"template_cache_size"`

	// History
	HistorySize int `mapstructure:"history_size"`

	// Device hub addresses forwarded on every dispatched command
	Devices []string `mapstructure:"devices"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:             false,
		CaptureIntervalMs: 250,
		ErrorBackoffMs:    1000,
		StopTimeoutMs:     3000,
		Threshold:         0.80,
		MinScale:          0.60,
		MaxScale:          1.40,
		ScaleStep:         0.05,
		StopOnScore:       0.95,
		TemplateCacheSize: 64,
		HistorySize:       200,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.CaptureIntervalMs <= 0 {
		c.CaptureIntervalMs = 250
	}
	if c.ErrorBackoffMs <= 0 {
		c.ErrorBackoffMs = 1000
	}
	if c.StopTimeoutMs <= 0 {
		c.StopTimeoutMs = 3000
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		c.Threshold = 0.80
	}
	if c.MinScale <= 0 {
		c.MinScale = 0.60
	}
	if c.MaxScale <= 0 || c.MaxScale < c.MinScale {
		c.MaxScale = c.MinScale + 0.80
	}
	if c.ScaleStep <= 0 {
		c.ScaleStep = 0.05
	}
	if c.ScaleStep > (c.MaxScale - c.MinScale) {
		c.ScaleStep = (c.MaxScale - c.MinScale) / 4
	}
	if c.StopOnScore < 0 || c.StopOnScore > 1 {
		c.StopOnScore = 0.95
	}
	if c.TemplateCacheSize <= 0 {
		c.TemplateCacheSize = 64
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 200
	}
	return nil
}

// Load reads configuration from the optional file at path (any format viper
// understands), applies SCREENTRIGGER_* environment overrides, and validates
// the result. A missing file yields defaults, not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetDefault("debug", cfg.Debug)
	v.SetDefault("capture_interval_ms", cfg.CaptureIntervalMs)
	v.SetDefault("error_backoff_ms", cfg.ErrorBackoffMs)
	v.SetDefault("stop_timeout_ms", cfg.StopTimeoutMs)
	v.SetDefault("threshold", cfg.Threshold)
	v.SetDefault("min_scale", cfg.MinScale)
	v.SetDefault("max_scale", cfg.MaxScale)
	v.SetDefault("scale_step", cfg.ScaleStep)
	v.SetDefault("stop_on_score", cfg.StopOnScore)
	v.SetDefault("template_cache_size", cfg.TemplateCacheSize)
	v.SetDefault("history_size", cfg.HistorySize)
	v.SetDefault("devices", cfg.Devices)

	v.SetEnvPrefix("SCREENTRIGGER")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	_ = cfg.Validate()
	return cfg, nil
}
