package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 250, cfg.CaptureIntervalMs)
	require.Equal(t, 0.80, cfg.Threshold)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"capture_interval_ms: 100\nthreshold: 0.9\ndevices:\n  - hub-1\n  - hub-2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 100, cfg.CaptureIntervalMs)
	require.Equal(t, 0.9, cfg.Threshold)
	require.Equal(t, []string{"hub-1", "hub-2"}, cfg.Devices)
	// Untouched keys keep their defaults.
	require.Equal(t, 3000, cfg.StopTimeoutMs)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{not yaml"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateClampsOutOfRange(t *testing.T) {
	cfg := &Config{
		CaptureIntervalMs: -5,
		Threshold:         1.5,
		MinScale:          0.8,
		MaxScale:          0.4, // below min
		ScaleStep:         -1,
		StopOnScore:       2,
	}
	require.NoError(t, cfg.Validate())
	require.Equal(t, 250, cfg.CaptureIntervalMs)
	require.Equal(t, 0.80, cfg.Threshold)
	require.Equal(t, 0.8, cfg.MinScale)
	require.Greater(t, cfg.MaxScale, cfg.MinScale)
	require.Greater(t, cfg.ScaleStep, 0.0)
	require.LessOrEqual(t, cfg.ScaleStep, cfg.MaxScale-cfg.MinScale)
	require.Equal(t, 0.95, cfg.StopOnScore)
	require.Equal(t, 64, cfg.TemplateCacheSize)
	require.Equal(t, 200, cfg.HistorySize)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SCREENTRIGGER_THRESHOLD", "0.7")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 0.7, cfg.Threshold)
}
