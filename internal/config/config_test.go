package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputpipe/internal/pipeline"
)

func TestLoad_DefaultValues(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Tick.Rate)
	assert.Equal(t, 50.0, cfg.Aim.FOV)
	assert.Equal(t, []float64{5, 20}, cfg.Hazard.Horizons)
	assert.Equal(t, "127.0.0.1:6666", cfg.Bridge.Address)
	assert.Equal(t, 20*time.Millisecond, cfg.Bridge.PollInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.Status.BroadcastInterval)
	assert.Equal(t, "127.0.0.1:6060", cfg.Debug.ListenAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []pipeline.Feature{pipeline.FeatureAim, pipeline.FeatureHazard}, cfg.Features())
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inputpipe.yaml")
	body := `
tick:
  rate: 100
aim:
  fov: 90
  enabled: false
follow:
  enabled: true
bridge:
  enabled: true
  poll_interval: 50ms
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Tick.Rate)
	assert.Equal(t, 90.0, cfg.Aim.FOV)
	assert.Equal(t, 50*time.Millisecond, cfg.Bridge.PollInterval)
	assert.Equal(t,
		[]pipeline.Feature{pipeline.FeatureHazard, pipeline.FeatureFollow, pipeline.FeatureBridge},
		cfg.Features())

	pc := cfg.Pipeline()
	assert.Equal(t, 100, pc.TickRate)
	assert.Equal(t, 500, pc.Follow.WindowTicks, "window defaults to five seconds of ticks")
	assert.Equal(t, 90.0, pc.Aim.FOV)
	assert.Equal(t, 10*time.Millisecond, cfg.TickInterval())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INPUTPIPE_AIM_FOV", "120")
	t.Setenv("INPUTPIPE_MACRO_DIR", "/tmp/macros")
	t.Setenv("INPUTPIPE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 120.0, cfg.Aim.FOV)
	assert.Equal(t, "/tmp/macros", cfg.Macro.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load("/nonexistent/inputpipe.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{"tick.rate", 0},
		{"aim.fov", 400},
		{"macro.truncate_step", -1},
		{"bridge.poll_interval", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.value)

			_, err := FromViper(v)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid for %s, got %v", tt.key, err)
			}
		})
	}
}

func TestDefaultMatchesStageDefaults(t *testing.T) {
	pc := Default().Pipeline()
	def := pipeline.DefaultConfig()

	assert.Equal(t, def.Aim, pc.Aim)
	assert.Equal(t, def.Hazard, pc.Hazard)
	assert.Equal(t, def.Follow, pc.Follow)
	assert.Equal(t, def.Assist, pc.Assist)
	assert.Equal(t, def.Bridge, pc.Bridge)
	assert.Equal(t, def.Tracker, pc.Tracker)
	assert.Equal(t, def.Enabled, pc.Enabled)
}
