package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/ecocycle/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/ecocycle.db", cfg.DBPath)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 85, cfg.Classifier.Bands.AutoAccept)
	assert.Equal(t, 1.4, cfg.Valuation.Rarity[model.DeviceSmartphone])
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.GitHub.CallbackURL)
	assert.False(t, cfg.GitHub.Enabled())
	assert.NotEmpty(t, cfg.Detector.Image)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("SWEEP_INTERVAL", "5m")
	t.Setenv("DETECTOR_ENABLED", "true")
	t.Setenv("DETECTOR_IMAGE", "detector:local")

	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "0123456789abcdef0123", cfg.JWTSecret)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.GitHub.Enabled())
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.True(t, cfg.Detector.Enabled)
	assert.Equal(t, "detector:local", cfg.Detector.Image)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesSingleEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecocycle.yaml")
	yaml := `
time_zone: Asia/Kolkata
classifier:
  bands:
    auto_accept: 90
    confirm: 60
valuation:
  rarity:
    battery: 2.0
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Classifier.Bands.AutoAccept)
	assert.Equal(t, 60, cfg.Classifier.Bands.Confirm)
	assert.Equal(t, 2.0, cfg.Valuation.Rarity[model.DeviceBattery])
	// untouched entries keep their defaults
	assert.Equal(t, 1.4, cfg.Valuation.Rarity[model.DeviceSmartphone])
	assert.Equal(t, 450.0, cfg.Valuation.BasePrice[model.MaterialPreciousMetals])

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.JWTSecret = "short"
	cfg.Port = 0
	cfg.TimeZone = "Mars/Olympus_Mons"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "time_zone")
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	cfg.Log.Format = "xml"
	_, err = cfg.NewLogger(&buf)
	assert.Error(t, err)
}
