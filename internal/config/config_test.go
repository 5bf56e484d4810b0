package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9090, "mode": "debug"},
		"pipeline": {
			"short_lookback_days": 90,
			"long_lookback_days": 365,
			"max_cloud_cover": 0.3,
			"min_observations": 4,
			"revisit_interval_days": 15,
			"decline_threshold": 0.25
		}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 90, cfg.Pipeline.ShortLookbackDays)
	assert.InDelta(t, 0.3, cfg.Pipeline.MaxCloudCover, 1e-9)

	// Untouched sections keep defaults.
	assert.InDelta(t, 50000, cfg.Lending.AmountCeiling, 1e-9)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("IMAGERY_MODE", "simulated")
	t.Setenv("DATABASE_DSN", "host=localhost dbname=greenchain")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "host=localhost dbname=greenchain", cfg.Database.DSN)
}

func TestAnthropicKeyEnablesNarrativeMode(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Narrative.Mode)

	gen, err := cfg.NarrativeGenerator()
	require.NoError(t, err)
	assert.NotNil(t, gen)
}

func TestValidateRejectsInvertedLookbacks(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.LongLookbackDays = 90
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Weights.Trend = 0.9
	assert.Error(t, cfg.Validate())
}

func TestValidateCatalogModeRequiresURL(t *testing.T) {
	cfg := Default()
	cfg.Imagery.Mode = "catalog"
	assert.Error(t, cfg.Validate())

	cfg.Imagery.CatalogURL = "https://stats.example.com"
	assert.NoError(t, cfg.Validate())

	src, err := cfg.ImagerySource()
	require.NoError(t, err)
	assert.NotNil(t, src)
}

func TestSourceBuildersRejectUnknownModes(t *testing.T) {
	cfg := Default()

	cfg.Imagery.Mode = "laser"
	_, err := cfg.ImagerySource()
	assert.Error(t, err)

	cfg.Weather.Mode = "crystal-ball"
	_, err = cfg.WeatherSource()
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.json")
	assert.Error(t, err)
}
