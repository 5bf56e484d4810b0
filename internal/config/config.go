package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"greenchain/credit-engine/internal/engine"
	"greenchain/credit-engine/internal/imagery"
	"greenchain/credit-engine/internal/lending"
	"greenchain/credit-engine/internal/narrative"
	"greenchain/credit-engine/internal/scoring"
	"greenchain/credit-engine/internal/vegetation"
	"greenchain/credit-engine/internal/weather"
)

// Config is the complete, immutable runtime configuration. It is loaded once
// at startup from an optional JSON file plus environment overrides, validated,
// and passed explicitly to the components that need it.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Scoring   ScoringConfig   `json:"scoring"`
	Lending   lending.Policy  `json:"lending"`
	Imagery   ImageryConfig   `json:"imagery"`
	Weather   WeatherConfig   `json:"weather"`
	Narrative NarrativeConfig `json:"narrative"`
	Export    ExportConfig    `json:"export"`
}

type ServerConfig struct {
	Port int    `json:"port"`
	Mode string `json:"mode"` // gin mode: debug or release
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

type PipelineConfig struct {
	ShortLookbackDays   int     `json:"short_lookback_days"`
	LongLookbackDays    int     `json:"long_lookback_days"`
	MaxCloudCover       float64 `json:"max_cloud_cover"`
	MinObservations     int     `json:"min_observations"`
	RevisitIntervalDays int     `json:"revisit_interval_days"`
	DeclineThreshold    float64 `json:"decline_threshold"`
}

type ScoringConfig struct {
	Weights scoring.Weights `json:"weights"`
}

type ImageryConfig struct {
	// Mode selects "catalog" or "simulated".
	Mode             string  `json:"mode"`
	CatalogURL       string  `json:"catalog_url"`
	Collection       string  `json:"collection"`
	MaxCloudCoverPct float64 `json:"max_cloud_cover_pct"`
}

type WeatherConfig struct {
	// Mode selects "openmeteo" or "simulated".
	Mode    string `json:"mode"`
	BaseURL string `json:"base_url"`
}

type NarrativeConfig struct {
	// Mode selects "anthropic" or "static".
	Mode            string `json:"mode"`
	AnthropicAPIKey string `json:"anthropic_api_key"`
	Model           string `json:"model"`
}

type ExportConfig struct {
	OutputDir string `json:"output_dir"`
	Schedule  string `json:"schedule"` // cron expression
}

// Default returns the baseline configuration before file and env overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, Mode: "release"},
		Pipeline: PipelineConfig{
			ShortLookbackDays:   180,
			LongLookbackDays:    365,
			MaxCloudCover:       0.4,
			MinObservations:     3,
			RevisitIntervalDays: 30,
			DeclineThreshold:    0.30,
		},
		Scoring:   ScoringConfig{Weights: scoring.DefaultWeights()},
		Lending:   lending.DefaultPolicy(),
		Imagery:   ImageryConfig{Mode: "simulated", Collection: "sentinel-2-l2a", MaxCloudCoverPct: 80},
		Weather:   WeatherConfig{Mode: "simulated"},
		Narrative: NarrativeConfig{Mode: "static"},
		Export:    ExportConfig{OutputDir: "./exports", Schedule: "0 2 * * *"},
	}
}

// Load builds the configuration: defaults, then the JSON file when the path
// is non-empty, then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overrideWithEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.Server.Mode = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("IMAGERY_MODE"); v != "" {
		c.Imagery.Mode = v
	}
	if v := os.Getenv("IMAGERY_CATALOG_URL"); v != "" {
		c.Imagery.CatalogURL = v
	}
	if v := os.Getenv("WEATHER_MODE"); v != "" {
		c.Weather.Mode = v
	}
	if v := os.Getenv("WEATHER_BASE_URL"); v != "" {
		c.Weather.BaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Narrative.AnthropicAPIKey = v
		if c.Narrative.Mode == "static" {
			c.Narrative.Mode = "anthropic"
		}
	}
	if v := os.Getenv("NARRATIVE_MODEL"); v != "" {
		c.Narrative.Model = v
	}
	if v := os.Getenv("EXPORT_OUTPUT_DIR"); v != "" {
		c.Export.OutputDir = v
	}
	if v := os.Getenv("EXPORT_SCHEDULE"); v != "" {
		c.Export.Schedule = v
	}
}

// Validate checks cross-field consistency once at load time so components can
// trust their settings.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.Pipeline.ShortLookbackDays <= 0 || c.Pipeline.LongLookbackDays <= c.Pipeline.ShortLookbackDays {
		return fmt.Errorf("config: long lookback (%d) must exceed short lookback (%d)",
			c.Pipeline.LongLookbackDays, c.Pipeline.ShortLookbackDays)
	}
	if c.Pipeline.MaxCloudCover <= 0 || c.Pipeline.MaxCloudCover > 1 {
		return fmt.Errorf("config: max cloud cover %.2f outside (0, 1]", c.Pipeline.MaxCloudCover)
	}
	if c.Pipeline.MinObservations < 2 {
		return fmt.Errorf("config: min observations %d below 2", c.Pipeline.MinObservations)
	}
	if c.Pipeline.DeclineThreshold <= 0 || c.Pipeline.DeclineThreshold >= 1 {
		return fmt.Errorf("config: decline threshold %.2f outside (0, 1)", c.Pipeline.DeclineThreshold)
	}
	if err := c.Scoring.Weights.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Lending.Validate(); err != nil {
		return fmt.Errorf("config: lending policy: %w", err)
	}
	if c.Imagery.Mode == "catalog" && c.Imagery.CatalogURL == "" {
		return fmt.Errorf("config: imagery mode catalog requires a catalog URL")
	}
	if c.Narrative.Mode == "anthropic" && c.Narrative.AnthropicAPIKey == "" {
		return fmt.Errorf("config: narrative mode anthropic requires an API key")
	}
	return nil
}

// EngineConfig derives the engine settings.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		ShortLookbackDays: c.Pipeline.ShortLookbackDays,
		LongLookbackDays:  c.Pipeline.LongLookbackDays,
	}
}

// BuilderConfig derives the series builder settings.
func (c *Config) BuilderConfig() vegetation.BuilderConfig {
	return vegetation.BuilderConfig{
		MaxCloudCover:   c.Pipeline.MaxCloudCover,
		MinObservations: c.Pipeline.MinObservations,
		RevisitInterval: time.Duration(c.Pipeline.RevisitIntervalDays) * 24 * time.Hour,
	}
}

// ChangeConfig derives the change detector settings.
func (c *Config) ChangeConfig() vegetation.ChangeConfig {
	return vegetation.ChangeConfig{DeclineThreshold: c.Pipeline.DeclineThreshold}
}

// ImagerySource builds the configured imagery source.
func (c *Config) ImagerySource() (imagery.Source, error) {
	switch c.Imagery.Mode {
	case "catalog":
		return imagery.NewCatalogClient(imagery.CatalogConfig{
			BaseURL:          c.Imagery.CatalogURL,
			Collection:       c.Imagery.Collection,
			MaxCloudCoverPct: c.Imagery.MaxCloudCoverPct,
		}, nil)
	case "simulated", "":
		return imagery.NewSimulatedSource(imagery.ProfileHealthy), nil
	default:
		return nil, fmt.Errorf("config: unknown imagery mode %q", c.Imagery.Mode)
	}
}

// WeatherSource builds the configured weather source.
func (c *Config) WeatherSource() (weather.Source, error) {
	switch c.Weather.Mode {
	case "openmeteo":
		return weather.NewOpenMeteoClient(weather.OpenMeteoConfig{BaseURL: c.Weather.BaseURL}, nil), nil
	case "simulated", "":
		return weather.NewSimulatedSource(), nil
	default:
		return nil, fmt.Errorf("config: unknown weather mode %q", c.Weather.Mode)
	}
}

// NarrativeGenerator builds the configured narrative generator.
func (c *Config) NarrativeGenerator() (narrative.Generator, error) {
	switch c.Narrative.Mode {
	case "anthropic":
		return narrative.NewAnthropicGenerator(narrative.AnthropicConfig{
			APIKey: c.Narrative.AnthropicAPIKey,
			Model:  c.Narrative.Model,
		})
	case "static", "":
		return narrative.NewStaticGenerator(), nil
	default:
		return nil, fmt.Errorf("config: unknown narrative mode %q", c.Narrative.Mode)
	}
}
