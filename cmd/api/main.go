package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"greenchain/credit-engine/internal/api"
	"greenchain/credit-engine/internal/certificate"
	"greenchain/credit-engine/internal/config"
	"greenchain/credit-engine/internal/engine"
	"greenchain/credit-engine/internal/lending"
	"greenchain/credit-engine/internal/scoring"
	"greenchain/credit-engine/internal/vegetation"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	flag.Parse()

	// Missing .env is fine; env vars may come from the environment itself.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := buildLogger(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	repo, err := buildRepository(cfg, logger)
	if err != nil {
		logger.Fatal("init repository", zap.Error(err))
	}

	eng, err := buildEngine(cfg, repo, logger)
	if err != nil {
		logger.Fatal("init engine", zap.Error(err))
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.RegisterRoutes(router, api.NewHandler(eng, repo, logger))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("credit engine API listening",
		zap.String("addr", addr),
		zap.String("imagery_mode", cfg.Imagery.Mode),
		zap.String("weather_mode", cfg.Weather.Mode),
		zap.String("narrative_mode", cfg.Narrative.Mode),
	)
	if err := router.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func buildLogger(mode string) (*zap.Logger, error) {
	if mode == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildRepository opens Postgres when a DSN is configured and falls back to
// the in-memory registry otherwise, which keeps local runs dependency-free.
func buildRepository(cfg *config.Config, logger *zap.Logger) (certificate.Repository, error) {
	if cfg.Database.DSN == "" {
		logger.Warn("no database DSN configured, using in-memory certificate registry")
		return certificate.NewMemoryRepository(), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return certificate.NewGormRepository(db)
}

func buildEngine(cfg *config.Config, repo certificate.Repository, logger *zap.Logger) (*engine.Engine, error) {
	imagerySource, err := cfg.ImagerySource()
	if err != nil {
		return nil, err
	}
	weatherSource, err := cfg.WeatherSource()
	if err != nil {
		return nil, err
	}
	generator, err := cfg.NarrativeGenerator()
	if err != nil {
		return nil, err
	}
	aggregator, err := scoring.NewAggregator(cfg.Scoring.Weights)
	if err != nil {
		return nil, err
	}
	calculator, err := lending.NewCalculator(cfg.Lending)
	if err != nil {
		return nil, err
	}

	return engine.New(cfg.EngineConfig(), engine.Deps{
		Imagery:    imagerySource,
		Weather:    weatherSource,
		Narrative:  generator,
		Repository: repo,
		Builder:    vegetation.NewBuilder(cfg.BuilderConfig()),
		Detector:   vegetation.NewChangeDetector(cfg.ChangeConfig()),
		Aggregator: aggregator,
		Calculator: calculator,
		Logger:     logger,
	})
}
