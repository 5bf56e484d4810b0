// Command workers runs the scheduled registry export: on each cron tick the
// certificate registry is written to a timestamped XLSX workbook in the
// configured output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"greenchain/credit-engine/internal/certificate"
	"greenchain/credit-engine/internal/config"
	"greenchain/credit-engine/internal/export"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	runOnce := flag.Bool("once", false, "run one export immediately and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.DSN == "" {
		log.Fatal("export worker requires DATABASE_DSN")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	repo, err := certificate.NewGormRepository(db)
	if err != nil {
		logger.Fatal("init repository", zap.Error(err))
	}

	worker := &exportWorker{
		repo:      repo,
		outputDir: cfg.Export.OutputDir,
		logger:    logger,
	}

	if *runOnce {
		if err := worker.run(context.Background()); err != nil {
			logger.Fatal("export failed", zap.Error(err))
		}
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Export.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := worker.run(ctx); err != nil {
			logger.Error("scheduled export failed", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("invalid export schedule", zap.String("schedule", cfg.Export.Schedule), zap.Error(err))
	}

	scheduler.Start()
	logger.Info("export worker started",
		zap.String("schedule", cfg.Export.Schedule),
		zap.String("output_dir", cfg.Export.OutputDir))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("export worker stopped")
}

type exportWorker struct {
	repo      certificate.Repository
	outputDir string
	logger    *zap.Logger
}

func (w *exportWorker) run(ctx context.Context) error {
	started := time.Now()

	certs, err := w.repo.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("list certificates: %w", err)
	}

	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(w.outputDir, fmt.Sprintf("certificates-%s.xlsx", started.UTC().Format("20060102-150405")))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer file.Close()

	if err := export.NewExcelExporter(export.DefaultExcelOptions()).Export(certs, file); err != nil {
		return fmt.Errorf("export registry: %w", err)
	}

	w.logger.Info("registry exported",
		zap.String("path", path),
		zap.Int("certificates", len(certs)),
		zap.Duration("took", time.Since(started)))
	return nil
}
