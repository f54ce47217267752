// Command sweep runs one reconciliation pass: it deletes media store objects
// under the product folder that no catalog row references. Schedule it
// externally (cron or a one-shot container); it never runs inline with
// requests.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"threadcart/internal/config"
	"threadcart/internal/database"
	"threadcart/internal/logger"
	"threadcart/internal/media"
	"threadcart/internal/repository"
	"threadcart/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report orphans without deleting them")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall run deadline")
	flag.Parse()

	// The job often runs from outside the API working directory, so load
	// the .env file before viper reads the environment.
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting reconciliation sweep",
		zap.String("folder", cfg.Media.Folder),
		zap.Bool("dry_run", *dryRun),
	)

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	mediaStore, err := media.NewCloudinaryStore(cfg.Media.URL)
	if err != nil {
		log.Fatal("Failed to initialize media store", zap.Error(err))
	}

	productRepo := repository.NewProductRepository(dbService.DB())
	reconciler := service.NewReconciler(productRepo, mediaStore, cfg.Media.Folder, *dryRun, log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := reconciler.Sweep(ctx)
	if err != nil {
		log.Fatal("Sweep failed", zap.Error(err))
	}

	if *dryRun {
		log.Info("Sweep complete (dry run)",
			zap.Int("scanned", report.Scanned),
			zap.Int("referenced", report.Referenced),
			zap.Int("would_delete", report.WouldDelete),
		)
		return
	}

	log.Info("Sweep complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("referenced", report.Referenced),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", report.Failed),
	)
}
