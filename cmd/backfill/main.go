// Command backfill converts legacy "[FEEDBACK rating=N]" notes into
// structured feedback rows and prints the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nekogravitycat/analyst-scheduler/internal/booking"
	"github.com/nekogravitycat/analyst-scheduler/internal/config"
	"github.com/nekogravitycat/analyst-scheduler/internal/db"
	"github.com/nekogravitycat/analyst-scheduler/internal/feedback"
	"github.com/nekogravitycat/analyst-scheduler/internal/logs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logs.New(cfg)
	slog.SetDefault(logger)

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool, logger); err != nil {
			log.Fatalf("failed to migrate db: %v", err)
		}
	}

	service := feedback.NewService(
		feedback.NewPgxRepository(pool),
		booking.NewPgxRepository(pool),
		logger,
	)

	report, err := service.BackfillFromLegacyNotes(ctx)
	if err != nil {
		log.Fatalf("backfill failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
}
