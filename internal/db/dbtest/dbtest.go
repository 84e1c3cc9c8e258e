// Package dbtest opens the PostgreSQL database named by TEST_DB_DSN for
// repository integration tests. Tests are skipped when it is unset.
package dbtest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/nekogravitycat/analyst-scheduler/internal/db"
)

// Open connects, applies migrations and empties every scheduler table.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()

	// Attempt to load .env from the repository root
	_ = godotenv.Load("../../.env", "../../../.env")

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("unable to connect to database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	Truncate(t, pool)
	return pool
}

func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		"TRUNCATE TABLE public.notes, public.feedback, public.bookings, public.availability_rules CASCADE")
	if err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}
