package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/joywufn/portfolio-insight/backend/pkg/database"
)

// SetupPool connects to TEST_DATABASE_URL and applies the schema.
// The test is skipped when no database is configured.
func SetupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	db := &database.DB{Pool: pool}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

// UniqueUser returns a user name private to the running test, so
// parallel runs do not see each other's rows
func UniqueUser(t *testing.T) string {
	t.Helper()
	return "test_" + t.Name()
}

// CleanupUser deletes every row owned by user when the test ends
func CleanupUser(t *testing.T, pool *pgxpool.Pool, user string) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		for _, table := range []string{"price_alerts", "watchlists", "watchlist_groups", "portfolios"} {
			_, _ = pool.Exec(ctx, "DELETE FROM "+table+" WHERE user_name = $1", user)
		}
	})
}
