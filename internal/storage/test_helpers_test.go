package storage

import (
	"context"
	"os"
	"testing"
	"time"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// testPostgres connects to TEST_POSTGRES_URL, migrates it and empties the
// documents table. The test is skipped when the variable is unset.
func testPostgres(t *testing.T) *PostgresDB {
	t.Helper()
	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	if err := RunMigrations(url, "../../migrations/postgres"); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	ctx := testContext(t)
	db, err := NewPostgresDBFromURL(ctx, url)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	if _, err := db.Pool().Exec(ctx, `TRUNCATE documents`); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	return db
}
