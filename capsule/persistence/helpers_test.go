package persistence

import (
	"database/sql"
	"testing"

	"github.com/dfryer1193/timecapsule/shared/db/sqlite"
)

// setupTestDB returns an in-memory database with the production schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: ":memory:"})
	if err := database.Connect(); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database.DB()
}
