// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/streakbot/streakbot/streakbot/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

// OpenEmpty returns a bun handle on a fresh SQLite file without any schema.
func OpenEmpty(t testing.TB) *bun.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "streakbot.db")
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection keeps SQLite writers serialized like row locks would.
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// Open returns a migrated SQLite database.
func Open(t testing.TB) *bun.DB {
	t.Helper()

	db := OpenEmpty(t)
	if _, err := database.NewMigrator(db, nil).Run(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// TxOptions are fast-failing options suitable for tests.
func TxOptions() database.TxOptions {
	opts := database.DefaultTxOptions()
	opts.Backoff = 0
	return opts
}
