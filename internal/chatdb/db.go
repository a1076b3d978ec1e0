// Package chatdb provides read-only access to the Messages chat.db store.
// The Messages process owns all writes; every query here is idempotent
// and side-effect free, so no locking discipline is needed on our side.
package chatdb

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// Open opens the chat.db file read-only and returns a connection pool.
func Open(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat.db: %w", err)
	}

	// SQLite-specific connection pool settings. One connection is enough
	// for a read-only consumer and avoids reader contention with the
	// Messages process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("chat.db opened read-only", "path", path)
	return db, nil
}

// Close closes the chat.db connection pool.
func Close(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing chat.db connection", "error", err)
	}
}
