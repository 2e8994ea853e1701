package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/domain"
)

type DB struct {
	*sqlx.DB
}

func NewSQLiteDB(dsn string) (*DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Set pragmas for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// withRetry wraps a write with a fixed-count exponential-backoff retry. The
// record store is the last line of defense for job outcomes, so transient
// write failures (locked database, brief contention) get a few chances before
// the job is declared lost.
func (db *DB) withRetry(op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < constants.DefaultRetryCount; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < constants.DefaultRetryCount-1 {
			time.Sleep(constants.DefaultRetryBase * (1 << attempt))
		}
	}
	return &domain.PersistenceError{Op: op, Err: err}
}
