package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // Register SQLite driver
	"github.com/sirupsen/logrus"
)

// SQLiteSlot stores slot values as rows of a SQLite table
type SQLiteSlot struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewSQLiteSlot opens (or creates) the database at dbPath and applies migrations
func NewSQLiteSlot(dbPath string) (*SQLiteSlot, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A single writer keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	slot := &SQLiteSlot{
		db:     db,
		dbPath: dbPath,
	}

	if err := slot.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logrus.WithError(closeErr).Warn("Failed to close database connection after init error")
		}
		return nil, err
	}

	logrus.WithField("db_path", dbPath).Info("Initialized slot database")
	return slot, nil
}

// initSchema applies all pending migrations
func (s *SQLiteSlot) initSchema() error {
	currentVersion := 0
	row := s.db.QueryRowContext(context.Background(), "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	_ = row.Scan(&currentVersion) // schema_version does not exist before the first migration

	for _, migration := range Migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logrus.WithField("version", migration.Version).Info("Applying schema migration")

		if _, err := s.db.ExecContext(context.Background(), migration.SQL); err != nil {
			return fmt.Errorf("failed to apply migration v%d: %w", migration.Version, err)
		}

		if _, err := s.db.ExecContext(context.Background(),
			"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
			migration.Version,
			time.Now().Unix(),
		); err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", migration.Version, err)
		}

		currentVersion = migration.Version
	}

	return nil
}

// Get returns the value stored under key, reporting false when the key was never written
func (s *SQLiteSlot) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM slots WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to query slot %q: %w", key, err)
	}

	return value, true, nil
}

// Set replaces the value stored under key
func (s *SQLiteSlot) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				logrus.WithError(rollbackErr).Warn("Failed to rollback transaction")
			}
		}
	}()

	var exists bool
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM slots WHERE key = ?", key).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check slot existence: %w", err)
	}

	now := time.Now().Unix()
	if exists {
		if _, err := tx.ExecContext(ctx,
			"UPDATE slots SET value = ?, updated_at = ? WHERE key = ?",
			value, now, key,
		); err != nil {
			return fmt.Errorf("failed to update slot: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO slots (key, value, created_at, updated_at) VALUES (?, ?, ?, ?)",
			key, value, now, now,
		); err != nil {
			return fmt.Errorf("failed to insert slot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return nil
}

// Close closes the database connection
func (s *SQLiteSlot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}
	return nil
}
