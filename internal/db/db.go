// Package db persists premises, weekly opening hours and closing rules in SQLite.
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a premises or closing rule does not exist.
var ErrNotFound = errors.New("not found")

// DB represents the database connection.
type DB struct {
	*sqlx.DB
	logger *zerolog.Logger
}

// NewDB opens the database at path and creates tables if they don't exist.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	conn, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: conn, logger: logger}
	if err := instance.createTables(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS premises (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slug TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			timezone TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			hours_seeded BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS opening_hours (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			premises_id INTEGER NOT NULL,
			weekday INTEGER NOT NULL CHECK (weekday BETWEEN 1 AND 7),
			opens TEXT NOT NULL,
			shuts TEXT NOT NULL,
			FOREIGN KEY (premises_id) REFERENCES premises(id) ON DELETE CASCADE
		)`,

		// start_at/end_at are stored in UTC so text ordering matches instant ordering.
		`CREATE TABLE IF NOT EXISTS closing_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			premises_id INTEGER NOT NULL,
			start_at DATETIME NOT NULL,
			end_at DATETIME NOT NULL,
			reason TEXT,
			FOREIGN KEY (premises_id) REFERENCES premises(id) ON DELETE CASCADE
		)`,

		// One row per configured holiday already turned into a closing rule.
		`CREATE TABLE IF NOT EXISTS holiday_seeds (
			premises_id INTEGER NOT NULL,
			holiday_date TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (premises_id, holiday_date),
			FOREIGN KEY (premises_id) REFERENCES premises(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_premises_active ON premises(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_opening_hours_premises ON opening_hours(premises_id, weekday, opens)`,
		`CREATE INDEX IF NOT EXISTS idx_closing_rules_premises ON closing_rules(premises_id, start_at)`,
	}

	for _, q := range queries {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}

	alters := []string{
		`ALTER TABLE premises ADD COLUMN hours_seeded BOOLEAN NOT NULL DEFAULT 0`,
	}
	for _, q := range alters {
		_, err := db.ExecContext(ctx, q)
		if err != nil && !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
