package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"venuebook/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// timeLayout is fixed-width so that text comparison in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

var (
	ErrNotFound = models.ErrNotFound
	ErrConflict = errors.New("conflict")
)

// DB is the SQLite-backed store for bookings and proposals.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// NewDB opens the database at path and creates tables if they don't exist.
// ":memory:" opens a private in-memory database.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	var dsn string
	if path == ":memory:" {
		dsn = ":memory:?_busy_timeout=5000&_foreign_keys=on"
	} else {
		// Создаем директорию для БД, если её нет
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, path: path, logger: logger}

	if err := instance.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS venues (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'EUR',
			created_at TEXT NOT NULL
		)`,
		// Бронирования никогда не удаляются, статус хранит состояние
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			booking_number INTEGER NOT NULL UNIQUE,
			client_name TEXT NOT NULL,
			client_email TEXT,
			client_phone TEXT,
			venue_id TEXT NOT NULL,
			booking_date TEXT NOT NULL,
			booking_time TEXT NOT NULL,
			total_price REAL NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'EUR',
			status TEXT NOT NULL DEFAULT 'pending',
			therapist_id TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(venue_id) REFERENCES venues(id)
		)`,
		`CREATE TABLE IF NOT EXISTS booking_proposed_slots (
			id TEXT PRIMARY KEY,
			booking_id TEXT NOT NULL,
			date_1 TEXT NOT NULL,
			time_1 TEXT NOT NULL,
			date_2 TEXT,
			time_2 TEXT,
			validated_slot INTEGER CHECK (validated_slot IN (1, 2)),
			expires_at TEXT NOT NULL,
			admin_notified_at TEXT,
			created_at TEXT NOT NULL,
			FOREIGN KEY(booking_id) REFERENCES bookings(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_venue ON bookings(venue_id)`,
		// Индекс под предикат sweep-а
		`CREATE INDEX IF NOT EXISTS idx_proposed_slots_sweep
			ON booking_proposed_slots(expires_at)
			WHERE validated_slot IS NULL AND admin_notified_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_proposed_slots_booking ON booking_proposed_slots(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_proposed_slots_created ON booking_proposed_slots(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", firstLine(query), err)
		}
	}

	return nil
}

func firstLine(q string) string {
	if i := strings.IndexByte(q, '\n'); i > 0 {
		return q[:i]
	}
	return q
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
