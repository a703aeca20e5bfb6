package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"venuebook/internal/models"
)

// UpsertVenue creates or renames a venue.
func (db *DB) UpsertVenue(ctx context.Context, v *models.Venue) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO venues (id, name, currency, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, currency = excluded.currency`,
		v.ID, v.Name, v.Currency, formatTime(v.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert venue: %w", err)
	}
	return nil
}

func (db *DB) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	var (
		v       models.Venue
		created string
	)
	err := db.QueryRowContext(ctx, `SELECT id, name, currency, created_at FROM venues WHERE id = ?`, id).
		Scan(&v.ID, &v.Name, &v.Currency, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if v.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &v, nil
}
