package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"venuebook/internal/models"
)

const expiredSlotsQuery = `
	SELECT s.id, s.booking_id, s.date_1, s.time_1, s.date_2, s.time_2,
	       s.expires_at, s.created_at,
	       b.booking_number, b.client_name, b.venue_id, COALESCE(v.name, ''), b.status, b.currency
	FROM booking_proposed_slots s
	JOIN bookings b ON b.id = s.booking_id
	LEFT JOIN venues v ON v.id = b.venue_id
	WHERE s.validated_slot IS NULL
	  AND s.admin_notified_at IS NULL
	  AND s.expires_at < ?
	  AND b.status = ?`

// FindExpiredSlots returns overdue proposals of bookings still awaiting a provider.
func (db *DB) FindExpiredSlots(ctx context.Context, now time.Time, venueIDs []string) ([]models.ExpiredSlot, error) {
	query := expiredSlotsQuery
	args := []any{formatTime(now), string(models.StatusAwaitingSelection)}
	if len(venueIDs) > 0 {
		query += ` AND b.venue_id IN (` + placeholders(len(venueIDs)) + `)`
		for _, id := range venueIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY s.expires_at, s.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expired slots: %w", err)
	}
	defer rows.Close()

	var result []models.ExpiredSlot
	for rows.Next() {
		var (
			s                models.ExpiredSlot
			date2, time2     sql.NullString
			expires, created string
			status           string
		)
		if err := rows.Scan(
			&s.ID, &s.BookingID, &s.Date1, &s.Time1, &date2, &time2,
			&expires, &created,
			&s.BookingNumber, &s.ClientName, &s.VenueID, &s.VenueName, &status, &s.Currency,
		); err != nil {
			return nil, err
		}
		s.Date2, s.Time2 = date2.String, time2.String
		s.BookingStatus = models.BookingStatus(status)
		if s.ExpiresAt, err = parseTime(expires); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// MarkAdminNotified claims a proposal for notification. It reports false
// when admin_notified_at was already set.
func (db *DB) MarkAdminNotified(ctx context.Context, slotID string, at time.Time) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE booking_proposed_slots SET admin_notified_at = ?
		WHERE id = ? AND admin_notified_at IS NULL`,
		formatTime(at), slotID)
	if err != nil {
		return false, fmt.Errorf("mark admin notified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListProposals returns proposals created in [from, to).
func (db *DB) ListProposals(ctx context.Context, from, to time.Time) ([]models.ProposalRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.id, s.booking_id, s.date_1, s.time_1, s.date_2, s.time_2,
		       s.validated_slot, s.expires_at, s.admin_notified_at, s.created_at,
		       b.booking_number, b.client_name, COALESCE(v.name, ''), b.status
		FROM booking_proposed_slots s
		JOIN bookings b ON b.id = s.booking_id
		LEFT JOIN venues v ON v.id = b.venue_id
		WHERE s.created_at >= ? AND s.created_at < ?
		ORDER BY s.created_at, s.id`,
		formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	var result []models.ProposalRow
	for rows.Next() {
		var (
			r                models.ProposalRow
			date2, time2     sql.NullString
			validated        sql.NullInt64
			expires, created string
			notified         sql.NullString
			status           string
		)
		if err := rows.Scan(
			&r.ID, &r.BookingID, &r.Date1, &r.Time1, &date2, &time2,
			&validated, &expires, &notified, &created,
			&r.BookingNumber, &r.ClientName, &r.VenueName, &status,
		); err != nil {
			return nil, err
		}
		r.Date2, r.Time2 = date2.String, time2.String
		r.BookingStatus = models.BookingStatus(status)
		if validated.Valid {
			c := models.SlotChoice(validated.Int64)
			r.ValidatedSlot = &c
		}
		if r.ExpiresAt, err = parseTime(expires); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if r.AdminNotifiedAt, err = parseNullTime(notified); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
