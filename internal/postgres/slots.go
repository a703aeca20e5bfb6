package postgres

import (
	"context"
	"fmt"
	"time"

	"venuebook/internal/models"

	"github.com/jackc/pgx/v5"
)

// expiredSlotsQuery builds the sweep query; venue scoping adds an ANY filter.
func expiredSlotsQuery(now time.Time, venueIDs []string) (string, []any) {
	query := `
		SELECT s.id, s.booking_id, s.date_1, s.time_1, COALESCE(s.date_2, ''), COALESCE(s.time_2, ''),
		       s.expires_at, s.created_at,
		       b.booking_number, b.client_name, b.venue_id, COALESCE(v.name, ''), b.status, b.currency
		FROM booking_proposed_slots s
		JOIN bookings b ON b.id = s.booking_id
		LEFT JOIN venues v ON v.id = b.venue_id
		WHERE s.validated_slot IS NULL
		  AND s.admin_notified_at IS NULL
		  AND s.expires_at < $1
		  AND b.status = $2`
	args := []any{now, string(models.StatusAwaitingSelection)}
	if len(venueIDs) > 0 {
		query += ` AND b.venue_id = ANY($3)`
		args = append(args, venueIDs)
	}
	query += ` ORDER BY s.expires_at, s.id`
	return query, args
}

func (s *Store) FindExpiredSlots(ctx context.Context, now time.Time, venueIDs []string) ([]models.ExpiredSlot, error) {
	query, args := expiredSlotsQuery(now, venueIDs)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expired slots: %w", err)
	}
	defer rows.Close()

	var result []models.ExpiredSlot
	for rows.Next() {
		var (
			e      models.ExpiredSlot
			status string
		)
		if err := rows.Scan(
			&e.ID, &e.BookingID, &e.Date1, &e.Time1, &e.Date2, &e.Time2,
			&e.ExpiresAt, &e.CreatedAt,
			&e.BookingNumber, &e.ClientName, &e.VenueID, &e.VenueName, &status, &e.Currency,
		); err != nil {
			return nil, err
		}
		e.BookingStatus = models.BookingStatus(status)
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) MarkAdminNotified(ctx context.Context, slotID string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE booking_proposed_slots SET admin_notified_at = $1
		WHERE id = $2 AND admin_notified_at IS NULL`, at, slotID)
	if err != nil {
		return false, fmt.Errorf("mark admin notified: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListProposals(ctx context.Context, from, to time.Time) ([]models.ProposalRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.id, s.booking_id, s.date_1, s.time_1, COALESCE(s.date_2, ''), COALESCE(s.time_2, ''),
		       s.validated_slot, s.expires_at, s.admin_notified_at, s.created_at,
		       b.booking_number, b.client_name, COALESCE(v.name, ''), b.status
		FROM booking_proposed_slots s
		JOIN bookings b ON b.id = s.booking_id
		LEFT JOIN venues v ON v.id = b.venue_id
		WHERE s.created_at >= $1 AND s.created_at < $2
		ORDER BY s.created_at, s.id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ProposalRow, error) {
		var (
			r         models.ProposalRow
			validated *int16
			status    string
		)
		err := row.Scan(
			&r.ID, &r.BookingID, &r.Date1, &r.Time1, &r.Date2, &r.Time2,
			&validated, &r.ExpiresAt, &r.AdminNotifiedAt, &r.CreatedAt,
			&r.BookingNumber, &r.ClientName, &r.VenueName, &status,
		)
		if validated != nil {
			c := models.SlotChoice(*validated)
			r.ValidatedSlot = &c
		}
		r.BookingStatus = models.BookingStatus(status)
		return r, err
	})
}
