package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venuebook/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) UpsertVenue(ctx context.Context, v *models.Venue) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO venues (id, name, currency) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, currency = EXCLUDED.currency`,
		v.ID, v.Name, v.Currency)
	if err != nil {
		return fmt.Errorf("upsert venue: %w", err)
	}
	return nil
}

func (s *Store) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	var v models.Venue
	err := s.db.QueryRow(ctx, `SELECT id, name, currency, created_at FROM venues WHERE id = $1`, id).
		Scan(&v.ID, &v.Name, &v.Currency, &v.CreatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &v, nil
}

func (s *Store) CreateProposal(ctx context.Context, b *models.Booking, p *models.ProposedSlot) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b.ID = uuid.NewString()
	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (id, client_name, client_email, client_phone, venue_id,
			booking_date, booking_time, total_price, currency, status, therapist_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)
		RETURNING booking_number, created_at, updated_at`,
		b.ID, b.ClientName, b.ClientEmail, b.ClientPhone, b.VenueID,
		b.Date, b.Time, b.TotalPrice, b.Currency, string(b.Status), b.TherapistID,
	).Scan(&b.BookingNumber, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	p.ID = uuid.NewString()
	p.BookingID = b.ID
	err = tx.QueryRow(ctx, `
		INSERT INTO booking_proposed_slots (id, booking_id, date_1, time_1, date_2, time_2, expires_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING created_at`,
		p.ID, p.BookingID, p.Date1, p.Time1, p.Date2, p.Time2, p.ExpiresAt,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert proposed slot: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) GetProposedSlot(ctx context.Context, id string) (*models.ProposedSlot, error) {
	var (
		p         models.ProposedSlot
		validated *int16
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, booking_id, date_1, time_1, COALESCE(date_2, ''), COALESCE(time_2, ''),
		       validated_slot, expires_at, admin_notified_at, created_at
		FROM booking_proposed_slots WHERE id = $1`, id).
		Scan(&p.ID, &p.BookingID, &p.Date1, &p.Time1, &p.Date2, &p.Time2,
			&validated, &p.ExpiresAt, &p.AdminNotifiedAt, &p.CreatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if validated != nil {
		c := models.SlotChoice(*validated)
		p.ValidatedSlot = &c
	}
	return &p, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var (
		b      models.Booking
		status string
	)
	err := s.db.QueryRow(ctx, `
		SELECT b.id, b.booking_number, b.client_name, COALESCE(b.client_email, ''), COALESCE(b.client_phone, ''),
		       b.venue_id, COALESCE(v.name, ''), b.booking_date, b.booking_time, b.total_price::float8,
		       b.currency, b.status, b.therapist_id, b.created_at, b.updated_at
		FROM bookings b
		LEFT JOIN venues v ON v.id = b.venue_id
		WHERE b.id = $1`, id).
		Scan(&b.ID, &b.BookingNumber, &b.ClientName, &b.ClientEmail, &b.ClientPhone,
			&b.VenueID, &b.VenueName, &b.Date, &b.Time, &b.TotalPrice,
			&b.Currency, &status, &b.TherapistID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	b.Status = models.BookingStatus(status)
	return &b, nil
}

// ValidateProposal mirrors the SQLite store: both updates are conditional so
// a racing sweep and validation cannot both win.
func (s *Store) ValidateProposal(
	ctx context.Context,
	slotID string,
	choice models.SlotChoice,
	therapistID string,
	now time.Time,
) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var bookingID, date, clock string
	err = tx.QueryRow(ctx, `
		UPDATE booking_proposed_slots SET validated_slot = $1
		WHERE id = $2
		  AND validated_slot IS NULL
		  AND admin_notified_at IS NULL
		  AND expires_at > $3
		RETURNING booking_id,
		          CASE WHEN $1 = 1 THEN date_1 ELSE COALESCE(date_2, '') END,
		          CASE WHEN $1 = 1 THEN time_1 ELSE COALESCE(time_2, '') END`,
		int16(choice), slotID, now).
		Scan(&bookingID, &date, &clock)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("validate proposed slot: %w", err)
	}
	if date == "" || clock == "" {
		return false, fmt.Errorf("%w: slot %d was not proposed", ErrConflict, choice)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE bookings SET status = $1, therapist_id = $2, booking_date = $3, booking_time = $4, updated_at = $5
		WHERE id = $6 AND status = $7`,
		string(models.StatusConfirmed), therapistID, date, clock, now,
		bookingID, string(models.StatusAwaitingSelection))
	if err != nil {
		return false, fmt.Errorf("confirm booking: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	return true, tx.Commit(ctx)
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id string, from, to models.BookingStatus) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
