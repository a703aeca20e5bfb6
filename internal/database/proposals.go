package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"venuebook/internal/models"

	"github.com/google/uuid"
)

// CreateProposal inserts a booking together with its proposed slots.
// IDs, the booking number and timestamps are assigned here.
func (db *DB) CreateProposal(ctx context.Context, b *models.Booking, p *models.ProposedSlot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var number int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(booking_number), 1000) + 1 FROM bookings`).Scan(&number); err != nil {
		return fmt.Errorf("next booking number: %w", err)
	}

	now := time.Now()
	b.ID = uuid.NewString()
	b.BookingNumber = number
	b.CreatedAt, b.UpdatedAt = now, now

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (id, booking_number, client_name, client_email, client_phone, venue_id,
			booking_date, booking_time, total_price, currency, status, therapist_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.BookingNumber, b.ClientName, nullString(b.ClientEmail), nullString(b.ClientPhone), b.VenueID,
		b.Date, b.Time, b.TotalPrice, b.Currency, string(b.Status), b.TherapistID,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	p.ID = uuid.NewString()
	p.BookingID = b.ID
	p.CreatedAt = now

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO booking_proposed_slots (id, booking_id, date_1, time_1, date_2, time_2, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.BookingID, p.Date1, p.Time1, nullString(p.Date2), nullString(p.Time2),
		formatTime(p.ExpiresAt), formatTime(p.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert proposed slot: %w", err)
	}

	return tx.Commit()
}

func (db *DB) GetProposedSlot(ctx context.Context, id string) (*models.ProposedSlot, error) {
	var (
		p                models.ProposedSlot
		date2, time2     sql.NullString
		validated        sql.NullInt64
		expires, created string
		notified         sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, booking_id, date_1, time_1, date_2, time_2, validated_slot, expires_at, admin_notified_at, created_at
		FROM booking_proposed_slots WHERE id = ?`, id).
		Scan(&p.ID, &p.BookingID, &p.Date1, &p.Time1, &date2, &time2, &validated, &expires, &notified, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Date2, p.Time2 = date2.String, time2.String
	if validated.Valid {
		c := models.SlotChoice(validated.Int64)
		p.ValidatedSlot = &c
	}
	if p.ExpiresAt, err = parseTime(expires); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if p.AdminNotifiedAt, err = parseNullTime(notified); err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var (
		b                models.Booking
		email, phone     sql.NullString
		therapist        sql.NullString
		status           string
		created, updated string
	)
	err := db.QueryRowContext(ctx, `
		SELECT b.id, b.booking_number, b.client_name, b.client_email, b.client_phone, b.venue_id,
		       COALESCE(v.name, ''), b.booking_date, b.booking_time, b.total_price, b.currency,
		       b.status, b.therapist_id, b.created_at, b.updated_at
		FROM bookings b
		LEFT JOIN venues v ON v.id = b.venue_id
		WHERE b.id = ?`, id).
		Scan(&b.ID, &b.BookingNumber, &b.ClientName, &email, &phone, &b.VenueID,
			&b.VenueName, &b.Date, &b.Time, &b.TotalPrice, &b.Currency,
			&status, &therapist, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.ClientEmail, b.ClientPhone = email.String, phone.String
	b.Status = models.BookingStatus(status)
	if therapist.Valid {
		b.TherapistID = &therapist.String
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &b, nil
}

// ValidateProposal records the accepted candidate and confirms the booking
// in one transaction. It reports false when the proposal is no longer open
// (already validated, already notified or past expiry) or the booking has
// left awaiting_hairdresser_selection.
func (db *DB) ValidateProposal(
	ctx context.Context,
	slotID string,
	choice models.SlotChoice,
	therapistID string,
	now time.Time,
) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var bookingID, date, clock string
	err = tx.QueryRowContext(ctx, `
		UPDATE booking_proposed_slots SET validated_slot = ?
		WHERE id = ?
		  AND validated_slot IS NULL
		  AND admin_notified_at IS NULL
		  AND expires_at > ?
		RETURNING booking_id,
		          CASE ? WHEN 1 THEN date_1 ELSE COALESCE(date_2, '') END,
		          CASE ? WHEN 1 THEN time_1 ELSE COALESCE(time_2, '') END`,
		int(choice), slotID, formatTime(now), int(choice), int(choice)).
		Scan(&bookingID, &date, &clock)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("validate proposed slot: %w", err)
	}
	if date == "" || clock == "" {
		return false, fmt.Errorf("%w: slot %d was not proposed", ErrConflict, choice)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE bookings SET status = ?, therapist_id = ?, booking_date = ?, booking_time = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(models.StatusConfirmed), therapistID, date, clock, formatTime(now),
		bookingID, string(models.StatusAwaitingSelection))
	if err != nil {
		return false, fmt.Errorf("confirm booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return false, nil
	}

	return true, tx.Commit()
}

// UpdateBookingStatus moves a booking from one status to another.
// It reports false when the booking was not in the from status.
func (db *DB) UpdateBookingStatus(ctx context.Context, id string, from, to models.BookingStatus) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), formatTime(time.Now()), id, string(from))
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
