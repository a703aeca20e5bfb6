// Package supabase reads and flags proposals in a hosted Supabase project
// through PostgREST. It covers the sweep and reporting paths only.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"venuebook/internal/models"

	"github.com/supabase-community/supabase-go"
)

const (
	SlotsTable  = "booking_proposed_slots"
	VenuesTable = "venues"

	slotColumns = "id,booking_id,date_1,time_1,date_2,time_2,validated_slot,expires_at,admin_notified_at,created_at," +
		"bookings!inner(booking_number,client_name,venue_id,status,currency,venues(name))"
)

type Store struct {
	client *supabase.Client
}

func New(url, key string) (*Store, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &Store{client: client}, nil
}

type slotRow struct {
	ID              string     `json:"id"`
	BookingID       string     `json:"booking_id"`
	Date1           string     `json:"date_1"`
	Time1           string     `json:"time_1"`
	Date2           *string    `json:"date_2"`
	Time2           *string    `json:"time_2"`
	ValidatedSlot   *int       `json:"validated_slot"`
	ExpiresAt       time.Time  `json:"expires_at"`
	AdminNotifiedAt *time.Time `json:"admin_notified_at"`
	CreatedAt       time.Time  `json:"created_at"`
	Booking         struct {
		BookingNumber int64  `json:"booking_number"`
		ClientName    string `json:"client_name"`
		VenueID       string `json:"venue_id"`
		Status        string `json:"status"`
		Currency      string `json:"currency"`
		Venue         *struct {
			Name string `json:"name"`
		} `json:"venues"`
	} `json:"bookings"`
}

func (r *slotRow) proposedSlot() models.ProposedSlot {
	p := models.ProposedSlot{
		ID:              r.ID,
		BookingID:       r.BookingID,
		Date1:           r.Date1,
		Time1:           r.Time1,
		ExpiresAt:       r.ExpiresAt,
		AdminNotifiedAt: r.AdminNotifiedAt,
		CreatedAt:       r.CreatedAt,
	}
	if r.Date2 != nil {
		p.Date2 = *r.Date2
	}
	if r.Time2 != nil {
		p.Time2 = *r.Time2
	}
	if r.ValidatedSlot != nil {
		c := models.SlotChoice(*r.ValidatedSlot)
		p.ValidatedSlot = &c
	}
	return p
}

func (r *slotRow) venueName() string {
	if r.Booking.Venue == nil {
		return ""
	}
	return r.Booking.Venue.Name
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *Store) FindExpiredSlots(ctx context.Context, now time.Time, venueIDs []string) ([]models.ExpiredSlot, error) {
	query := s.client.From(SlotsTable).
		Select(slotColumns, "", false).
		Is("validated_slot", "null").
		Is("admin_notified_at", "null").
		Lt("expires_at", timestamp(now)).
		Eq("bookings.status", string(models.StatusAwaitingSelection))
	if len(venueIDs) > 0 {
		query = query.In("bookings.venue_id", venueIDs)
	}

	raw, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("query expired slots: %w", err)
	}

	var rows []slotRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode expired slots: %w", err)
	}

	result := make([]models.ExpiredSlot, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		result = append(result, models.ExpiredSlot{
			ProposedSlot:  r.proposedSlot(),
			BookingNumber: r.Booking.BookingNumber,
			ClientName:    r.Booking.ClientName,
			VenueID:       r.Booking.VenueID,
			VenueName:     r.venueName(),
			BookingStatus: models.BookingStatus(r.Booking.Status),
			Currency:      r.Booking.Currency,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result, nil
}

// MarkAdminNotified patches the row only while admin_notified_at is null and
// reports whether this call changed it.
func (s *Store) MarkAdminNotified(ctx context.Context, slotID string, at time.Time) (bool, error) {
	raw, _, err := s.client.From(SlotsTable).
		Update(map[string]any{"admin_notified_at": timestamp(at)}, "representation", "exact").
		Eq("id", slotID).
		Is("admin_notified_at", "null").
		Execute()
	if err != nil {
		return false, fmt.Errorf("mark admin notified: %w", err)
	}

	var updated []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &updated); err != nil {
		return false, fmt.Errorf("decode update: %w", err)
	}
	return len(updated) == 1, nil
}

func (s *Store) ListProposals(ctx context.Context, from, to time.Time) ([]models.ProposalRow, error) {
	raw, _, err := s.client.From(SlotsTable).
		Select(slotColumns, "", false).
		Gte("created_at", timestamp(from)).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}

	var rows []slotRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode proposals: %w", err)
	}

	result := make([]models.ProposalRow, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		// filters are keyed by column, so the upper bound is applied here
		if !r.CreatedAt.Before(to) {
			continue
		}
		result = append(result, models.ProposalRow{
			ProposedSlot:  r.proposedSlot(),
			BookingNumber: r.Booking.BookingNumber,
			ClientName:    r.Booking.ClientName,
			VenueName:     r.venueName(),
			BookingStatus: models.BookingStatus(r.Booking.Status),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, _, err := s.client.From(VenuesTable).Select("id", "", false).Range(0, 0, "").Execute()
	return err
}
