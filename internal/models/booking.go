package models

import (
	"errors"
	"time"
)

// BookingStatus is the stored status of a booking.
type BookingStatus string

const (
	StatusPending           BookingStatus = "pending"
	StatusAwaitingSelection BookingStatus = "awaiting_hairdresser_selection"
	StatusQuotePending      BookingStatus = "quote_pending"
	StatusConfirmed         BookingStatus = "confirmed"
	StatusCompleted         BookingStatus = "completed"
	StatusCancelled         BookingStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAwaitingSelection, StatusQuotePending,
		StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition out of s is allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Booking is a guest's request for a service at a venue.
type Booking struct {
	ID            string        `json:"id"`
	BookingNumber int64         `json:"booking_number"`
	ClientName    string        `json:"client_name"`
	ClientEmail   string        `json:"client_email,omitempty"`
	ClientPhone   string        `json:"client_phone,omitempty"`
	VenueID       string        `json:"venue_id"`
	VenueName     string        `json:"venue_name,omitempty"` // joined, not stored on the booking row
	Date          string        `json:"booking_date"`         // YYYY-MM-DD
	Time          string        `json:"booking_time"`         // HH:MM
	TotalPrice    float64       `json:"total_price"`
	Currency      string        `json:"currency"`
	Status        BookingStatus `json:"status"`
	TherapistID   *string       `json:"therapist_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CanTransition reports whether the booking may move to the given status.
// Terminal bookings stay where they are.
func (b *Booking) CanTransition(to BookingStatus) bool {
	if !b.Status.Valid() || !to.Valid() {
		return false
	}
	if b.Status == to {
		return true
	}
	return !b.Status.IsTerminal()
}

// Venue is a hotel, coworking space or enterprise site.
type Venue struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")
