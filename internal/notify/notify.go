// Package notify delivers admin notifications about booking proposals to
// an external messaging endpoint. Dispatchers make one outbound call and
// never retry; the caller decides what a failure means.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// TypeSlotsExpired marks a proposal that expired without a provider.
	TypeSlotsExpired = "slots_expired"

	// NoTherapistSelected is sent in place of a provider name for expired proposals.
	NoTherapistSelected = "No therapist selected (expired after 2h)"
)

var ErrUnknownDriver = errors.New("unknown notify driver")

// AdminNotification is the fixed payload forwarded to the notification endpoint.
type AdminNotification struct {
	Type          string  `json:"type"`
	BookingID     string  `json:"bookingId" binding:"required"`
	BookingNumber int64   `json:"bookingNumber"`
	ClientName    string  `json:"clientName"`
	VenueName     string  `json:"venueName"`
	BookingDate   string  `json:"bookingDate"`
	BookingTime   string  `json:"bookingTime"`
	TherapistName string  `json:"therapistName"`
	TotalPrice    float64 `json:"totalPrice"`
	Currency      string  `json:"currency"`
}

// Dispatcher sends a single notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, n AdminNotification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n AdminNotification) error

func (f DispatcherFunc) Dispatch(ctx context.Context, n AdminNotification) error {
	return f(ctx, n)
}

// Text renders the notification for chat messengers.
func (n AdminNotification) Text() string {
	var sb strings.Builder
	switch n.Type {
	case TypeSlotsExpired:
		sb.WriteString("⏰ Proposed slots expired\n")
	default:
		fmt.Fprintf(&sb, "🔔 %s\n", n.Type)
	}
	fmt.Fprintf(&sb, "Booking #%d\n", n.BookingNumber)
	fmt.Fprintf(&sb, "Client: %s\n", n.ClientName)
	fmt.Fprintf(&sb, "Venue: %s\n", n.VenueName)
	fmt.Fprintf(&sb, "Date: %s %s\n", n.BookingDate, n.BookingTime)
	fmt.Fprintf(&sb, "Therapist: %s\n", n.TherapistName)
	fmt.Fprintf(&sb, "Total: %.2f %s", n.TotalPrice, n.Currency)
	return sb.String()
}
