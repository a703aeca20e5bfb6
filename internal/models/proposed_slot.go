package models

import "time"

// SlotChoice selects one of the two proposed candidates.
type SlotChoice int

const (
	FirstSlot  SlotChoice = 1
	SecondSlot SlotChoice = 2
)

// Valid reports whether c names a candidate position.
func (c SlotChoice) Valid() bool {
	return c == FirstSlot || c == SecondSlot
}

// Phase describes where a proposal is in its lifecycle.
type Phase string

const (
	PhaseValidated Phase = "validated"
	PhasePending   Phase = "pending"
	PhaseNotified  Phase = "expired_notified"
	// PhaseOverdue is expired but not yet picked up by a sweep.
	PhaseOverdue Phase = "overdue"
)

// ProposedSlot holds up to two candidate date/time pairs for a booking
// awaiting a provider.
type ProposedSlot struct {
	ID              string      `json:"id"`
	BookingID       string      `json:"booking_id"`
	Date1           string      `json:"date_1"`
	Time1           string      `json:"time_1"`
	Date2           string      `json:"date_2,omitempty"`
	Time2           string      `json:"time_2,omitempty"`
	ValidatedSlot   *SlotChoice `json:"validated_slot,omitempty"`
	ExpiresAt       time.Time   `json:"expires_at"`
	AdminNotifiedAt *time.Time  `json:"admin_notified_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// HasSecond reports whether a second candidate was proposed.
func (p *ProposedSlot) HasSecond() bool {
	return p.Date2 != "" && p.Time2 != ""
}

// Candidate returns the date and time for the given choice.
func (p *ProposedSlot) Candidate(c SlotChoice) (date, clock string, ok bool) {
	switch c {
	case FirstSlot:
		return p.Date1, p.Time1, true
	case SecondSlot:
		if p.HasSecond() {
			return p.Date2, p.Time2, true
		}
	}
	return "", "", false
}

// Phase returns the lifecycle phase at the given instant.
func (p *ProposedSlot) Phase(now time.Time) Phase {
	switch {
	case p.ValidatedSlot != nil:
		return PhaseValidated
	case p.AdminNotifiedAt != nil:
		return PhaseNotified
	case p.ExpiresAt.After(now):
		return PhasePending
	default:
		return PhaseOverdue
	}
}

// IsSweepable mirrors the sweep predicate for a single record.
func (p *ProposedSlot) IsSweepable(now time.Time) bool {
	return p.ValidatedSlot == nil && p.AdminNotifiedAt == nil && p.ExpiresAt.Before(now)
}

// ExpiredSlot is a proposal selected by the sweep, joined with the
// booking and venue fields needed for the admin notification.
type ExpiredSlot struct {
	ProposedSlot
	BookingNumber int64
	ClientName    string
	VenueID       string
	VenueName     string
	BookingStatus BookingStatus
	Currency      string
}

// ProposalRow is a flattened proposal used for exports.
type ProposalRow struct {
	ProposedSlot
	BookingNumber int64
	ClientName    string
	VenueName     string
	BookingStatus BookingStatus
}
