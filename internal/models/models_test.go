package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatus(t *testing.T) {
	assert.True(t, StatusAwaitingSelection.Valid())
	assert.False(t, BookingStatus("archived").Valid())

	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
}

func TestBooking_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{"awaiting to confirmed", StatusAwaitingSelection, StatusConfirmed, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"cancelled to confirmed", StatusCancelled, StatusConfirmed, false},
		{"completed to pending", StatusCompleted, StatusPending, false},
		{"cancelled stays cancelled", StatusCancelled, StatusCancelled, true},
		{"unknown target", StatusPending, BookingStatus("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Booking{Status: tt.from}
			assert.Equal(t, tt.want, b.CanTransition(tt.to))
		})
	}
}

func TestProposedSlot_Phase(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	choice := FirstSlot
	notified := now.Add(-time.Minute)

	t.Run("validated wins", func(t *testing.T) {
		p := &ProposedSlot{ValidatedSlot: &choice, ExpiresAt: now.Add(-time.Hour)}
		assert.Equal(t, PhaseValidated, p.Phase(now))
		assert.False(t, p.IsSweepable(now))
	})

	t.Run("notified", func(t *testing.T) {
		p := &ProposedSlot{AdminNotifiedAt: &notified, ExpiresAt: now.Add(-time.Hour)}
		assert.Equal(t, PhaseNotified, p.Phase(now))
		assert.False(t, p.IsSweepable(now))
	})

	t.Run("pending", func(t *testing.T) {
		p := &ProposedSlot{ExpiresAt: now.Add(time.Hour)}
		assert.Equal(t, PhasePending, p.Phase(now))
		assert.False(t, p.IsSweepable(now))
	})

	t.Run("overdue", func(t *testing.T) {
		p := &ProposedSlot{ExpiresAt: now.Add(-time.Hour)}
		assert.Equal(t, PhaseOverdue, p.Phase(now))
		assert.True(t, p.IsSweepable(now))
	})
}

func TestProposedSlot_Candidate(t *testing.T) {
	p := &ProposedSlot{Date1: "2026-03-02", Time1: "10:00"}

	d, tm, ok := p.Candidate(FirstSlot)
	assert.True(t, ok)
	assert.Equal(t, "2026-03-02", d)
	assert.Equal(t, "10:00", tm)

	_, _, ok = p.Candidate(SecondSlot)
	assert.False(t, ok)

	p.Date2, p.Time2 = "2026-03-03", "14:30"
	d, tm, ok = p.Candidate(SecondSlot)
	assert.True(t, ok)
	assert.Equal(t, "2026-03-03", d)
	assert.Equal(t, "14:30", tm)

	assert.False(t, SlotChoice(3).Valid())
}
