package proposals

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"venuebook/internal/metrics"
	"venuebook/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}

func (m *mockStore) CreateProposal(ctx context.Context, b *models.Booking, p *models.ProposedSlot) error {
	return m.Called(ctx, b, p).Error(0)
}

func (m *mockStore) GetProposedSlot(ctx context.Context, id string) (*models.ProposedSlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProposedSlot), args.Error(1)
}

func (m *mockStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) ValidateProposal(ctx context.Context, slotID string, choice models.SlotChoice, therapistID string, now time.Time) (bool, error) {
	args := m.Called(ctx, slotID, choice, therapistID, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) UpdateBookingStatus(ctx context.Context, id string, from, to models.BookingStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store Store) (*Service, *metrics.Metrics) {
	logger := zerolog.New(io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(Config{Expiry: 2 * time.Hour, DefaultCurrency: "EUR"}, store, m, &logger)
	svc.now = func() time.Time { return fixedNow }
	return svc, m
}

func validInput() ProposeInput {
	return ProposeInput{
		ClientName: "Jane Roe",
		VenueID:    "hotel-a",
		Date1:      "2026-03-02",
		Time1:      "10:30",
		Date2:      "2026-03-03",
		Time2:      "15:00",
		TotalPrice: 80,
	}
}

func TestPropose(t *testing.T) {
	store := new(mockStore)
	svc, m := newTestService(store)
	ctx := context.Background()

	store.On("GetVenue", ctx, "hotel-a").Return(&models.Venue{ID: "hotel-a", Name: "Hotel Lumen", Currency: "CHF"}, nil)
	store.On("CreateProposal", ctx, mock.AnythingOfType("*models.Booking"), mock.AnythingOfType("*models.ProposedSlot")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Booking).ID = "b-1"
			args.Get(2).(*models.ProposedSlot).ID = "s-1"
		}).
		Return(nil)

	booking, slot, err := svc.Propose(ctx, validInput())
	require.NoError(t, err)

	assert.Equal(t, "b-1", booking.ID)
	assert.Equal(t, models.StatusAwaitingSelection, booking.Status)
	assert.Equal(t, "CHF", booking.Currency)
	assert.Equal(t, "Hotel Lumen", booking.VenueName)
	assert.Equal(t, "2026-03-02", booking.Date)
	assert.Equal(t, fixedNow.Add(2*time.Hour), slot.ExpiresAt)
	assert.True(t, slot.HasSecond())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProposalsTotal.WithLabelValues("created")))
	store.AssertExpectations(t)
}

func TestPropose_DefaultCurrency(t *testing.T) {
	store := new(mockStore)
	svc, _ := newTestService(store)
	ctx := context.Background()

	store.On("GetVenue", ctx, "hotel-a").Return(&models.Venue{ID: "hotel-a", Name: "Hotel Lumen"}, nil)
	store.On("CreateProposal", ctx, mock.Anything, mock.Anything).Return(nil)

	in := validInput()
	in.Date2, in.Time2 = "", ""
	booking, slot, err := svc.Propose(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "EUR", booking.Currency)
	assert.False(t, slot.HasSecond())
}

func TestPropose_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProposeInput)
	}{
		{"missing client", func(in *ProposeInput) { in.ClientName = "  " }},
		{"missing venue", func(in *ProposeInput) { in.VenueID = "" }},
		{"bad date", func(in *ProposeInput) { in.Date1 = "02.03.2026" }},
		{"bad time", func(in *ProposeInput) { in.Time1 = "25:00" }},
		{"half second slot", func(in *ProposeInput) { in.Time2 = "" }},
		{"negative price", func(in *ProposeInput) { in.TotalPrice = -1 }},
		{"bad currency", func(in *ProposeInput) { in.Currency = "EURO" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			svc, _ := newTestService(store)
			in := validInput()
			tt.mutate(&in)

			_, _, err := svc.Propose(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
			store.AssertNotCalled(t, "CreateProposal", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPropose_UnknownVenue(t *testing.T) {
	store := new(mockStore)
	svc, _ := newTestService(store)
	ctx := context.Background()

	store.On("GetVenue", ctx, "hotel-a").Return(nil, models.ErrNotFound)

	_, _, err := svc.Propose(ctx, validInput())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func openSlot() *models.ProposedSlot {
	return &models.ProposedSlot{
		ID:        "s-1",
		BookingID: "b-1",
		Date1:     "2026-03-02",
		Time1:     "10:30",
		ExpiresAt: fixedNow.Add(time.Hour),
	}
}

func TestValidate(t *testing.T) {
	store := new(mockStore)
	svc, m := newTestService(store)
	ctx := context.Background()
	therapist := "t-9"

	store.On("GetProposedSlot", ctx, "s-1").Return(openSlot(), nil)
	store.On("GetBooking", ctx, "b-1").Return(&models.Booking{ID: "b-1", Status: models.StatusAwaitingSelection}, nil).Once()
	store.On("ValidateProposal", ctx, "s-1", models.FirstSlot, therapist, fixedNow).Return(true, nil)
	store.On("GetBooking", ctx, "b-1").Return(&models.Booking{ID: "b-1", Status: models.StatusConfirmed, TherapistID: &therapist}, nil).Once()

	booking, err := svc.Validate(ctx, "s-1", models.FirstSlot, therapist)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, booking.Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProposalsTotal.WithLabelValues("validated")))
	store.AssertExpectations(t)
}

func TestValidate_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid choice", func(t *testing.T) {
		svc, _ := newTestService(new(mockStore))
		_, err := svc.Validate(ctx, "s-1", models.SlotChoice(3), "t-9")
		assert.ErrorIs(t, err, ErrInvalidChoice)
	})

	t.Run("second slot not proposed", func(t *testing.T) {
		store := new(mockStore)
		svc, _ := newTestService(store)
		store.On("GetProposedSlot", ctx, "s-1").Return(openSlot(), nil)

		_, err := svc.Validate(ctx, "s-1", models.SecondSlot, "t-9")
		assert.ErrorIs(t, err, ErrInvalidChoice)
	})

	t.Run("already validated", func(t *testing.T) {
		store := new(mockStore)
		svc, _ := newTestService(store)
		slot := openSlot()
		c := models.FirstSlot
		slot.ValidatedSlot = &c
		store.On("GetProposedSlot", ctx, "s-1").Return(slot, nil)

		_, err := svc.Validate(ctx, "s-1", models.FirstSlot, "t-9")
		assert.ErrorIs(t, err, ErrAlreadyValidated)
	})

	t.Run("expired", func(t *testing.T) {
		store := new(mockStore)
		svc, _ := newTestService(store)
		slot := openSlot()
		slot.ExpiresAt = fixedNow.Add(-time.Minute)
		store.On("GetProposedSlot", ctx, "s-1").Return(slot, nil)

		_, err := svc.Validate(ctx, "s-1", models.FirstSlot, "t-9")
		assert.ErrorIs(t, err, ErrAlreadyExpired)
	})

	t.Run("missing slot", func(t *testing.T) {
		store := new(mockStore)
		svc, _ := newTestService(store)
		store.On("GetProposedSlot", ctx, "s-1").Return(nil, models.ErrNotFound)

		_, err := svc.Validate(ctx, "s-1", models.FirstSlot, "t-9")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("booking no longer awaiting", func(t *testing.T) {
		store := new(mockStore)
		svc, _ := newTestService(store)
		store.On("GetProposedSlot", ctx, "s-1").Return(openSlot(), nil)
		store.On("GetBooking", ctx, "b-1").Return(&models.Booking{ID: "b-1", Status: models.StatusCancelled}, nil)

		_, err := svc.Validate(ctx, "s-1", models.FirstSlot, "t-9")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestValidate_LosesRaceToSweep(t *testing.T) {
	store := new(mockStore)
	svc, _ := newTestService(store)
	ctx := context.Background()

	notified := fixedNow
	swept := openSlot()
	swept.AdminNotifiedAt = &notified

	store.On("GetProposedSlot", ctx, "s-1").Return(openSlot(), nil).Once()
	store.On("GetBooking", ctx, "b-1").Return(&models.Booking{ID: "b-1", Status: models.StatusAwaitingSelection}, nil)
	store.On("ValidateProposal", ctx, "s-1", models.FirstSlot, "t-9", fixedNow).Return(false, nil)
	store.On("GetProposedSlot", ctx, "s-1").Return(swept, nil).Once()

	_, err := svc.Validate(ctx, "s-1", models.FirstSlot, "t-9")
	assert.ErrorIs(t, err, ErrAlreadyExpired)
	store.AssertExpectations(t)
}

func TestValidate_StoreError(t *testing.T) {
	store := new(mockStore)
	svc, _ := newTestService(store)
	ctx := context.Background()
	boom := errors.New("disk full")

	store.On("GetProposedSlot", ctx, "s-1").Return(openSlot(), nil)
	store.On("GetBooking", ctx, "b-1").Return(&models.Booking{ID: "b-1", Status: models.StatusAwaitingSelection}, nil)
	store.On("ValidateProposal", ctx, "s-1", models.FirstSlot, "t-9", fixedNow).Return(false, boom)

	_, err := svc.Validate(ctx, "s-1", models.FirstSlot, "t-9")
	assert.ErrorIs(t, err, boom)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("awaiting booking", func(t *testing.T) {
		store := new(mockStore)
		svc, m := newTestService(store)
		store.On("GetBooking", ctx, "b-1").Return(&models.Booking{ID: "b-1", Status: models.StatusAwaitingSelection}, nil)
		store.On("UpdateBookingStatus", ctx, "b-1", models.StatusAwaitingSelection, models.StatusCancelled).Return(true, nil)

		b, err := svc.Cancel(ctx, "b-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, b.Status)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.ProposalsTotal.WithLabelValues("cancelled")))
	})

	t.Run("already cancelled is a no-op", func(t *testing.T) {
		store := new(mockStore)
		svc, _ := newTestService(store)
		store.On("GetBooking", ctx, "b-1").Return(&models.Booking{ID: "b-1", Status: models.StatusCancelled}, nil)

		b, err := svc.Cancel(ctx, "b-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, b.Status)
		store.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("completed booking", func(t *testing.T) {
		store := new(mockStore)
		svc, _ := newTestService(store)
		store.On("GetBooking", ctx, "b-1").Return(&models.Booking{ID: "b-1", Status: models.StatusCompleted}, nil)

		_, err := svc.Cancel(ctx, "b-1")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("concurrent change", func(t *testing.T) {
		store := new(mockStore)
		svc, _ := newTestService(store)
		store.On("GetBooking", ctx, "b-1").Return(&models.Booking{ID: "b-1", Status: models.StatusConfirmed}, nil)
		store.On("UpdateBookingStatus", ctx, "b-1", models.StatusConfirmed, models.StatusCancelled).Return(false, nil)

		_, err := svc.Cancel(ctx, "b-1")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}
