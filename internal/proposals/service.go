package proposals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"venuebook/internal/metrics"
	"venuebook/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound          = models.ErrNotFound
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidChoice     = errors.New("invalid slot choice")
	ErrAlreadyValidated  = errors.New("proposal already validated")
	ErrAlreadyExpired    = errors.New("proposal expired")
	ErrInvalidTransition = errors.New("invalid booking status transition")
)

// Store is the persistence proposals need.
type Store interface {
	GetVenue(ctx context.Context, id string) (*models.Venue, error)
	CreateProposal(ctx context.Context, b *models.Booking, p *models.ProposedSlot) error
	GetProposedSlot(ctx context.Context, id string) (*models.ProposedSlot, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ValidateProposal(ctx context.Context, slotID string, choice models.SlotChoice, therapistID string, now time.Time) (bool, error)
	UpdateBookingStatus(ctx context.Context, id string, from, to models.BookingStatus) (bool, error)
}

type Config struct {
	// Expiry is how long a proposal stays open. Default: 2 hours.
	Expiry          time.Duration
	DefaultCurrency string
}

// ProposeInput is a client or staff request for a booking with candidate slots.
type ProposeInput struct {
	ClientName  string  `json:"client_name" binding:"required"`
	ClientEmail string  `json:"client_email" binding:"omitempty,email"`
	ClientPhone string  `json:"client_phone"`
	VenueID     string  `json:"venue_id" binding:"required"`
	Date1       string  `json:"date_1" binding:"required"`
	Time1       string  `json:"time_1" binding:"required"`
	Date2       string  `json:"date_2"`
	Time2       string  `json:"time_2"`
	TotalPrice  float64 `json:"total_price" binding:"gte=0"`
	Currency    string  `json:"currency"`
}

type Service struct {
	config  Config
	store   Store
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(config Config, store Store, m *metrics.Metrics, logger *zerolog.Logger) *Service {
	if config.Expiry <= 0 {
		config.Expiry = 2 * time.Hour
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "EUR"
	}
	return &Service{
		config:  config,
		store:   store,
		metrics: m,
		logger:  logger.With().Str("component", "proposals").Logger(),
		now:     time.Now,
	}
}

// Propose creates a booking awaiting provider selection with one or two candidate slots.
func (s *Service) Propose(ctx context.Context, in ProposeInput) (*models.Booking, *models.ProposedSlot, error) {
	if err := validateInput(&in); err != nil {
		return nil, nil, err
	}

	venue, err := s.store.GetVenue(ctx, in.VenueID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: unknown venue %q", ErrInvalidInput, in.VenueID)
		}
		return nil, nil, err
	}

	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = venue.Currency
	}
	if currency == "" {
		currency = s.config.DefaultCurrency
	}

	booking := &models.Booking{
		ClientName:  strings.TrimSpace(in.ClientName),
		ClientEmail: in.ClientEmail,
		ClientPhone: in.ClientPhone,
		VenueID:     venue.ID,
		VenueName:   venue.Name,
		Date:        in.Date1,
		Time:        in.Time1,
		TotalPrice:  in.TotalPrice,
		Currency:    currency,
		Status:      models.StatusAwaitingSelection,
	}
	slot := &models.ProposedSlot{
		Date1:     in.Date1,
		Time1:     in.Time1,
		Date2:     in.Date2,
		Time2:     in.Time2,
		ExpiresAt: s.now().Add(s.config.Expiry),
	}

	if err := s.store.CreateProposal(ctx, booking, slot); err != nil {
		return nil, nil, fmt.Errorf("create proposal: %w", err)
	}

	s.metrics.IncProposal("created")
	s.logger.Info().
		Str("booking_id", booking.ID).
		Int64("booking_number", booking.BookingNumber).
		Str("venue_id", booking.VenueID).
		Time("expires_at", slot.ExpiresAt).
		Msg("proposal created")

	return booking, slot, nil
}

// Validate accepts one of the proposed candidates for a provider and confirms the booking.
func (s *Service) Validate(ctx context.Context, slotID string, choice models.SlotChoice, therapistID string) (*models.Booking, error) {
	if !choice.Valid() {
		return nil, ErrInvalidChoice
	}
	if strings.TrimSpace(therapistID) == "" {
		return nil, fmt.Errorf("%w: therapist_id is required", ErrInvalidInput)
	}

	slot, err := s.store.GetProposedSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if _, _, ok := slot.Candidate(choice); !ok {
		return nil, ErrInvalidChoice
	}

	now := s.now()
	if err := phaseError(slot.Phase(now)); err != nil {
		return nil, err
	}

	booking, err := s.store.GetBooking(ctx, slot.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusAwaitingSelection {
		return nil, fmt.Errorf("%w: booking is %s", ErrInvalidTransition, booking.Status)
	}

	ok, err := s.store.ValidateProposal(ctx, slotID, choice, therapistID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost a race with a sweep or another validation
		current, err := s.store.GetProposedSlot(ctx, slotID)
		if err != nil {
			return nil, err
		}
		if err := phaseError(current.Phase(s.now())); err != nil {
			return nil, err
		}
		return nil, ErrInvalidTransition
	}

	s.metrics.IncProposal("validated")
	s.logger.Info().
		Str("slot_id", slotID).
		Str("booking_id", slot.BookingID).
		Int("slot", int(choice)).
		Str("therapist_id", therapistID).
		Msg("proposal validated")

	return s.store.GetBooking(ctx, slot.BookingID)
}

// Cancel moves a non-terminal booking to cancelled.
func (s *Service) Cancel(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.StatusCancelled {
		return booking, nil
	}
	if !booking.CanTransition(models.StatusCancelled) {
		return nil, fmt.Errorf("%w: booking is %s", ErrInvalidTransition, booking.Status)
	}

	ok, err := s.store.UpdateBookingStatus(ctx, bookingID, booking.Status, models.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking changed concurrently", ErrInvalidTransition)
	}

	s.metrics.IncProposal("cancelled")
	s.logger.Info().Str("booking_id", bookingID).Str("from", string(booking.Status)).Msg("booking cancelled")

	booking.Status = models.StatusCancelled
	return booking, nil
}

func phaseError(p models.Phase) error {
	switch p {
	case models.PhaseValidated:
		return ErrAlreadyValidated
	case models.PhaseNotified, models.PhaseOverdue:
		return ErrAlreadyExpired
	}
	return nil
}

func validateInput(in *ProposeInput) error {
	if strings.TrimSpace(in.ClientName) == "" {
		return fmt.Errorf("%w: client_name is required", ErrInvalidInput)
	}
	if in.VenueID == "" {
		return fmt.Errorf("%w: venue_id is required", ErrInvalidInput)
	}
	if err := checkDateTime(in.Date1, in.Time1); err != nil {
		return fmt.Errorf("%w: slot 1: %v", ErrInvalidInput, err)
	}
	if in.Date2 != "" || in.Time2 != "" {
		if err := checkDateTime(in.Date2, in.Time2); err != nil {
			return fmt.Errorf("%w: slot 2: %v", ErrInvalidInput, err)
		}
	}
	if in.TotalPrice < 0 {
		return fmt.Errorf("%w: total_price must not be negative", ErrInvalidInput)
	}
	if in.Currency != "" && len(in.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidInput)
	}
	return nil
}

func checkDateTime(date, clock string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("date %q is not YYYY-MM-DD", date)
	}
	if _, err := time.Parse("15:04", clock); err != nil {
		return fmt.Errorf("time %q is not HH:MM", clock)
	}
	return nil
}
