// Package sweeper finds booking proposals that expired without a provider,
// flags them and notifies the admins.
//
// The flag is written before the notification is sent. A crash between the
// two loses that notification instead of sending it twice.
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"venuebook/internal/lock"
	"venuebook/internal/metrics"
	"venuebook/internal/models"
	"venuebook/internal/notify"

	"github.com/rs/zerolog"
)

const DefaultLockKey = "sweep:expired-slots"

// Store is the persistence the sweep needs.
type Store interface {
	// FindExpiredSlots returns unvalidated, unnotified proposals with
	// expires_at before now whose booking awaits provider selection.
	// An empty venueIDs means every venue.
	FindExpiredSlots(ctx context.Context, now time.Time, venueIDs []string) ([]models.ExpiredSlot, error)

	// MarkAdminNotified sets admin_notified_at only if it is still NULL.
	// It reports false when another run got there first.
	MarkAdminNotified(ctx context.Context, slotID string, at time.Time) (bool, error)
}

type Config struct {
	LockKey  string
	LockTTL  time.Duration
	Currency string
	VenueIDs []string
}

// Summary is the outcome of one run.
type Summary struct {
	Expired  int           `json:"expired"`
	Notified int           `json:"notified"`
	Claimed  int           `json:"claimed"`
	Failed   int           `json:"failed"`
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"-"`
}

type Sweeper struct {
	cfg        Config
	store      Store
	dispatcher notify.Dispatcher
	locker     lock.Locker
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	venueIDs []string
}

func New(
	cfg Config,
	store Store,
	dispatcher notify.Dispatcher,
	locker lock.Locker,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) *Sweeper {
	if cfg.LockKey == "" {
		cfg.LockKey = DefaultLockKey
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	if locker == nil {
		locker = lock.Noop{}
	}

	return &Sweeper{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		locker:     locker,
		metrics:    m,
		logger:     logger.With().Str("component", "sweeper").Logger(),
		now:        time.Now,
		venueIDs:   append([]string(nil), cfg.VenueIDs...),
	}
}

// SetVenueScope replaces the venues the sweep is limited to.
func (s *Sweeper) SetVenueScope(ids []string) {
	s.mu.Lock()
	s.venueIDs = append([]string(nil), ids...)
	s.mu.Unlock()
	s.logger.Info().Strs("venue_ids", ids).Msg("sweep venue scope updated")
}

func (s *Sweeper) scope() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.venueIDs...)
}

// Run performs one sweep. A store read failure aborts the run; per-record
// failures are logged and counted.
func (s *Sweeper) Run(ctx context.Context) (Summary, error) {
	start := time.Now()

	release, acquired, err := s.locker.Acquire(ctx, s.cfg.LockKey, s.cfg.LockTTL)
	if err != nil {
		s.metrics.ObserveSweep("error", time.Since(start))
		return Summary{}, fmt.Errorf("sweep lock: %w", err)
	}
	if !acquired {
		s.logger.Info().Msg("another sweep is running, skipping")
		s.metrics.ObserveSweep("skipped", time.Since(start))
		return Summary{Skipped: true}, nil
	}
	defer release()

	venues := s.scope()
	slots, err := s.store.FindExpiredSlots(ctx, s.now(), venues)
	if err != nil {
		s.metrics.ObserveSweep("error", time.Since(start))
		return Summary{}, fmt.Errorf("find expired slots: %w", err)
	}

	summary := Summary{Expired: len(slots)}
	s.metrics.AddExpired(len(slots))
	if len(slots) > 0 {
		s.logger.Info().Int("count", len(slots)).Strs("venue_ids", venues).Msg("found expired proposals")
	}

	for i := range slots {
		if err := ctx.Err(); err != nil {
			s.logger.Warn().
				Int("processed", i).
				Int("remaining", len(slots)-i).
				Msg("sweep interrupted")
			summary.Duration = time.Since(start)
			s.metrics.ObserveSweep("error", summary.Duration)
			return summary, err
		}
		s.process(ctx, &slots[i], &summary)
	}

	summary.Duration = time.Since(start)
	s.metrics.ObserveSweep("ok", summary.Duration)
	s.logger.Info().
		Int("expired", summary.Expired).
		Int("claimed", summary.Claimed).
		Int("notified", summary.Notified).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("sweep finished")

	return summary, nil
}

func (s *Sweeper) process(ctx context.Context, slot *models.ExpiredSlot, summary *Summary) {
	log := s.logger.With().
		Str("slot_id", slot.ID).
		Str("booking_id", slot.BookingID).
		Int64("booking_number", slot.BookingNumber).
		Logger()

	claimed, err := s.store.MarkAdminNotified(ctx, slot.ID, s.now())
	if err != nil {
		// left unflagged so the next sweep picks it up again
		log.Error().Err(err).Msg("failed to flag expired proposal")
		summary.Failed++
		return
	}
	if !claimed {
		log.Debug().Msg("expired proposal already claimed")
		s.metrics.IncClaimLost()
		return
	}
	summary.Claimed++

	if err := s.dispatcher.Dispatch(ctx, s.notification(slot)); err != nil {
		log.Error().Err(err).Msg("failed to send admin notification")
		s.metrics.IncNotification("failed")
		summary.Failed++
		return
	}

	s.metrics.IncNotification("sent")
	summary.Notified++
	log.Info().Msg("admin notified about expired proposal")
}

func (s *Sweeper) notification(slot *models.ExpiredSlot) notify.AdminNotification {
	currency := slot.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	return notify.AdminNotification{
		Type:          notify.TypeSlotsExpired,
		BookingID:     slot.BookingID,
		BookingNumber: slot.BookingNumber,
		ClientName:    slot.ClientName,
		VenueName:     slot.VenueName,
		BookingDate:   slot.Date1,
		BookingTime:   slot.Time1,
		TherapistName: notify.NoTherapistSelected,
		TotalPrice:    0,
		Currency:      currency,
	}
}
