package scheduler

import (
	"context"
	"sync"
	"time"

	"venuebook/internal/sweeper"

	"github.com/rs/zerolog"
)

// Sweep is one unit of scheduled work.
type Sweep interface {
	Run(ctx context.Context) (sweeper.Summary, error)
}

// Config holds configuration for the in-process trigger.
type Config struct {
	// Interval is how often to run a sweep.
	// Default: 15 minutes.
	Interval time.Duration

	// Timeout bounds a single run.
	// Default: 2 minutes.
	Timeout time.Duration
}

// Scheduler runs the sweep on a fixed interval inside the service process.
type Scheduler struct {
	config  Config
	sweep   Sweep
	logger  zerolog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func New(config Config, sweep Sweep, logger *zerolog.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = 15 * time.Minute
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}

	return &Scheduler{
		config: config,
		sweep:  sweep,
		logger: logger.With().Str("component", "scheduler").Logger(),
		stopCh: make(chan struct{}),
	}
}

// Start begins the sweep loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info().Dur("interval", s.config.Interval).Msg("sweep scheduler started")
}

// Stop gracefully stops the loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.logger.Info().Msg("sweep scheduler stopped")
}

// IsRunning returns whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunNow(ctx)
		}
	}
}

// RunNow runs one sweep with the configured timeout. Errors are logged.
func (s *Scheduler) RunNow(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	summary, err := s.sweep.Run(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled sweep failed")
		return
	}
	if summary.Skipped {
		return
	}
	if summary.Notified < summary.Expired {
		s.logger.Warn().
			Int("expired", summary.Expired).
			Int("notified", summary.Notified).
			Msg("some expired proposals were not notified")
	}
}
