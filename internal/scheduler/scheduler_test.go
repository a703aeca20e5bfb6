package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"venuebook/internal/sweeper"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type countingSweep struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweep) Run(ctx context.Context) (sweeper.Summary, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return sweeper.Summary{}, errors.New("expected a deadline")
	}
	return sweeper.Summary{Expired: 1, Notified: 1}, c.err
}

func TestScheduler_RunsOnStartAndTick(t *testing.T) {
	logger := zerolog.New(io.Discard)
	sweep := &countingSweep{}
	s := New(Config{Interval: 10 * time.Millisecond, Timeout: time.Second}, sweep, &logger)

	s.Start(context.Background())
	s.Start(context.Background()) // second start is a no-op
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return sweep.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	after := sweep.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, sweep.calls.Load())
}

func TestScheduler_StopsWithContext(t *testing.T) {
	logger := zerolog.New(io.Discard)
	sweep := &countingSweep{err: errors.New("db down")}
	s := New(Config{Interval: time.Hour}, sweep, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return sweep.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestNew_Defaults(t *testing.T) {
	logger := zerolog.New(io.Discard)
	s := New(Config{}, &countingSweep{}, &logger)
	assert.Equal(t, 15*time.Minute, s.config.Interval)
	assert.Equal(t, 2*time.Minute, s.config.Timeout)
}
