package notify

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limited throttles outbound calls of the wrapped dispatcher.
type Limited struct {
	next    Dispatcher
	limiter *rate.Limiter
}

// NewLimited wraps next with a token bucket. A non-positive rate returns next unchanged.
func NewLimited(next Dispatcher, perSecond float64, burst int) Dispatcher {
	if perSecond <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *Limited) Dispatch(ctx context.Context, n AdminNotification) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return l.next.Dispatch(ctx, n)
}
