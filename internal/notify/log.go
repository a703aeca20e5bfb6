package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Log writes notifications to the logger. Meant for local development.
type Log struct {
	logger zerolog.Logger
}

func NewLog(logger *zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "notify").Logger()}
}

func (l *Log) Dispatch(_ context.Context, n AdminNotification) error {
	l.logger.Info().
		Str("type", n.Type).
		Str("booking_id", n.BookingID).
		Int64("booking_number", n.BookingNumber).
		Str("venue", n.VenueName).
		Str("date", n.BookingDate).
		Str("time", n.BookingTime).
		Msg("admin notification")
	return nil
}
