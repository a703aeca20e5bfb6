package notify

import (
	"fmt"
	"io"

	"venuebook/internal/config"

	"github.com/rs/zerolog"
)

// New builds the dispatcher selected by cfg.Driver, wrapped with the
// configured rate limit. The returned closer releases driver connections.
func New(cfg config.NotifyConfig, logger *zerolog.Logger) (Dispatcher, io.Closer, error) {
	var (
		d      Dispatcher
		closer io.Closer = nopCloser{}
	)

	switch cfg.Driver {
	case "webhook":
		if cfg.Webhook.URL == "" {
			return nil, nil, fmt.Errorf("webhook: url is required")
		}
		d = NewWebhook(cfg.Webhook.URL, cfg.Webhook.ServiceKey, cfg.WebhookTimeout())
	case "telegram":
		tg, err := NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs)
		if err != nil {
			return nil, nil, err
		}
		d = tg
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
			return nil, nil, fmt.Errorf("kafka: brokers and topic are required")
		}
		k := NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		d, closer = k, k
	case "amqp":
		a, err := NewAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
		if err != nil {
			return nil, nil, err
		}
		d, closer = a, a
	case "log", "":
		d = NewLog(logger)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	return NewLimited(d, cfg.RatePerSecond, cfg.Burst), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
