package broker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zoff-tech/event-outbox/pkg/config"
)

var ErrUnsupportedBroker = errors.New("unsupported broker type")

// NewBroker connects to the broker named by transport.
func NewBroker(ctx context.Context, transport string, cfg *config.BrokerSettings, logger *zap.Logger) (MessageBroker, error) {
	switch transport {
	case config.TransportRabbitMQ:
		return NewRabbitMqBroker(ctx, cfg, logger)
	case config.TransportPubSub:
		return NewPubSubClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBroker, transport)
	}
}
