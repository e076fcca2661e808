package ingest

import (
	"context"
	"fmt"

	"github.com/zoff-tech/event-outbox/pkg/broker"
	"github.com/zoff-tech/event-outbox/schema"
)

// BrokerSender publishes each batch as a single message. The target endpoint
// names the exchange or topic and the HTTP headers travel as message headers.
type BrokerSender struct {
	broker broker.MessageBroker
}

func NewBrokerSender(b broker.MessageBroker) *BrokerSender {
	return &BrokerSender{broker: b}
}

func (s *BrokerSender) Send(ctx context.Context, target Target, events []schema.Event) error {
	body, err := EncodeBatch(events)
	if err != nil {
		return err
	}
	if err := s.broker.Publish(ctx, target.Endpoint, body, requestHeaders(target)); err != nil {
		return fmt.Errorf("failed to publish batch to %s: %w", target.Endpoint, err)
	}
	return nil
}

func (s *BrokerSender) Close() error {
	return s.broker.Close()
}
