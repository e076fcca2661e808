// Package ingest delivers batches of events to the remote ingestion endpoint.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/zoff-tech/event-outbox/pkg/broker"
	"github.com/zoff-tech/event-outbox/pkg/config"
	"github.com/zoff-tech/event-outbox/schema"
)

const (
	tracerName      = "event-outbox"
	contentTypeJSON = "application/json"
)

var ErrUnsupportedTransport = errors.New("unsupported ingest transport")

// Target is where a batch goes and the bearer credential that goes with it.
type Target struct {
	Endpoint string
	Token    string
}

// Merge returns t with every non-empty field of override applied on top.
func (t Target) Merge(override Target) Target {
	if override.Endpoint != "" {
		t.Endpoint = override.Endpoint
	}
	if override.Token != "" {
		t.Token = override.Token
	}
	return t
}

// Complete reports whether both endpoint and token are set.
func (t Target) Complete() bool {
	return t.Endpoint != "" && t.Token != ""
}

// Sender delivers one batch. A nil error means the endpoint accepted the
// whole batch.
type Sender interface {
	Send(ctx context.Context, target Target, events []schema.Event) error
}

// SendCloser is a Sender owning a connection that must be released.
type SendCloser interface {
	Sender
	Close() error
}

type batch struct {
	Events []schema.Event `json:"events"`
}

// EncodeBatch renders the wire body {"events":[...]}.
func EncodeBatch(events []schema.Event) ([]byte, error) {
	if events == nil {
		events = []schema.Event{}
	}
	body, err := json.Marshal(batch{Events: events})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}
	return body, nil
}

// DecodeBatch is the inverse of EncodeBatch.
func DecodeBatch(body []byte) ([]schema.Event, error) {
	var b batch
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	return b.Events, nil
}

func requestHeaders(target Target) map[string]string {
	return map[string]string{
		"Content-Type":  contentTypeJSON,
		"Authorization": "Bearer " + target.Token,
	}
}

// NewSender builds the sender for the configured transport.
func NewSender(ctx context.Context, cfg config.IngestSettings, logger *zap.Logger) (SendCloser, error) {
	switch cfg.Transport {
	case config.TransportHTTP, "":
		return NewHTTPSender(nil, logger), nil
	case config.TransportRabbitMQ, config.TransportPubSub:
		b, err := broker.NewBroker(ctx, cfg.Transport, &cfg.Broker, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s sender: %w", cfg.Transport, err)
		}
		return NewBrokerSender(b), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTransport, cfg.Transport)
	}
}
