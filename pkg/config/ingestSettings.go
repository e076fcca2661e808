package config

import "time"

const (
	TransportHTTP     = "http"
	TransportRabbitMQ = "rabbitmq"
	TransportPubSub   = "gcp-pubsub"
)

// IngestSettings describes where flushed batches go. Endpoint and Token may be
// empty; the outbox then reports missing-config instead of attempting delivery.
type IngestSettings struct {
	Transport string         `mapstructure:"transport" validate:"required,oneof=http rabbitmq gcp-pubsub"`
	Endpoint  string         `mapstructure:"endpoint"`
	Token     string         `mapstructure:"token"`
	Timeout   time.Duration  `mapstructure:"timeout" validate:"gte=0"`
	Broker    BrokerSettings `mapstructure:"broker"`
}

// BrokerSettings holds configuration for connecting to a message broker.
type BrokerSettings struct {
	URL       string `mapstructure:"url"`
	ProjectID string `mapstructure:"project_id"` // GCP Pub/Sub only
	PoolSize  int    `mapstructure:"pool_size" validate:"gte=0"`
}
