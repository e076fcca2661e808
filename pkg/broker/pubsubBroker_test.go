package broker

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/zoff-tech/event-outbox/pkg/config"
)

func newFakePubSub(t *testing.T) (*pstest.Server, *pubsub.Client) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	return srv, client
}

func TestPubSubPublish(t *testing.T) {
	ctx := context.Background()
	srv, client := newFakePubSub(t)
	_, err := client.CreateTopic(ctx, "ingest")
	require.NoError(t, err)

	b := newPubSubBroker(client)
	defer b.Close()

	err = b.Publish(ctx, "ingest", []byte(`{"events":[]}`), map[string]string{
		"Authorization": "Bearer tok",
	})
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, `{"events":[]}`, string(msgs[0].Data))
	assert.Equal(t, "Bearer tok", msgs[0].Attributes["Authorization"])
}

func TestPubSubPublish_MissingTopic(t *testing.T) {
	_, client := newFakePubSub(t)
	b := newPubSubBroker(client)
	defer b.Close()

	err := b.Publish(context.Background(), "nope", []byte("x"), nil)
	assert.Error(t, err)
}

func TestPubSubPublish_ReusesTopicHandle(t *testing.T) {
	ctx := context.Background()
	_, client := newFakePubSub(t)
	_, err := client.CreateTopic(ctx, "ingest")
	require.NoError(t, err)

	b := newPubSubBroker(client)
	defer b.Close()

	require.NoError(t, b.Publish(ctx, "ingest", []byte("a"), nil))
	require.NoError(t, b.Publish(ctx, "ingest", []byte("b"), nil))
	assert.Len(t, b.topics, 1)
}

func TestNewPubSubClient_RequiresProject(t *testing.T) {
	b, err := NewPubSubClient(context.Background(), &config.BrokerSettings{})
	assert.Nil(t, b)
	assert.EqualError(t, err, "pubsub project id is required")
}
