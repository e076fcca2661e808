package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zoff-tech/event-outbox/pkg/config"
)

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Publish(ctx context.Context, destination string, data []byte, headers map[string]string) error {
	return m.Called(ctx, destination, data, headers).Error(0)
}

func (m *mockBroker) Close() error {
	return m.Called().Error(0)
}

func TestBrokerSender_Send(t *testing.T) {
	b := new(mockBroker)
	want, err := EncodeBatch(sampleEvents())
	require.NoError(t, err)

	b.On("Publish", mock.Anything, "ingest-topic", want, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer tok",
	}).Return(nil)

	s := NewBrokerSender(b)
	require.NoError(t, s.Send(context.Background(), Target{Endpoint: "ingest-topic", Token: "tok"}, sampleEvents()))
	b.AssertExpectations(t)
}

func TestBrokerSender_PublishError(t *testing.T) {
	b := new(mockBroker)
	b.On("Publish", mock.Anything, "ingest-topic", mock.Anything, mock.Anything).Return(errors.New("nack"))

	s := NewBrokerSender(b)
	err := s.Send(context.Background(), Target{Endpoint: "ingest-topic", Token: "tok"}, sampleEvents())
	assert.EqualError(t, err, "failed to publish batch to ingest-topic: nack")
}

func TestBrokerSender_Close(t *testing.T) {
	b := new(mockBroker)
	b.On("Close").Return(nil)
	assert.NoError(t, NewBrokerSender(b).Close())
	b.AssertExpectations(t)
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(context.Background(), config.IngestSettings{Transport: config.TransportHTTP}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &HTTPSender{}, s)

	s, err = NewSender(context.Background(), config.IngestSettings{Transport: "smtp"}, nil)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrUnsupportedTransport)

	// broker transports fail fast on incomplete settings
	s, err = NewSender(context.Background(), config.IngestSettings{Transport: config.TransportPubSub}, nil)
	assert.Nil(t, s)
	assert.ErrorContains(t, err, "pubsub project id is required")
}
