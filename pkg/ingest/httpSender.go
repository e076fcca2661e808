package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zoff-tech/event-outbox/pkg/logging"
	"github.com/zoff-tech/event-outbox/schema"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ingest endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("ingest endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// HTTPSender posts each batch as one JSON request with bearer authorization.
type HTTPSender struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPSender uses http.DefaultClient when client is nil. Deadlines come
// from the caller's context.
func NewHTTPSender(client *http.Client, logger *zap.Logger) *HTTPSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSender{client: client, logger: logging.OrNop(logger).With(zap.String("transport", "http"))}
}

func (s *HTTPSender) Send(ctx context.Context, target Target, events []schema.Event) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ingest.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(http.MethodPost),
			semconv.HTTPURLKey.String(target.Endpoint),
			attribute.Int("outbox.batch.size", len(events)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := EncodeBatch(events)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build ingest request: %w", err)
	}
	for k, v := range requestHeaders(target) {
		req.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ingest request failed: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(resp.StatusCode))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		logging.WithTrace(ctx, s.logger).Debug("batch accepted",
			zap.Int("status", resp.StatusCode), zap.Int("events", len(events)))
		return nil
	}

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(text)}
}

// Close releases idle connections.
func (s *HTTPSender) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
