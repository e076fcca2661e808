package store

import (
	"context"
	"time"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"
)

const (
	spannerTable = "OutboxKV"
	// SpannerSchema is the DDL the store expects.
	SpannerSchema = `CREATE TABLE OutboxKV (
	EntryKey STRING(MAX) NOT NULL,
	EntryValue STRING(MAX),
	UpdatedAt TIMESTAMP
) PRIMARY KEY (EntryKey)`
)

type SpannerStore struct {
	client *spanner.Client
}

func (s *SpannerStore) Get(ctx context.Context, key string) (value string, found bool, err error) {
	ctx, span := startSpan(ctx, "spanner", "get", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	row, err := s.client.Single().ReadRow(ctx, spannerTable, spanner.Key{key}, []string{"EntryValue"})
	if spanner.ErrCode(err) == codes.NotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var col spanner.NullString
	if err = row.Columns(&col); err != nil {
		return "", false, err
	}
	return col.StringVal, true, nil
}

func (s *SpannerStore) Set(ctx context.Context, key, value string) (err error) {
	ctx, span := startSpan(ctx, "spanner", "set", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	_, err = s.client.Apply(ctx, []*spanner.Mutation{
		spanner.InsertOrUpdate(spannerTable,
			[]string{"EntryKey", "EntryValue", "UpdatedAt"},
			[]interface{}{key, value, time.Now().UTC()}),
	})
	return err
}

func (s *SpannerStore) Remove(ctx context.Context, key string) (err error) {
	ctx, span := startSpan(ctx, "spanner", "remove", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	_, err = s.client.Apply(ctx, []*spanner.Mutation{
		spanner.Delete(spannerTable, spanner.Key{key}),
	})
	return err
}

func (s *SpannerStore) Close() error {
	s.client.Close()
	return nil
}
