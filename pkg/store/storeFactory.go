package store

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/spanner"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zoff-tech/event-outbox/pkg/config"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const defaultCollection = "outbox_kv"

var sqlOpen = sql.Open

var NewSpannerStoreFactory = func(client *spanner.Client) KeyValueStore {
	return &SpannerStore{client: client}
}

// NewStore builds the backend selected by cfg.Type.
func NewStore(ctx context.Context, cfg config.StoreSettings) (KeyValueStore, error) {
	switch cfg.Type {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreFile:
		fs, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.StorePostgres:
		db, err := sqlOpen("postgres", cfg.DSN)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure postgres schema: %w", err)
		}
		return s, nil
	case config.StoreMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			return nil, err
		}
		collection := cfg.Collection
		if collection == "" {
			collection = defaultCollection
		}
		return NewMongoStore(client.Database(cfg.Database).Collection(collection), client), nil
	case config.StoreSpanner:
		client, err := spanner.NewClient(ctx, cfg.URI)
		if err != nil {
			return nil, err
		}
		return NewSpannerStoreFactory(client), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStore, cfg.Type)
	}
}
