package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore wraps an existing collection. The client is disconnected by
// Close when it was supplied.
func NewMongoStore(collection *mongo.Collection, client *mongo.Client) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: collection,
	}
}

func (m *MongoStore) Get(ctx context.Context, key string) (value string, found bool, err error) {
	ctx, span := startSpan(ctx, "mongodb", "get", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	var doc kvDocument
	err = m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return doc.Value, true, nil
}

func (m *MongoStore) Set(ctx context.Context, key, value string) (err error) {
	ctx, span := startSpan(ctx, "mongodb", "set", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	update := bson.M{
		"$set": bson.M{
			"value":      value,
			"updated_at": time.Now().UTC(),
		},
	}
	_, err = m.collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoStore) Remove(ctx context.Context, key string) (err error) {
	ctx, span := startSpan(ctx, "mongodb", "remove", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	_, err = m.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (m *MongoStore) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
