package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get existing key", func(mt *mtest.T) {
		repo := NewMongoStore(mt.Coll, nil)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "queue"},
			{Key: "value", Value: `[{"id":"1"}]`},
		}))

		value, found, err := repo.Get(context.Background(), "queue")
		assert.NoError(mt, err)
		assert.True(mt, found)
		assert.Equal(mt, `[{"id":"1"}]`, value)
	})

	mt.Run("get missing key", func(mt *mtest.T) {
		repo := NewMongoStore(mt.Coll, nil)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		value, found, err := repo.Get(context.Background(), "queue")
		assert.NoError(mt, err)
		assert.False(mt, found)
		assert.Empty(mt, value)
	})

	mt.Run("set upserts", func(mt *mtest.T) {
		repo := NewMongoStore(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		assert.NoError(mt, repo.Set(context.Background(), "queue", "[]"))
	})

	mt.Run("set write error", func(mt *mtest.T) {
		repo := NewMongoStore(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		assert.Error(mt, repo.Set(context.Background(), "queue", "[]"))
	})

	mt.Run("remove", func(mt *mtest.T) {
		repo := NewMongoStore(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(mt, repo.Remove(context.Background(), "queue"))
	})

	mt.Run("close without owned client", func(mt *mtest.T) {
		repo := NewMongoStore(mt.Coll, nil)
		assert.NoError(mt, repo.Close())
	})
}
