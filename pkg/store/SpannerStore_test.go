package store

import (
	"context"
	"testing"

	"cloud.google.com/go/spanner"
	"cloud.google.com/go/spanner/spannertest"
	"cloud.google.com/go/spanner/spansql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDatabase = "projects/test-project/instances/test-instance/databases/test-database"

func setupSpannerTestServer(t *testing.T) *spanner.Client {
	t.Helper()

	server, err := spannertest.NewServer("localhost:0")
	require.NoError(t, err)
	t.Cleanup(server.Close)

	ddl, err := spansql.ParseDDL("schema", SpannerSchema)
	require.NoError(t, err)
	require.NoError(t, server.UpdateDDL(ddl))

	t.Setenv("SPANNER_EMULATOR_HOST", server.Addr)
	t.Setenv("GOOGLE_CLOUD_SPANNER_MULTIPLEXED_SESSIONS", "false")

	client, err := spanner.NewClient(context.Background(), testDatabase)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func TestSpannerStore_RoundTrip(t *testing.T) {
	client := setupSpannerTestServer(t)
	repo := NewSpannerStoreFactory(client)
	ctx := context.Background()

	_, found, err := repo.Get(ctx, "queue")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set(ctx, "queue", `[{"id":"1"}]`))
	require.NoError(t, repo.Set(ctx, "queue", `[{"id":"2"}]`))

	value, found, err := repo.Get(ctx, "queue")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":"2"}]`, value)

	require.NoError(t, repo.Remove(ctx, "queue"))

	_, found, err = repo.Get(ctx, "queue")
	require.NoError(t, err)
	assert.False(t, found)
}
