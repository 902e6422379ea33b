package redis

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	testRedisURL string
	redContainer testcontainers.Container
)

func TestMain(m *testing.M) {
	// Parse flags to check for -short
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	redContainer, err = tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := redContainer.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = "redis://" + endpoint

	defer func() {
		if err := redContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
		}
	}()
	os.Exit(m.Run())
}

func setupTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, testRedisURL)
	require.NoError(t, err)

	// Flush all keys before each test
	require.NoError(t, client.FlushAll(ctx).Err())

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestSessionStore_PutGetDelete(t *testing.T) {
	client := setupTestClient(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tok-1", "user-1"))

	userID, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	// The value key carries the configured TTL.
	ttl, err := client.TTL(ctx, sessionKeyPrefix+"tok-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, "tok-1"))
	userID, err = store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Empty(t, userID)

	members, err := client.SMembers(ctx, sessionIndexKey).Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestSessionStore_GetUnknownToken(t *testing.T) {
	client := setupTestClient(t)
	store := NewSessionStore(client, time.Hour)

	userID, err := store.Get(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.Empty(t, userID)
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	client := setupTestClient(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tok-live", "user-1"))
	require.NoError(t, store.Put(ctx, "tok-dead", "user-2"))

	// Simulate Redis expiring a value key while its index entry remains.
	require.NoError(t, client.Del(ctx, sessionKeyPrefix+"tok-dead").Err())

	pruned, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	members, err := client.SMembers(ctx, sessionIndexKey).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-live"}, members)

	// A second sweep finds nothing left to prune.
	pruned, err = store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, pruned)
}
