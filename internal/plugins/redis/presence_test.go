package redis

import (
	"context"
	"linkup/internal/config"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Runs against a real server when REDIS_TEST_URL is set, e.g. redis://localhost:6379/15.
func newTestStore(t *testing.T) *RedisPresenceStore {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	rdb, err := NewRedisClient(context.Background(), &config.RedisConfig{
		URL:         url,
		DialTimeout: time.Second,
		ReadTimeout: time.Second,
		PoolSize:    2,
		PingTimeout: time.Second,
	})
	require.NoError(t, err)
	store := NewRedisPresenceStore(rdb)
	store.key = "test:" + lastSeenKey + ":" + uuid.NewString()
	t.Cleanup(func() {
		_ = rdb.Del(context.Background(), store.key).Err()
		_ = rdb.Close()
	})
	return store
}

func TestRedisPresenceStore_Touch_And_LastSeen(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()
	first := time.UnixMilli(1_700_000_000_000).UTC()
	later := first.Add(time.Minute)

	req.NoError(store.Touch(ctx, []string{"A", "B"}, first))
	req.NoError(store.Touch(ctx, []string{"A"}, later))
	// An older write never moves a user back in time
	req.NoError(store.Touch(ctx, []string{"A"}, first))

	seen, err := store.LastSeen(ctx, []string{"A", "B", "C"})
	req.NoError(err)
	req.Equal(map[string]time.Time{"A": later, "B": first}, seen)
}

func TestRedisPresenceStore_Empty_Input(t *testing.T) {
	req := require.New(t)
	store := NewRedisPresenceStore(nil)

	req.NoError(store.Touch(context.Background(), nil, time.Now()))
	seen, err := store.LastSeen(context.Background(), nil)
	req.NoError(err)
	req.Empty(seen)
}
