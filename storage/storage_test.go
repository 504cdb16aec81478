package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/zenty/portal/storage"
)

// exerciseStore runs the behaviour every Store implementation must share.
func exerciseStore(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()
	ns := uuid.NewString()
	other := uuid.NewString()

	_, ok, err := s.Get(ctx, ns, storage.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, ns, storage.KeyToken, "T"))
	require.NoError(t, s.Set(ctx, ns, storage.KeyRole, "customer"))
	require.NoError(t, s.Set(ctx, other, storage.KeyToken, "OTHER"))

	v, ok, err := s.Get(ctx, ns, storage.KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "T", v)

	require.NoError(t, s.Delete(ctx, ns, storage.SessionKeys...))
	for _, k := range storage.SessionKeys {
		_, ok, err := s.Get(ctx, ns, k)
		require.NoError(t, err)
		require.False(t, ok, k)
	}

	// Other namespaces are untouched
	v, ok, err = s.Get(ctx, other, storage.KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "OTHER", v)

	// Deleting twice is fine
	require.NoError(t, s.Delete(ctx, ns, storage.SessionKeys...))
	require.NoError(t, s.Delete(ctx, other, storage.KeyToken))
}

func TestInMemoryStore(t *testing.T) {
	s := storage.NewInMemoryStore()
	exerciseStore(t, s)

	require.Error(t, s.Set(context.Background(), "", storage.KeyToken, "x"))
	require.Error(t, s.Set(context.Background(), "ns", "", "x"))
	require.Empty(t, s.Keys("ns"))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client, err := storage.ConnectRedis(context.Background(), storage.RedisConfig{Addr: addr, Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, storage.NewRedisStore(client, time.Minute))
}

func TestRedisKey(t *testing.T) {
	require.Equal(t, "portal:dev-1:zenty_token", storage.RedisKey("dev-1", storage.KeyToken))
}
