package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenty/portal/sessions"
	"github.com/zenty/portal/users"
)

func TestRegistry_OneStorePerDevice(t *testing.T) {
	f := setupTestFixture(t)
	reg := sessions.NewRegistry(f.storage, f.client, sessions.WithInitTimeout(time.Second))

	a := reg.Get("device-a")
	require.Same(t, a, reg.Get("device-a"))
	b := reg.Get("device-b")
	require.NotSame(t, a, b)
	require.Equal(t, 2, reg.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Wait(ctx))
	require.NoError(t, b.Wait(ctx))

	require.NoError(t, a.Login(ctx, "alice@example.com", "password123", users.RoleCustomer))
	require.True(t, a.Snapshot().Authenticated())
	require.False(t, b.Snapshot().Authenticated())
}

func TestRegistry_RehydratesAfterEviction(t *testing.T) {
	f := setupTestFixture(t)
	reg := sessions.NewRegistry(f.storage, f.client, sessions.WithIdleTTL(time.Minute))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st := reg.Get(device)
	require.NoError(t, st.Wait(ctx))
	require.NoError(t, st.Login(ctx, "alice@example.com", "password123", users.RoleCustomer))

	require.Zero(t, reg.Evict(time.Now()))
	require.Equal(t, 1, reg.Evict(time.Now().Add(2*time.Minute)))
	require.Zero(t, reg.Len())

	// The rebuilt Store starts resolving and recovers the session from storage
	again := reg.Get(device)
	require.NotSame(t, st, again)
	require.NoError(t, again.Wait(ctx))
	snap := again.Snapshot()
	require.True(t, snap.Resolved())
	require.Equal(t, f.customer.ID, snap.Customer.ID)
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	f := setupTestFixture(t)
	reg := sessions.NewRegistry(f.storage, f.client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
