package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivam13602/Chatpulse/internal/domain"
)

func TestRegistry_AddAndSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := New(clock)

	conn, err := reg.Add("conn-1", map[string]string{"username": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "conn-1", conn.ID)
	assert.Equal(t, clock.Now(), conn.ConnectedAt)
	assert.Equal(t, clock.Now(), conn.LastActivityAt)
	assert.Equal(t, "alice", conn.Metadata["username"])

	snapshot := reg.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "conn-1", snapshot[0].ID)
}

func TestRegistry_AddDuplicateKeepsOriginal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := New(clock)

	_, err := reg.Add("conn-1", map[string]string{"username": "alice"})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = reg.Add("conn-1", map[string]string{"username": "mallory"})
	assert.ErrorIs(t, err, domain.ErrDuplicateConnection)

	snapshot := reg.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "alice", snapshot[0].Metadata["username"])
	assert.Equal(t, clock.Now().Add(-time.Minute), snapshot[0].ConnectedAt)
}

func TestRegistry_RemoveAfterAdd(t *testing.T) {
	reg := New(clockwork.NewFakeClock())

	_, err := reg.Add("conn-1", nil)
	require.NoError(t, err)

	assert.True(t, reg.Remove("conn-1"))
	assert.Empty(t, reg.Snapshot())
	assert.Zero(t, reg.Len())

	// Second removal reports absence, never fails.
	assert.False(t, reg.Remove("conn-1"))
}

func TestRegistry_TouchUpdatesActivity(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := New(clock)

	_, err := reg.Add("conn-1", nil)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	reg.Touch("conn-1")

	snapshot := reg.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, clock.Now(), snapshot[0].LastActivityAt)
	assert.Equal(t, clock.Now().Add(-10*time.Second), snapshot[0].ConnectedAt)
}

func TestRegistry_TouchAbsentIsNoop(t *testing.T) {
	reg := New(clockwork.NewFakeClock())

	assert.NotPanics(t, func() { reg.Touch("ghost") })
	assert.Empty(t, reg.Snapshot())
}

func TestRegistry_SnapshotInsertionOrder(t *testing.T) {
	reg := New(clockwork.NewFakeClock())

	for i := range 5 {
		_, err := reg.Add(fmt.Sprintf("conn-%d", i), nil)
		require.NoError(t, err)
	}
	reg.Remove("conn-2")

	snapshot := reg.Snapshot()
	require.Len(t, snapshot, 4)
	ids := make([]string, 0, len(snapshot))
	for _, conn := range snapshot {
		ids = append(ids, conn.ID)
	}
	assert.Equal(t, []string{"conn-0", "conn-1", "conn-3", "conn-4"}, ids)
}

func TestRegistry_SnapshotIsIsolatedCopy(t *testing.T) {
	reg := New(clockwork.NewFakeClock())

	_, err := reg.Add("conn-1", map[string]string{"username": "alice"})
	require.NoError(t, err)

	snapshot := reg.Snapshot()
	snapshot[0].Metadata["username"] = "mallory"
	reg.Remove("conn-1")

	// Mutating the snapshot or the registry leaves the other untouched.
	assert.Equal(t, "mallory", snapshot[0].Metadata["username"])

	_, err = reg.Add("conn-1", map[string]string{"username": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.Snapshot()[0].Metadata["username"])
}

func TestRegistry_ConcurrentAdds(t *testing.T) {
	const n = 100
	reg := New(clockwork.NewRealClock())

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reg.Add(fmt.Sprintf("conn-%d", i), nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	snapshot := reg.Snapshot()
	require.Len(t, snapshot, n)

	seen := make(map[string]bool, n)
	for _, conn := range snapshot {
		assert.False(t, seen[conn.ID], "duplicate id %s in snapshot", conn.ID)
		seen[conn.ID] = true
	}
}

func TestRegistry_ConcurrentMutationDuringSnapshot(t *testing.T) {
	reg := New(clockwork.NewRealClock())
	for i := range 50 {
		_, err := reg.Add(fmt.Sprintf("conn-%d", i), nil)
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 50 {
			reg.Remove(fmt.Sprintf("conn-%d", i))
			_, _ = reg.Add(fmt.Sprintf("new-%d", i), nil)
		}
	}()

	// Snapshots taken mid-churn must always be internally consistent.
	for range 100 {
		snapshot := reg.Snapshot()
		seen := make(map[string]bool, len(snapshot))
		for _, conn := range snapshot {
			assert.False(t, seen[conn.ID])
			seen[conn.ID] = true
			assert.False(t, conn.ConnectedAt.IsZero())
		}
	}
	<-done
}
