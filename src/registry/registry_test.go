package registry

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivelink/realtime/src/types"
)

// mockConn implements types.Conn without a real WebSocket.
type mockConn struct {
	mu      sync.Mutex
	written []any
	closed  bool
}

func (m *mockConn) ReadJSON(v any) error { return errors.New("not used") }

func (m *mockConn) WriteJSON(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, v)
	return nil
}

func (m *mockConn) CloseWithReason(code int, reason string) error { return m.Close() }

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func newTestRegistry() *Registry {
	return New(zerolog.Nop())
}

func TestPresenceDerivedFromConnections(t *testing.T) {
	r := newTestRegistry()

	assert.Equal(t, types.StatusOffline, r.Presence("u1"))
	assert.Empty(t, r.Connections("u1"))

	c1 := r.Register(&mockConn{}, "u1")
	assert.Equal(t, types.StatusOnline, r.Presence("u1"))
	assert.Equal(t, []string{c1.ID}, r.Connections("u1"))

	c2 := r.Register(&mockConn{}, "u1")
	assert.Equal(t, []string{c1.ID, c2.ID}, r.Connections("u1"))

	r.Unregister(c1.ID, "u1")
	assert.Equal(t, types.StatusOnline, r.Presence("u1"), "still one live connection")

	r.Unregister(c2.ID, "u1")
	assert.Equal(t, types.StatusOffline, r.Presence("u1"))
	assert.Empty(t, r.Connections("u1"))
}

func TestRegisterUnregisterRoundTrip(t *testing.T) {
	r := newTestRegistry()

	c := r.Register(&mockConn{}, "u1")
	r.Unregister(c.ID, "u1")

	assert.Zero(t, r.Count())
	assert.Zero(t, r.UserCount())
	assert.Equal(t, types.StatusOffline, r.Presence("u1"))
	_, ok := r.Get(c.ID)
	assert.False(t, ok)
}

func TestUnregisterIdempotent(t *testing.T) {
	r := newTestRegistry()

	c := r.Register(&mockConn{}, "u1")
	r.Unregister(c.ID, "u1")
	r.Unregister(c.ID, "u1")
	r.Unregister("never-registered", "u2")

	assert.Zero(t, r.Count())
	assert.Zero(t, r.UserCount())
}

func TestUnregisterLeavesOtherUsersAlone(t *testing.T) {
	r := newTestRegistry()

	c1 := r.Register(&mockConn{}, "u1")
	c2 := r.Register(&mockConn{}, "u2")

	r.Unregister(c1.ID, "u1")

	assert.Equal(t, types.StatusOnline, r.Presence("u2"))
	assert.Equal(t, []string{c2.ID}, r.Connections("u2"))
}

func TestConcurrentRegisterSameUser(t *testing.T) {
	r := newTestRegistry()

	const n = 32
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = r.Register(&mockConn{}, "u1").ID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "connection id %q issued twice", id)
		seen[id] = true
	}

	conns := r.Connections("u1")
	require.Len(t, conns, n)
	assert.Equal(t, types.StatusOnline, r.Presence("u1"))
}

func TestConnectionIDEmbedsUser(t *testing.T) {
	r := newTestRegistry()
	c := r.Register(&mockConn{}, "u1")
	assert.True(t, strings.HasPrefix(c.ID, "u1_"))
}

func TestHeartbeatTracking(t *testing.T) {
	r := newTestRegistry()
	c := r.Register(&mockConn{}, "u1")

	assert.Zero(t, r.StaleCount(time.Minute))
	assert.Equal(t, 1, r.StaleCount(-time.Second), "fresh heartbeat counts as stale for a negative age")

	r.TouchHeartbeat(c.ID)
	r.TouchHeartbeat("unknown") // no-op
	assert.Zero(t, r.StaleCount(time.Minute))

	r.Unregister(c.ID, "u1")
	assert.Zero(t, r.StaleCount(-time.Second), "heartbeat entry removed with the connection")
}
