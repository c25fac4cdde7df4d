package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivelink/realtime/src/dispatch"
	"github.com/drivelink/realtime/src/presence"
	"github.com/drivelink/realtime/src/registry"
	"github.com/drivelink/realtime/src/types"
)

type mockConn struct {
	mu      sync.Mutex
	written []any
}

func (m *mockConn) ReadJSON(v any) error { return errors.New("not used") }

func (m *mockConn) WriteJSON(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, v)
	return nil
}

func (m *mockConn) CloseWithReason(code int, reason string) error { return nil }
func (m *mockConn) Close() error                                  { return nil }

func (m *mockConn) frames() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]any, len(m.written))
	copy(cp, m.written)
	return cp
}

func newTestService() (*Service, *registry.Registry) {
	logger := zerolog.Nop()
	reg := registry.New(logger)
	d := dispatch.New(reg, logger)
	tracker := presence.NewTracker(d, logger)
	return New(reg, d, tracker, logger), reg
}

func TestNotifyNewMessage(t *testing.T) {
	svc, reg := newTestService()

	conn := &mockConn{}
	reg.Register(conn, "recipient")

	data := map[string]any{"id": "m1", "message_text": "hello"}
	n := svc.NotifyNewMessage("recipient", "Alice", data)

	assert.Equal(t, 1, n)
	frames := conn.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, types.NewMessage{
		Type:       types.FrameNewMessage,
		SenderName: "Alice",
		Data:       data,
	}, frames[0])
}

func TestNotifyNewMessageOfflineRecipient(t *testing.T) {
	svc, reg := newTestService()
	n := svc.NotifyNewMessage("nobody", "Alice", nil)
	assert.Zero(t, n)
	assert.Zero(t, reg.Count())
}

func TestNotifyMessagesRead(t *testing.T) {
	svc, reg := newTestService()

	conn := &mockConn{}
	reg.Register(conn, "sender")

	n := svc.NotifyMessagesRead("sender", []string{"m1", "m2"})

	assert.Equal(t, 1, n)
	frames := conn.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, types.MessagesRead{
		Type:       types.FrameMessagesRead,
		MessageIDs: []string{"m1", "m2"},
	}, frames[0])
}

func TestUserStatus(t *testing.T) {
	svc, reg := newTestService()

	assert.Equal(t, types.StatusOffline, svc.UserStatus("u1"))
	c := reg.Register(&mockConn{}, "u1")
	assert.Equal(t, types.StatusOnline, svc.UserStatus("u1"))
	reg.Unregister(c.ID, "u1")
	assert.Equal(t, types.StatusOffline, svc.UserStatus("u1"))
}

func TestStats(t *testing.T) {
	svc, reg := newTestService()

	reg.Register(&mockConn{}, "u1")
	reg.Register(&mockConn{}, "u1")
	reg.Register(&mockConn{}, "u2")

	stats := svc.Stats(time.Minute)
	assert.Equal(t, 3, stats.Connections)
	assert.Equal(t, 2, stats.OnlineUsers)
	assert.Zero(t, stats.Stale)
}
