// Package registry owns the mapping of live WebSocket connections to users
// and the presence state derived from it. It is the single synchronization
// boundary shared by all sessions.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/drivelink/realtime/src/types"
)

// Connection is one live transport link. It is owned by the Registry from
// Register until Unregister; after that it must not be written to.
type Connection struct {
	ID     string
	UserID string

	conn    types.Conn
	writeMu sync.Mutex
}

// Write serializes a frame to the transport. Session replies, heartbeat
// pings and dispatcher fan-out share one socket, so writes are serialized
// per connection.
func (c *Connection) Write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// ReadJSON blocks for the next inbound frame. The session's receive loop
// is the only reader, so reads are not serialized.
func (c *Connection) ReadJSON(v any) error {
	return c.conn.ReadJSON(v)
}

// Close tears the transport down.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// Registry tracks connections, the per-user connection index, presence and
// heartbeat timestamps. All maps live under one mutex; no method performs
// network I/O while holding it.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	byUser      map[string][]string
	heartbeats  map[string]time.Time

	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
		byUser:      make(map[string][]string),
		heartbeats:  make(map[string]time.Time),
		logger:      logger.With().Str("component", "registry").Logger(),
	}
}

// Register stores the transport under a fresh connection id and indexes it
// under the user. The id embeds the user id plus a uuid suffix so that
// multiple tabs or devices registering in the same instant never collide.
func (r *Registry) Register(conn types.Conn, userID string) *Connection {
	c := &Connection{
		ID:     userID + "_" + uuid.NewString(),
		UserID: userID,
		conn:   conn,
	}

	r.mu.Lock()
	r.connections[c.ID] = c
	r.byUser[userID] = append(r.byUser[userID], c.ID)
	r.heartbeats[c.ID] = time.Now()
	r.mu.Unlock()

	r.logger.Info().Str("user_id", userID).Str("connection_id", c.ID).Msg("connection registered")
	return c
}

// Unregister removes the connection and strips it from the user's index;
// the user entry disappears with its last connection. Calling it for an id
// that is already gone is a no-op.
func (r *Registry) Unregister(connectionID, userID string) {
	r.mu.Lock()
	_, known := r.connections[connectionID]
	delete(r.connections, connectionID)
	delete(r.heartbeats, connectionID)

	if ids, ok := r.byUser[userID]; ok {
		remaining := ids[:0]
		for _, id := range ids {
			if id != connectionID {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) == 0 {
			delete(r.byUser, userID)
		} else {
			r.byUser[userID] = remaining
		}
	}
	r.mu.Unlock()

	if known {
		r.logger.Info().Str("user_id", userID).Str("connection_id", connectionID).Msg("connection unregistered")
	}
}

// TouchHeartbeat records a liveness signal for the connection. Unknown ids
// are ignored.
func (r *Registry) TouchHeartbeat(connectionID string) {
	r.mu.Lock()
	if _, ok := r.connections[connectionID]; ok {
		r.heartbeats[connectionID] = time.Now()
	}
	r.mu.Unlock()
}

// Connections returns a snapshot of the user's connection ids in
// registration order. May be empty.
func (r *Registry) Connections(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.byUser[userID]))
	copy(ids, r.byUser[userID])
	return ids
}

// Get looks up a live connection by id.
func (r *Registry) Get(connectionID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connections[connectionID]
	return c, ok
}

// Presence reports online iff the user has at least one live connection.
// Derived from the connection index, never cached separately.
func (r *Registry) Presence(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.byUser[userID]) > 0 {
		return types.StatusOnline
	}
	return types.StatusOffline
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// UserCount returns the number of distinct online users.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// StaleCount reports how many connections have not sent a heartbeat within
// the given age. Observability only; nothing evicts on staleness.
func (r *Registry) StaleCount(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	r.mu.RLock()
	defer r.mu.RUnlock()
	stale := 0
	for _, at := range r.heartbeats {
		if at.Before(cutoff) {
			stale++
		}
	}
	return stale
}
