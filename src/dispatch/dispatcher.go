// Package dispatch fans outbound notifications out to every live connection
// a user has. Delivery is fire-and-forget: no retry, no buffering, and a
// failed write is taken as proof the connection is dead.
package dispatch

import (
	"github.com/rs/zerolog"

	"github.com/drivelink/realtime/src/registry"
)

// Dispatcher resolves a user's connections through the registry and writes
// to each in turn.
type Dispatcher struct {
	registry *registry.Registry
	logger   zerolog.Logger
}

func New(reg *registry.Registry, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// SendToUser writes the notification to every live connection of the user
// and returns how many received it. The connection list is snapshotted
// first so no registry lock is held across network I/O. A write failure
// unregisters that connection and delivery continues with the rest; a user
// with zero connections is a silent no-op.
func (d *Dispatcher) SendToUser(userID string, notification any) int {
	delivered := 0
	for _, id := range d.registry.Connections(userID) {
		conn, ok := d.registry.Get(id)
		if !ok {
			continue
		}
		if err := conn.Write(notification); err != nil {
			d.logger.Warn().Err(err).
				Str("user_id", userID).
				Str("connection_id", id).
				Msg("write failed, pruning connection")
			d.registry.Unregister(id, userID)
			_ = conn.Close()
			continue
		}
		delivered++
	}
	return delivered
}
