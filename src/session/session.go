// Package session drives the lifecycle of one WebSocket connection:
// authenticate, register, serve the receive loop with its heartbeat, and
// guarantee unregistration on the way out.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/drivelink/realtime/src/auth"
	"github.com/drivelink/realtime/src/presence"
	"github.com/drivelink/realtime/src/registry"
	"github.com/drivelink/realtime/src/types"
)

// State is the lifecycle phase of a session. Transitions only move forward;
// StateClosed is terminal.
type State string

const (
	StateConnecting    State = "connecting"
	StateAuthenticated State = "authenticated"
	StateActive        State = "active"
	StateClosed        State = "closed"
)

// Handler serves sessions. One Handler is shared by all connections; per
// connection state lives on the stack of Run.
type Handler struct {
	verifier     *auth.Verifier
	registry     *registry.Registry
	tracker      *presence.Tracker
	validate     *validator.Validate
	pingInterval time.Duration
	logger       zerolog.Logger
}

func NewHandler(
	verifier *auth.Verifier,
	reg *registry.Registry,
	tracker *presence.Tracker,
	pingInterval time.Duration,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		verifier:     verifier,
		registry:     reg,
		tracker:      tracker,
		validate:     validator.New(),
		pingInterval: pingInterval,
		logger:       logger.With().Str("component", "session").Logger(),
	}
}

// Run drives one connection from accept to teardown and blocks until the
// session is closed. The token comes from the connect request's query
// string; nothing touches the registry until it verifies.
func (h *Handler) Run(ctx context.Context, conn types.Conn, token string) {
	state := StateConnecting
	h.logger.Debug().Str("state", string(state)).Msg("connection accepted")

	claims, err := h.verifier.Verify(token)
	if err != nil {
		state = StateClosed
		h.logger.Warn().Err(err).Str("state", string(state)).Msg("authentication failed, closing")
		_ = conn.CloseWithReason(types.CloseUnauthorized, err.Error())
		return
	}
	state = StateAuthenticated

	c := h.registry.Register(conn, claims.Subject)
	log := h.logger.With().Str("user_id", c.UserID).Str("connection_id", c.ID).Logger()
	log.Debug().Str("state", string(state)).Msg("credential verified")

	hbCtx, cancel := context.WithCancel(ctx)
	defer func() {
		state = StateClosed
		cancel()
		h.registry.Unregister(c.ID, c.UserID)
		_ = conn.Close()
		log.Info().Str("state", string(state)).Msg("session closed")
	}()

	if err := c.Write(types.Connected{
		Type:         types.FrameConnected,
		UserID:       c.UserID,
		Status:       types.StatusOnline,
		ConnectionID: c.ID,
	}); err != nil {
		log.Warn().Err(err).Msg("connected ack failed")
		return
	}

	go h.heartbeat(hbCtx, c, log)

	state = StateActive
	log.Info().Str("state", string(state)).Msg("session active")
	h.readLoop(c, log)
}

// readLoop processes inbound frames strictly in arrival order until the
// transport disconnects. One bad frame never terminates the session.
func (h *Handler) readLoop(c *registry.Connection, log zerolog.Logger) {
	for {
		var frame types.Frame
		if err := c.ReadJSON(&frame); err != nil {
			if isMalformed(err) {
				log.Debug().Err(err).Msg("dropping malformed frame")
				continue
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Msg("client disconnected")
			} else {
				log.Warn().Err(err).Msg("read failed")
			}
			return
		}
		h.dispatch(c, frame, log)
	}
}

func (h *Handler) dispatch(c *registry.Connection, frame types.Frame, log zerolog.Logger) {
	switch frame.Type {
	case types.FramePing:
		h.registry.TouchHeartbeat(c.ID)
		if err := c.Write(types.Pong{Type: types.FramePong}); err != nil {
			log.Debug().Err(err).Msg("pong write failed")
		}

	case types.FrameTyping:
		if err := h.validate.Struct(frame); err != nil {
			log.Debug().Err(err).Msg("dropping invalid typing frame")
			return
		}
		h.tracker.BroadcastTyping(frame.BookingID, c.UserID, frame.IsTyping, frame.OtherUserID)

	case types.FrameGetStatus:
		if err := h.validate.Struct(frame); err != nil {
			log.Debug().Err(err).Msg("dropping invalid get_status frame")
			return
		}
		reply := types.UserStatus{
			Type:   types.FrameUserStatus,
			UserID: frame.TargetUserID,
			Status: h.registry.Presence(frame.TargetUserID),
		}
		if err := c.Write(reply); err != nil {
			log.Debug().Err(err).Msg("user_status write failed")
		}

	default:
		// Unknown types are dropped without an error frame.
		log.Debug().Str("type", frame.Type).Msg("dropping unrecognized frame")
	}
}

// heartbeat sends server pings at a fixed interval for the lifetime of the
// session. A failed ping means the socket is gone; closing the transport
// unblocks the receive loop, which then runs the session teardown.
func (h *Handler) heartbeat(ctx context.Context, c *registry.Connection, log zerolog.Logger) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Write(types.Ping{Type: types.FramePing}); err != nil {
				log.Debug().Err(err).Msg("heartbeat write failed")
				_ = c.Close()
				return
			}
		}
	}
}

// isMalformed reports whether a read error came from undecodable JSON
// rather than a broken transport. Truncated payloads and empty text frames
// decode to io.ErrUnexpectedEOF; transport failures never do.
func isMalformed(err error) bool {
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntax) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}
