// Package service is the public API of the realtime subsystem, consumed by
// the collaborator layers that persist messages and serve REST traffic.
package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/drivelink/realtime/src/dispatch"
	"github.com/drivelink/realtime/src/presence"
	"github.com/drivelink/realtime/src/registry"
	"github.com/drivelink/realtime/src/types"
)

// Service exposes notification fan-out and presence queries. Delivery is
// best effort; callers persist their own data before notifying and must not
// depend on the returned counts for correctness.
type Service struct {
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	tracker    *presence.Tracker
	logger     zerolog.Logger
}

func New(reg *registry.Registry, d *dispatch.Dispatcher, t *presence.Tracker, logger zerolog.Logger) *Service {
	return &Service{
		registry:   reg,
		dispatcher: d,
		tracker:    t,
		logger:     logger.With().Str("component", "service").Logger(),
	}
}

// NotifyNewMessage pushes a new_message event to every live connection of
// the recipient. Returns how many connections received it.
func (s *Service) NotifyNewMessage(recipientID, senderName string, data map[string]any) int {
	n := s.dispatcher.SendToUser(recipientID, types.NewMessage{
		Type:       types.FrameNewMessage,
		SenderName: senderName,
		Data:       data,
	})
	s.logger.Debug().
		Str("recipient_id", recipientID).
		Int("delivered", n).
		Msg("new message notification")
	return n
}

// NotifyMessagesRead tells the original sender their messages were read.
func (s *Service) NotifyMessagesRead(senderID string, messageIDs []string) int {
	n := s.dispatcher.SendToUser(senderID, types.MessagesRead{
		Type:       types.FrameMessagesRead,
		MessageIDs: messageIDs,
	})
	s.logger.Debug().
		Str("sender_id", senderID).
		Int("message_ids", len(messageIDs)).
		Int("delivered", n).
		Msg("read receipt notification")
	return n
}

// BroadcastTyping records and forwards a typing flag to the other party of
// a booking conversation.
func (s *Service) BroadcastTyping(bookingID, fromUserID string, isTyping bool, toUserID string) int {
	return s.tracker.BroadcastTyping(bookingID, fromUserID, isTyping, toUserID)
}

// SendToUser delivers an arbitrary notification to every live connection of
// a user.
func (s *Service) SendToUser(userID string, notification any) int {
	return s.dispatcher.SendToUser(userID, notification)
}

// UserStatus reports whether the user currently has a live connection.
func (s *Service) UserStatus(userID string) string {
	return s.registry.Presence(userID)
}

// Stats is a point-in-time view of the registry for the info endpoint.
type Stats struct {
	Connections int `json:"connections"`
	OnlineUsers int `json:"online_users"`
	Stale       int `json:"stale_connections"`
}

// Stats snapshots connection counts. Connections with no heartbeat inside
// maxAge are counted as stale but not evicted.
func (s *Service) Stats(maxAge time.Duration) Stats {
	return Stats{
		Connections: s.registry.Count(),
		OnlineUsers: s.registry.UserCount(),
		Stale:       s.registry.StaleCount(maxAge),
	}
}
