package types

// Presence status values as they appear on the wire.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Inbound frame types.
const (
	FramePing      = "ping"
	FrameTyping    = "typing"
	FrameGetStatus = "get_status"
)

// Outbound frame types.
const (
	FrameConnected    = "connected"
	FramePong         = "pong"
	FrameTypingStatus = "typing_status"
	FrameUserStatus   = "user_status"
	FrameNewMessage   = "new_message"
	FrameMessagesRead = "messages_read"
)

// CloseUnauthorized is the application close code used when credential
// verification fails during the connect handshake.
const CloseUnauthorized = 4001

// Frame is the typed envelope for inbound client messages. One struct covers
// all frame types; per-type required fields are enforced by the session
// handler through the validator tags.
type Frame struct {
	Type string `json:"type" validate:"required"`

	// typing
	BookingID   string `json:"booking_id,omitempty" validate:"required_if=Type typing"`
	IsTyping    bool   `json:"is_typing,omitempty"`
	OtherUserID string `json:"other_user_id,omitempty" validate:"required_if=Type typing"`

	// get_status
	TargetUserID string `json:"target_user_id,omitempty" validate:"required_if=Type get_status"`
}

// Connected is the acknowledgement sent once a session is registered.
type Connected struct {
	Type         string `json:"type"`
	UserID       string `json:"user_id"`
	Status       string `json:"status"`
	ConnectionID string `json:"connection_id"`
}

// Pong answers a client ping. Ping is the server-initiated heartbeat; both
// are bare type-only frames.
type Pong struct {
	Type string `json:"type"`
}

type Ping struct {
	Type string `json:"type"`
}

// TypingStatus tells one party of a booking conversation that the other
// started or stopped typing.
type TypingStatus struct {
	Type      string `json:"type"`
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	IsTyping  bool   `json:"is_typing"`
}

// UserStatus answers a get_status query.
type UserStatus struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// NewMessage notifies a recipient that a message was stored for them.
// Data carries the stored message payload verbatim from the message store.
type NewMessage struct {
	Type       string         `json:"type"`
	SenderName string         `json:"sender_name"`
	Data       map[string]any `json:"data"`
}

// MessagesRead notifies a sender that the recipient read their messages.
type MessagesRead struct {
	Type       string   `json:"type"`
	MessageIDs []string `json:"message_ids"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	// CloseWithReason sends a close frame carrying an application close
	// code and reason before tearing the transport down.
	CloseWithReason(code int, reason string) error
	Close() error
}
