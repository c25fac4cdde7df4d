// Package presence tracks per-conversation typing state and pushes typing
// updates to the other party of a booking conversation.
package presence

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/drivelink/realtime/src/dispatch"
	"github.com/drivelink/realtime/src/types"
)

// Tracker stores the latest typing flag per (booking, user). Entries are
// overwritten on every event and never deleted; stale flags are harmless
// because consumers only ever see the event stream, not the map.
type Tracker struct {
	mu     sync.Mutex
	typing map[string]map[string]bool // booking id -> user id -> is typing

	dispatcher *dispatch.Dispatcher
	logger     zerolog.Logger
}

func NewTracker(d *dispatch.Dispatcher, logger zerolog.Logger) *Tracker {
	return &Tracker{
		typing:     make(map[string]map[string]bool),
		dispatcher: d,
		logger:     logger.With().Str("component", "typing-tracker").Logger(),
	}
}

// SetTyping overwrites the stored flag for the user in the conversation.
func (t *Tracker) SetTyping(bookingID, userID string, isTyping bool) {
	t.mu.Lock()
	if t.typing[bookingID] == nil {
		t.typing[bookingID] = make(map[string]bool)
	}
	t.typing[bookingID][userID] = isTyping
	t.mu.Unlock()
}

// Typing returns a snapshot copy of the conversation's typing flags.
func (t *Tracker) Typing(bookingID string) map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]bool, len(t.typing[bookingID]))
	for user, flag := range t.typing[bookingID] {
		out[user] = flag
	}
	return out
}

// BroadcastTyping records the flag and immediately delivers a typing_status
// notification to the other party. Best effort, at most once per call;
// rapid toggles race and the latest state wins.
func (t *Tracker) BroadcastTyping(bookingID, fromUserID string, isTyping bool, toUserID string) int {
	t.SetTyping(bookingID, fromUserID, isTyping)

	n := t.dispatcher.SendToUser(toUserID, types.TypingStatus{
		Type:      types.FrameTypingStatus,
		BookingID: bookingID,
		UserID:    fromUserID,
		IsTyping:  isTyping,
	})
	t.logger.Debug().
		Str("booking_id", bookingID).
		Str("from", fromUserID).
		Str("to", toUserID).
		Bool("is_typing", isTyping).
		Int("delivered", n).
		Msg("typing broadcast")
	return n
}
