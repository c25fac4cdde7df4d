// Package ingress receives notification requests from the durable message
// store over Redis pub/sub and hands them to the dispatcher. It lets the
// REST/messaging process push new_message and messages_read events without
// linking against this one.
package ingress

// Ingress is a channel through which external collaborators deliver
// notifications into the realtime subsystem.
type Ingress interface {
	// Start begins listening for notification envelopes.
	Start() error

	// Stop shuts the ingress down and waits for its listener to exit.
	Stop() error

	// Available reports whether the ingress is connected and consuming.
	Available() bool
}

// Notifier is the slice of the service API the ingress needs.
type Notifier interface {
	NotifyNewMessage(recipientID, senderName string, data map[string]any) int
	NotifyMessagesRead(senderID string, messageIDs []string) int
	BroadcastTyping(bookingID, fromUserID string, isTyping bool, toUserID string) int
}
