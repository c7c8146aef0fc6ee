// Package hub fans call events out to websocket subscribers using the
// channel-based broadcast pattern.
package hub

// Message is one encoded event addressed to subscribers.
type Message struct {
	// CallID scopes the message. Subscribers filtering on a call only
	// receive messages with a matching id.
	CallID string
	Data   []byte
}

// NewMessage creates a message for callID from pre-encoded JSON.
func NewMessage(callID string, data []byte) Message {
	return Message{CallID: callID, Data: data}
}
