package message

import (
	"fmt"
	"time"
)

// Cursor identifies a position in a conversation's history.
// A nil *Cursor means "start from the latest message".
type Cursor struct {
	Timestamp time.Time `json:"timestamp"`
	MessageID string    `json:"message_id"`
}

// CursorOf returns the cursor positioned at m.
func CursorOf(m Message) *Cursor {
	return &Cursor{Timestamp: m.Timestamp, MessageID: m.ID}
}

// Validate checks that a non-nil cursor is complete.
func (c *Cursor) Validate() error {
	if c == nil {
		return nil
	}
	if c.MessageID == "" {
		return fmt.Errorf("cursor: message id is required")
	}
	if c.Timestamp.IsZero() {
		return fmt.Errorf("cursor: timestamp is required")
	}
	return nil
}

// String is used in log fields.
func (c *Cursor) String() string {
	if c == nil {
		return "latest"
	}
	return fmt.Sprintf("%s@%s", c.MessageID, c.Timestamp.UTC().Format(time.RFC3339Nano))
}

// Oldest returns the first message in a slice sorted with Less.
func Oldest(msgs []Message) (Message, bool) {
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[0], true
}

// Midpoint returns the message at the middle of msgs.
func Midpoint(msgs []Message) (Message, bool) {
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)/2], true
}
