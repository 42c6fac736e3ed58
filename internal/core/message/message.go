// Package message defines chat messages, their payloads and the pagination cursor.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/profile"
)

// Message is a normalized chat message.
// Content never changes once created; only the read list grows.
type Message struct {
	ID             string               `json:"id"`
	ConversationID string               `json:"conversation_id"`
	Author         profile.Profile      `json:"author"`
	Payload        Payload              `json:"-"`
	Timestamp      time.Time            `json:"timestamp"`
	ReplyTo        *Reply               `json:"reply_to,omitempty"`
	ReadList       map[string]time.Time `json:"read_list,omitempty"`
}

// Reply is a shallow snapshot of the message being replied to.
type Reply struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Payload   Payload   `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// MarkRead records that reader has read the message at the given time.
// The earliest recorded time wins.
func (m *Message) MarkRead(reader string, at time.Time) {
	if m.ReadList == nil {
		m.ReadList = make(map[string]time.Time)
	}
	if prev, ok := m.ReadList[reader]; ok && !at.Before(prev) {
		return
	}
	m.ReadList[reader] = at
}

// IsReadBy reports whether reader appears in the read list.
func (m Message) IsReadBy(reader string) bool {
	_, ok := m.ReadList[reader]
	return ok
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	out := m
	if m.ReadList != nil {
		out.ReadList = make(map[string]time.Time, len(m.ReadList))
		for k, v := range m.ReadList {
			out.ReadList[k] = v
		}
	}
	if m.ReplyTo != nil {
		r := *m.ReplyTo
		out.ReplyTo = &r
	}
	return out
}

// Less orders messages chronologically, breaking timestamp ties by the raw
// bytes of their ids.
func Less(a, b Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return hash.Compare(a.ID, b.ID) < 0
}

// Compare is Less in the three-way form used by slices.SortFunc.
func Compare(a, b Message) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	default:
		return 0
	}
}

type messageAlias Message

type messageJSON struct {
	messageAlias
	Payload json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the payload with its type tag.
func (m Message) MarshalJSON() ([]byte, error) {
	p, err := MarshalPayload(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", m.ID, err)
	}
	return json.Marshal(messageJSON{messageAlias: messageAlias(m), Payload: p})
}

// UnmarshalJSON decodes data produced by MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Message(raw.messageAlias)
	if len(raw.Payload) == 0 {
		return nil
	}
	p, err := UnmarshalPayload(raw.Payload)
	if err != nil {
		return fmt.Errorf("message %s: %w", m.ID, err)
	}
	m.Payload = p
	return nil
}

type replyAlias Reply

type replyJSON struct {
	replyAlias
	Payload json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the payload with its type tag.
func (r Reply) MarshalJSON() ([]byte, error) {
	p, err := MarshalPayload(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("reply %s: %w", r.ID, err)
	}
	return json.Marshal(replyJSON{replyAlias: replyAlias(r), Payload: p})
}

// UnmarshalJSON decodes data produced by MarshalJSON.
func (r *Reply) UnmarshalJSON(data []byte) error {
	var raw replyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Reply(raw.replyAlias)
	if len(raw.Payload) == 0 {
		return nil
	}
	p, err := UnmarshalPayload(raw.Payload)
	if err != nil {
		return fmt.Errorf("reply %s: %w", r.ID, err)
	}
	r.Payload = p
	return nil
}
