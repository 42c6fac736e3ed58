package zome

import (
	"encoding/json"
	"fmt"

	"github.com/hay-kot/lobby/internal/core/hash"
)

// BatchFilter selects a batch of messages relative to an optional cursor.
// Exactly one of Conversant and GroupID is set.
type BatchFilter struct {
	Conversant           hash.Hash  `json:"conversant,omitempty"`
	GroupID              hash.Hash  `json:"group_id,omitempty"`
	BatchSize            int        `json:"batch_size"`
	PayloadType          string     `json:"payload_type"`
	LastFetchedTimestamp *Timestamp `json:"last_fetched_timestamp,omitempty"`
	LastFetchedMessageID hash.Hash  `json:"last_fetched_message_id,omitempty"`
}

// BatchOutput is the result of every fetch function.
// Keys of both maps are serialized hashes.
type BatchOutput struct {
	MessagesByConversation map[string][]hash.Hash    `json:"messagesByConversation"`
	MessageContents        map[string]MessageContent `json:"messageContents"`
}

// Len returns the number of message contents in the output.
func (o BatchOutput) Len() int {
	return len(o.MessageContents)
}

// MessageContent is a committed message plus the receipts seen so far.
type MessageContent struct {
	Element  Element              `json:"element"`
	ReadList map[string]Timestamp `json:"readList"`
}

// Element pairs an entry with its content address.
type Element struct {
	EntryHash hash.Hash    `json:"entryHash"`
	Entry     MessageEntry `json:"entry"`
}

// MessageEntry is a committed message. Receiver is set for direct messages,
// GroupHash for group messages.
type MessageEntry struct {
	Author    hash.Hash   `json:"author"`
	Receiver  hash.Hash   `json:"receiver,omitempty"`
	GroupHash hash.Hash   `json:"groupHash,omitempty"`
	Payload   RawPayload  `json:"payload"`
	Created   Timestamp   `json:"created"`
	ReplyTo   *ReplyEntry `json:"replyTo,omitempty"`
}

// ReplyEntry references the message being replied to with a copy of its content.
type ReplyEntry struct {
	ID      hash.Hash    `json:"id"`
	Content ReplyContent `json:"content"`
}

// ReplyContent is the quoted part of a reply.
type ReplyContent struct {
	Author  hash.Hash  `json:"author"`
	Payload RawPayload `json:"payload"`
	Created Timestamp  `json:"created"`
}

// RawPayload is the conductor's tagged payload. Exactly one of Text and File is set.
type RawPayload struct {
	Text *TextBody
	File *FileBody
}

// TextBody is the body of a TEXT payload.
type TextBody struct {
	Payload string `json:"payload"`
}

// FileBody is the body of a FILE payload.
type FileBody struct {
	Metadata FileMetadata `json:"metadata"`
	FileType FileKind     `json:"fileType"`
}

// FileMetadata describes the stored file.
type FileMetadata struct {
	FileName string    `json:"fileName"`
	FileSize int64     `json:"fileSize"`
	FileType string    `json:"fileType"`
	FileHash hash.Hash `json:"fileHash"`
}

// FileKind is IMAGE, VIDEO or OTHER. Media kinds carry a thumbnail.
type FileKind struct {
	Type    string     `json:"type"`
	Payload *Thumbnail `json:"payload,omitempty"`
}

// Thumbnail holds preview bytes for media files.
type Thumbnail struct {
	Thumbnail []byte `json:"thumbnail"`
}

// Text builds a TEXT payload.
func Text(s string) RawPayload {
	return RawPayload{Text: &TextBody{Payload: s}}
}

type rawPayloadJSON struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalJSON encodes p as {"type": .., "payload": ..}.
func (p RawPayload) MarshalJSON() ([]byte, error) {
	var (
		tag  string
		body any
	)
	switch {
	case p.Text != nil && p.File == nil:
		tag, body = "TEXT", p.Text
	case p.File != nil && p.Text == nil:
		tag, body = "FILE", p.File
	default:
		return nil, fmt.Errorf("payload must be exactly one of TEXT or FILE")
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rawPayloadJSON{Type: tag, Payload: raw})
}

// UnmarshalJSON decodes the tagged form.
func (p *RawPayload) UnmarshalJSON(data []byte) error {
	var env rawPayloadJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("payload: %w", err)
	}

	*p = RawPayload{}
	switch env.Type {
	case "TEXT":
		var b TextBody
		if err := json.Unmarshal(env.Payload, &b); err != nil {
			return fmt.Errorf("text payload: %w", err)
		}
		p.Text = &b
	case "FILE":
		var b FileBody
		if err := json.Unmarshal(env.Payload, &b); err != nil {
			return fmt.Errorf("file payload: %w", err)
		}
		p.File = &b
	default:
		return fmt.Errorf("payload: unknown type %q", env.Type)
	}
	return nil
}

// PinInput identifies a message to pin or unpin. Conversant is set for direct
// conversations, GroupHash for groups.
type PinInput struct {
	Conversant  hash.Hash `json:"conversant,omitempty"`
	GroupHash   hash.Hash `json:"groupHash,omitempty"`
	MessageHash hash.Hash `json:"messageHash"`
}

// PinnedInput requests the pinned messages of a conversation.
type PinnedInput struct {
	Conversant hash.Hash `json:"conversant,omitempty"`
	GroupHash  hash.Hash `json:"groupHash,omitempty"`
}

// SendInput is the argument of send_message.
type SendInput struct {
	Receiver  hash.Hash  `json:"receiver,omitempty"`
	GroupHash hash.Hash  `json:"groupHash,omitempty"`
	Payload   RawPayload `json:"payload"`
	ReplyTo   hash.Hash  `json:"replyTo,omitempty"`
}

// ReadInput reports that Reader has read MessageHashes at Timestamp.
type ReadInput struct {
	Sender        hash.Hash   `json:"sender,omitempty"`
	GroupHash     hash.Hash   `json:"groupHash,omitempty"`
	Reader        hash.Hash   `json:"reader"`
	Timestamp     Timestamp   `json:"timestamp"`
	MessageHashes []hash.Hash `json:"messageHashes"`
}

// RemoveMembersInput removes Members from GroupID.
type RemoveMembersInput struct {
	Members []hash.Hash `json:"members"`
	GroupID hash.Hash   `json:"groupId"`
}

// RemoveMembersOutput echoes the removed members.
type RemoveMembersOutput struct {
	Members   []hash.Hash `json:"members"`
	GroupID   hash.Hash   `json:"groupId"`
	GroupRev  hash.Hash   `json:"groupRevisionId,omitempty"`
	Timestamp Timestamp   `json:"timestamp"`
}

// AgentProfile is a directory record.
type AgentProfile struct {
	ID       hash.Hash `json:"id"`
	Username string    `json:"username"`
}

// GroupInfo describes a group conversation.
type GroupInfo struct {
	GroupID hash.Hash   `json:"groupId"`
	Name    string      `json:"name"`
	Members []hash.Hash `json:"members"`
	Creator hash.Hash   `json:"creator"`
	Created Timestamp   `json:"created"`
}

// Preference holds the global privacy settings.
type Preference struct {
	ReadReceipt     bool `json:"readReceipt"`
	TypingIndicator bool `json:"typingIndicator"`
}

// LatestInput bounds how many recent messages per conversation LatestData carries.
type LatestInput struct {
	BatchSize int `json:"batch_size"`
}

// LatestData is the aggregated snapshot used to hydrate a client.
type LatestData struct {
	UserInfo            AgentProfile `json:"userInfo"`
	AddedContacts       []hash.Hash  `json:"addedContacts"`
	BlockedContacts     []hash.Hash  `json:"blockedContacts"`
	GlobalPreference    Preference   `json:"globalPreference"`
	Groups              []GroupInfo  `json:"groups"`
	LatestGroupMessages BatchOutput  `json:"latestGroupMessages"`
	LatestP2PMessages   BatchOutput  `json:"latestP2PMessages"`
}
