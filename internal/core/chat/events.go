package chat

import (
	"time"

	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/core/profile"
)

// Direction records which fetch produced a batch.
type Direction string

const (
	DirectionLatest   Direction = "latest"
	DirectionOlder    Direction = "older"
	DirectionAdjacent Direction = "adjacent"
)

// Event is a state change. The set of events is closed; Apply handles each one.
type Event interface {
	event()
}

// BatchFetched carries normalized messages of one conversation together with
// the profiles needed to render their authors.
type BatchFetched struct {
	ConversationID string
	Kind           Kind
	Direction      Direction
	// PayloadType is the filter the batch was fetched with; empty means all.
	PayloadType message.PayloadType
	Messages    []message.Message
	Profiles    []profile.Profile
}

// Exhausts reports whether the batch proves there is no older history at all.
// An empty filtered batch only says nothing older matches that filter.
func (b BatchFetched) Exhausts() bool {
	if b.Direction != DirectionOlder || len(b.Messages) > 0 {
		return false
	}
	return b.PayloadType == "" || b.PayloadType == message.PayloadAll
}

// MessageSent records a message the local agent just committed.
type MessageSent struct {
	ConversationID string
	Kind           Kind
	Message        message.Message
}

// MessagePinned adds a message to its conversation's pinned set.
type MessagePinned struct {
	ConversationID string
	MessageID      string
}

// MessageUnpinned removes a message from its conversation's pinned set.
type MessageUnpinned struct {
	ConversationID string
	MessageID      string
}

// PinnedLoaded replaces a conversation's pinned set with the fetched one.
type PinnedLoaded struct {
	ConversationID string
	Kind           Kind
	Messages       []message.Message
	Profiles       []profile.Profile
}

// MessagesRead appends Reader to the read list of each message.
type MessagesRead struct {
	ConversationID string
	Reader         string
	At             time.Time
	MessageIDs     []string
}

// MembersRemoved drops members from a group.
type MembersRemoved struct {
	GroupID string
	Members []string
}

// GroupInfo is group metadata carried by LatestLoaded.
type GroupInfo struct {
	ID        string
	Name      string
	Members   []string
	Creator   string
	CreatedAt time.Time
}

// LatestLoaded hydrates the state from the conductor's aggregated snapshot.
type LatestLoaded struct {
	Me         profile.Profile
	Contacts   []string
	Blocked    []string
	Preference Preference
	Groups     []GroupInfo
	Batches    []BatchFetched
	Profiles   []profile.Profile
}

// ContactsLoaded replaces the contact list with the conductor's.
type ContactsLoaded struct {
	Contacts []string
	Profiles []profile.Profile
}

// ContactsRemoved drops agents from the contact list. Their profiles stay so
// existing messages still render.
type ContactsRemoved struct {
	IDs []string
}

// ProfilesResolved adds looked-up profiles.
type ProfilesResolved struct {
	Profiles []profile.Profile
}

func (BatchFetched) event()     {}
func (MessageSent) event()      {}
func (MessagePinned) event()    {}
func (MessageUnpinned) event()  {}
func (PinnedLoaded) event()     {}
func (MessagesRead) event()     {}
func (MembersRemoved) event()   {}
func (LatestLoaded) event()     {}
func (ContactsLoaded) event()   {}
func (ContactsRemoved) event()  {}
func (ProfilesResolved) event() {}
