// Package chat holds the normalized client state and the pure reducer that
// folds fetched batches, sends, read receipts and pin changes into it.
package chat

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/core/profile"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found in conversation")
	ErrUnresolvedAuthor     = errors.New("message author has no profile")
	ErrUnknownEvent         = errors.New("unknown event")
)

// Kind distinguishes direct conversations from groups.
type Kind string

const (
	KindP2P   Kind = "p2p"
	KindGroup Kind = "group"
)

// Conversation is a direct conversation, keyed by the other agent's id, or a
// group, keyed by the group id.
type Conversation struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Name string `json:"name,omitempty"`
	// Messages holds message ids oldest first.
	Messages []string `json:"messages"`
	// Pinned is always a subset of Messages.
	Pinned    []string  `json:"pinned,omitempty"`
	Members   []string  `json:"members,omitempty"`
	Creator   string    `json:"creator,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	// Exhausted is set once an unfiltered older batch came back empty.
	Exhausted bool `json:"exhausted,omitempty"`
}

// IsPinned reports whether id is in the pinned set.
func (c Conversation) IsPinned(id string) bool {
	return slices.Contains(c.Pinned, id)
}

// Has reports whether id is part of the conversation.
func (c Conversation) Has(id string) bool {
	return slices.Contains(c.Messages, id)
}

func (c Conversation) clone() Conversation {
	c.Messages = slices.Clone(c.Messages)
	c.Pinned = slices.Clone(c.Pinned)
	c.Members = slices.Clone(c.Members)
	return c
}

// Preference holds the agent's global privacy settings.
type Preference struct {
	ReadReceipt     bool `json:"read_receipt"`
	TypingIndicator bool `json:"typing_indicator"`
}

// State is the normalized client state. Treat values as immutable and derive
// new ones with Apply.
type State struct {
	Me            *profile.Profile           `json:"me,omitempty"`
	Conversations map[string]Conversation    `json:"conversations"`
	Messages      map[string]message.Message `json:"messages"`
	// Pinned holds snapshots of pinned messages keyed by message id.
	Pinned     map[string]message.Message `json:"pinned"`
	Profiles   map[string]profile.Profile `json:"profiles"`
	Contacts   []string                   `json:"contacts,omitempty"`
	Blocked    []string                   `json:"blocked,omitempty"`
	Preference Preference                 `json:"preference"`
}

// New returns an empty state.
func New() State {
	return State{
		Conversations: make(map[string]Conversation),
		Messages:      make(map[string]message.Message),
		Pinned:        make(map[string]message.Message),
		Profiles:      make(map[string]profile.Profile),
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := New()
	if s.Me != nil {
		me := *s.Me
		out.Me = &me
	}
	for k, v := range s.Conversations {
		out.Conversations[k] = v.clone()
	}
	for k, v := range s.Messages {
		out.Messages[k] = v.Clone()
	}
	for k, v := range s.Pinned {
		out.Pinned[k] = v.Clone()
	}
	maps.Copy(out.Profiles, s.Profiles)
	out.Contacts = slices.Clone(s.Contacts)
	out.Blocked = slices.Clone(s.Blocked)
	out.Preference = s.Preference
	return out
}

// Conversation looks up a conversation by id.
func (s State) Conversation(id string) (Conversation, bool) {
	c, ok := s.Conversations[id]
	return c, ok
}

// Message looks up a message by id.
func (s State) Message(id string) (message.Message, bool) {
	m, ok := s.Messages[id]
	return m, ok
}

// Self returns the local agent's profile once known.
func (s State) Self() (profile.Profile, bool) {
	if s.Me == nil {
		return profile.Profile{}, false
	}
	return *s.Me, true
}

// Timeline returns the messages of a conversation, oldest first.
func (s State) Timeline(convID string) []message.Message {
	c, ok := s.Conversations[convID]
	if !ok {
		return nil
	}
	out := make([]message.Message, 0, len(c.Messages))
	for _, id := range c.Messages {
		if m, ok := s.Messages[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// PinnedOf returns the pinned snapshots of a conversation in timeline order.
func (s State) PinnedOf(convID string) []message.Message {
	c, ok := s.Conversations[convID]
	if !ok {
		return nil
	}
	out := make([]message.Message, 0, len(c.Pinned))
	for _, id := range c.Pinned {
		if m, ok := s.Pinned[id]; ok {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, message.Compare)
	return out
}

// DisplayName returns a human name for a conversation: the group name, or the
// other agent's username for direct conversations.
func (s State) DisplayName(convID string) string {
	c, ok := s.Conversations[convID]
	if ok && c.Name != "" {
		return c.Name
	}
	if p, ok := s.Profiles[convID]; ok {
		return p.Username
	}
	return convID
}

// List returns all conversations, most recently active first.
func (s State) List() []Conversation {
	out := slices.Collect(maps.Values(s.Conversations))
	last := func(c Conversation) time.Time {
		if len(c.Messages) == 0 {
			return c.CreatedAt
		}
		return s.Messages[c.Messages[len(c.Messages)-1]].Timestamp
	}
	slices.SortFunc(out, func(a, b Conversation) int {
		if c := last(b).Compare(last(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// knows reports whether an author id can be rendered.
func (s State) knows(id string) bool {
	if s.Me != nil && s.Me.ID == id {
		return true
	}
	_, ok := s.Profiles[id]
	return ok
}

// Store persists State between runs.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}
