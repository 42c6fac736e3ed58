package chat

import (
	"fmt"
	"slices"

	"github.com/hay-kot/lobby/internal/core/message"
)

// mergeBatch folds a batch into its conversation.
//
// The conversation's id list becomes the union of existing and incoming ids,
// ordered by message.Less and deduplicated. Content already present is kept;
// only read lists are unioned. The result does not depend on the order in
// which disjoint batches arrive, and merging the same batch twice is a no-op.
func (s *State) mergeBatch(b BatchFetched) error {
	s.addProfiles(b.Profiles)

	for _, m := range b.Messages {
		if !s.knows(m.Author.ID) {
			return fmt.Errorf("%w: message %s author %s", ErrUnresolvedAuthor, m.ID, m.Author.ID)
		}
	}

	c, ok := s.Conversations[b.ConversationID]
	if !ok {
		c = Conversation{ID: b.ConversationID, Kind: b.Kind}
	}
	if c.Kind == "" {
		c.Kind = b.Kind
	}

	if b.Exhausts() {
		c.Exhausted = true
	}

	incoming := make([]string, 0, len(b.Messages))
	for _, m := range b.Messages {
		incoming = append(incoming, m.ID)

		existing, ok := s.Messages[m.ID]
		if !ok {
			m = m.Clone()
			m.ConversationID = b.ConversationID
			if known, ok := s.Profiles[m.Author.ID]; ok {
				m.Author = known
			}
			s.Messages[m.ID] = m
			continue
		}

		for reader, at := range m.ReadList {
			existing.MarkRead(reader, at)
		}
		s.Messages[m.ID] = existing
	}

	c.Messages = s.mergeTimeline(c.Messages, incoming)
	s.Conversations[c.ID] = c
	return nil
}

// mergeTimeline returns the sorted, deduplicated union of two id lists.
// Every id must be present in s.Messages.
func (s *State) mergeTimeline(existing, incoming []string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	out = append(out, existing...)
	out = append(out, incoming...)

	slices.SortFunc(out, func(a, b string) int {
		return message.Compare(s.Messages[a], s.Messages[b])
	})
	return slices.Compact(out)
}
