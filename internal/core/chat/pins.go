package chat

import (
	"fmt"
	"slices"

	"github.com/hay-kot/lobby/internal/core/message"
)

// pin adds msgID to the conversation's pinned set and refreshes its snapshot.
// Pinning an already pinned message only refreshes the snapshot.
func (s *State) pin(convID, msgID string) error {
	c, ok := s.Conversations[convID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, convID)
	}
	if !c.Has(msgID) {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, msgID)
	}

	if !c.IsPinned(msgID) {
		c.Pinned = append(c.Pinned, msgID)
		s.Conversations[convID] = c
	}
	s.Pinned[msgID] = snapshot(s.Messages[msgID])
	return nil
}

// unpin removes msgID from the pinned set. Unpinning a message that is not
// pinned does nothing.
func (s *State) unpin(convID, msgID string) error {
	c, ok := s.Conversations[convID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, convID)
	}

	if !c.IsPinned(msgID) {
		return nil
	}

	c.Pinned = slices.DeleteFunc(c.Pinned, func(id string) bool { return id == msgID })
	s.Conversations[convID] = c
	delete(s.Pinned, msgID)
	return nil
}

// loadPinned merges the fetched pinned messages into the conversation and
// makes them its pinned set.
func (s *State) loadPinned(e PinnedLoaded) error {
	err := s.mergeBatch(BatchFetched{
		ConversationID: e.ConversationID,
		Kind:           e.Kind,
		Direction:      DirectionAdjacent,
		Messages:       e.Messages,
		Profiles:       e.Profiles,
	})
	if err != nil {
		return err
	}

	c := s.Conversations[e.ConversationID]
	for _, id := range c.Pinned {
		delete(s.Pinned, id)
	}

	c.Pinned = make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		if slices.Contains(c.Pinned, m.ID) {
			continue
		}
		c.Pinned = append(c.Pinned, m.ID)
		s.Pinned[m.ID] = snapshot(s.Messages[m.ID])
	}
	s.Conversations[e.ConversationID] = c
	return nil
}

// snapshot copies m for the pinned map, dropping an empty reply reference.
func snapshot(m message.Message) message.Message {
	out := m.Clone()
	if out.ReplyTo != nil && out.ReplyTo.ID == "" {
		out.ReplyTo = nil
	}
	return out
}
