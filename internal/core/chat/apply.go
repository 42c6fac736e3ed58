package chat

import (
	"fmt"
	"slices"

	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/core/profile"
)

// Apply returns the state that results from ev. s is never modified; on error
// the returned state is s unchanged.
func Apply(s State, ev Event) (State, error) {
	next := s.Clone()

	var err error
	switch e := ev.(type) {
	case BatchFetched:
		err = next.mergeBatch(e)
	case MessageSent:
		err = next.mergeBatch(BatchFetched{
			ConversationID: e.ConversationID,
			Kind:           e.Kind,
			Direction:      DirectionLatest,
			Messages:       []message.Message{e.Message},
		})
	case MessagePinned:
		err = next.pin(e.ConversationID, e.MessageID)
	case MessageUnpinned:
		err = next.unpin(e.ConversationID, e.MessageID)
	case PinnedLoaded:
		err = next.loadPinned(e)
	case MessagesRead:
		err = next.markRead(e)
	case MembersRemoved:
		err = next.removeMembers(e)
	case LatestLoaded:
		err = next.loadLatest(e)
	case ContactsLoaded:
		next.Contacts = slices.Clone(e.Contacts)
		next.addProfiles(e.Profiles)
	case ContactsRemoved:
		next.Contacts = slices.DeleteFunc(next.Contacts, func(id string) bool {
			return slices.Contains(e.IDs, id)
		})
	case ProfilesResolved:
		next.addProfiles(e.Profiles)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	if err != nil {
		return s, err
	}
	return next, nil
}

func (s *State) addProfiles(profiles []profile.Profile) {
	for _, p := range profiles {
		if p.IsZero() {
			continue
		}
		s.Profiles[p.ID] = p
	}
}

func (s *State) markRead(e MessagesRead) error {
	c, ok := s.Conversations[e.ConversationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, e.ConversationID)
	}

	for _, id := range e.MessageIDs {
		if !c.Has(id) {
			return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
		}
		m := s.Messages[id]
		m.MarkRead(e.Reader, e.At)
		s.Messages[id] = m
	}
	return nil
}

func (s *State) removeMembers(e MembersRemoved) error {
	c, ok := s.Conversations[e.GroupID]
	if !ok || c.Kind != KindGroup {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, e.GroupID)
	}

	c.Members = slices.DeleteFunc(c.Members, func(m string) bool {
		return slices.Contains(e.Members, m)
	})
	s.Conversations[e.GroupID] = c
	return nil
}

func (s *State) loadLatest(e LatestLoaded) error {
	me := e.Me
	s.Me = &me
	s.Profiles[me.ID] = me
	s.addProfiles(e.Profiles)

	s.Contacts = slices.Clone(e.Contacts)
	s.Blocked = slices.Clone(e.Blocked)
	s.Preference = e.Preference

	for _, g := range e.Groups {
		c, ok := s.Conversations[g.ID]
		if !ok {
			c = Conversation{ID: g.ID}
		}
		c.Kind = KindGroup
		c.Name = g.Name
		c.Members = slices.Clone(g.Members)
		c.Creator = g.Creator
		c.CreatedAt = g.CreatedAt
		s.Conversations[g.ID] = c
	}

	for _, b := range e.Batches {
		if err := s.mergeBatch(b); err != nil {
			return err
		}
	}
	return nil
}
