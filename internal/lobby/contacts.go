package lobby

import (
	"context"
	"fmt"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/profile"
	"github.com/hay-kot/lobby/internal/core/zome"
)

// Contacts lists the agents the local agent has added and refreshes their
// profiles with one directory lookup.
func (s *Service) Contacts(ctx context.Context) ([]profile.Profile, error) {
	req := zome.Request{Zome: zome.Contacts, Fn: zome.FnListAddedAgents}

	var added []hash.Hash
	if err := s.call(ctx, req, &added); err != nil {
		return nil, err
	}
	ids := serializeAll(added)

	resolved, err := s.normalizer.resolver.Resolve(ctx, ids, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve contacts: %w", err)
	}

	contacts := make([]profile.Profile, 0, len(ids))
	for _, id := range ids {
		contacts = append(contacts, resolved[id])
	}

	if err := s.apply(chat.ContactsLoaded{Contacts: ids, Profiles: contacts}); err != nil {
		return nil, err
	}
	s.log.Debug().Int("contacts", len(contacts)).Msg("contacts loaded")
	return contacts, nil
}

// RemoveContacts removes agents from the contact list, remotely first.
func (s *Service) RemoveContacts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no contacts given", ErrInvalidInput)
	}
	hashes, err := hash.DeserializeAll(ids)
	if err != nil {
		return fmt.Errorf("%w: contacts: %w", ErrInvalidInput, err)
	}

	req := zome.Request{Zome: zome.Contacts, Fn: zome.FnRemoveContacts, Payload: hashes}
	if err := s.call(ctx, req, nil); err != nil {
		return err
	}

	if err := s.apply(chat.ContactsRemoved{IDs: ids}); err != nil {
		return err
	}
	s.log.Info().Strs("contacts", ids).Msg("contacts removed")
	return nil
}
