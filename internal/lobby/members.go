package lobby

import (
	"context"
	"fmt"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/zome"
)

// RemoveMembers removes agents from a group. The conductor validates the
// input; its "empty members" and "unknown group" answers map to
// ErrEmptyMembers and ErrGroupNotFound.
func (s *Service) RemoveMembers(ctx context.Context, groupID string, members []string) error {
	gid, err := hash.Deserialize(groupID)
	if err != nil {
		return fmt.Errorf("%w: group: %w", ErrInvalidInput, err)
	}
	hashes, err := hash.DeserializeAll(members)
	if err != nil {
		return fmt.Errorf("%w: members: %w", ErrInvalidInput, err)
	}

	req := zome.Request{
		Zome:    zome.Group,
		Fn:      zome.FnRemoveMembers,
		Payload: zome.RemoveMembersInput{Members: hashes, GroupID: gid},
	}

	var out zome.RemoveMembersOutput
	if err := s.call(ctx, req, &out); err != nil {
		return err
	}

	removed := make([]string, 0, len(out.Members))
	for _, m := range out.Members {
		removed = append(removed, hash.Serialize(m))
	}

	if _, ok := s.State().Conversation(groupID); !ok {
		s.log.Debug().Str("group", groupID).Msg("members removed from a group that is not loaded")
		return nil
	}
	if err := s.apply(chat.MembersRemoved{GroupID: groupID, Members: removed}); err != nil {
		return err
	}

	s.log.Info().Str("group", groupID).Strs("members", removed).Msg("members removed")
	return nil
}
