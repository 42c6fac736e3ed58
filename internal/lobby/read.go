package lobby

import (
	"context"
	"fmt"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/zome"
)

// ReadMessages sends read receipts for loaded messages and records the local
// agent in their read lists. Messages already read are skipped; when nothing
// is left no call is made.
func (s *Service) ReadMessages(ctx context.Context, convID string, ids []string) error {
	st := s.State()

	me, err := self(st)
	if err != nil {
		return err
	}

	c, ok := st.Conversation(convID)
	if !ok {
		return fmt.Errorf("%w: %s", chat.ErrConversationNotFound, convID)
	}

	var unread []string
	for _, id := range ids {
		if !c.Has(id) {
			return fmt.Errorf("%w: %s", chat.ErrMessageNotFound, id)
		}
		if m := st.Messages[id]; !m.IsReadBy(me) && m.Author.ID != me {
			unread = append(unread, id)
		}
	}
	if len(unread) == 0 {
		return nil
	}

	hashes, err := hash.DeserializeAll(unread)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	target, err := hash.Deserialize(convID)
	if err != nil {
		return fmt.Errorf("%w: conversation: %w", ErrInvalidInput, err)
	}

	now := s.opts.Now()
	in := zome.ReadInput{
		Reader:        hash.MustDeserialize(me),
		Timestamp:     zome.FromTime(now),
		MessageHashes: hashes,
	}

	req := zome.Request{Zome: zome.P2PMessage, Fn: zome.FnRead}
	if c.Kind == chat.KindGroup {
		req.Zome, req.Fn = zome.Group, zome.FnReadGroup
		in.GroupHash = target
	} else {
		in.Sender = target
	}
	req.Payload = in

	if err := s.call(ctx, req, nil); err != nil {
		return err
	}

	return s.apply(chat.MessagesRead{
		ConversationID: convID,
		Reader:         me,
		At:             zome.FromTime(now).Time(),
		MessageIDs:     unread,
	})
}
