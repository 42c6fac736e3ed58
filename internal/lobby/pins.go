package lobby

import (
	"context"
	"fmt"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/core/zome"
)

// pinTarget resolves the zome and addressing fields for a pin operation.
func pinTarget(c chat.Conversation) (zomeName string, conversant, group hash.Hash, err error) {
	id, err := hash.Deserialize(c.ID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("%w: conversation: %w", ErrInvalidInput, err)
	}
	if c.Kind == chat.KindGroup {
		return zome.Group, nil, id, nil
	}
	return zome.P2PMessage, id, nil, nil
}

// Pin pins a loaded message. The conductor is updated first; local state
// changes only after it succeeds. Pinning an already pinned message is not
// an error.
func (s *Service) Pin(ctx context.Context, convID, msgID string) error {
	return s.togglePin(ctx, convID, msgID, true)
}

// Unpin removes a message from the pinned set. Unpinning a message that is
// not pinned is not an error.
func (s *Service) Unpin(ctx context.Context, convID, msgID string) error {
	return s.togglePin(ctx, convID, msgID, false)
}

func (s *Service) togglePin(ctx context.Context, convID, msgID string, pin bool) error {
	st := s.State()

	c, ok := st.Conversation(convID)
	if !ok {
		return fmt.Errorf("%w: %s", chat.ErrConversationNotFound, convID)
	}
	if pin && !c.Has(msgID) {
		return fmt.Errorf("%w: %s", chat.ErrMessageNotFound, msgID)
	}

	msgHash, err := hash.Deserialize(msgID)
	if err != nil {
		return fmt.Errorf("%w: message: %w", ErrInvalidInput, err)
	}

	zomeName, conversant, group, err := pinTarget(c)
	if err != nil {
		return err
	}

	req := zome.Request{
		Zome:    zomeName,
		Fn:      zome.FnUnpin,
		Payload: zome.PinInput{Conversant: conversant, GroupHash: group, MessageHash: msgHash},
	}
	var ev chat.Event = chat.MessageUnpinned{ConversationID: convID, MessageID: msgID}
	if pin {
		req.Fn = zome.FnPin
		ev = chat.MessagePinned{ConversationID: convID, MessageID: msgID}
	}

	if err := s.call(ctx, req, nil); err != nil {
		return err
	}
	if err := s.apply(ev); err != nil {
		return err
	}

	s.log.Info().Str("conversation", convID).Str("message", msgID).Bool("pinned", pin).Msg("pin updated")
	return nil
}

// PinnedMessages fetches the pinned messages of a conversation and makes them
// its local pinned set.
func (s *Service) PinnedMessages(ctx context.Context, convID string) ([]message.Message, error) {
	st := s.State()

	c, ok := st.Conversation(convID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", chat.ErrConversationNotFound, convID)
	}

	zomeName, conversant, group, err := pinTarget(c)
	if err != nil {
		return nil, err
	}

	req := zome.Request{
		Zome:    zomeName,
		Fn:      zome.FnPinned,
		Payload: zome.PinnedInput{Conversant: conversant, GroupHash: group},
	}

	var out zome.BatchOutput
	if err := s.call(ctx, req, &out); err != nil {
		return nil, err
	}

	norm, err := s.normalizer.Normalize(ctx, s.view(st), []zome.BatchOutput{out})
	if err != nil {
		return nil, fmt.Errorf("normalize pinned: %w", err)
	}

	err = s.apply(chat.PinnedLoaded{
		ConversationID: convID,
		Kind:           c.Kind,
		Messages:       norm.Messages(convID),
		Profiles:       norm.Profiles,
	})
	if err != nil {
		return nil, err
	}

	return s.State().PinnedOf(convID), nil
}
