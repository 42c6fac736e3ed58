package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/core/zome"
)

// SendOptions configures SendMessage.
type SendOptions struct {
	ConversationID string
	// Kind is looked up in local state when empty. Set it to start a new
	// direct conversation.
	Kind    chat.Kind
	Text    string
	ReplyTo string
}

// SendMessage sends a text message and adds it to the conversation once the
// conductor has committed it.
func (s *Service) SendMessage(ctx context.Context, opts SendOptions) (message.Message, error) {
	text := strings.TrimSpace(opts.Text)
	if text == "" {
		return message.Message{}, fmt.Errorf("%w: message text is empty", ErrInvalidInput)
	}

	st := s.State()
	if _, err := self(st); err != nil {
		return message.Message{}, err
	}

	kind, err := kindOf(st, opts.ConversationID, opts.Kind)
	if err != nil {
		return message.Message{}, err
	}

	target, err := hash.Deserialize(opts.ConversationID)
	if err != nil {
		return message.Message{}, fmt.Errorf("%w: conversation: %w", ErrInvalidInput, err)
	}

	in := zome.SendInput{Payload: zome.Text(text)}
	if opts.ReplyTo != "" {
		if in.ReplyTo, err = hash.Deserialize(opts.ReplyTo); err != nil {
			return message.Message{}, fmt.Errorf("%w: reply: %w", ErrInvalidInput, err)
		}
	}

	zomeName := zome.P2PMessage
	if kind == chat.KindGroup {
		zomeName = zome.Group
		in.GroupHash = target
	} else {
		in.Receiver = target
	}
	req := zome.Request{Zome: zomeName, Fn: zome.FnSend, Payload: in}

	var content zome.MessageContent
	if err := s.call(ctx, req, &content); err != nil {
		return message.Message{}, err
	}

	out := zome.BatchOutput{
		MessagesByConversation: map[string][]hash.Hash{opts.ConversationID: {content.Element.EntryHash}},
		MessageContents:        map[string]zome.MessageContent{hash.Serialize(content.Element.EntryHash): content},
	}
	norm, err := s.normalizer.Normalize(ctx, s.view(st), []zome.BatchOutput{out})
	if err != nil {
		return message.Message{}, fmt.Errorf("normalize sent message: %w", err)
	}

	msgs := norm.Messages(opts.ConversationID)
	if len(msgs) != 1 {
		return message.Message{}, errors.New("conductor did not return the sent message")
	}

	if err := s.apply(chat.MessageSent{ConversationID: opts.ConversationID, Kind: kind, Message: msgs[0]}); err != nil {
		return message.Message{}, err
	}

	s.log.Info().Str("conversation", opts.ConversationID).Str("message", msgs[0].ID).Msg("message sent")
	return msgs[0], nil
}
