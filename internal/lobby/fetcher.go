package lobby

import (
	"context"
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/core/zome"
)

// Query selects a batch of a conversation's history.
type Query struct {
	ConversationID string
	// Kind is looked up in local state when empty.
	Kind        chat.Kind
	BatchSize   int
	PayloadType message.PayloadType
	// Cursor marks the boundary of already fetched data; nil means latest.
	Cursor *message.Cursor
}

// Batch is the result of a fetch, ordered oldest first.
type Batch struct {
	Messages []message.Message
	// Exhausted is set when an older batch came back empty: nothing older
	// matches the query's payload filter. Only an unfiltered query marks the
	// conversation itself exhausted.
	Exhausted bool
}

func (q Query) validate(adjacent bool) error {
	var errs criterio.FieldErrorsBuilder

	if q.ConversationID == "" {
		errs = errs.Append("conversation", errors.New("is required"))
	} else if _, err := hash.Deserialize(q.ConversationID); err != nil {
		errs = errs.Append("conversation", err)
	}
	if q.BatchSize < 1 {
		errs = errs.Append("batch_size", fmt.Errorf("must be at least 1, got %d", q.BatchSize))
	}
	if _, err := message.ParsePayloadType(string(q.PayloadType)); err != nil {
		errs = errs.Append("payload_type", err)
	}
	if err := q.Cursor.Validate(); err != nil {
		errs = errs.Append("cursor", err)
	} else if q.Cursor != nil {
		if _, err := hash.Deserialize(q.Cursor.MessageID); err != nil {
			errs = errs.Append("cursor", err)
		}
	}
	if adjacent && q.Cursor == nil {
		errs = errs.Append("cursor", errors.New("is required for adjacent batches"))
	}

	if err := errs.ToError(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// NextMessages fetches up to BatchSize messages strictly older than the
// cursor, or the latest ones when the cursor is nil. An empty unfiltered
// result marks the conversation exhausted. Failures are not retried.
func (s *Service) NextMessages(ctx context.Context, q Query) (Batch, error) {
	return s.fetch(ctx, q, chat.DirectionOlder)
}

// AdjacentMessages fetches up to BatchSize messages on each side of the cursor.
func (s *Service) AdjacentMessages(ctx context.Context, q Query) (Batch, error) {
	return s.fetch(ctx, q, chat.DirectionAdjacent)
}

func (s *Service) fetch(ctx context.Context, q Query, dir chat.Direction) (Batch, error) {
	if q.BatchSize == 0 {
		q.BatchSize = s.opts.BatchSize
	}
	if q.PayloadType == "" {
		q.PayloadType = s.opts.PayloadType
	}
	if err := q.validate(dir == chat.DirectionAdjacent); err != nil {
		return Batch{}, err
	}
	q.PayloadType, _ = message.ParsePayloadType(string(q.PayloadType))

	st := s.State()
	kind, err := kindOf(st, q.ConversationID, q.Kind)
	if err != nil {
		return Batch{}, err
	}

	req := zome.Request{Payload: filterOf(q, kind)}
	switch {
	case kind == chat.KindGroup && dir == chat.DirectionAdjacent:
		req.Zome, req.Fn = zome.Group, zome.FnAdjacentGroup
	case kind == chat.KindGroup:
		req.Zome, req.Fn = zome.Group, zome.FnNextGroupBatch
	case dir == chat.DirectionAdjacent:
		req.Zome, req.Fn = zome.P2PMessage, zome.FnAdjacent
	default:
		req.Zome, req.Fn = zome.P2PMessage, zome.FnNextBatch
	}

	log := s.log.With().
		Str("conversation", q.ConversationID).
		Str("direction", string(dir)).
		Stringer("cursor", q.Cursor).
		Logger()

	var out zome.BatchOutput
	if err := s.call(ctx, req, &out); err != nil {
		return Batch{}, err
	}

	norm, err := s.normalizer.Normalize(ctx, s.view(st), []zome.BatchOutput{out})
	if err != nil {
		return Batch{}, fmt.Errorf("normalize batch: %w", err)
	}

	msgs := norm.Messages(q.ConversationID)
	for convID := range norm.ByConversation {
		if convID != q.ConversationID {
			log.Warn().Str("other", convID).Msg("batch contains messages of another conversation, ignoring them")
		}
	}

	err = s.apply(chat.BatchFetched{
		ConversationID: q.ConversationID,
		Kind:           kind,
		Direction:      dir,
		PayloadType:    q.PayloadType,
		Messages:       msgs,
		Profiles:       norm.Profiles,
	})
	if err != nil {
		return Batch{}, err
	}

	batch := Batch{Messages: msgs, Exhausted: dir == chat.DirectionOlder && len(msgs) == 0}
	log.Debug().Int("count", len(msgs)).Bool("exhausted", batch.Exhausted).Msg("batch merged")
	return batch, nil
}

func filterOf(q Query, kind chat.Kind) zome.BatchFilter {
	id := hash.MustDeserialize(q.ConversationID)

	f := zome.BatchFilter{
		BatchSize:   q.BatchSize,
		PayloadType: string(q.PayloadType),
	}
	if kind == chat.KindGroup {
		f.GroupID = id
	} else {
		f.Conversant = id
	}

	if q.Cursor != nil {
		ts := zome.FromTime(q.Cursor.Timestamp)
		f.LastFetchedTimestamp = &ts
		f.LastFetchedMessageID = hash.MustDeserialize(q.Cursor.MessageID)
	}
	return f
}

// OldestCursor returns the cursor at the oldest loaded message of a
// conversation, or nil when nothing is loaded.
func (s *Service) OldestCursor(convID string) *message.Cursor {
	timeline := s.State().Timeline(convID)
	if m, ok := message.Oldest(timeline); ok {
		return message.CursorOf(m)
	}
	return nil
}
