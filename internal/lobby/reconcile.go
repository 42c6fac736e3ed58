package lobby

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/message"
)

// Reconciled reports what Reconcile fetched.
type Reconciled struct {
	Older    Batch
	Adjacent *Batch
}

// Reconcile fills gaps in a conversation the way a chat view does while
// scrolling: it fetches the batch before the oldest loaded message and, once
// at least batchSize messages are loaded, the batch around the midpoint. Both
// fetches run concurrently; overlapping results are deduplicated on merge.
func (s *Service) Reconcile(ctx context.Context, convID string, batchSize int) (Reconciled, error) {
	if batchSize < 1 {
		return Reconciled{}, fmt.Errorf("%w: batch size must be at least 1", ErrInvalidInput)
	}

	st := s.State()
	c, ok := st.Conversation(convID)
	if !ok {
		return Reconciled{}, fmt.Errorf("%w: %s", chat.ErrConversationNotFound, convID)
	}
	timeline := st.Timeline(convID)

	var res Reconciled
	g, gctx := errgroup.WithContext(ctx)

	if c.Exhausted {
		res.Older.Exhausted = true
	} else {
		var cursor *message.Cursor
		if m, ok := message.Oldest(timeline); ok {
			cursor = message.CursorOf(m)
		}
		g.Go(func() error {
			b, err := s.NextMessages(gctx, Query{
				ConversationID: convID,
				Kind:           c.Kind,
				BatchSize:      batchSize,
				PayloadType:    message.PayloadAll,
				Cursor:         cursor,
			})
			res.Older = b
			return err
		})
	}

	if mid, ok := message.Midpoint(timeline); ok && len(timeline) >= batchSize {
		g.Go(func() error {
			b, err := s.AdjacentMessages(gctx, Query{
				ConversationID: convID,
				Kind:           c.Kind,
				BatchSize:      batchSize,
				PayloadType:    message.PayloadAll,
				Cursor:         message.CursorOf(mid),
			})
			res.Adjacent = &b
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return Reconciled{}, err
	}
	return res, nil
}
