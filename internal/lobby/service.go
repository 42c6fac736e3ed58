// Package lobby keeps the local conversation state in step with the conductor:
// it fetches cursor-paginated batches, normalizes them, and applies sends,
// read receipts, pins and membership changes after the remote call succeeds.
package lobby

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/core/zome"
)

// Options configures a Service.
type Options struct {
	// BatchSize is used when a query does not set one.
	BatchSize int
	// LatestBatchSize bounds messages per conversation loaded by Sync.
	LatestBatchSize int
	// PayloadType is used when a query does not set one.
	PayloadType message.PayloadType
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.BatchSize < 1 {
		o.BatchSize = 20
	}
	if o.LatestBatchSize < 1 {
		o.LatestBatchSize = o.BatchSize
	}
	if o.PayloadType == "" {
		o.PayloadType = message.PayloadAll
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Service orchestrates conversation operations against a conductor.
type Service struct {
	caller     zome.Caller
	store      chat.Store
	opts       Options
	log        zerolog.Logger
	normalizer *Normalizer

	mu    sync.Mutex
	state chat.State
}

// New creates a Service. store may be nil, in which case state lives only in memory.
func New(caller zome.Caller, store chat.Store, opts Options, log zerolog.Logger) *Service {
	return &Service{
		caller:     caller,
		store:      store,
		opts:       opts.withDefaults(),
		log:        log,
		normalizer: NewNormalizer(Directory(caller)),
		state:      chat.New(),
	}
}

// Open loads persisted state.
func (s *Service) Open(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	st, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	s.log.Debug().Int("conversations", len(st.Conversations)).Int("messages", len(st.Messages)).Msg("state loaded")
	return nil
}

// Save persists the current state.
func (s *Service) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, s.State()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// State returns a copy of the current state.
func (s *Service) State() chat.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// apply folds ev into the state. Remote calls never happen under the lock.
func (s *Service) apply(ev chat.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := chat.Apply(s.state, ev)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Service) view(st chat.State) View {
	return View{Me: st.Me, Known: st.Profiles}
}

// call issues req and maps its error.
func (s *Service) call(ctx context.Context, req zome.Request, out any) error {
	if err := s.caller.Call(ctx, req, out); err != nil {
		s.log.Debug().Err(err).Str("zome", req.Zome).Str("fn", req.Fn).Msg("zome call failed")
		return mapError(req, err)
	}
	return nil
}

// kindOf returns the kind of a conversation, preferring an explicit one.
func kindOf(st chat.State, convID string, given chat.Kind) (chat.Kind, error) {
	switch given {
	case chat.KindP2P, chat.KindGroup:
		return given, nil
	case "":
	default:
		return "", fmt.Errorf("%w: unknown conversation kind %q", ErrInvalidInput, given)
	}

	c, ok := st.Conversation(convID)
	if !ok {
		return "", fmt.Errorf("%w: %s", chat.ErrConversationNotFound, convID)
	}
	return c.Kind, nil
}

// self returns the local agent or ErrNotSynced.
func self(st chat.State) (string, error) {
	me, ok := st.Self()
	if !ok {
		return "", ErrNotSynced
	}
	return me.ID, nil
}
