package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/core/profile"
)

var (
	base  = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	alice = profile.Profile{ID: "alice", Username: "alice"}
	bob   = profile.Profile{ID: "bob", Username: "bob"}
)

// msgs builds n text messages from author starting at minute offset from.
func msgs(prefix string, from, n int, author profile.Profile) []message.Message {
	out := make([]message.Message, n)
	for i := range out {
		out[i] = message.Message{
			ID:        fmt.Sprintf("%s%02d", prefix, from+i),
			Author:    author,
			Payload:   message.TextPayload{Text: "hi"},
			Timestamp: base.Add(time.Duration(from+i) * time.Minute),
		}
	}
	return out
}

func batch(direction Direction, ms []message.Message) BatchFetched {
	return BatchFetched{
		ConversationID: "bob",
		Kind:           KindP2P,
		Direction:      direction,
		Messages:       ms,
		Profiles:       []profile.Profile{alice, bob},
	}
}

func mustApply(t *testing.T, s State, ev Event) State {
	t.Helper()
	next, err := Apply(s, ev)
	require.NoError(t, err)
	return next
}

func ids(ms []message.Message) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestApply_OlderBatchIsPrepended(t *testing.T) {
	latest := msgs("m", 10, 5, bob)
	older := msgs("m", 5, 5, alice)

	s := mustApply(t, New(), batch(DirectionLatest, latest))
	s = mustApply(t, s, batch(DirectionOlder, older))

	c, ok := s.Conversation("bob")
	require.True(t, ok)
	assert.Equal(t, append(ids(older), ids(latest)...), c.Messages)
	assert.False(t, c.Exhausted)
}

func TestApply_DisjointMergesCommute(t *testing.T) {
	a := batch(DirectionOlder, msgs("m", 0, 4, alice))
	b := batch(DirectionAdjacent, msgs("m", 4, 3, bob))
	c := batch(DirectionLatest, msgs("m", 7, 5, alice))

	orders := [][]BatchFetched{
		{a, b, c},
		{c, b, a},
		{b, a, c},
		{c, a, b},
	}

	var want []string
	for i, order := range orders {
		s := New()
		for _, ev := range order {
			s = mustApply(t, s, ev)
		}
		got := s.Conversations["bob"].Messages
		if i == 0 {
			want = got
			continue
		}
		assert.Equal(t, want, got, "order %d", i)
	}
	assert.Len(t, want, 12)
}

func TestApply_MergeIsIdempotent(t *testing.T) {
	b := batch(DirectionAdjacent, msgs("m", 0, 5, alice))

	once := mustApply(t, New(), b)
	twice := mustApply(t, once, b)

	assert.Equal(t, once.Conversations["bob"].Messages, twice.Conversations["bob"].Messages)
	assert.Len(t, twice.Messages, 5)
}

func TestApply_OverlappingBatchesDedupe(t *testing.T) {
	s := mustApply(t, New(), batch(DirectionLatest, msgs("m", 0, 6, alice)))
	s = mustApply(t, s, batch(DirectionAdjacent, msgs("m", 3, 6, bob)))

	assert.Equal(t, []string{"m00", "m01", "m02", "m03", "m04", "m05", "m06", "m07", "m08"}, s.Conversations["bob"].Messages)
	assert.Equal(t, "alice", s.Messages["m03"].Author.ID, "existing content is kept")
}

func TestApply_ReadListsUnion(t *testing.T) {
	first := msgs("m", 0, 1, alice)
	first[0].ReadList = map[string]time.Time{"bob": base.Add(time.Hour)}

	second := msgs("m", 0, 1, alice)
	second[0].ReadList = map[string]time.Time{"carol": base.Add(2 * time.Hour)}

	s := mustApply(t, New(), batch(DirectionLatest, first))
	s = mustApply(t, s, batch(DirectionAdjacent, second))

	m := s.Messages["m00"]
	assert.True(t, m.IsReadBy("bob"))
	assert.True(t, m.IsReadBy("carol"))
}

func TestApply_EmptyOlderBatchExhausts(t *testing.T) {
	s := mustApply(t, New(), batch(DirectionLatest, msgs("m", 0, 2, alice)))

	s = mustApply(t, s, batch(DirectionAdjacent, nil))
	assert.False(t, s.Conversations["bob"].Exhausted)

	filtered := batch(DirectionOlder, nil)
	filtered.PayloadType = message.PayloadMedia
	s = mustApply(t, s, filtered)
	assert.False(t, s.Conversations["bob"].Exhausted, "filtered batches only exhaust their filter")

	s = mustApply(t, s, batch(DirectionOlder, nil))
	assert.True(t, s.Conversations["bob"].Exhausted)
	assert.Len(t, s.Conversations["bob"].Messages, 2)
}

func TestApply_UnresolvedAuthor(t *testing.T) {
	stranger := profile.Profile{ID: "mallory"}
	b := batch(DirectionLatest, msgs("m", 0, 1, stranger))

	s := New()
	got, err := Apply(s, b)
	require.ErrorIs(t, err, ErrUnresolvedAuthor)
	assert.Empty(t, got.Conversations)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := mustApply(t, New(), batch(DirectionLatest, msgs("m", 0, 3, alice)))
	before := s.Clone()

	_ = mustApply(t, s, batch(DirectionOlder, msgs("x", 0, 3, bob)))
	_ = mustApply(t, s, MessagePinned{ConversationID: "bob", MessageID: "m01"})
	_ = mustApply(t, s, MessagesRead{ConversationID: "bob", Reader: "bob", At: base, MessageIDs: []string{"m00"}})

	assert.Equal(t, before, s)
}

func TestApply_Pin(t *testing.T) {
	s := mustApply(t, New(), batch(DirectionLatest, msgs("m", 0, 3, alice)))

	tests := []struct {
		name    string
		ev      Event
		wantErr error
		want    []string
	}{
		{name: "pin", ev: MessagePinned{ConversationID: "bob", MessageID: "m01"}, want: []string{"m01"}},
		{name: "unknown conversation", ev: MessagePinned{ConversationID: "nobody", MessageID: "m01"}, wantErr: ErrConversationNotFound},
		{name: "unseen message", ev: MessagePinned{ConversationID: "bob", MessageID: "m99"}, wantErr: ErrMessageNotFound},
		{name: "unpin absent", ev: MessageUnpinned{ConversationID: "bob", MessageID: "m02"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(s, tt.ev)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Conversations["bob"].Pinned)
		})
	}
}

func TestApply_PinRoundTripAndIdempotence(t *testing.T) {
	s := mustApply(t, New(), batch(DirectionLatest, msgs("m", 0, 3, alice)))
	s = mustApply(t, s, MessagePinned{ConversationID: "bob", MessageID: "m00"})
	before := s.Clone()

	pinned := mustApply(t, s, MessagePinned{ConversationID: "bob", MessageID: "m02"})
	again := mustApply(t, pinned, MessagePinned{ConversationID: "bob", MessageID: "m02"})
	assert.Equal(t, []string{"m00", "m02"}, again.Conversations["bob"].Pinned)
	assert.Len(t, again.PinnedOf("bob"), 2)

	restored := mustApply(t, again, MessageUnpinned{ConversationID: "bob", MessageID: "m02"})
	assert.Equal(t, before.Conversations["bob"].Pinned, restored.Conversations["bob"].Pinned)
	assert.Equal(t, before.Pinned, restored.Pinned)
}

func TestApply_PinSnapshotDropsEmptyReply(t *testing.T) {
	ms := msgs("m", 0, 2, alice)
	ms[1].ReplyTo = &message.Reply{}

	s := mustApply(t, New(), batch(DirectionLatest, ms))
	s = mustApply(t, s, MessagePinned{ConversationID: "bob", MessageID: "m01"})

	assert.NotNil(t, s.Messages["m01"].ReplyTo)
	assert.Nil(t, s.Pinned["m01"].ReplyTo)
}

func TestApply_PinnedLoadedReplacesSet(t *testing.T) {
	s := mustApply(t, New(), batch(DirectionLatest, msgs("m", 5, 3, alice)))
	s = mustApply(t, s, MessagePinned{ConversationID: "bob", MessageID: "m05"})

	fetched := msgs("m", 0, 1, bob)
	s = mustApply(t, s, PinnedLoaded{
		ConversationID: "bob",
		Kind:           KindP2P,
		Messages:       fetched,
		Profiles:       []profile.Profile{bob},
	})

	c := s.Conversations["bob"]
	assert.Equal(t, []string{"m00"}, c.Pinned)
	assert.Equal(t, "m00", c.Messages[0], "pinned message joins the timeline")
	assert.NotContains(t, s.Pinned, "m05")
}

func TestApply_MessageSent(t *testing.T) {
	s := mustApply(t, New(), LatestLoaded{Me: alice})
	sent := msgs("s", 0, 1, alice)[0]

	s = mustApply(t, s, MessageSent{ConversationID: "bob", Kind: KindP2P, Message: sent})

	require.Len(t, s.Timeline("bob"), 1)
	assert.Equal(t, "bob", s.Timeline("bob")[0].ConversationID)
}

func TestApply_MessagesRead(t *testing.T) {
	s := mustApply(t, New(), batch(DirectionLatest, msgs("m", 0, 2, bob)))

	s = mustApply(t, s, MessagesRead{ConversationID: "bob", Reader: "alice", At: base, MessageIDs: []string{"m00", "m01"}})
	assert.True(t, s.Messages["m00"].IsReadBy("alice"))
	assert.True(t, s.Messages["m01"].IsReadBy("alice"))

	_, err := Apply(s, MessagesRead{ConversationID: "bob", Reader: "alice", At: base, MessageIDs: []string{"zz"}})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestApply_LatestLoadedAndMembersRemoved(t *testing.T) {
	s := mustApply(t, New(), LatestLoaded{
		Me:         alice,
		Contacts:   []string{"bob"},
		Preference: Preference{ReadReceipt: true},
		Groups: []GroupInfo{{
			ID:      "g1",
			Name:    "team",
			Members: []string{"bob", "carol"},
			Creator: "alice",
		}},
		Batches: []BatchFetched{{
			ConversationID: "g1",
			Kind:           KindGroup,
			Direction:      DirectionLatest,
			Messages:       msgs("g", 0, 2, bob),
		}},
		Profiles: []profile.Profile{bob},
	})

	me, ok := s.Self()
	require.True(t, ok)
	assert.Equal(t, alice, me)
	assert.True(t, s.Preference.ReadReceipt)
	assert.Equal(t, "team", s.DisplayName("g1"))
	assert.Len(t, s.Timeline("g1"), 2)

	s = mustApply(t, s, MembersRemoved{GroupID: "g1", Members: []string{"carol"}})
	assert.Equal(t, []string{"bob"}, s.Conversations["g1"].Members)

	_, err := Apply(s, MembersRemoved{GroupID: "nope", Members: []string{"bob"}})
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestApply_UnknownEvent(t *testing.T) {
	_, err := Apply(New(), nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestState_List(t *testing.T) {
	s := mustApply(t, New(), batch(DirectionLatest, msgs("m", 0, 2, alice)))
	s = mustApply(t, s, BatchFetched{
		ConversationID: "carol",
		Kind:           KindP2P,
		Direction:      DirectionLatest,
		Messages:       msgs("c", 30, 1, alice),
		Profiles:       []profile.Profile{alice},
	})

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "carol", list[0].ID)
	assert.Equal(t, "bob", s.DisplayName("bob"))
}

func TestApply_Contacts(t *testing.T) {
	s := mustApply(t, New(), ContactsLoaded{Contacts: []string{"bob", "carol"}, Profiles: []profile.Profile{bob}})
	assert.Equal(t, []string{"bob", "carol"}, s.Contacts)
	assert.Equal(t, bob, s.Profiles["bob"])

	next := mustApply(t, s, ContactsRemoved{IDs: []string{"bob", "dave"}})
	assert.Equal(t, []string{"carol"}, next.Contacts)
	assert.Contains(t, next.Profiles, "bob")
	assert.Equal(t, []string{"bob", "carol"}, s.Contacts, "input state is untouched")
}
