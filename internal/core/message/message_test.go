package message

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/profile"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id string, offset time.Duration) Message {
	return Message{
		ID:        id,
		Author:    profile.Profile{ID: "alice", Username: "alice"},
		Payload:   TextPayload{Text: id},
		Timestamp: t0.Add(offset),
	}
}

func TestLess(t *testing.T) {
	tests := []struct {
		name string
		a, b Message
		want bool
	}{
		{"earlier first", msg("b", 0), msg("a", time.Second), true},
		{"later second", msg("a", time.Second), msg("b", 0), false},
		{"tie broken by id", msg("a", 0), msg("b", 0), true},
		{"same message", msg("a", 0), msg("a", 0), false},
		{"tie broken by raw id bytes", msg(hash.Serialize([]byte{0x3f}), 0), msg(hash.Serialize([]byte{0xf8}), 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Less(tt.a, tt.b))
		})
	}
}

func TestCompare_SortsByTimestampThenID(t *testing.T) {
	msgs := []Message{msg("c", 2*time.Second), msg("b", 0), msg("a", 0)}
	slices.SortFunc(msgs, Compare)

	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMarkRead_KeepsEarliest(t *testing.T) {
	m := msg("a", 0)

	m.MarkRead("bob", t0.Add(time.Minute))
	m.MarkRead("bob", t0.Add(2*time.Minute))
	assert.Equal(t, t0.Add(time.Minute), m.ReadList["bob"])

	m.MarkRead("bob", t0.Add(30*time.Second))
	assert.Equal(t, t0.Add(30*time.Second), m.ReadList["bob"])
	assert.True(t, m.IsReadBy("bob"))
	assert.False(t, m.IsReadBy("carol"))
}

func TestClone_DoesNotShareReadList(t *testing.T) {
	m := msg("a", 0)
	m.MarkRead("bob", t0)

	c := m.Clone()
	c.MarkRead("carol", t0)

	assert.False(t, m.IsReadBy("carol"))
	assert.True(t, c.IsReadBy("bob"))
}

func TestMessage_JSONKeepsPayloadVariant(t *testing.T) {
	m := msg("a", 0)
	m.Payload = FilePayload{Name: "cat.png", Size: 42, Type: FileImage, Hash: "uAbc", Thumbnail: []byte{1, 2}}
	m.ReplyTo = &Reply{ID: "z", AuthorID: "bob", Payload: TextPayload{Text: "hi"}, Timestamp: t0}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, m.Payload, got.Payload)
	require.NotNil(t, got.ReplyTo)
	assert.Equal(t, TextPayload{Text: "hi"}, got.ReplyTo.Payload)
	assert.True(t, m.Timestamp.Equal(got.Timestamp))
}

func TestUnmarshalPayload_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown type", `{"type":"AUDIO"}`},
		{"file without body", `{"type":"FILE"}`},
		{"not json", `nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalPayload([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestPayloadType_Matches(t *testing.T) {
	text := TextPayload{Text: "x"}
	image := FilePayload{Type: FileImage}
	other := FilePayload{Type: FileOther}

	tests := []struct {
		filter PayloadType
		p      Payload
		want   bool
	}{
		{PayloadAll, text, true},
		{PayloadAll, other, true},
		{PayloadText, text, true},
		{PayloadText, image, false},
		{PayloadFile, other, true},
		{PayloadFile, text, false},
		{PayloadMedia, image, true},
		{PayloadMedia, other, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter)+"/"+tt.p.Kind(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.p))
		})
	}
}

func TestParsePayloadType(t *testing.T) {
	got, err := ParsePayloadType("MEDIA")
	require.NoError(t, err)
	assert.Equal(t, PayloadMedia, got)

	got, err = ParsePayloadType("")
	require.NoError(t, err)
	assert.Equal(t, PayloadAll, got)

	_, err = ParsePayloadType("audio")
	assert.Error(t, err)
}

func TestCursor(t *testing.T) {
	var latest *Cursor
	assert.NoError(t, latest.Validate())
	assert.Equal(t, "latest", latest.String())

	c := CursorOf(msg("a", 0))
	assert.NoError(t, c.Validate())
	assert.Equal(t, "a", c.MessageID)

	assert.Error(t, (&Cursor{Timestamp: t0}).Validate())
	assert.Error(t, (&Cursor{MessageID: "a"}).Validate())
}

func TestMidpoint(t *testing.T) {
	_, ok := Midpoint(nil)
	assert.False(t, ok)

	msgs := []Message{msg("a", 0), msg("b", 1), msg("c", 2), msg("d", 3), msg("e", 4)}
	m, ok := Midpoint(msgs)
	require.True(t, ok)
	assert.Equal(t, "c", m.ID)

	o, ok := Oldest(msgs)
	require.True(t, ok)
	assert.Equal(t, "a", o.ID)
}
