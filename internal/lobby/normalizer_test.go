package lobby

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/core/profile"
	"github.com/hay-kot/lobby/internal/core/zome"
	"github.com/hay-kot/lobby/internal/core/zome/zometest"
)

func fileEntry(author hash.Hash, kind string, thumb []byte, created int64) zome.MessageEntry {
	body := &zome.FileBody{
		Metadata: zome.FileMetadata{FileName: "f." + kind, FileSize: 10, FileType: kind, FileHash: hash.Hash("file-" + kind)},
		FileType: zome.FileKind{Type: kind},
	}
	if thumb != nil {
		body.FileType.Payload = &zome.Thumbnail{Thumbnail: thumb}
	}
	return zome.MessageEntry{
		Author:   author,
		Receiver: hash.Hash("me"),
		Payload:  zome.RawPayload{File: body},
		Created:  zome.Timestamp{Secs: created},
	}
}

func output(conv hash.Hash, entries map[string]zome.MessageEntry) zome.BatchOutput {
	out := zome.BatchOutput{
		MessagesByConversation: map[string][]hash.Hash{},
		MessageContents:        map[string]zome.MessageContent{},
	}
	for id, e := range entries {
		h := hash.Hash(id)
		out.MessagesByConversation[conv.String()] = append(out.MessagesByConversation[conv.String()], h)
		out.MessageContents[h.String()] = zome.MessageContent{Element: zome.Element{EntryHash: h, Entry: e}}
	}
	return out
}

func TestNormalizer_FilePayloads(t *testing.T) {
	x := hash.Hash("agent-x")
	y := hash.Hash("agent-y")

	rec := &zometest.Recorder{Outputs: map[string]any{
		"profiles/get_agents_profiles": []zome.AgentProfile{
			{ID: x, Username: "x"},
			{ID: y, Username: "y"},
		},
	}}
	n := NewNormalizer(Directory(rec))

	thumb := []byte{0xff, 0xd8}
	out := output(x, map[string]zome.MessageEntry{
		"video": fileEntry(x, "VIDEO", thumb, 1),
		"image": fileEntry(y, "IMAGE", nil, 2),
		"other": fileEntry(x, "OTHER", thumb, 3),
		"text":  {Author: y, Receiver: hash.Hash("me"), Payload: zome.Text("caption"), Created: zome.Timestamp{Secs: 4}},
		"bare":  fileEntry(y, "VIDEO", nil, 5),
	})

	got, err := n.Normalize(context.Background(), View{}, []zome.BatchOutput{out})
	require.NoError(t, err)

	msgs := got.Messages(x.String())
	require.Len(t, msgs, 5)
	assert.Equal(t, 1, rec.Count(zome.Profiles, zome.FnAgentsProfiles))

	video := msgs[0].Payload.(message.FilePayload)
	assert.Equal(t, message.FileVideo, video.Type)
	assert.Equal(t, thumb, video.Thumbnail)
	assert.Equal(t, hash.Serialize([]byte("file-VIDEO")), video.Hash)

	image := msgs[1].Payload.(message.FilePayload)
	assert.Nil(t, image.Thumbnail)
	assert.Equal(t, "y", msgs[1].Author.Username)

	other := msgs[2].Payload.(message.FilePayload)
	assert.Equal(t, message.FileOther, other.Type)
	assert.Nil(t, other.Thumbnail, "only images and videos keep a thumbnail")

	assert.Equal(t, message.TextPayload{Text: "caption"}, msgs[3].Payload)

	bare := msgs[4].Payload.(message.FilePayload)
	assert.Equal(t, message.FileVideo, bare.Type)
	assert.Nil(t, bare.Thumbnail, "a video whose thumbnail never resolved has none")
}

func TestNormalizer_KnownAuthorsSkipDirectory(t *testing.T) {
	me := profile.Profile{ID: hash.Serialize([]byte("me")), Username: "me"}
	bob := hash.Hash("bob")

	rec := &zometest.Recorder{}
	n := NewNormalizer(Directory(rec))

	out := output(bob, map[string]zome.MessageEntry{
		"m1": {Author: bob, Receiver: hash.Hash("me"), Payload: zome.Text("hi"), Created: zome.Timestamp{Secs: 1}},
		"m2": {Author: hash.Hash("me"), Receiver: bob, Payload: zome.Text("yo"), Created: zome.Timestamp{Secs: 2}},
	})

	view := View{Me: &me, Known: map[string]profile.Profile{bob.String(): {ID: bob.String(), Username: "bob"}}}
	got, err := n.Normalize(context.Background(), view, []zome.BatchOutput{out})
	require.NoError(t, err)

	assert.Empty(t, rec.Calls)
	require.Len(t, got.Messages(bob.String()), 2)
	assert.Equal(t, "me", got.Messages(bob.String())[1].Author.Username)
}

func TestNormalizer_Errors(t *testing.T) {
	x := hash.Hash("agent-x")
	rec := &zometest.Recorder{Outputs: map[string]any{"profiles/get_agents_profiles": []zome.AgentProfile{}}}
	n := NewNormalizer(Directory(rec))

	t.Run("unknown author", func(t *testing.T) {
		out := output(x, map[string]zome.MessageEntry{
			"m": {Author: x, Payload: zome.Text("hi"), Created: zome.Timestamp{Secs: 1}},
		})
		_, err := n.Normalize(context.Background(), View{}, []zome.BatchOutput{out})
		assert.ErrorIs(t, err, profile.ErrUnresolved)
	})

	t.Run("listed without content", func(t *testing.T) {
		out := zome.BatchOutput{MessagesByConversation: map[string][]hash.Hash{x.String(): {hash.Hash("missing")}}}
		_, err := n.Normalize(context.Background(), View{}, []zome.BatchOutput{out})
		assert.ErrorIs(t, err, ErrTransport)
	})

	t.Run("unknown file type", func(t *testing.T) {
		known := View{Known: map[string]profile.Profile{x.String(): {ID: x.String(), Username: "x"}}}
		out := output(x, map[string]zome.MessageEntry{"m": fileEntry(x, "AUDIO", nil, 1)})
		_, err := n.Normalize(context.Background(), known, []zome.BatchOutput{out})
		assert.Error(t, err)
	})
}

func TestConversationOf(t *testing.T) {
	me := hash.Hash("me")
	other := hash.Hash("other")
	group := hash.Hash("group")

	tests := []struct {
		name  string
		entry zome.MessageEntry
		want  string
	}{
		{name: "group", entry: zome.MessageEntry{Author: other, GroupHash: group}, want: group.String()},
		{name: "sent by me", entry: zome.MessageEntry{Author: me, Receiver: other}, want: other.String()},
		{name: "received", entry: zome.MessageEntry{Author: other, Receiver: me}, want: other.String()},
		{name: "no author", entry: zome.MessageEntry{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, conversationOf(tt.entry, me))
		})
	}
}
