package lobby

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/core/profile"
	"github.com/hay-kot/lobby/internal/core/zome"
)

// View is what the normalizer needs to know about local state.
type View struct {
	Me    *profile.Profile
	Known map[string]profile.Profile
}

// Normalized is the result of normalizing one or more batch outputs.
type Normalized struct {
	// ByConversation holds messages per conversation id, oldest first.
	ByConversation map[string][]message.Message
	// Profiles holds every profile resolved while normalizing, including
	// those that were already known.
	Profiles []profile.Profile
}

// Messages returns the messages of one conversation.
func (n Normalized) Messages(convID string) []message.Message {
	return n.ByConversation[convID]
}

// Normalizer converts raw zome records into canonical messages.
type Normalizer struct {
	resolver *profile.Resolver
}

// NewNormalizer creates a Normalizer resolving unknown authors through dir.
func NewNormalizer(dir profile.Directory) *Normalizer {
	return &Normalizer{resolver: profile.NewResolver(dir)}
}

type rawMessage struct {
	convID  string
	content zome.MessageContent
}

// Normalize converts outputs into messages keyed by conversation.
//
// Authors that are neither in view.Known nor view.Me are resolved with a
// single directory lookup, together with extra ids the caller needs profiles
// for. Replies are converted one level deep.
func (n *Normalizer) Normalize(ctx context.Context, view View, outputs []zome.BatchOutput, extra ...string) (Normalized, error) {
	var me hash.Hash
	if view.Me != nil {
		var err error
		if me, err = hash.Deserialize(view.Me.ID); err != nil {
			return Normalized{}, fmt.Errorf("local profile: %w", err)
		}
	}

	raws := make(map[string]rawMessage)
	for _, out := range outputs {
		if err := collect(raws, out, me); err != nil {
			return Normalized{}, err
		}
	}

	ids := slices.Clone(extra)
	for _, id := range slices.Sorted(maps.Keys(raws)) {
		ids = append(ids, hash.Serialize(raws[id].content.Element.Entry.Author))
	}

	profiles, err := n.resolver.Resolve(ctx, ids, view.Known, view.Me)
	if err != nil {
		return Normalized{}, err
	}

	result := Normalized{ByConversation: make(map[string][]message.Message)}
	for id, raw := range raws {
		m, err := toMessage(id, raw, profiles)
		if err != nil {
			return Normalized{}, err
		}
		result.ByConversation[raw.convID] = append(result.ByConversation[raw.convID], m)
	}

	for _, msgs := range result.ByConversation {
		slices.SortFunc(msgs, message.Compare)
	}

	for _, id := range slices.Sorted(maps.Keys(profiles)) {
		result.Profiles = append(result.Profiles, profiles[id])
	}
	return result, nil
}

// collect indexes the contents of out by serialized message id. Contents
// listed under a conversation key take that key; others derive it from the
// entry.
func collect(raws map[string]rawMessage, out zome.BatchOutput, me hash.Hash) error {
	listed := make(map[string]string)
	for convID, hashes := range out.MessagesByConversation {
		for _, h := range hashes {
			listed[hash.Serialize(h)] = convID
		}
	}

	for id := range listed {
		if _, ok := out.MessageContents[id]; !ok {
			return fmt.Errorf("%w: batch lists message %s without content", ErrTransport, id)
		}
	}

	for key, content := range out.MessageContents {
		id := hash.Serialize(content.Element.EntryHash)
		if len(content.Element.EntryHash) == 0 {
			id = key
		}

		convID, ok := listed[key]
		if !ok {
			convID = conversationOf(content.Element.Entry, me)
		}
		if convID == "" {
			return fmt.Errorf("%w: cannot place message %s in a conversation", ErrTransport, id)
		}

		raws[id] = rawMessage{convID: convID, content: content}
	}
	return nil
}

// conversationOf returns the group hash for group messages. A direct message
// belongs to the conversation keyed by the agent on the other side.
func conversationOf(e zome.MessageEntry, me hash.Hash) string {
	switch {
	case len(e.GroupHash) > 0:
		return hash.Serialize(e.GroupHash)
	case len(me) > 0 && bytes.Equal(e.Author, me):
		if len(e.Receiver) == 0 {
			return ""
		}
		return hash.Serialize(e.Receiver)
	case len(e.Author) > 0:
		return hash.Serialize(e.Author)
	default:
		return ""
	}
}

func toMessage(id string, raw rawMessage, profiles map[string]profile.Profile) (message.Message, error) {
	e := raw.content.Element.Entry

	payload, err := toPayload(e.Payload)
	if err != nil {
		return message.Message{}, fmt.Errorf("message %s: %w", id, err)
	}

	m := message.Message{
		ID:             id,
		ConversationID: raw.convID,
		Author:         profiles[hash.Serialize(e.Author)],
		Payload:        payload,
		Timestamp:      e.Created.Time(),
	}

	if e.ReplyTo != nil && len(e.ReplyTo.ID) > 0 {
		replyPayload, err := toPayload(e.ReplyTo.Content.Payload)
		if err != nil {
			return message.Message{}, fmt.Errorf("reply of message %s: %w", id, err)
		}
		m.ReplyTo = &message.Reply{
			ID:        hash.Serialize(e.ReplyTo.ID),
			AuthorID:  hash.Serialize(e.ReplyTo.Content.Author),
			Payload:   replyPayload,
			Timestamp: e.ReplyTo.Content.Created.Time(),
		}
	}

	for reader, at := range raw.content.ReadList {
		m.MarkRead(reader, at.Time())
	}
	return m, nil
}

// toPayload maps the tagged wire payload onto the closed Payload set. Only
// image and video files keep a thumbnail.
func toPayload(p zome.RawPayload) (message.Payload, error) {
	switch {
	case p.Text != nil:
		return message.TextPayload{Text: p.Text.Payload}, nil
	case p.File != nil:
		ft := message.FileType(p.File.FileType.Type)
		switch ft {
		case message.FileImage, message.FileVideo, message.FileOther:
		default:
			return nil, fmt.Errorf("unknown file type %q", p.File.FileType.Type)
		}

		fp := message.FilePayload{
			Name: p.File.Metadata.FileName,
			Size: p.File.Metadata.FileSize,
			Type: ft,
			Hash: hash.Serialize(p.File.Metadata.FileHash),
		}
		if fp.HasThumbnail() && p.File.FileType.Payload != nil {
			fp.Thumbnail = slices.Clone(p.File.FileType.Payload.Thumbnail)
		}
		return fp, nil
	default:
		return nil, fmt.Errorf("empty payload")
	}
}
