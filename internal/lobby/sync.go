package lobby

import (
	"context"
	"fmt"
	"slices"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/zome"
)

func serializeAll(hs []hash.Hash) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, hash.Serialize(h))
	}
	return out
}

// Sync hydrates local state from the conductor's aggregated snapshot: the
// local profile, contacts, blocked agents, preferences, groups and the latest
// messages of every conversation. Profiles of contacts, group members and
// message authors are resolved with one directory lookup.
func (s *Service) Sync(ctx context.Context) error {
	req := zome.Request{
		Zome:    zome.Aggregator,
		Fn:      zome.FnLatestData,
		Payload: zome.LatestInput{BatchSize: s.opts.LatestBatchSize},
	}

	var data zome.LatestData
	if err := s.call(ctx, req, &data); err != nil {
		return err
	}
	if len(data.UserInfo.ID) == 0 {
		return fmt.Errorf("%w: latest data has no user info", ErrTransport)
	}

	me := toProfile(data.UserInfo)
	st := s.State()

	contacts := serializeAll(data.AddedContacts)
	blocked := serializeAll(data.BlockedContacts)

	extra := slices.Clone(contacts)
	groups := make([]chat.GroupInfo, 0, len(data.Groups))
	for _, g := range data.Groups {
		info := chat.GroupInfo{
			ID:        hash.Serialize(g.GroupID),
			Name:      g.Name,
			Members:   serializeAll(g.Members),
			Creator:   hash.Serialize(g.Creator),
			CreatedAt: g.Created.Time(),
		}
		groups = append(groups, info)
		extra = append(extra, info.Creator)
		extra = append(extra, info.Members...)
	}

	norm, err := s.normalizer.Normalize(ctx, View{Me: &me, Known: st.Profiles},
		[]zome.BatchOutput{data.LatestGroupMessages, data.LatestP2PMessages}, extra...)
	if err != nil {
		return fmt.Errorf("normalize latest messages: %w", err)
	}

	isGroup := make(map[string]bool, len(groups))
	for _, g := range groups {
		isGroup[g.ID] = true
	}

	ev := chat.LatestLoaded{
		Me:         me,
		Contacts:   contacts,
		Blocked:    blocked,
		Preference: chat.Preference(data.GlobalPreference),
		Groups:     groups,
		Profiles:   norm.Profiles,
		Batches:    batches(norm, isGroup),
	}

	if err := s.apply(ev); err != nil {
		return err
	}

	s.log.Info().
		Str("me", me.Username).
		Int("groups", len(groups)).
		Int("contacts", len(contacts)).
		Int("conversations", len(ev.Batches)).
		Msg("synced")
	return nil
}

func batches(n Normalized, isGroup map[string]bool) []chat.BatchFetched {
	ids := make([]string, 0, len(n.ByConversation))
	for id := range n.ByConversation {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]chat.BatchFetched, 0, len(ids))
	for _, id := range ids {
		kind := chat.KindP2P
		if isGroup[id] {
			kind = chat.KindGroup
		}
		out = append(out, chat.BatchFetched{
			ConversationID: id,
			Kind:           kind,
			Direction:      chat.DirectionLatest,
			Messages:       n.ByConversation[id],
		})
	}
	return out
}
