package zometest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/zome"
)

// Conductor is an in-memory network of agents answering the zome functions
// the client uses. Each agent talks to it through its own Caller.
type Conductor struct {
	mu sync.Mutex

	seq      int
	clock    time.Time
	agents   map[string]*agent
	groups   map[string]*group
	messages map[string]*stored
	// p2p pins keyed by the sorted pair of agents.
	pins map[string][]string
}

type agent struct {
	id         hash.Hash
	username   string
	contacts   []hash.Hash
	blocked    []hash.Hash
	preference zome.Preference
}

type group struct {
	id      hash.Hash
	name    string
	creator hash.Hash
	members []hash.Hash
	created zome.Timestamp
	pinned  []string
}

type stored struct {
	id      hash.Hash
	entry   zome.MessageEntry
	readers map[string]zome.Timestamp
}

// NewConductor creates an empty network whose clock starts at start and
// advances one second per committed entry.
func NewConductor(start time.Time) *Conductor {
	return &Conductor{
		clock:    start,
		agents:   make(map[string]*agent),
		groups:   make(map[string]*group),
		messages: make(map[string]*stored),
		pins:     make(map[string][]string),
	}
}

func (c *Conductor) newHash(kind string) hash.Hash {
	c.seq++
	sum := sha256.Sum256(fmt.Appendf(nil, "%s-%d", kind, c.seq))
	return hash.Hash(sum[:])
}

func (c *Conductor) tick() zome.Timestamp {
	c.clock = c.clock.Add(time.Second)
	return zome.FromTime(c.clock)
}

// AddAgent registers an agent and returns its id.
func (c *Conductor) AddAgent(username string) hash.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.newHash("agent")
	c.agents[id.String()] = &agent{id: id, username: username}
	return id
}

// AddContact records contact in owner's contact list.
func (c *Conductor) AddContact(owner, contact hash.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.agents[owner.String()]
	a.contacts = append(a.contacts, contact)
}

// Block records blocked in owner's block list.
func (c *Conductor) Block(owner, blocked hash.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.agents[owner.String()]
	a.blocked = append(a.blocked, blocked)
}

// SetPreference replaces owner's global preference.
func (c *Conductor) SetPreference(owner hash.Hash, p zome.Preference) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.agents[owner.String()].preference = p
}

// CreateGroup creates a group owned by creator and returns its id.
func (c *Conductor) CreateGroup(creator hash.Hash, name string, members ...hash.Hash) hash.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.newHash("group")
	c.groups[id.String()] = &group{
		id:      id,
		name:    name,
		creator: creator,
		members: slices.Clone(members),
		created: c.tick(),
	}
	return id
}

// Members returns the current members of a group.
func (c *Conductor) Members(groupID hash.Hash) []hash.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[groupID.String()]
	if !ok {
		return nil
	}
	return slices.Clone(g.members)
}

// Commit stores a message directly, bypassing any Caller. Used to seed history.
func (c *Conductor) Commit(entry zome.MessageEntry) hash.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.commit(entry).id
}

func (c *Conductor) commit(entry zome.MessageEntry) *stored {
	if entry.Created.IsZero() {
		entry.Created = c.tick()
	}
	s := &stored{id: c.newHash("message"), entry: entry, readers: make(map[string]zome.Timestamp)}
	c.messages[s.id.String()] = s
	return s
}

// Caller returns the Caller an agent uses to reach the conductor.
func (c *Conductor) Caller(me hash.Hash) zome.Caller {
	return zome.CallerFunc(func(ctx context.Context, req zome.Request, out any) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		if _, ok := c.agents[me.String()]; !ok {
			return fmt.Errorf("unknown agent %s: %w", me, zome.ErrTransport)
		}

		res, err := c.dispatch(me, req)
		if err != nil {
			return err
		}
		return Decode(res, out)
	})
}

func remote(req zome.Request, format string, args ...any) error {
	return &zome.RemoteError{Zome: req.Zome, Fn: req.Fn, Message: fmt.Sprintf(format, args...)}
}

// input re-decodes the request payload into v through JSON.
func input(req zome.Request, v any) error {
	if err := Decode(req.Payload, v); err != nil {
		return remote(req, "invalid input: %v", err)
	}
	return nil
}

func (c *Conductor) dispatch(me hash.Hash, req zome.Request) (any, error) {
	switch req.String() {
	case zome.P2PMessage + "/" + zome.FnNextBatch:
		return c.batch(me, req, false, false)
	case zome.P2PMessage + "/" + zome.FnAdjacent:
		return c.batch(me, req, false, true)
	case zome.Group + "/" + zome.FnNextGroupBatch:
		return c.batch(me, req, true, false)
	case zome.Group + "/" + zome.FnAdjacentGroup:
		return c.batch(me, req, true, true)
	case zome.P2PMessage + "/" + zome.FnSend, zome.Group + "/" + zome.FnSend:
		return c.send(me, req)
	case zome.P2PMessage + "/" + zome.FnRead, zome.Group + "/" + zome.FnReadGroup:
		return c.read(req)
	case zome.P2PMessage + "/" + zome.FnPin, zome.Group + "/" + zome.FnPin:
		return nil, c.pin(me, req, true)
	case zome.P2PMessage + "/" + zome.FnUnpin, zome.Group + "/" + zome.FnUnpin:
		return nil, c.pin(me, req, false)
	case zome.P2PMessage + "/" + zome.FnPinned, zome.Group + "/" + zome.FnPinned:
		return c.pinned(me, req)
	case zome.Group + "/" + zome.FnRemoveMembers:
		return c.removeMembers(req)
	case zome.Profiles + "/" + zome.FnAgentsProfiles:
		return c.profiles(req)
	case zome.Contacts + "/" + zome.FnListAddedAgents:
		return slices.Clone(c.agents[me.String()].contacts), nil
	case zome.Contacts + "/" + zome.FnRemoveContacts:
		return c.removeContacts(me, req)
	case zome.Aggregator + "/" + zome.FnLatestData:
		return c.latest(me, req)
	default:
		return nil, remote(req, "unknown function")
	}
}

// conversation returns the messages between me and other, or of a group,
// sorted by creation time then id.
func (c *Conductor) conversation(me, other hash.Hash, isGroup bool) []*stored {
	var out []*stored
	for _, s := range c.messages {
		e := s.entry
		if isGroup {
			if bytes.Equal(e.GroupHash, other) {
				out = append(out, s)
			}
			continue
		}
		if len(e.GroupHash) > 0 {
			continue
		}
		if (bytes.Equal(e.Author, me) && bytes.Equal(e.Receiver, other)) ||
			(bytes.Equal(e.Author, other) && bytes.Equal(e.Receiver, me)) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, compareStored)
	return out
}

func compareStored(a, b *stored) int {
	if a.entry.Created != b.entry.Created {
		if a.entry.Created.Before(b.entry.Created) {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.id, b.id)
}

func matches(filter string, p zome.RawPayload) bool {
	switch filter {
	case "", "All":
		return true
	case "Text":
		return p.Text != nil
	case "File":
		return p.File != nil
	case "Media":
		return p.File != nil && p.File.FileType.Type != "OTHER"
	default:
		return false
	}
}

func (c *Conductor) group(req zome.Request, id hash.Hash) (*group, error) {
	g, ok := c.groups[id.String()]
	if !ok {
		return nil, remote(req, "failed to get the given group id")
	}
	return g, nil
}

func (c *Conductor) batch(me hash.Hash, req zome.Request, isGroup, adjacent bool) (any, error) {
	var f zome.BatchFilter
	if err := input(req, &f); err != nil {
		return nil, err
	}
	if f.BatchSize < 1 {
		return nil, remote(req, "batch_size must be at least 1")
	}

	other := f.Conversant
	if isGroup {
		other = f.GroupID
		if _, err := c.group(req, other); err != nil {
			return nil, err
		}
	}

	var all []*stored
	for _, s := range c.conversation(me, other, isGroup) {
		if matches(f.PayloadType, s.entry.Payload) {
			all = append(all, s)
		}
	}

	// Position of the cursor: everything before idx is older.
	idx := len(all)
	after := len(all)
	if f.LastFetchedTimestamp != nil {
		cursor := &stored{id: f.LastFetchedMessageID, entry: zome.MessageEntry{Created: *f.LastFetchedTimestamp}}
		idx, _ = slices.BinarySearchFunc(all, cursor, compareStored)
		after = idx
		if after < len(all) && bytes.Equal(all[after].id, f.LastFetchedMessageID) {
			after++
		}
	}

	picked := all[max(0, idx-f.BatchSize):idx]
	if adjacent {
		picked = append(slices.Clone(picked), all[after:min(len(all), after+f.BatchSize)]...)
	}

	return c.output(me, other, isGroup, picked), nil
}

func (c *Conductor) output(me, other hash.Hash, isGroup bool, msgs []*stored) zome.BatchOutput {
	out := zome.BatchOutput{
		MessagesByConversation: map[string][]hash.Hash{},
		MessageContents:        map[string]zome.MessageContent{},
	}
	if len(msgs) == 0 {
		return out
	}

	key := other.String()
	for _, s := range msgs {
		out.MessagesByConversation[key] = append(out.MessagesByConversation[key], s.id)
		out.MessageContents[s.id.String()] = s.content()
	}
	return out
}

func (s *stored) content() zome.MessageContent {
	readList := make(map[string]zome.Timestamp, len(s.readers))
	for k, v := range s.readers {
		readList[k] = v
	}
	return zome.MessageContent{
		Element:  zome.Element{EntryHash: s.id, Entry: s.entry},
		ReadList: readList,
	}
}

func (c *Conductor) send(me hash.Hash, req zome.Request) (any, error) {
	var in zome.SendInput
	if err := input(req, &in); err != nil {
		return nil, err
	}

	entry := zome.MessageEntry{Author: me, Payload: in.Payload}
	if req.Zome == zome.Group {
		if _, err := c.group(req, in.GroupHash); err != nil {
			return nil, err
		}
		entry.GroupHash = in.GroupHash
	} else {
		if _, ok := c.agents[in.Receiver.String()]; !ok {
			return nil, remote(req, "unknown receiver")
		}
		entry.Receiver = in.Receiver
	}

	if len(in.ReplyTo) > 0 {
		parent, ok := c.messages[in.ReplyTo.String()]
		if !ok {
			return nil, remote(req, "reply target not found")
		}
		entry.ReplyTo = &zome.ReplyEntry{
			ID: parent.id,
			Content: zome.ReplyContent{
				Author:  parent.entry.Author,
				Payload: parent.entry.Payload,
				Created: parent.entry.Created,
			},
		}
	}

	return c.commit(entry).content(), nil
}

func (c *Conductor) read(req zome.Request) (any, error) {
	var in zome.ReadInput
	if err := input(req, &in); err != nil {
		return nil, err
	}

	for _, id := range in.MessageHashes {
		s, ok := c.messages[id.String()]
		if !ok {
			return nil, remote(req, "message not found")
		}
		if _, seen := s.readers[in.Reader.String()]; !seen {
			s.readers[in.Reader.String()] = in.Timestamp
		}
	}
	return nil, nil
}

func pairKey(a, b hash.Hash) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}

// pinSet returns a pointer to the pinned ids of the addressed conversation.
func (c *Conductor) pinSet(me hash.Hash, req zome.Request, conversant, groupHash hash.Hash) (*[]string, error) {
	if req.Zome == zome.Group {
		g, err := c.group(req, groupHash)
		if err != nil {
			return nil, err
		}
		return &g.pinned, nil
	}

	key := pairKey(me, conversant)
	ids := c.pins[key]
	c.pins[key] = ids
	return &ids, nil
}

func (c *Conductor) pin(me hash.Hash, req zome.Request, add bool) error {
	var in zome.PinInput
	if err := input(req, &in); err != nil {
		return err
	}

	s, ok := c.messages[in.MessageHash.String()]
	if !ok {
		return remote(req, "message not found")
	}

	set, err := c.pinSet(me, req, in.Conversant, in.GroupHash)
	if err != nil {
		return err
	}

	id := s.id.String()
	switch {
	case add && !slices.Contains(*set, id):
		*set = append(*set, id)
	case !add:
		*set = slices.DeleteFunc(*set, func(v string) bool { return v == id })
	}

	if req.Zome != zome.Group {
		c.pins[pairKey(me, in.Conversant)] = *set
	}
	return nil
}

func (c *Conductor) pinned(me hash.Hash, req zome.Request) (any, error) {
	var in zome.PinnedInput
	if err := input(req, &in); err != nil {
		return nil, err
	}

	set, err := c.pinSet(me, req, in.Conversant, in.GroupHash)
	if err != nil {
		return nil, err
	}

	other := in.Conversant
	if req.Zome == zome.Group {
		other = in.GroupHash
	}

	msgs := make([]*stored, 0, len(*set))
	for _, id := range *set {
		msgs = append(msgs, c.messages[id])
	}
	slices.SortFunc(msgs, compareStored)
	return c.output(me, other, req.Zome == zome.Group, msgs), nil
}

func (c *Conductor) removeContacts(me hash.Hash, req zome.Request) (any, error) {
	var ids []hash.Hash
	if err := input(req, &ids); err != nil {
		return nil, err
	}

	a := c.agents[me.String()]
	a.contacts = slices.DeleteFunc(a.contacts, func(h hash.Hash) bool {
		return slices.ContainsFunc(ids, func(r hash.Hash) bool { return bytes.Equal(h, r) })
	})
	return ids, nil
}

func (c *Conductor) removeMembers(req zome.Request) (any, error) {
	var in zome.RemoveMembersInput
	if err := input(req, &in); err != nil {
		return nil, err
	}
	if len(in.Members) == 0 {
		return nil, remote(req, "members field is empty")
	}

	g, err := c.group(req, in.GroupID)
	if err != nil {
		return nil, err
	}

	g.members = slices.DeleteFunc(g.members, func(m hash.Hash) bool {
		return slices.ContainsFunc(in.Members, func(r hash.Hash) bool { return bytes.Equal(m, r) })
	})

	return zome.RemoveMembersOutput{
		Members:   in.Members,
		GroupID:   g.id,
		GroupRev:  c.newHash("revision"),
		Timestamp: c.tick(),
	}, nil
}

func (c *Conductor) profiles(req zome.Request) (any, error) {
	var ids []hash.Hash
	if err := input(req, &ids); err != nil {
		return nil, err
	}

	out := make([]zome.AgentProfile, 0, len(ids))
	for _, id := range ids {
		if a, ok := c.agents[id.String()]; ok {
			out = append(out, zome.AgentProfile{ID: a.id, Username: a.username})
		}
	}
	return out, nil
}

func (c *Conductor) latest(me hash.Hash, req zome.Request) (any, error) {
	var in zome.LatestInput
	if err := input(req, &in); err != nil {
		return nil, err
	}
	size := in.BatchSize
	if size < 1 {
		size = 10
	}

	a := c.agents[me.String()]
	data := zome.LatestData{
		UserInfo:         zome.AgentProfile{ID: a.id, Username: a.username},
		AddedContacts:    slices.Clone(a.contacts),
		BlockedContacts:  slices.Clone(a.blocked),
		GlobalPreference: a.preference,
	}

	groupMsgs := zome.BatchOutput{MessagesByConversation: map[string][]hash.Hash{}, MessageContents: map[string]zome.MessageContent{}}
	for _, g := range c.groups {
		isMember := bytes.Equal(g.creator, me) || slices.ContainsFunc(g.members, func(m hash.Hash) bool { return bytes.Equal(m, me) })
		if !isMember {
			continue
		}
		data.Groups = append(data.Groups, zome.GroupInfo{
			GroupID: g.id,
			Name:    g.name,
			Members: slices.Clone(g.members),
			Creator: g.creator,
			Created: g.created,
		})
		msgs := c.conversation(me, g.id, true)
		merge(&groupMsgs, c.output(me, g.id, true, msgs[max(0, len(msgs)-size):]))
	}
	slices.SortFunc(data.Groups, func(x, y zome.GroupInfo) int { return bytes.Compare(x.GroupID, y.GroupID) })

	p2pMsgs := zome.BatchOutput{MessagesByConversation: map[string][]hash.Hash{}, MessageContents: map[string]zome.MessageContent{}}
	for _, other := range c.agents {
		if bytes.Equal(other.id, me) {
			continue
		}
		msgs := c.conversation(me, other.id, false)
		merge(&p2pMsgs, c.output(me, other.id, false, msgs[max(0, len(msgs)-size):]))
	}

	data.LatestGroupMessages = groupMsgs
	data.LatestP2PMessages = p2pMsgs
	return data, nil
}

func merge(dst *zome.BatchOutput, src zome.BatchOutput) {
	for k, v := range src.MessagesByConversation {
		dst.MessagesByConversation[k] = append(dst.MessagesByConversation[k], v...)
	}
	for k, v := range src.MessageContents {
		dst.MessageContents[k] = v
	}
}
