package zometest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/zome"
)

func seed(t *testing.T, n int) (*Conductor, hash.Hash, hash.Hash, []hash.Hash) {
	t.Helper()

	c := NewConductor(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	alice := c.AddAgent("alice")
	bob := c.AddAgent("bob")

	ids := make([]hash.Hash, n)
	for i := range ids {
		ids[i] = c.Commit(zome.MessageEntry{Author: alice, Receiver: bob, Payload: zome.Text("m")})
	}
	return c, alice, bob, ids
}

func TestConductor_NextBatchWalksBackwards(t *testing.T) {
	c, alice, bob, ids := seed(t, 7)
	caller := c.Caller(alice)
	ctx := context.Background()

	var out zome.BatchOutput
	err := caller.Call(ctx, zome.Request{Zome: zome.P2PMessage, Fn: zome.FnNextBatch, Payload: zome.BatchFilter{
		Conversant: bob, BatchSize: 5, PayloadType: "All",
	}}, &out)
	require.NoError(t, err)
	assert.Equal(t, ids[2:], out.MessagesByConversation[bob.String()])

	oldest := out.MessageContents[ids[2].String()].Element
	err = caller.Call(ctx, zome.Request{Zome: zome.P2PMessage, Fn: zome.FnNextBatch, Payload: zome.BatchFilter{
		Conversant:           bob,
		BatchSize:            5,
		PayloadType:          "All",
		LastFetchedTimestamp: &oldest.Entry.Created,
		LastFetchedMessageID: oldest.EntryHash,
	}}, &out)
	require.NoError(t, err)
	assert.Equal(t, ids[:2], out.MessagesByConversation[bob.String()])
}

func TestConductor_AdjacentIncludesBothSides(t *testing.T) {
	c, alice, bob, ids := seed(t, 9)
	caller := c.Caller(bob)

	var probe zome.BatchOutput
	require.NoError(t, caller.Call(context.Background(), zome.Request{Zome: zome.P2PMessage, Fn: zome.FnNextBatch, Payload: zome.BatchFilter{
		Conversant: alice, BatchSize: 9, PayloadType: "All",
	}}, &probe))
	mid := probe.MessageContents[ids[4].String()].Element

	var out zome.BatchOutput
	require.NoError(t, caller.Call(context.Background(), zome.Request{Zome: zome.P2PMessage, Fn: zome.FnAdjacent, Payload: zome.BatchFilter{
		Conversant:           alice,
		BatchSize:            2,
		PayloadType:          "All",
		LastFetchedTimestamp: &mid.Entry.Created,
		LastFetchedMessageID: mid.EntryHash,
	}}, &out))

	assert.Equal(t, []hash.Hash{ids[2], ids[3], ids[5], ids[6]}, out.MessagesByConversation[alice.String()])
}

func TestConductor_GroupErrors(t *testing.T) {
	c := NewConductor(time.Now())
	alice := c.AddAgent("alice")
	caller := c.Caller(alice)
	groupID := c.CreateGroup(alice, "team", c.AddAgent("bob"))

	err := caller.Call(context.Background(), zome.Request{Zome: zome.Group, Fn: zome.FnRemoveMembers, Payload: zome.RemoveMembersInput{GroupID: groupID}}, nil)
	assert.True(t, zome.Contains(err, "members field is empty"))

	err = caller.Call(context.Background(), zome.Request{Zome: zome.Group, Fn: zome.FnRemoveMembers, Payload: zome.RemoveMembersInput{
		GroupID: hash.Hash{1, 2, 3},
		Members: []hash.Hash{alice},
	}}, nil)
	assert.True(t, zome.Contains(err, "failed to get the given group id"))
}

func TestRecorder(t *testing.T) {
	r := &Recorder{
		Outputs: map[string]any{"profiles/get_agents_profiles": []zome.AgentProfile{{ID: hash.Hash{1}, Username: "x"}}},
		Errors:  map[string]error{"group/remove_members": zome.ErrTransport},
	}
	ctx := context.Background()

	var profiles []zome.AgentProfile
	require.NoError(t, r.Call(ctx, zome.Request{Zome: zome.Profiles, Fn: zome.FnAgentsProfiles}, &profiles))
	assert.Equal(t, "x", profiles[0].Username)

	err := r.Call(ctx, zome.Request{Zome: zome.Group, Fn: zome.FnRemoveMembers}, nil)
	assert.ErrorIs(t, err, zome.ErrTransport)

	assert.Equal(t, 1, r.Count(zome.Profiles, zome.FnAgentsProfiles))
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, zome.FnRemoveMembers, last.Fn)

	r.Reset()
	assert.Empty(t, r.Calls)
}
