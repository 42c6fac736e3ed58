// Package zome defines the boundary to the conductor: named remote functions
// grouped by zome, the records they exchange, and the errors they return.
package zome

import (
	"context"
	"time"
)

// Zome names.
const (
	P2PMessage = "p2pmessage"
	Group      = "group"
	Profiles   = "profiles"
	Contacts   = "contacts"
	Aggregator = "aggregator"
)

// Function names.
const (
	FnNextBatch       = "get_next_batch_messages"
	FnAdjacent        = "get_adjacent_messages"
	FnSend            = "send_message"
	FnRead            = "read_message"
	FnPin             = "pin_message"
	FnUnpin           = "unpin_message"
	FnPinned          = "get_pinned_messages"
	FnNextGroupBatch  = "get_next_batch_group_messages"
	FnAdjacentGroup   = "get_adjacent_group_messages"
	FnReadGroup       = "read_group_message"
	FnRemoveMembers   = "remove_members"
	FnAgentsProfiles  = "get_agents_profiles"
	FnLatestData      = "retrieve_latest_data"
	FnListAddedAgents = "list_added"
	FnRemoveContacts  = "remove_contacts"
)

// Request is a single remote function invocation.
type Request struct {
	Zome    string
	Fn      string
	Cap     []byte
	Payload any
}

// String returns "zome/fn".
func (r Request) String() string {
	return r.Zome + "/" + r.Fn
}

// Caller invokes remote functions. When out is non-nil the decoded result is
// written into it.
type Caller interface {
	Call(ctx context.Context, req Request, out any) error
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, req Request, out any) error

// Call calls f.
func (f CallerFunc) Call(ctx context.Context, req Request, out any) error {
	return f(ctx, req, out)
}

// WithTimeout bounds every call through next by d. A non-positive d returns
// next unchanged.
func WithTimeout(next Caller, d time.Duration) Caller {
	if d <= 0 {
		return next
	}
	return CallerFunc(func(ctx context.Context, req Request, out any) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next.Call(ctx, req, out)
	})
}
