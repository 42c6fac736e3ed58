package doctor

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/hay-kot/lobby/internal/core/chat"
)

// StateCheck looks for local state that breaks the conversation invariants:
// timeline ids without a message, messages outside their timeline, and pins
// outside the timeline.
type StateCheck struct {
	store chat.Store
	fix   bool
}

// NewStateCheck creates a new state check.
// If fix is true, broken references are dropped and the state is saved.
func NewStateCheck(store chat.Store, fix bool) *StateCheck {
	return &StateCheck{store: store, fix: fix}
}

func (c *StateCheck) Name() string {
	return "Local State"
}

type issue struct {
	label  string
	detail string
	repair func(*chat.State)
}

func (c *StateCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	st, err := c.store.Load(ctx)
	if err != nil {
		result.add("Load state", StatusFail, err.Error())
		return result
	}

	issues := findIssues(st)
	if len(issues) == 0 {
		result.add("Consistent", StatusPass,
			fmt.Sprintf("%d conversations, %d messages", len(st.Conversations), len(st.Messages)))
		return result
	}

	if !c.fix {
		for _, is := range issues {
			result.Items = append(result.Items, CheckItem{
				Label:   is.label,
				Status:  StatusWarn,
				Detail:  is.detail,
				Fixable: is.repair != nil,
			})
		}
		return result
	}

	fixed := st.Clone()
	for _, is := range issues {
		if is.repair == nil {
			result.add(is.label, StatusWarn, is.detail)
			continue
		}
		is.repair(&fixed)
		result.add(is.label, StatusPass, "repaired: "+is.detail)
	}

	if err := c.store.Save(ctx, fixed); err != nil {
		result.add("Save state", StatusFail, err.Error())
	}
	return result
}

func findIssues(st chat.State) []issue {
	var issues []issue

	for _, convID := range slices.Sorted(maps.Keys(st.Conversations)) {
		conv := st.Conversations[convID]

		for _, id := range conv.Messages {
			if _, ok := st.Messages[id]; ok {
				continue
			}
			issues = append(issues, issue{
				label:  convID,
				detail: fmt.Sprintf("timeline lists missing message %s", id),
				repair: func(s *chat.State) {
					c := s.Conversations[convID]
					c.Messages = slices.DeleteFunc(c.Messages, func(m string) bool { return m == id })
					c.Pinned = slices.DeleteFunc(c.Pinned, func(m string) bool { return m == id })
					s.Conversations[convID] = c
					delete(s.Pinned, id)
				},
			})
		}

		for _, id := range conv.Pinned {
			if conv.Has(id) {
				continue
			}
			issues = append(issues, issue{
				label:  convID,
				detail: fmt.Sprintf("pinned message %s is not in the timeline", id),
				repair: func(s *chat.State) {
					c := s.Conversations[convID]
					c.Pinned = slices.DeleteFunc(c.Pinned, func(m string) bool { return m == id })
					s.Conversations[convID] = c
					delete(s.Pinned, id)
				},
			})
		}
	}

	for _, id := range slices.Sorted(maps.Keys(st.Messages)) {
		msg := st.Messages[id]
		conv, ok := st.Conversations[msg.ConversationID]
		if !ok || !conv.Has(id) {
			issues = append(issues, issue{
				label:  msg.ConversationID,
				detail: fmt.Sprintf("message %s is not in any timeline", id),
				repair: func(s *chat.State) { delete(s.Messages, id) },
			})
			continue
		}
		if _, ok := st.Profiles[msg.Author.ID]; !ok {
			issues = append(issues, issue{
				label:  msg.ConversationID,
				detail: fmt.Sprintf("author %s of message %s has no profile; run `lobby sync`", msg.Author.ID, id),
			})
		}
	}

	return issues
}
