package lobby

import (
	"context"
	"errors"
	"fmt"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/profile"
	"github.com/hay-kot/lobby/internal/core/zome"
)

var (
	// ErrTransport is returned for every remote failure that has no more
	// specific mapping. Nothing is retried.
	ErrTransport = zome.ErrTransport

	ErrGroupNotFound = errors.New("group not found")
	ErrEmptyMembers  = errors.New("no members given")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotSynced     = errors.New("local profile unknown")
)

// Remote error messages that map to domain errors.
const (
	msgGroupNotFound = "failed to get the given group id"
	msgEmptyMembers  = "members field is empty"
)

// mapError classifies a failed zome call.
func mapError(req zome.Request, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", req, err)
	case zome.Contains(err, msgGroupNotFound):
		return fmt.Errorf("%s: %w: %w", req, ErrGroupNotFound, err)
	case zome.Contains(err, msgEmptyMembers):
		return fmt.Errorf("%s: %w: %w", req, ErrEmptyMembers, err)
	case errors.Is(err, ErrTransport):
		return fmt.Errorf("%s: %w", req, err)
	default:
		return fmt.Errorf("%s: %w: %w", req, ErrTransport, err)
	}
}

// Describe returns the notification shown to a user for err.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The conductor did not answer in time. Please try again."
	case errors.Is(err, ErrGroupNotFound):
		return "This group could not be found. It may have been deleted."
	case errors.Is(err, ErrEmptyMembers):
		return "Select at least one member."
	case errors.Is(err, ErrNotSynced):
		return "Your profile is not known yet. Run `lobby sync` first."
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	case errors.Is(err, chat.ErrConversationNotFound):
		return "That conversation has not been loaded. Run `lobby sync` first."
	case errors.Is(err, chat.ErrMessageNotFound):
		return "That message has not been loaded in this conversation."
	case errors.Is(err, chat.ErrUnresolvedAuthor), errors.Is(err, profile.ErrUnresolved):
		return "Could not load the profile of a message author."
	case errors.Is(err, ErrTransport):
		return "Something went wrong. Please try again."
	default:
		return err.Error()
	}
}
