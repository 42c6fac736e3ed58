// Package profile defines agent profiles and how unknown authors are resolved.
package profile

import (
	"context"
	"errors"
)

// ErrUnresolved is returned when the directory does not know an agent.
var ErrUnresolved = errors.New("profile not resolved")

// Profile is the display identity of an agent.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// IsZero reports whether the profile is unset.
func (p Profile) IsZero() bool {
	return p.ID == ""
}

// Directory looks up profiles for agent ids in a single batched request.
type Directory interface {
	// Profiles returns the profiles it knows for ids, in any order.
	// Unknown ids are omitted rather than reported as errors.
	Profiles(ctx context.Context, ids []string) ([]Profile, error)
}

// DirectoryFunc adapts a function to the Directory interface.
type DirectoryFunc func(ctx context.Context, ids []string) ([]Profile, error)

// Profiles calls f.
func (f DirectoryFunc) Profiles(ctx context.Context, ids []string) ([]Profile, error) {
	return f(ctx, ids)
}
