package profile

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Resolver maps agent ids to profiles, consulting the directory only for ids
// that are neither known contacts nor the local agent.
type Resolver struct {
	dir   Directory
	group singleflight.Group
}

// NewResolver creates a resolver backed by dir.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns a profile for every id in ids.
//
// Known profiles and self are reused. All remaining ids are looked up with a
// single directory call; identical concurrent lookups share one call.
// If the directory does not return a profile for some id, Resolve fails with
// ErrUnresolved and no partial result.
func (r *Resolver) Resolve(ctx context.Context, ids []string, known map[string]Profile, self *Profile) (map[string]Profile, error) {
	out := make(map[string]Profile, len(ids))
	var unknown []string

	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		if p, ok := known[id]; ok {
			out[id] = p
			continue
		}
		if self != nil && self.ID == id {
			out[id] = *self
			continue
		}
		if !slices.Contains(unknown, id) {
			unknown = append(unknown, id)
		}
	}

	if len(unknown) == 0 {
		return out, nil
	}

	slices.Sort(unknown)
	key := strings.Join(unknown, ",")

	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.dir.Profiles(ctx, unknown)
	})
	if err != nil {
		return nil, fmt.Errorf("lookup profiles: %w", err)
	}

	for _, p := range v.([]Profile) {
		out[p.ID] = p
	}

	for _, id := range unknown {
		if _, ok := out[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnresolved, id)
		}
	}

	return out, nil
}
