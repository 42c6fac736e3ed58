package lobby

import (
	"context"
	"fmt"

	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/profile"
	"github.com/hay-kot/lobby/internal/core/zome"
)

// Directory resolves profiles through the profiles zome.
func Directory(caller zome.Caller) profile.Directory {
	return profile.DirectoryFunc(func(ctx context.Context, ids []string) ([]profile.Profile, error) {
		hashes, err := hash.DeserializeAll(ids)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}

		req := zome.Request{Zome: zome.Profiles, Fn: zome.FnAgentsProfiles, Payload: hashes}

		var out []zome.AgentProfile
		if err := caller.Call(ctx, req, &out); err != nil {
			return nil, mapError(req, err)
		}

		profiles := make([]profile.Profile, 0, len(out))
		for _, p := range out {
			profiles = append(profiles, toProfile(p))
		}
		return profiles, nil
	})
}

func toProfile(p zome.AgentProfile) profile.Profile {
	return profile.Profile{ID: hash.Serialize(p.ID), Username: p.Username}
}
