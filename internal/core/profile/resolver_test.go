package profile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDirectory records each lookup and answers from a fixed table.
type countingDirectory struct {
	mu       sync.Mutex
	calls    [][]string
	profiles map[string]Profile
	err      error
}

func (d *countingDirectory) Profiles(_ context.Context, ids []string) ([]Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, append([]string(nil), ids...))
	if d.err != nil {
		return nil, d.err
	}

	var out []Profile
	for _, id := range ids {
		if p, ok := d.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestResolver_KnownAndSelfSkipDirectory(t *testing.T) {
	dir := &countingDirectory{}
	r := NewResolver(dir)

	known := map[string]Profile{"bob": {ID: "bob", Username: "bobby"}}
	self := &Profile{ID: "alice", Username: "alice"}

	got, err := r.Resolve(context.Background(), []string{"bob", "alice", "bob"}, known, self)
	require.NoError(t, err)

	assert.Empty(t, dir.calls)
	assert.Equal(t, "bobby", got["bob"].Username)
	assert.Equal(t, "alice", got["alice"].Username)
}

func TestResolver_SingleBatchedLookup(t *testing.T) {
	dir := &countingDirectory{profiles: map[string]Profile{
		"carol": {ID: "carol", Username: "carol"},
		"dave":  {ID: "dave", Username: "dave"},
	}}
	r := NewResolver(dir)

	got, err := r.Resolve(context.Background(), []string{"dave", "carol", "dave", "carol"}, nil, nil)
	require.NoError(t, err)

	require.Len(t, dir.calls, 1)
	assert.Equal(t, []string{"carol", "dave"}, dir.calls[0])
	assert.Len(t, got, 2)
}

func TestResolver_Unresolved(t *testing.T) {
	dir := &countingDirectory{profiles: map[string]Profile{}}
	r := NewResolver(dir)

	_, err := r.Resolve(context.Background(), []string{"ghost"}, nil, nil)
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResolver_DirectoryError(t *testing.T) {
	boom := errors.New("boom")
	r := NewResolver(&countingDirectory{err: boom})

	_, err := r.Resolve(context.Background(), []string{"x"}, nil, nil)
	assert.ErrorIs(t, err, boom)
}
