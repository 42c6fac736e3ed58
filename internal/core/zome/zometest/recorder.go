// Package zometest provides zome.Caller implementations for tests.
package zometest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hay-kot/lobby/internal/core/zome"
)

// Recorder captures calls for testing.
// Configure Outputs and Errors to control return values, or set Next to
// forward calls that have no configured output.
type Recorder struct {
	mu    sync.Mutex
	Calls []zome.Request

	// Outputs maps "zome/fn" to a value that is JSON encoded into out.
	Outputs map[string]any

	// Errors maps "zome/fn" to the error returned for that function.
	Errors map[string]error

	// Next receives calls without a configured output or error.
	Next zome.Caller
}

// Call records the request and returns the configured output or error.
func (r *Recorder) Call(ctx context.Context, req zome.Request, out any) error {
	key := req.String()

	r.mu.Lock()
	r.Calls = append(r.Calls, req)
	err, hasErr := r.Errors[key]
	val, hasOut := r.Outputs[key]
	next := r.Next
	r.mu.Unlock()

	switch {
	case hasErr:
		return err
	case hasOut:
		return Decode(val, out)
	case next != nil:
		return next.Call(ctx, req, out)
	default:
		return nil
	}
}

// Count returns how many times zome/fn was called.
func (r *Recorder) Count(zomeName, fn string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.Calls {
		if c.Zome == zomeName && c.Fn == fn {
			n++
		}
	}
	return n
}

// Last returns the most recent call, if any.
func (r *Recorder) Last() (zome.Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Calls) == 0 {
		return zome.Request{}, false
	}
	return r.Calls[len(r.Calls)-1], true
}

// Reset clears recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = nil
}

// Decode copies v into out through JSON, the way a real transport would.
func Decode(v, out any) error {
	if out == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
