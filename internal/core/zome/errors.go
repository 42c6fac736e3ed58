package zome

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTransport wraps every failure to reach the conductor or to exchange a
// well formed frame with it.
var ErrTransport = errors.New("conductor transport error")

// RemoteError is an application error returned by a zome function.
type RemoteError struct {
	Zome    string
	Fn      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s/%s: %s", e.Zome, e.Fn, e.Message)
}

// Contains reports whether err is a RemoteError whose message contains substr.
func Contains(err error, substr string) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	return strings.Contains(re.Message, substr)
}
