package zome

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is the conductor's time representation: whole seconds since the
// Unix epoch plus a nanosecond remainder in [0, 1e9).
type Timestamp struct {
	Secs  int64
	Nanos uint32
}

// FromTime converts t without loss.
func FromTime(t time.Time) Timestamp {
	return Timestamp{Secs: t.Unix(), Nanos: uint32(t.Nanosecond())}
}

// Time converts ts to UTC time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Secs, int64(ts.Nanos)).UTC()
}

// IsZero reports whether ts is the epoch.
func (ts Timestamp) IsZero() bool {
	return ts.Secs == 0 && ts.Nanos == 0
}

// Before reports whether ts is earlier than other.
func (ts Timestamp) Before(other Timestamp) bool {
	if ts.Secs != other.Secs {
		return ts.Secs < other.Secs
	}
	return ts.Nanos < other.Nanos
}

// MarshalJSON encodes ts as [secs, nanos].
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{ts.Secs, int64(ts.Nanos)})
}

type epochTimestamp struct {
	Secs  *int64  `json:"secs_since_epoch"`
	Nanos *uint32 `json:"nanos_since_epoch"`
}

// UnmarshalJSON accepts [secs, nanos] and the read-list form
// {"secs_since_epoch": .., "nanos_since_epoch": ..}.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("timestamp: empty input")
	}

	switch data[0] {
	case '[':
		var pair []int64
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("timestamp: want [secs, nanos], got %d elements", len(pair))
		}
		return ts.set(pair[0], pair[1])
	case '{':
		var e epochTimestamp
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		if e.Secs == nil {
			return fmt.Errorf("timestamp: missing secs_since_epoch")
		}
		var nanos int64
		if e.Nanos != nil {
			nanos = int64(*e.Nanos)
		}
		return ts.set(*e.Secs, nanos)
	default:
		return fmt.Errorf("timestamp: unexpected %q", data)
	}
}

func (ts *Timestamp) set(secs, nanos int64) error {
	if nanos < 0 || nanos >= int64(time.Second) {
		return fmt.Errorf("timestamp: nanos %d out of range", nanos)
	}
	ts.Secs, ts.Nanos = secs, uint32(nanos)
	return nil
}
