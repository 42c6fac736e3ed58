// Package hash converts the binary hashes used by the conductor to and from
// the string form used everywhere else in lobby.
package hash

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// prefix marks a multibase url-safe base64 string.
const prefix = "u"

// ErrInvalid is returned when a string is not a serialized hash.
var ErrInvalid = errors.New("invalid hash")

// Hash is a raw content-addressed identifier as it crosses the remote call boundary.
type Hash []byte

// String returns the serialized form of the hash.
func (h Hash) String() string {
	return Serialize(h)
}

// IsZero reports whether the hash is empty.
func (h Hash) IsZero() bool {
	return len(h) == 0
}

// Serialize encodes raw hash bytes as a prefixed, unpadded url-safe base64 string.
// Hashes are never empty: Serialize(nil) yields the bare prefix, which
// Deserialize rejects.
func Serialize(raw []byte) string {
	return prefix + base64.RawURLEncoding.EncodeToString(raw)
}

// Deserialize decodes a string produced by Serialize.
func Deserialize(s string) (Hash, error) {
	if !strings.HasPrefix(s, prefix) || len(s) == len(prefix) {
		return nil, fmt.Errorf("%w: %q", ErrInvalid, s)
	}

	raw, err := base64.RawURLEncoding.DecodeString(s[len(prefix):])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
	}

	return raw, nil
}

// Compare orders two serialized hashes by their raw bytes, the order the
// conductor uses to break timestamp ties. The base64url alphabet does not
// sort like the bytes it encodes, so strings are decoded first. Strings that
// do not decode sort after valid ones, by their text.
func Compare(a, b string) int {
	ha, errA := Deserialize(a)
	hb, errB := Deserialize(b)
	switch {
	case errA == nil && errB == nil:
		return bytes.Compare(ha, hb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// MustDeserialize is Deserialize for ids already validated at the edge.
// It panics on malformed input.
func MustDeserialize(s string) Hash {
	h, err := Deserialize(s)
	if err != nil {
		panic(err)
	}
	return h
}

// DeserializeAll decodes every string, failing on the first malformed one.
func DeserializeAll(ids []string) ([]Hash, error) {
	out := make([]Hash, 0, len(ids))
	for _, id := range ids {
		h, err := Deserialize(id)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
