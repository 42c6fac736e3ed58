package hash

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{0x84, 0x20, 0x24},
		bytes.Repeat([]byte{0xff}, 39),
		[]byte("agent-key-bytes"),
	}

	for _, raw := range inputs {
		s := Serialize(raw)
		assert.Equal(t, "u", s[:1])

		got, err := Deserialize(s)
		require.NoError(t, err)
		assert.Equal(t, Hash(raw), got)
	}
}

func TestDeserialize_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "prefix only", input: "u"},
		{name: "missing prefix", input: "hCAk"},
		{name: "bad alphabet", input: "u$$$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.input)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestDeserializeAll(t *testing.T) {
	a, b := Serialize([]byte{1}), Serialize([]byte{2})

	got, err := DeserializeAll([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []Hash{{1}, {2}}, got)

	_, err = DeserializeAll([]string{a, "nope"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestHash_String(t *testing.T) {
	h := Hash{1, 2, 3}
	assert.Equal(t, Serialize([]byte{1, 2, 3}), h.String())
	assert.True(t, Hash(nil).IsZero())
}

func TestSerialize_EmptyIsRejected(t *testing.T) {
	assert.Equal(t, "u", Serialize(nil))

	_, err := Deserialize(Serialize(nil))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCompare(t *testing.T) {
	// 0x3f encodes to 'P' and 0xf8 to '-'; as text '-' sorts first.
	low, high := Serialize([]byte{0x3f}), Serialize([]byte{0xf8})
	require.Greater(t, low, high, "text order differs from byte order")

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "byte order", a: low, b: high, want: -1},
		{name: "reverse", a: high, b: low, want: 1},
		{name: "equal", a: low, b: low, want: 0},
		{name: "invalid sorts last", a: "nope", b: low, want: 1},
		{name: "both invalid", a: "a", b: "b", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}
