package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeModifiedUTF8ASCII(t *testing.T) {
	s, err := DecodeModifiedUTF8([]byte("Hello"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", s)
}

func TestDecodeModifiedUTF8Null(t *testing.T) {
	s, err := DecodeModifiedUTF8([]byte{0xC0, 0x80})
	require.NoError(t, err)
	assert.Equal(t, "\x00", s)
}

func TestDecodeModifiedUTF8SurrogatePair(t *testing.T) {
	// U+1F600 (grinning face) encoded as a surrogate pair of two 3-byte
	// sequences, per spec §4.1.
	encoded := EncodeModifiedUTF8("\U0001F600")
	s, err := DecodeModifiedUTF8(encoded)
	require.NoError(t, err)
	assert.Equal(t, "\U0001F600", s)
}

func TestModifiedUTF8RoundTrip(t *testing.T) {
	cases := []string{"", "hello world", "café", "\x00middle\x00", "\U0001F4A9\U0001F600"}
	for _, c := range cases {
		encoded := EncodeModifiedUTF8(c)
		decoded, err := DecodeModifiedUTF8(encoded)
		require.NoError(t, err)
		assert.Equal(t, c, decoded)
	}
}

func TestDecodeModifiedUTF8UnpairedSurrogate(t *testing.T) {
	// A lone high surrogate (no following low surrogate sequence).
	_, err := DecodeModifiedUTF8([]byte{0xED, 0xA0, 0x80})
	assert.Error(t, err)
}

func TestDecodeModifiedUTF8Truncated(t *testing.T) {
	_, err := DecodeModifiedUTF8([]byte{0xE0})
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}
