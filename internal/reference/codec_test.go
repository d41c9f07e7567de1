package reference

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/filestorebot/filestorebot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAnchor = int64(-1001234567890)

func newCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testAnchor)
	require.NoError(t, err)
	return codec
}

func TestNewCodec_ZeroAnchorRejected(t *testing.T) {
	_, err := NewCodec(0)
	assert.Error(t, err)
}

func TestCodec_RoundTrip_Single(t *testing.T) {
	codec := newCodec(t)

	for _, offset := range []int64{1, 2, 17, 1000, 987654} {
		encoded := codec.EncodeSingle(offset)

		ref, err := codec.Decode(encoded)
		require.NoError(t, err, "offset %d", offset)
		assert.Equal(t, offset, ref.Start)
		assert.Equal(t, offset, ref.End)
		assert.False(t, ref.Range)
		assert.Equal(t, []int64{offset}, ref.MessageIDs())
	}
}

func TestCodec_RoundTrip_Range(t *testing.T) {
	codec := newCodec(t)

	tests := []struct{ start, end int64 }{
		{1, 5},
		{7, 7},
		{100, 250},
	}

	for _, tt := range tests {
		encoded := codec.EncodeRange(tt.start, tt.end)

		ref, err := codec.Decode(encoded)
		require.NoError(t, err, "range %d-%d", tt.start, tt.end)
		assert.Equal(t, tt.start, ref.Start)
		assert.Equal(t, tt.end, ref.End)
		assert.True(t, ref.Range)
	}
}

func TestCodec_EmptyRange_NotAnError(t *testing.T) {
	codec := newCodec(t)

	ref, err := codec.Decode(codec.EncodeRange(9, 3))

	require.NoError(t, err)
	assert.True(t, ref.IsEmpty())
	assert.Empty(t, ref.MessageIDs())
}

func TestCodec_Decode_Malformed(t *testing.T) {
	codec := newCodec(t)
	encode := func(payload string) string {
		return base64.RawURLEncoding.EncodeToString([]byte(payload))
	}

	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "not-base64!!"},
		{"empty", ""},
		{"wrong discriminator", encode(fmt.Sprintf("set-%d", 5*1001234567890))},
		{"reserved discriminator", encode("verify-42-token")},
		{"one field", encode("get")},
		{"four fields", encode("get-1001234567890-2002469135780-3003703703670")},
		{"non-numeric offset", encode("get-abc")},
		{"absolute id not a multiple of anchor", encode("get-12345")},
		{"zero absolute id", encode("get-0")},
		{"negative absolute id", encode("get--1001234567890")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := codec.Decode(tt.input)
			assert.ErrorIs(t, err, models.ErrInvalidReference)
			assert.Nil(t, ref)
		})
	}
}

func TestCodec_Decode_ToleratesPadding(t *testing.T) {
	codec := newCodec(t)

	encoded := codec.EncodeSingle(42)
	padded := encoded + strings.Repeat("=", (4-len(encoded)%4)%4)

	ref, err := codec.Decode(padded)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ref.Start)
}

func TestCodec_Encode_URLSafe(t *testing.T) {
	codec := newCodec(t)

	for _, encoded := range []string{
		codec.EncodeSingle(123456789),
		codec.EncodeRange(1, 99999),
	} {
		assert.NotContains(t, encoded, "+")
		assert.NotContains(t, encoded, "/")
		assert.NotContains(t, encoded, "=")
	}
}

func TestCodec_Encode_NeverCollidesWithChallengePrefix(t *testing.T) {
	codec := newCodec(t)

	for offset := int64(1); offset <= 500; offset++ {
		assert.False(t, strings.HasPrefix(codec.EncodeSingle(offset), "verify-"))
	}
}

func TestCodec_Deterministic(t *testing.T) {
	codec := newCodec(t)

	assert.Equal(t, codec.EncodeSingle(7), codec.EncodeSingle(7))
	assert.Equal(t, codec.EncodeRange(3, 9), codec.EncodeRange(3, 9))
}

func TestCodec_PositiveAnchorEquivalent(t *testing.T) {
	// The codec works on the anchor's absolute value, so the sign of the
	// configured channel id does not change the wire format.
	negCodec := newCodec(t)
	posCodec, err := NewCodec(-testAnchor)
	require.NoError(t, err)

	assert.Equal(t, negCodec.EncodeSingle(7), posCodec.EncodeSingle(7))
}
