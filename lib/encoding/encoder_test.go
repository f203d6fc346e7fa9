package encoding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPayload mirrors the shape of a wire request.
type testPayload struct {
	ID     string         `msgpack:"id"`
	Name   string         `msgpack:"name"`
	Flag   bool           `msgpack:"flag,omitempty"`
	Params map[string]any `msgpack:"params,omitempty"`
}

func TestNewCodec(t *testing.T) {
	// Should work with any key length (derives 32-byte key)
	_, err := NewCodec([]byte("short"))
	require.NoError(t, err)

	_, err = NewCodec([]byte("this-is-a-32-byte-key-for-aes!!!"))
	require.NoError(t, err)

	c, err := NewCodec([]byte("k"), WithSealing())
	require.NoError(t, err)
	assert.True(t, c.Sealed())
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"signed", nil},
		{"sealed", []Option{WithSealing()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCodec([]byte("test-key"), tt.opts...)
			require.NoError(t, err)

			original := testPayload{
				ID:     "1;a",
				Name:   "c:Ctrl/ACTION$doThing",
				Flag:   true,
				Params: map[string]any{"x": 7, "label": "seven"},
			}

			encoded, err := c.Encode(original)
			require.NoError(t, err)

			var decoded testPayload
			require.NoError(t, c.Decode(encoded, &decoded))

			assert.Equal(t, original.ID, decoded.ID)
			assert.Equal(t, original.Name, decoded.Name)
			assert.Equal(t, original.Flag, decoded.Flag)
			// Loose decoding widens small integers.
			assert.Equal(t, int64(7), decoded.Params["x"])
			assert.Equal(t, "seven", decoded.Params["label"])
		})
	}
}

func TestSignatureVerificationFailure(t *testing.T) {
	c, err := NewCodec([]byte("test-key"))
	require.NoError(t, err)

	encoded, err := c.Encode(testPayload{ID: "1;a", Name: "test"})
	require.NoError(t, err)

	// Tamper with the encoded string
	tampered := encoded[:len(encoded)-2] + "XX"

	var decoded testPayload
	err = c.Decode(tampered, &decoded)
	require.Error(t, err)
	assert.True(t, errorIsAny(err, ErrSignatureInvalid, ErrInvalidFormat), "got %v", err)
}

func TestDecryptionFailure(t *testing.T) {
	c, err := NewCodec([]byte("test-key"), WithSealing())
	require.NoError(t, err)

	encoded, err := c.Encode(testPayload{ID: "1;a", Name: "test"})
	require.NoError(t, err)

	tampered := encoded[:len(encoded)-2] + "XX"

	var decoded testPayload
	assert.Error(t, c.Decode(tampered, &decoded), "tampered ciphertext")
}

func TestInvalidFormat(t *testing.T) {
	c, err := NewCodec([]byte("test-key"))
	require.NoError(t, err)

	// Missing signature separator
	var decoded testPayload
	assert.ErrorIs(t, c.Decode("invalidbase64withoutseparator", &decoded), ErrInvalidFormat)
}

func TestDifferentKeysCannotDecode(t *testing.T) {
	c1, _ := NewCodec([]byte("key-one"))
	c2, _ := NewCodec([]byte("key-two"))

	encoded, err := c1.Encode(testPayload{ID: "1;a"})
	require.NoError(t, err)

	var decoded testPayload
	assert.ErrorIs(t, c2.Decode(encoded, &decoded), ErrSignatureInvalid)
}

func TestModesDoNotMix(t *testing.T) {
	signed, _ := NewCodec([]byte("key"))
	sealed, _ := NewCodec([]byte("key"), WithSealing())

	encoded, err := signed.Encode(testPayload{ID: "1;a"})
	require.NoError(t, err)

	var decoded testPayload
	assert.Error(t, sealed.Decode(encoded, &decoded), "sealed codec rejects a signed payload")
}

func errorIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
