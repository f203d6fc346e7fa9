package aura

import (
	"errors"

	"github.com/pthm/aura/lib/encoding"
)

// Codec is an alias for encoding.Codec for convenience.
type Codec = encoding.Codec

// NewCodec creates a wire codec with the given key. Sealed codecs encrypt
// payloads; others sign them.
func NewCodec(key []byte, sealed bool) (*Codec, error) {
	if sealed {
		return encoding.NewCodec(key, encoding.WithSealing())
	}
	return encoding.NewCodec(key)
}

// IsIntegrityError checks if err reports a payload that failed signature
// verification or decryption.
func IsIntegrityError(err error) bool {
	return errors.Is(err, encoding.ErrSignatureInvalid) || errors.Is(err, encoding.ErrDecryptFailed)
}
