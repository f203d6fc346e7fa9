package encoding

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Errors returned by Decode.
var (
	ErrInvalidFormat    = errors.New("encoding: invalid format")
	ErrSignatureInvalid = errors.New("encoding: signature verification failed")
	ErrDecryptFailed    = errors.New("encoding: decryption failed")
)

// Codec encodes wire payloads as msgpack. It supports two modes:
//   - Signed (default): base64 + HMAC signature - readable but tamper-proof
//   - Sealed: AES-256-GCM - fully opaque
//
// Both ends of a connection must share the key and the mode.
type Codec struct {
	key    []byte
	gcm    cipher.AEAD
	sealed bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithSealing encrypts payloads instead of signing them.
func WithSealing() Option {
	return func(c *Codec) {
		c.sealed = true
	}
}

// NewCodec creates a codec with the given key. Keys shorter than 32 bytes
// are stretched with SHA-256.
func NewCodec(key []byte, opts ...Option) (*Codec, error) {
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}

	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	c := &Codec{
		key: key,
		gcm: gcm,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sealed reports whether the codec encrypts payloads.
func (c *Codec) Sealed() bool {
	return c.sealed
}

// Encode serializes v with msgpack and signs or seals the result.
func (c *Codec) Encode(v any) (string, error) {
	packed, err := msgpack.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding: marshal: %w", err)
	}

	if c.sealed {
		return c.encrypt(packed)
	}
	return c.sign(packed), nil
}

// Decode verifies or opens encoded and unmarshals it into v.
//
// Integers decode into int64/uint64 and floats into float64 when the
// target is an interface, regardless of their packed width.
func (c *Codec) Decode(encoded string, v any) error {
	var packed []byte
	var err error

	if c.sealed {
		packed, err = c.decrypt(encoded)
	} else {
		packed, err = c.verify(encoded)
	}
	if err != nil {
		return err
	}

	dec := msgpack.NewDecoder(bytes.NewReader(packed))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return nil
}

// sign creates a signed (but visible) encoding: base64.signature
func (c *Codec) sign(data []byte) string {
	b64 := base64.RawURLEncoding.EncodeToString(data)
	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16]) // 16 bytes = 128 bits
	return b64 + "." + sig
}

// verify verifies and decodes a signed string
func (c *Codec) verify(encoded string) ([]byte, error) {
	parts := strings.SplitN(strings.TrimSpace(encoded), ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidFormat)
	}

	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	expected := mac.Sum(nil)[:16]

	if !hmac.Equal(sig, expected) {
		return nil, ErrSignatureInvalid
	}

	return data, nil
}

// encrypt seals data with AES-256-GCM; the nonce is prepended.
func (c *Codec) encrypt(data []byte) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := c.gcm.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// decrypt decodes and opens a sealed string
func (c *Codec) decrypt(encoded string) ([]byte, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	if len(ciphertext) < c.gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}

	nonce := ciphertext[:c.gcm.NonceSize()]
	ciphertext = ciphertext[c.gcm.NonceSize():]

	data, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return data, nil
}
