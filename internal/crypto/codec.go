// Package crypto provides field-level authenticated encryption for text that
// leaves process memory for durable storage.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
)

// Scheme tags recorded alongside every stored payload so readers know whether
// a value was encrypted at write time.
const (
	SchemeNone   = "none"
	SchemeAESGCM = "aes-256-gcm"
)

const nonceSize = 12

// Payload is the durable form of one encrypted field.
type Payload struct {
	Scheme     string
	Ciphertext string
}

// Codec encrypts and decrypts free-text fields with AES-256-GCM. A codec
// without key material passes text through unchanged under SchemeNone.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec builds a codec from raw key material. The material is tried as
// base64 first, then as raw bytes; anything that does not yield exactly 32
// bytes disables encryption instead of failing startup. Availability is
// deliberately preferred over confidentiality here.
func NewCodec(keyMaterial string) *Codec {
	if keyMaterial == "" {
		return &Codec{}
	}
	key, err := base64.StdEncoding.DecodeString(keyMaterial)
	if err != nil {
		key = []byte(keyMaterial)
	}
	if len(key) != 32 {
		slog.Warn("encryption key material does not decode to 32 bytes, storing in clear",
			"key_len", len(key))
		return &Codec{}
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		slog.Warn("failed to initialize cipher, storing in clear", "error", err)
		return &Codec{}
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		slog.Warn("failed to initialize GCM, storing in clear", "error", err)
		return &Codec{}
	}
	return &Codec{aead: aead}
}

// Enabled reports whether the codec has active key material.
func (c *Codec) Enabled() bool {
	return c.aead != nil
}

// Encrypt seals plaintext under a fresh random nonce. Without key material
// the plaintext is returned unchanged, tagged SchemeNone.
func (c *Codec) Encrypt(plaintext string) Payload {
	if c.aead == nil {
		return Payload{Scheme: SchemeNone, Ciphertext: plaintext}
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		// rand.Reader failing means the process is in a bad state; degrade
		// to clear storage rather than dropping the write.
		slog.Error("nonce generation failed, storing in clear", "error", err)
		return Payload{Scheme: SchemeNone, Ciphertext: plaintext}
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	blob := append(nonce, sealed...)
	return Payload{
		Scheme:     SchemeAESGCM,
		Ciphertext: base64.StdEncoding.EncodeToString(blob),
	}
}

// Decrypt reverses Encrypt. A scheme other than the active one is treated as
// already-plaintext and returned unchanged. Authentication failure or a
// malformed blob yields an empty string; callers must treat that as
// "unavailable", not as an empty user message.
func (c *Codec) Decrypt(scheme, ciphertext string) string {
	if scheme != SchemeAESGCM || c.aead == nil {
		return ciphertext
	}
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(blob) < nonceSize {
		return ""
	}
	plaintext, err := c.aead.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return ""
	}
	return string(plaintext)
}
