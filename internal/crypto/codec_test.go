package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestCodec_RoundTrip(t *testing.T) {
	c := NewCodec(newTestKey(t))
	require.True(t, c.Enabled())

	tests := []string{
		"I have a headache",
		"",
		"सिरदर्द है",   // Devanagari
		"தலைவலி",      // Tamil
		"মাথা ব্যথা",  // Bengali
		"emoji 🌡️ and\nnewlines",
	}
	for _, plaintext := range tests {
		p := c.Encrypt(plaintext)
		assert.Equal(t, SchemeAESGCM, p.Scheme)
		assert.Equal(t, plaintext, c.Decrypt(p.Scheme, p.Ciphertext))
	}
}

func TestCodec_NoncesAreFresh(t *testing.T) {
	c := NewCodec(newTestKey(t))
	a := c.Encrypt("same text")
	b := c.Encrypt("same text")
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestCodec_NoKeyPassesThrough(t *testing.T) {
	c := NewCodec("")
	assert.False(t, c.Enabled())

	p := c.Encrypt("visible")
	assert.Equal(t, SchemeNone, p.Scheme)
	assert.Equal(t, "visible", p.Ciphertext)
	assert.Equal(t, "visible", c.Decrypt(p.Scheme, p.Ciphertext))
}

func TestCodec_MalformedKeyDisablesEncryption(t *testing.T) {
	// 16 bytes, not 32: writes must fall back to clear storage rather
	// than aborting startup.
	c := NewCodec(base64.StdEncoding.EncodeToString(make([]byte, 16)))
	assert.False(t, c.Enabled())
	assert.Equal(t, SchemeNone, c.Encrypt("x").Scheme)
}

func TestCodec_RawKeyMaterial(t *testing.T) {
	// Key material that is not base64 but is exactly 32 raw bytes.
	c := NewCodec("0123456789abcdef0123456789abcdef")
	assert.True(t, c.Enabled())
	p := c.Encrypt("hello")
	assert.Equal(t, "hello", c.Decrypt(p.Scheme, p.Ciphertext))
}

func TestCodec_DecryptFailuresYieldEmpty(t *testing.T) {
	c := NewCodec(newTestKey(t))

	t.Run("tampered ciphertext", func(t *testing.T) {
		p := c.Encrypt("secret")
		blob, err := base64.StdEncoding.DecodeString(p.Ciphertext)
		require.NoError(t, err)
		blob[len(blob)-1] ^= 0xff
		assert.Equal(t, "", c.Decrypt(SchemeAESGCM, base64.StdEncoding.EncodeToString(blob)))
	})

	t.Run("not base64", func(t *testing.T) {
		assert.Equal(t, "", c.Decrypt(SchemeAESGCM, "%%%not-base64%%%"))
	})

	t.Run("too short", func(t *testing.T) {
		assert.Equal(t, "", c.Decrypt(SchemeAESGCM, base64.StdEncoding.EncodeToString([]byte("abc"))))
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewCodec(newTestKey(t))
		p := other.Encrypt("secret")
		assert.Equal(t, "", c.Decrypt(p.Scheme, p.Ciphertext))
	})
}

func TestCodec_UnknownSchemePassesThrough(t *testing.T) {
	c := NewCodec(newTestKey(t))
	// Records written before encryption was enabled carry scheme "none";
	// readers must not assume encryption occurred.
	assert.Equal(t, "plain", c.Decrypt(SchemeNone, "plain"))
}
