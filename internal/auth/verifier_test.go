package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDevice = "node-esp32-01"
	testSecret = "correct horse battery staple"
)

func newTestVerifier() *Verifier {
	return NewVerifier(map[string]string{testDevice: testSecret})
}

func TestVerify(t *testing.T) {
	body := []byte(`{"zoneId":"z1","nodeId":"n1","temp_c":35}`)

	t.Run("valid signature accepted", func(t *testing.T) {
		v := newTestVerifier()
		sig := Sign(testSecret, body)
		assert.NoError(t, v.Verify(testDevice, sig, body))
	})

	t.Run("uppercase hex accepted", func(t *testing.T) {
		v := newTestVerifier()
		sig := strings.ToUpper(Sign(testSecret, body))
		assert.NoError(t, v.Verify(testDevice, sig, body))
	})

	t.Run("missing credentials", func(t *testing.T) {
		v := newTestVerifier()
		sig := Sign(testSecret, body)

		assert.ErrorIs(t, v.Verify("", sig, body), ErrMissingCredentials)
		assert.ErrorIs(t, v.Verify(testDevice, "", body), ErrMissingCredentials)
	})

	t.Run("unknown device", func(t *testing.T) {
		v := newTestVerifier()
		sig := Sign(testSecret, body)
		assert.ErrorIs(t, v.Verify("node-imposter", sig, body), ErrUnknownDevice)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		v := newTestVerifier()
		sig := Sign("some other secret", body)
		assert.ErrorIs(t, v.Verify(testDevice, sig, body), ErrSignatureMismatch)
	})

	t.Run("any single-byte perturbation rejected", func(t *testing.T) {
		v := newTestVerifier()
		sig := Sign(testSecret, body)

		for i := range body {
			mutated := append([]byte(nil), body...)
			mutated[i] ^= 0x01
			assert.ErrorIs(t, v.Verify(testDevice, sig, mutated), ErrSignatureMismatch,
				"flipping byte %d should invalidate the signature", i)
		}
	})

	t.Run("signature bound to device secret table copy", func(t *testing.T) {
		secrets := map[string]string{testDevice: testSecret}
		v := NewVerifier(secrets)

		// Mutating the caller's map after construction must not affect lookups.
		secrets[testDevice] = "rotated"
		delete(secrets, testDevice)

		sig := Sign(testSecret, body)
		assert.NoError(t, v.Verify(testDevice, sig, body))
	})
}

func TestSign(t *testing.T) {
	// Deterministic and byte-sensitive.
	a := Sign(testSecret, []byte("payload"))
	b := Sign(testSecret, []byte("payload"))
	c := Sign(testSecret, []byte("payloae"))

	require.Len(t, a, 64) // hex-encoded SHA-256
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, strings.ToLower(a), a)
}
