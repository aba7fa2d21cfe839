// Package auth authenticates inbound readings against per-device shared
// secrets using HMAC-SHA256 over the raw payload bytes.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// Verification failures are distinct sentinel errors so callers can report
// the precise rejection reason; a generic "unauthorized" hides device
// misconfiguration from whoever has to debug it.
var (
	// ErrMissingCredentials means no device identity or no signature was supplied.
	ErrMissingCredentials = errors.New("missing device identity or signature")
	// ErrUnknownDevice means the device identity is absent from the secret table.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrSignatureMismatch means the computed signature differs from the received one.
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Verifier validates payload signatures against a static device-secret table
// resolved once at startup. Lookups are read-only after construction, so the
// verifier is safe for concurrent use.
type Verifier struct {
	secrets map[string]string
}

// NewVerifier creates a Verifier over a copy of the given secret table.
func NewVerifier(secrets map[string]string) *Verifier {
	table := make(map[string]string, len(secrets))
	for id, secret := range secrets {
		table[id] = secret
	}
	return &Verifier{secrets: table}
}

// Verify checks that signature is the HMAC-SHA256 of body under the secret
// registered for deviceID. The body must be the exact bytes received on the
// wire: re-serializing a parsed structure can reorder keys or reformat
// numbers and silently invalidate signatures produced by another serializer.
// The comparison is constant-time. Verification has no side effects.
func (v *Verifier) Verify(deviceID, signature string, body []byte) error {
	if deviceID == "" || signature == "" {
		return ErrMissingCredentials
	}
	secret, ok := v.secrets[deviceID]
	if !ok {
		return ErrUnknownDevice
	}

	expected := Sign(secret, body)
	received := strings.ToLower(signature)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign computes the lowercase hex HMAC-SHA256 of body under secret. Devices
// and the simulator use the same function, so both sides of the contract
// live in one place.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
