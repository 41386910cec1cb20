package service

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

func newID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func newStoredName() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return "f_" + hex.EncodeToString(bytes)
}

// newShareToken returns 32 bytes of cryptographic randomness, url-safe
// base64 encoded without padding. The string is the capability itself.
func newShareToken() string {
	bytes := make([]byte, 32)
	_, _ = rand.Read(bytes)
	return base64.RawURLEncoding.EncodeToString(bytes)
}
