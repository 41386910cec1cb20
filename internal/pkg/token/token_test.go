package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestSignVerifyRoundTrip(t *testing.T) {
	issued, err := Sign("user-1", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := Verify(issued, testSecret)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Greater(t, claims.ExpiresAt, claims.IssuedAt)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issued, err := Sign("user-1", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = Verify(issued, []byte("other-secret"))
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, tokenString := range []string{
		"",
		"onlyone",
		"two.parts",
		"a.b.c.d",
	} {
		_, err := Verify(tokenString, testSecret)
		require.ErrorIs(t, err, ErrMalformed, "token %q", tokenString)
	}
}

func TestVerifyRejectsSingleBitFlip(t *testing.T) {
	issued, err := Sign("user-1", testSecret, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(issued, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	for i := range sig {
		for bit := 0; bit < 8; bit++ {
			flipped := make([]byte, len(sig))
			copy(flipped, sig)
			flipped[i] ^= 1 << bit
			tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(flipped)
			_, err := Verify(tampered, testSecret)
			require.ErrorIs(t, err, ErrBadSignature)
		}
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	// exp == now is still valid, exp < now is expired
	now := time.Now().Unix()
	boundary := signWithClaims(t, Claims{Subject: "user-1", IssuedAt: now - 60, ExpiresAt: now})
	_, err := Verify(boundary, testSecret)
	require.NoError(t, err)

	past := signWithClaims(t, Claims{Subject: "user-1", IssuedAt: now - 60, ExpiresAt: now - 1})
	_, err = Verify(past, testSecret)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	issued := signWithClaims(t, Claims{Subject: "user-1", IssuedAt: time.Now().Unix()})
	_, err := Verify(issued, testSecret)
	require.ErrorIs(t, err, ErrMalformed)
}

func signWithClaims(t *testing.T, claims Claims) string {
	t.Helper()
	headerJSON, err := json.Marshal(header{Alg: "HS256", Typ: "OLT"})
	require.NoError(t, err)
	payloadJSON, err := json.Marshal(claims)
	require.NoError(t, err)
	signing := encoding.EncodeToString(headerJSON) + "." + encoding.EncodeToString(payloadJSON)
	return signing + "." + encoding.EncodeToString(sign([]byte(signing), testSecret))
}
