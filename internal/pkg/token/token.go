// Package token implements the signed bearer credentials used by the API.
//
// A token is three raw-url-base64 segments joined by dots: a fixed header,
// a JSON payload with subject and expiry, and an HMAC-SHA-256 signature
// over the first two segments. Verification is stateless; a validly signed,
// unexpired token is always accepted.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrMissing      = errors.New("token missing")
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature mismatch")
	ErrExpired      = errors.New("token expired")
)

type Claims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

var encoding = base64.RawURLEncoding

// Sign issues a token for subject, valid for ttl from now.
func Sign(subject string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	headerJSON, err := json.Marshal(header{Alg: "HS256", Typ: "OLT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(Claims{
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}
	signing := encoding.EncodeToString(headerJSON) + "." + encoding.EncodeToString(payloadJSON)
	return signing + "." + encoding.EncodeToString(sign([]byte(signing), secret)), nil
}

// Verify checks the signature and expiry of a token and returns its claims.
// The signature comparison is constant time. A token whose exp equals the
// current second is still valid; it expires strictly after that instant.
func Verify(tokenString string, secret []byte) (*Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, ErrMalformed
	}
	suppliedSig, err := encoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrMalformed
	}
	expectedSig := sign([]byte(parts[0]+"."+parts[1]), secret)
	if !hmac.Equal(suppliedSig, expectedSig) {
		return nil, ErrBadSignature
	}
	payloadJSON, err := encoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrMalformed
	}
	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, ErrMalformed
	}
	if claims.ExpiresAt == 0 {
		return nil, ErrMalformed
	}
	if claims.ExpiresAt < time.Now().Unix() {
		return nil, ErrExpired
	}
	return &claims, nil
}

func sign(data, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	return mac.Sum(nil)
}
