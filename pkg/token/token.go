// Package token provides compact, HMAC-signed tokens for embedding JSON
// payloads in URLs, such as email verification links.
//
// Token format: base64url(payload).base64url(signature)
//
// The signature is a full HMAC-SHA256 over the payload bytes. Tokens carry
// their own expiry inside the payload; callers are expected to check it
// after parsing.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrInvalidToken     = errors.New("invalid token format")
	ErrSignatureInvalid = errors.New("signature mismatch")
)

// Generate creates a token by JSON encoding the payload and appending an
// HMAC-SHA256 signature.
func Generate[T any](payload T, secret string) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	payloadEnc := base64.RawURLEncoding.EncodeToString(data)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	sigEnc := base64.RawURLEncoding.EncodeToString(h.Sum(nil))

	return payloadEnc + "." + sigEnc, nil
}

// Parse verifies the token's signature in constant time and decodes the
// JSON payload into the generic type.
func Parse[T any](token string, secret string) (T, error) {
	var payload T
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return payload, ErrInvalidToken
	}

	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return payload, ErrInvalidToken
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return payload, ErrInvalidToken
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	expectedSig := h.Sum(nil)

	if subtle.ConstantTimeCompare(sig, expectedSig) != 1 {
		return payload, ErrSignatureInvalid
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, ErrInvalidToken
	}

	return payload, nil
}
