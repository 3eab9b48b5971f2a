package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrymomot/authkit/pkg/clientip"
	"github.com/dmitrymomot/authkit/pkg/ratelimit"
)

// maxPeekBytes bounds how much of the body the key function reads.
const maxPeekBytes = 1 << 16

// EmailOrIPKey keys rate limits by the lowercased email field of a JSON
// body when present, falling back to the client address. The consumed
// body is restored so the handler can decode it again.
func EmailOrIPKey() ratelimit.KeyFunc {
	return func(r *http.Request) string {
		if email := peekEmail(r); email != "" {
			return "email:" + email
		}
		return "ip:" + clientip.GetIP(r)
	}
}

// IPKey keys rate limits by client address only.
func IPKey() ratelimit.KeyFunc {
	return func(r *http.Request) string {
		return "ip:" + clientip.GetIP(r)
	}
}

func peekEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(payload.Email))
}
