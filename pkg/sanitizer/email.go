// Package sanitizer normalizes untrusted user input before it reaches
// validation or storage.
package sanitizer

import (
	"regexp"
	"strings"
)

var dotRegex = regexp.MustCompile(`\.{2,}`)

// NormalizeEmail prevents common email input errors but preserves the
// original string for invalid formats. The store compares emails as
// normalized, so one account exists per address regardless of input casing.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := parts[0]
	domain := parts[1]

	// Consolidate consecutive dots to prevent delivery failures
	local = dotRegex.ReplaceAllString(local, ".")
	local = strings.Trim(local, ".")

	return local + "@" + domain
}

// TrimName collapses surrounding whitespace on a display name.
func TrimName(name string) string {
	return strings.TrimSpace(name)
}
