package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/authkit/pkg/sanitizer"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already normalized", "alice@example.com", "alice@example.com"},
		{"uppercase", "ALICE@EXAMPLE.COM", "alice@example.com"},
		{"mixed case", "Alice@Example.Com", "alice@example.com"},
		{"surrounding whitespace", "  alice@example.com  ", "alice@example.com"},
		{"consecutive dots in local part", "ali..ce@example.com", "ali.ce@example.com"},
		{"leading and trailing dots in local part", ".alice.@example.com", "alice@example.com"},
		{"no at sign passes through lowered", "NOT-AN-EMAIL", "not-an-email"},
		{"multiple at signs pass through lowered", "a@b@c", "a@b@c"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, sanitizer.NormalizeEmail(tt.input))
		})
	}
}

func TestTrimName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Alice", sanitizer.TrimName("  Alice \t"))
	assert.Equal(t, "", sanitizer.TrimName("   "))
}
