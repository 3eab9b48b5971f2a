package validator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex       = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?~` + "`" + `]`)

	// Frequently compromised passwords rejected regardless of composition.
	commonPasswords = map[string]bool{
		"password":      true,
		"password1":     true,
		"password123":   true,
		"password!":     true,
		"123456":        true,
		"12345678":      true,
		"123456789":     true,
		"1234567890":    true,
		"qwerty":        true,
		"qwerty123":     true,
		"qwertyuiop":    true,
		"abc123":        true,
		"letmein":       true,
		"welcome":       true,
		"monkey":        true,
		"dragon":        true,
		"sunshine":      true,
		"iloveyou":      true,
		"princess":      true,
		"football":      true,
		"admin":         true,
		"admin123":      true,
		"administrator": true,
		"root":          true,
		"guest":         true,
		"test":          true,
		"testing":       true,
		"login":         true,
		"master":        true,
		"secret":        true,
		"trustno1":      true,
		"superman":      true,
		"batman":        true,
		"shadow":        true,
		"111111":        true,
		"000000":        true,
		"123123":        true,
	}
)

// PasswordStrengthConfig controls the composition requirements enforced by
// StrongPassword.
type PasswordStrengthConfig struct {
	MinLength        int
	MaxLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigits    bool
	RequireSpecial   bool
	MinCharClasses   int // Minimum number of different character classes required
}

// DefaultPasswordStrength returns the registration policy: 8-72 chars with
// mixed case, a digit, and a symbol. The maximum matches bcrypt's 72-byte
// input limit so every policy-valid password is hashable.
func DefaultPasswordStrength() PasswordStrengthConfig {
	return PasswordStrengthConfig{
		MinLength:        8,
		MaxLength:        72,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigits:    true,
		RequireSpecial:   true,
		MinCharClasses:   4,
	}
}

func StrongPassword(field, value string, config PasswordStrengthConfig) Rule {
	return Rule{
		Check: func() bool {
			if len(value) < config.MinLength || len(value) > config.MaxLength {
				return false
			}

			charClasses := 0
			hasUpper := uppercaseRegex.MatchString(value)
			hasLower := lowercaseRegex.MatchString(value)
			hasDigit := digitRegex.MatchString(value)
			hasSpecial := specialCharRegex.MatchString(value)

			if hasUpper {
				charClasses++
			}
			if hasLower {
				charClasses++
			}
			if hasDigit {
				charClasses++
			}
			if hasSpecial {
				charClasses++
			}

			if config.RequireUppercase && !hasUpper {
				return false
			}
			if config.RequireLowercase && !hasLower {
				return false
			}
			if config.RequireDigits && !hasDigit {
				return false
			}
			if config.RequireSpecial && !hasSpecial {
				return false
			}

			return charClasses >= config.MinCharClasses
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("password must be %d-%d characters with required character types", config.MinLength, config.MaxLength),
		},
	}
}

func NotCommonPassword(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return !commonPasswords[strings.ToLower(value)]
		},
		Error: ValidationError{
			Field:   field,
			Message: "password is too common, please choose a different one",
		},
	}
}
