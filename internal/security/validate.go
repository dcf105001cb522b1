package security

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// simplified RFC 5322
var emailRegex = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

const (
	maxEmailLen    = 254
	minPasswordLen = 8
	maxPasswordLen = 128
	maxStringLen   = 500
)

func IsValidEmail(email string) bool {
	if email == "" || len(email) > maxEmailLen {
		return false
	}
	return emailRegex.MatchString(email)
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidPassword enforces 8..128 characters with at least one ASCII letter
// and one digit.
func IsValidPassword(password string) bool {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen || n > maxPasswordLen {
		return false
	}

	var letter, digit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}

	return letter && digit
}

// SanitizeString trims, drops angle brackets and caps the length.
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)

	if utf8.RuneCountInString(s) > maxStringLen {
		s = string([]rune(s)[:maxStringLen])
	}

	return s
}
