package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"short1", false},
		{"alllettersnodigit", false},
		{"12345678901", false},
		{"goodpass1", true},
		{"pass1234", true},
		{strings.Repeat("a", 127) + "1", true},
		{strings.Repeat("a", 128) + "1", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidPassword(tt.in); got != tt.want {
			t.Errorf("IsValidPassword(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.com", "first.last+tag@sub.example.cl", "x@localhost"}
	invalid := []string{"", "no-at-sign", "a@", "@b.com", "a b@c.com", "a@-b.com", strings.Repeat("a", 250) + "@b.com"}

	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("%q should be valid", e)
		}
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("%q should be invalid", e)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  A@B.Com "); got != "a@b.com" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  <b>Jo</b> "); got != "bJo/b" {
		t.Fatalf("got %q", got)
	}

	long := strings.Repeat("ñ", 600)
	if got := SanitizeString(long); len([]rune(got)) != 500 {
		t.Fatalf("expected 500 runes, got %d", len([]rune(got)))
	}
}

func TestHashPassword_EnforcesMinCost(t *testing.T) {
	hash, err := HashPassword("goodpass1", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost < MinCost {
		t.Fatalf("cost %d below minimum %d", cost, MinCost)
	}

	if err := CheckPassword(hash, "goodpass1"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := CheckPassword(hash, "wrongpass1"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestHashPassword_LongPasswordsBeyondBcryptLimit(t *testing.T) {
	tests := []struct {
		name  string
		plain string
	}{
		{"ascii 100", strings.Repeat("a", 99) + "1"},
		{"multibyte 128 runes", strings.Repeat("ñ", 127) + "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !IsValidPassword(tt.plain) {
				t.Fatalf("policy rejected %q", tt.name)
			}

			hash, err := HashPassword(tt.plain, MinCost)
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			if err := CheckPassword(hash, tt.plain); err != nil {
				t.Fatalf("correct password rejected: %v", err)
			}
		})
	}
}
