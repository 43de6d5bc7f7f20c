package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit. Longer inputs are rejected
	// by bcrypt, so they are reported as a rule violation instead.
	MaxPasswordBytes = 72
)

// Password rule violations, reported verbatim to clients.
const (
	RuleMinLength = "password must be at least 8 characters long"
	RuleMaxBytes  = "password must be at most 72 bytes long"
	RuleUpper     = "password must contain an uppercase letter"
	RuleLower     = "password must contain a lowercase letter"
	RuleDigit     = "password must contain a digit"
	RuleSpecial   = "password must contain a special character"
)

func HashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// PasswordViolations returns every strength rule the password breaks, in a
// fixed order. An empty result means the password is acceptable.
func PasswordViolations(password string) []string {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	var out []string
	if len([]rune(password)) < MinPasswordLength {
		out = append(out, RuleMinLength)
	}
	if len(password) > MaxPasswordBytes {
		out = append(out, RuleMaxBytes)
	}
	if !hasUpper {
		out = append(out, RuleUpper)
	}
	if !hasLower {
		out = append(out, RuleLower)
	}
	if !hasDigit {
		out = append(out, RuleDigit)
	}
	if !hasSpecial {
		out = append(out, RuleSpecial)
	}
	return out
}

// NormalizeEmail trims and lower-cases an address for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
