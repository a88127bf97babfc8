package shared

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxInputLength caps every free-text field before persistence.
	MaxInputLength = 10000

	// MaxChatTitleLength is the longest accepted chat title.
	MaxChatTitleLength = 100

	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SanitizeInput trims surrounding whitespace and truncates to MaxInputLength characters.
func SanitizeInput(input string) string {
	return Truncate(strings.TrimSpace(input), MaxInputLength)
}

// Truncate returns at most n characters of s without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword returns a caller-facing message when password is unacceptable,
// or an empty string when it is fine.
func ValidatePassword(password string) string {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return "Password must be at least 8 characters"
	}
	return ""
}

// ValidChatTitle reports whether an already-trimmed title is between 1 and 100 characters.
func ValidChatTitle(title string) bool {
	n := utf8.RuneCountInString(title)
	return n > 0 && n <= MaxChatTitleLength
}
