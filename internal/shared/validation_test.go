package shared

import (
	"strings"
	"testing"
)

func TestSanitizeInput(t *testing.T) {
	t.Parallel()

	if got := SanitizeInput("  hello  "); got != "hello" {
		t.Fatalf("expected trimmed input, got %q", got)
	}

	long := strings.Repeat("a", MaxInputLength+50)
	if got := SanitizeInput(long); len(got) != MaxInputLength {
		t.Fatalf("expected %d chars, got %d", MaxInputLength, len(got))
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	got := Truncate("héllo", 2)
	if got != "hé" {
		t.Fatalf("expected %q, got %q", "hé", got)
	}
	if Truncate("abc", 0) != "" {
		t.Fatal("expected empty string for zero limit")
	}
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"user@example.com": true,
		"a@b.co":           true,
		"no-at-sign.com":   false,
		"user@nodot":       false,
		"with space@x.io":  false,
	}
	for email, want := range cases {
		if got := ValidEmail(email); got != want {
			t.Errorf("ValidEmail(%q) = %v, want %v", email, got, want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	if msg := ValidatePassword("short"); msg == "" {
		t.Fatal("expected short password to be rejected")
	}
	if msg := ValidatePassword("long-enough"); msg != "" {
		t.Fatalf("expected password to pass, got %q", msg)
	}
}

func TestValidChatTitle(t *testing.T) {
	t.Parallel()

	if ValidChatTitle("") {
		t.Fatal("empty title must be invalid")
	}
	if !ValidChatTitle(strings.Repeat("x", MaxChatTitleLength)) {
		t.Fatal("100 character title must be valid")
	}
	if ValidChatTitle(strings.Repeat("x", MaxChatTitleLength+1)) {
		t.Fatal("101 character title must be invalid")
	}
}
