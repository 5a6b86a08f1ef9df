package validation

import (
	"regexp"
	"strings"
	"unicode"
)

// The office only accepts Gmail addresses for booking confirmations. This is a
// deliberate restriction, not a general email-syntax check.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@gmail\.com$`)

// Philippine mobile numbers: 09XXXXXXXXX or +639XXXXXXXXX.
var phonePattern = regexp.MustCompile(`^(09|\+639)\d{9}$`)

// Email reports whether s, after trimming surrounding whitespace, is an
// acceptable booking email address.
func Email(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// Phone reports whether s, after stripping all whitespace, is a valid
// Philippine mobile number.
func Phone(s string) bool {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return phonePattern.MatchString(stripped)
}

// FieldErrors maps form field names to user-facing error messages.
type FieldErrors map[string]string

func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}
