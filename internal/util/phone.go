package util

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizePhone reduces user input to canonical digits-only, country-coded
// form: "+49 170 1234567" and "0049-170-1234567" both become "491701234567".
// The function is idempotent: normalizing an already-normalized number is a
// no-op.
func NormalizePhone(raw string) string {
	s := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")
	if strings.HasPrefix(s, "00") {
		s = strings.TrimLeft(s, "0")
	}
	return s
}

// ValidPhone reports whether a normalized phone passes the basic length check
// (8-15 digits, per E.164 plus short national numbers).
func ValidPhone(normalized string) bool {
	n := len(normalized)
	if n < 8 || n > 15 {
		return false
	}
	for _, r := range normalized {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
