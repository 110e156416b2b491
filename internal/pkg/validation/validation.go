package validation

import (
	"regexp"
	"strconv"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MaxCodeLength matches the invitation_codes.code column.
const MaxCodeLength = 64

// Codes are compared after trim+uppercase; only the normalized form is checked here.
var codeRe = regexp.MustCompile(`^\S{1,` + strconv.Itoa(MaxCodeLength) + `}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidCode reports whether a normalized invitation or promo code is well formed.
// A malformed code can never match a stored one, so callers may reject it early.
func IsValidCode(code string) bool {
	return codeRe.MatchString(code)
}
