package email

import (
	"strings"
	"unicode"
)

// IsValidAddress performs lightweight validation of an email address.
func IsValidAddress(address string) bool {
	if address == "" {
		return false
	}
	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return false
	}
	if parts[0] == "" || parts[1] == "" {
		return false
	}
	if !strings.Contains(parts[1], ".") {
		return false
	}
	return true
}

// DeriveNameFromAddress heuristically derives a display name from the
// local part of an address. Used when signup omits a first name.
func DeriveNameFromAddress(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "User"
	}
	return capitalize(parts[0])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
