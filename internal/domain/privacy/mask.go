// Package privacy masks customer PII in admin responses.
package privacy

import (
	"strings"
	"unicode"
)

// MaskMiddle keeps prefix and suffix runes and stars the rest. Values too
// short to keep both keep only their first rune.
func MaskMiddle(value string, prefix, suffix int) string {
	r := []rune(value)
	if len(r) == 0 {
		return ""
	}
	if len(r) <= prefix+suffix {
		return string(r[0]) + strings.Repeat("*", len(r)-1)
	}
	return string(r[:prefix]) + strings.Repeat("*", len(r)-prefix-suffix) + string(r[len(r)-suffix:])
}

// MaskEmail masks the local part after its first character and keeps the domain
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return MaskMiddle(email, 1, 0)
	}
	return MaskMiddle(local, 1, 0) + "@" + domain
}

// MaskPhone keeps the first three and last four digits, e.g. 010****5678.
// Numbers with fewer than seven digits keep their first two characters.
func MaskPhone(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, c := range phone {
		if unicode.IsDigit(c) {
			digits = append(digits, c)
		}
	}
	if len(digits) < 7 {
		return MaskMiddle(phone, 2, 0)
	}
	return string(digits[:3]) + "****" + string(digits[len(digits)-4:])
}

// MaskName keeps the first character
func MaskName(name string) string {
	r := []rune(name)
	if len(r) <= 1 {
		return name
	}
	return string(r[0]) + strings.Repeat("*", len(r)-1)
}

// MaskAddress keeps the first four characters
func MaskAddress(address string) string {
	r := []rune(address)
	if len(r) <= 4 {
		return MaskMiddle(address, 1, 0)
	}
	return string(r[:4]) + strings.Repeat("*", len(r)-4)
}
