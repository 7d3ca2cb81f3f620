package utils

import "strings"

// MaskIdentifier masks the middle of an identifier for display, keeping a
// short prefix and suffix. Short values are fully masked.
func MaskIdentifier(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// MaskUsername masks a display username, keeping the first two characters
func MaskUsername(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 2 {
		return s + "***"
	}
	return s[:2] + strings.Repeat("*", len(s)-2)
}
