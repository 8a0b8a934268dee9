// Package redact masks personal data in formatted answers before they
// leave the service. Values are replaced with fixed placeholders rather
// than partially masked so nothing about the original leaks.
package redact

import "regexp"

const (
	emailMask = "***@***.***"
	phoneMask = "**.**.**.**.**"
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	// French national numbers (0X XX XX XX XX with ., -, or space
	// separators) and international +XX forms.
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[\s.\-]?)?\(?\d{1,4}\)?(?:[\s.\-]?\d{2,4}){2,4}\b`)
)

// MaskSensitive replaces email addresses and phone numbers with fixed
// placeholders. Everything else passes through untouched.
func MaskSensitive(text string) string {
	masked := emailPattern.ReplaceAllString(text, emailMask)
	masked = phonePattern.ReplaceAllStringFunc(masked, func(match string) string {
		// Dates and amounts carry at most 8 digits; phone numbers
		// carry at least 9.
		if digitCount(match) < 9 {
			return match
		}
		return phoneMask
	})
	return masked
}

func digitCount(value string) int {
	count := 0
	for _, r := range value {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}
