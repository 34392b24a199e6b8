// Package textutil screens customer-supplied free text before it is
// stored on carts and orders.
package textutil

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var notesPolicy = bluemonday.StrictPolicy()

var (
	phonePattern = regexp.MustCompile(`\d{10,}|\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// blockedWords is deliberately short; moderation beyond this lives
// outside the ordering core.
var blockedWords = []string{"spam", "offensive"}

// Sanitize strips any markup from free text and trims whitespace.
func Sanitize(text string) string {
	return strings.TrimSpace(notesPolicy.Sanitize(text))
}

// ContainsBlockedContent reports whether the text contains words from
// the block list, case-insensitively.
func ContainsBlockedContent(text string) bool {
	lowered := strings.ToLower(text)
	for _, word := range blockedWords {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}

// ContainsContactInfo reports whether the text appears to contain a
// phone number or email address. Order notes must not carry contact
// details past the platform.
func ContainsContactInfo(text string) bool {
	return phonePattern.MatchString(text) || emailPattern.MatchString(text)
}

// Truncate clips text to at most limit runes, never splitting a
// multi-byte character. Negative limits leave the text unchanged.
func Truncate(text string, limit int) string {
	if limit < 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
