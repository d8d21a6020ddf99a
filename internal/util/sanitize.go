package util

import (
	"strings"
	"unicode"
)

// NormalizeEmail produces the lookup key for an address: invisible and control
// characters stripped, surrounding space trimmed, lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(stripInvisible(email))
}

// NormalizeUsername trims the display name and drops invisible characters.
// Case is preserved.
func NormalizeUsername(username string) string {
	return stripInvisible(username)
}

func stripInvisible(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	builder := strings.Builder{}
	builder.Grow(len(trimmed))

	for _, char := range trimmed {
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}

		builder.WriteRune(char)
	}

	return strings.TrimSpace(builder.String())
}

// isInvisibleUnicode returns true for zero-width, formatting, and other
// invisible Unicode characters that should never reach a stored identifier.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // Zero-Width Space
		'\u200C', // Zero-Width Non-Joiner
		'\u200D', // Zero-Width Joiner
		'\u200E', // Left-to-Right Mark
		'\u200F', // Right-to-Left Mark
		'\u2060', // Word Joiner
		'\uFEFF': // Zero-Width No-Break Space / BOM
		return true
	}

	// Format characters (Cf category)
	return unicode.Is(unicode.Cf, r)
}
