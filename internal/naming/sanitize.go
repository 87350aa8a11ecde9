package naming

import (
	"regexp"
	"strings"
)

// FallbackComponent is substituted when sanitization empties a path component.
const FallbackComponent = "未命名"

var (
	invalidFilenamePattern = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]+`)
	whitespacePattern      = regexp.MustCompile(`\s+`)
)

// NormalizeSpaces collapses runs of whitespace to single spaces and trims.
func NormalizeSpaces(value string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))
}

// SanitizeComponent turns arbitrary text into a filesystem-safe path
// component. Characters that are illegal in file names become dashes,
// trailing dots and spaces are stripped, and an empty result falls back to
// the provided token. The function is total: it never fails.
func SanitizeComponent(value, fallback string) string {
	text := NormalizeSpaces(value)
	text = invalidFilenamePattern.ReplaceAllString(text, "-")
	text = strings.TrimRight(text, ". ")
	if text == "" {
		return fallback
	}
	return text
}
