package storage

import (
	"regexp"
	"strings"
)

const (
	maxFileNameLength = 255

	// placeholderFileName stands in for names that sanitize away entirely,
	// so a path segment is never empty or a dot-only name like "..".
	placeholderFileName = "unnamed"
)

var unsafeFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFileName converts an arbitrary caller-supplied file name into a
// single safe path segment: traversal sequences are stripped, separators
// and any character outside [A-Za-z0-9._-] become underscores, and the
// result is capped at 255 bytes. Pure and idempotent.
func SanitizeFileName(name string) string {
	safe := strings.ReplaceAll(name, "../", "")
	safe = strings.ReplaceAll(safe, `..\`, "")
	safe = strings.ReplaceAll(safe, "/", "_")
	safe = strings.ReplaceAll(safe, `\`, "_")
	safe = unsafeFileNameChars.ReplaceAllString(safe, "_")
	if len(safe) > maxFileNameLength {
		safe = safe[:maxFileNameLength]
	}
	// Names made of only dots and underscores include "", "." and "..",
	// none of which is a usable segment when joined to a base path.
	if strings.Trim(safe, "._") == "" {
		return placeholderFileName
	}
	return safe
}
