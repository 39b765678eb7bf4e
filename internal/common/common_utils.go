package common

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

func GetResponseTime(init time.Time) string {
	timeDiff := time.Since(init).Milliseconds()
	return fmt.Sprintf("%dms", timeDiff)
}

// NormalizeName trims and collapses internal whitespace. Used for name
// lookups and cache keys.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeKey is NormalizeName lowercased.
func NormalizeKey(s string) string {
	return strings.ToLower(NormalizeName(s))
}

// DateOnly formats t as YYYY-MM-DD.
func DateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}

// StringValue dereferences a nullable string.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TruncateUTF8 cuts s to at most n bytes without splitting a rune.
func TruncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
