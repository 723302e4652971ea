package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeIdentifier trims an external id such as a hospital or patient id.
// Ids are case-sensitive, so only surrounding whitespace is removed.
func NormalizeIdentifier(id string) string {
	return strings.TrimSpace(id)
}

// NormalizeMode lower-cases a booking mode such as "Online".
func NormalizeMode(mode string) string {
	return strings.ToLower(strings.TrimSpace(mode))
}
