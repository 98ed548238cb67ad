package enrich

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// HeuristicDisplayName derives a human-readable name from the local part of
// an identity string when the directory has no entry. "jane.doe@school.org"
// becomes "Jane Doe"; a local part with no separator is simply title-cased.
func HeuristicDisplayName(identity string) string {
	local := identity
	if at := strings.IndexByte(identity, '@'); at >= 0 {
		local = identity[:at]
	}
	local = strings.TrimSpace(local)
	if local == "" {
		return ""
	}

	segments := strings.Split(local, ".")
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		parts = append(parts, titleCase(segment))
	}
	if len(parts) == 0 {
		return titleCase(local)
	}
	return strings.Join(parts, " ")
}

// titleCase uppercases the first rune and lowercases the rest
func titleCase(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
