// Package tags normalizes user-supplied file tags before they reach the API.
package tags

import "strings"

// Normalize trims whitespace, drops empties, and deduplicates
// case-insensitively while preserving the first spelling seen. The result
// is never nil.
func Normalize(raw []string) []string {
	result := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, tag)
	}
	return result
}

// ParseCommaSeparated splits a comma-separated string into normalized tags.
// Empty input yields an empty, non-nil slice.
func ParseCommaSeparated(input string) []string {
	if strings.TrimSpace(input) == "" {
		return []string{}
	}
	return Normalize(strings.Split(input, ","))
}
