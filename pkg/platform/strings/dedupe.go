// Package strings provides string slice utilities.
package strings

import (
	"strings"
)

// DedupeAndTrimLower lowercases and trims each element, dropping empties and
// duplicates. Order of first occurrence is preserved.
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		cleaned := strings.ToLower(strings.TrimSpace(v))
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		result = append(result, cleaned)
	}
	return result
}
