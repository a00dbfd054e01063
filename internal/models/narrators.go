// file: internal/models/narrators.go
// version: 1.0.0
// guid: c1ea0dc3-835c-4f27-bba8-6ce385043b84

package models

import "strings"

// SplitNarrators splits a narrator field on commas, trimming each token and
// dropping empty ones. Order is preserved and duplicates are removed.
func SplitNarrators(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, part := range strings.Split(field, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// FirstNarrator returns the first derived narrator name, or ""
func FirstNarrator(field string) string {
	names := SplitNarrators(field)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
