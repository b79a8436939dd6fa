package discovery

import (
	"path/filepath"
	"strings"
)

// Filter filters notebooks and item ids by name pattern
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterByName keeps notebooks whose file name matches pattern.
// Supports patterns like "*report.ipynb" or "*sales*"
func (f *Filter) FilterByName(notebooks []string, pattern string) []string {
	if pattern == "" {
		return notebooks
	}

	var filtered []string
	for _, nb := range notebooks {
		if f.Match(filepath.Base(nb), pattern) {
			filtered = append(filtered, nb)
		}
	}
	return filtered
}

// Match reports whether name matches pattern: a filepath.Match glob, a
// wildcard substring pattern such as "*sales*", or a plain substring
func (f *Filter) Match(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	// Try to match using filepath.Match (supports * and ? wildcards)
	if matched, err := filepath.Match(pattern, name); err == nil && matched {
		return true
	}

	// Wildcard patterns that filepath.Match rejects still match when every
	// literal part is present in order
	if strings.Contains(pattern, "*") {
		rest := name
		hasNonEmptyPart := false
		for _, part := range strings.Split(pattern, "*") {
			if part == "" {
				continue
			}
			hasNonEmptyPart = true
			i := strings.Index(rest, part)
			if i < 0 {
				return false
			}
			rest = rest[i+len(part):]
		}
		return hasNonEmptyPart
	}

	// If no wildcards, do a simple contains check
	if !strings.Contains(pattern, "?") {
		return strings.Contains(name, pattern)
	}
	return false
}
