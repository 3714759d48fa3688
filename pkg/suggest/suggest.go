// Package suggest extracts follow-up suggestion strings from an assistant's
// markdown reply. The relay's composed system prompt asks the model to
// append a "Follow-up suggestions" section; this package is the client-side
// half of that contract, deriving the quick-reply chips.
package suggest

import (
	"regexp"
	"strings"
)

// MaxSuggestions bounds how many suggestions are extracted per reply.
const MaxSuggestions = 5

var (
	bulletItem   = regexp.MustCompile(`^[-*]\s+(.+)$`)
	numberedItem = regexp.MustCompile(`^\d+\.\s+(.+)$`)
)

// Extract parses a free-form markdown reply and returns up to MaxSuggestions
// follow-up question strings in document order. The suggestions header is a
// hard gate: without it the result is empty. Extract is pure; re-running it
// on the same text yields identical output.
func Extract(markdown string) []string {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}

	lines := strings.Split(markdown, "\n")
	start := -1
	for i, line := range lines {
		if isHeader(line) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	var suggestions []string
	for _, line := range lines[start:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			if isHeader(line) {
				continue
			}
			// A new heading ends the section only once an item has
			// been collected. Before the first item we keep scanning,
			// so a stray heading between the header and the list does
			// not lose the suggestions.
			if len(suggestions) > 0 {
				break
			}
			continue
		}

		item := ""
		if m := bulletItem.FindStringSubmatch(trimmed); m != nil {
			item = m[1]
		} else if m := numberedItem.FindStringSubmatch(trimmed); m != nil {
			item = m[1]
		}

		if item == "" {
			// The list is assumed contiguous: the first non-blank
			// non-list line after collection has begun ends it.
			if len(suggestions) > 0 {
				break
			}
			continue
		}

		suggestions = append(suggestions, strings.TrimSpace(item))
		if len(suggestions) == MaxSuggestions {
			break
		}
	}

	return suggestions
}

// isHeader reports whether the line is the suggestions section header:
// "follow-up suggestions" with or without a trailing colon, or a
// "### follow-up suggestions" heading, case-insensitive.
func isHeader(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	return l == "follow-up suggestions:" ||
		l == "follow-up suggestions" ||
		strings.HasPrefix(l, "### follow-up suggestions")
}
