package search

import (
	"strings"
	"unicode"
)

const ellipsis = "…"

// snippet returns a window of at most maxChars runes of text around the
// first occurrence of any matched term. Without a match it returns the
// start of the text.
func snippet(text string, terms []string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	first := -1
	for _, term := range terms {
		if idx := indexRunes(lower, []rune(term)); idx >= 0 && (first < 0 || idx < first) {
			first = idx
		}
	}

	start := 0
	if first > maxChars/4 {
		start = first - maxChars/4
		for start > 0 && !unicode.IsSpace(runes[start-1]) {
			start++
			if start >= first {
				break
			}
		}
	}
	end := start + maxChars
	if end > len(runes) {
		end = len(runes)
		start = max(0, end-maxChars)
	}

	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = ellipsis + out
	}
	if end < len(runes) {
		out += ellipsis
	}
	return out
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if haystack[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
