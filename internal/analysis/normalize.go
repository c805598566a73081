// Package analysis holds the text normalization and tokenization shared by
// index building and query answering. Both sides must go through the same
// routines here; any divergence makes indexed terms unreachable.
package analysis

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	fencedBlockRegex = regexp.MustCompile("(?ms)^[ \t]*(```|~~~)[^\n]*\n.*?^[ \t]*(```|~~~)[ \t]*$")
	htmlCommentRegex = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlTagRegex     = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	imageRegex       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRegex        = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	refLinkRegex     = regexp.MustCompile(`\[([^\]]*)\]\[[^\]]*\]`)
	inlineCodeRegex  = regexp.MustCompile("`([^`\n]*)`")
	headingRegex     = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+`)
	quoteRegex       = regexp.MustCompile(`(?m)^[ \t]*>+[ \t]?`)
	listMarkerRegex  = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\d+[.)])[ \t]+`)
)

var markupReplacer = strings.NewReplacer("*", " ", "~", " ", "|", " ", "`", " ")

// StripMarkup removes code fences, HTML and markdown syntax and collapses
// whitespace. Case and punctuation are kept so the result stays readable.
func StripMarkup(text string) string {
	if text == "" {
		return ""
	}

	text = fencedBlockRegex.ReplaceAllString(text, " ")
	text = htmlCommentRegex.ReplaceAllString(text, " ")
	text = htmlTagRegex.ReplaceAllString(text, " ")
	text = imageRegex.ReplaceAllString(text, "$1")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = refLinkRegex.ReplaceAllString(text, "$1")
	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	text = headingRegex.ReplaceAllString(text, "")
	text = quoteRegex.ReplaceAllString(text, "")
	text = listMarkerRegex.ReplaceAllString(text, "")
	text = markupReplacer.Replace(text)

	return strings.Join(strings.Fields(text), " ")
}

// Normalize is StripMarkup followed by NFKC folding and lowercasing.
// Content hashes are computed over normalized text so whitespace-only
// edits never change them.
func Normalize(text string) string {
	return strings.ToLower(norm.NFKC.String(StripMarkup(text)))
}
