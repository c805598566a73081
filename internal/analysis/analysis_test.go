package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terms(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Term
	}
	return out
}

// =============================================================================
// Normalize
// =============================================================================

func TestNormalize_StripsMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"heading", "## Event Sourcing", "event sourcing"},
		{"emphasis", "Use **sagas** for *long* flows", "use sagas for long flows"},
		{"link", "See [the guide](https://example.com/guide)", "see the guide"},
		{"image", "![Saga diagram](saga.png) below", "saga diagram below"},
		{"inline code", "Call `Publish` once", "call publish once"},
		{"html", "<p>Hello <b>world</b></p>", "hello world"},
		{"html comment", "before <!-- hidden --> after", "before after"},
		{"list", "- one\n- two\n1. three", "one two three"},
		{"quote", "> quoted text", "quoted text"},
		{"table", "| a | b |\n|---|---|", "a b --- ---"},
		{"nfkc", "ﬁle", "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_RemovesCodeFences(t *testing.T) {
	input := "Intro text\n```mermaid\ngraph TD\n  A --> B\n```\nOutro text"

	got := Normalize(input)

	assert.Equal(t, "intro text outro text", got)
}

func TestNormalize_WhitespaceOnlyEditsAreStable(t *testing.T) {
	// Given: two sources differing only in whitespace
	a := "# Title\n\nThe  outbox pattern\tguarantees delivery."
	b := "# Title\n\n\n  The outbox   pattern guarantees\n delivery.  "

	// Then: both normalize identically
	assert.Equal(t, Normalize(a), Normalize(b))
}

func TestStripMarkup_KeepsCase(t *testing.T) {
	assert.Equal(t, "Event Sourcing in Go.", StripMarkup("# Event *Sourcing* in Go."))
	assert.Empty(t, StripMarkup(""))
}

// =============================================================================
// Tokenize
// =============================================================================

func TestTokenize_SplitsOnNonAlphanumeric(t *testing.T) {
	tokens := Analyze("CQRS/event-sourcing: v2 API's")

	assert.Equal(t, []string{"cqrs", "event", "sourcing", "v2", "api", "s"}, terms(tokens))
}

func TestTokenize_DropsStopWordsKeepsPositions(t *testing.T) {
	tokens := Analyze("The state of the art")

	require.Len(t, tokens, 2)
	assert.Equal(t, Token{Term: "state", Position: 2}, tokens[0])
	assert.Equal(t, Token{Term: "art", Position: 5}, tokens[1])
}

func TestTokenize_Unicode(t *testing.T) {
	tokens := Analyze("Café résumé naïve")

	assert.Equal(t, []string{"café", "résumé", "naïve"}, terms(tokens))
}

func TestTokenize_Empty(t *testing.T) {
	assert.Nil(t, Tokenize(""))
	assert.Empty(t, Analyze("  the  of  "))
}

func TestQueryTerms_DeduplicatesInOrder(t *testing.T) {
	assert.Equal(t, []string{"saga", "pattern"}, QueryTerms("Saga pattern SAGA"))
	assert.Empty(t, QueryTerms(""))
}

func TestQueryTerms_MatchDocumentTokens(t *testing.T) {
	// Given: a document term written with markup and mixed case
	doc := Analyze("## **Event-Sourcing** with `Kafka`")

	// When: querying with the plain form
	q := QueryTerms("event sourcing kafka")

	// Then: every query term is among the document terms
	assert.Subset(t, terms(doc), q)
}
