package analysis

import (
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
)

// DefaultStopWords is the small English stopword set dropped from postings
// and queries.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
	"if", "in", "into", "is", "it", "its", "of", "on", "or", "so", "such",
	"that", "the", "their", "then", "there", "these", "they", "this", "to",
	"was", "were", "will", "with",
}

// Token is an analyzed term and its 1-based position in the source text.
// Positions count stopwords, so adjacency survives stopword removal.
type Token struct {
	Term     string
	Position int
}

var defaultAnalyzer = newAnalyzer(DefaultStopWords)

func newAnalyzer(stopWords []string) analysis.Analyzer {
	stopTokens := analysis.NewTokenMap()
	for _, w := range stopWords {
		stopTokens.AddToken(w)
	}
	return &analysis.DefaultAnalyzer{
		Tokenizer: alnumTokenizer{},
		TokenFilters: []analysis.TokenFilter{
			lowercase.NewLowerCaseFilter(),
			stop.NewStopTokensFilter(stopTokens),
		},
	}
}

// Tokenize splits already normalized text on non-alphanumeric boundaries and
// drops stopwords.
func Tokenize(normalized string) []Token {
	if normalized == "" {
		return nil
	}
	stream := defaultAnalyzer.Analyze([]byte(normalized))
	tokens := make([]Token, 0, len(stream))
	for _, tok := range stream {
		tokens = append(tokens, Token{Term: string(tok.Term), Position: tok.Position})
	}
	return tokens
}

// Analyze normalizes and tokenizes raw text.
func Analyze(text string) []Token {
	return Tokenize(Normalize(text))
}

// QueryTerms returns the distinct terms of a query in first-occurrence order.
func QueryTerms(query string) []string {
	tokens := Analyze(query)
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok.Term]; ok {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}

// alnumTokenizer emits maximal runs of letters and digits.
type alnumTokenizer struct{}

func (alnumTokenizer) Tokenize(input []byte) analysis.TokenStream {
	var stream analysis.TokenStream
	position := 0
	start := -1

	emit := func(end int) {
		position++
		stream = append(stream, &analysis.Token{
			Term:     input[start:end],
			Start:    start,
			End:      end,
			Position: position,
			Type:     analysis.AlphaNumeric,
		})
		start = -1
	}

	for i := 0; i < len(input); {
		r, size := utf8.DecodeRune(input[i:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			emit(i)
		}
		i += size
	}
	if start >= 0 {
		emit(len(input))
	}
	return stream
}
