// Package search answers queries against a built index.
//
// Every query is scored by BM25 over the posting lists. When the loader has
// brought semantic resources online, the query is also embedded and
// compared to the document vectors; both signals are min-max normalized
// and fused with fixed weights. Without semantic resources the engine
// answers from keywords alone.
package search

import (
	"time"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// Fusion weights. They sum to 1.
const (
	SemanticWeight = 0.6
	LexicalWeight  = 0.4
)

// Mode reports which signals produced a result set.
type Mode string

const (
	ModeHybrid  Mode = "hybrid"
	ModeKeyword Mode = "keyword"
)

// ErrQuerySuperseded is returned by a Search call cancelled by a newer one.
var ErrQuerySuperseded = amanerrors.New(amanerrors.ErrCodeQuerySuperseded, "query superseded by a newer query", nil)

// Options configures one query.
type Options struct {
	// Limit is the maximum number of results (default 10, capped at MaxLimit).
	Limit int
	// Version keeps documents of this version plus unversioned documents.
	Version string
	// Category keeps documents of this category.
	Category string
	// KeywordOnly skips semantic scoring for this query.
	KeywordOnly bool
}

// RankedResult is one search hit.
type RankedResult struct {
	DocumentID    string    `json:"document_id"`
	Title         string    `json:"title"`
	Score         float64   `json:"score"`
	Snippet       string    `json:"snippet"`
	MatchedTerms  []string  `json:"matched_terms"`
	LexicalScore  float64   `json:"lexical_score"`
	SemanticScore float64   `json:"semantic_score"`
	Version       string    `json:"version,omitempty"`
	Category      string    `json:"category,omitempty"`
	Path          string    `json:"path,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
	Mode          Mode      `json:"mode"`
}

// Config tunes the engine.
type Config struct {
	TitleBoost         float64          `yaml:"title_boost"`
	PhraseBoost        float64          `yaml:"phrase_boost"`
	DefaultLimit       int              `yaml:"default_limit"`
	MaxLimit           int              `yaml:"max_limit"`
	SemanticCandidates int              `yaml:"semantic_candidates"`
	QueryTimeout       time.Duration    `yaml:"query_timeout"`
	SnippetChars       int              `yaml:"snippet_chars"`
	BM25               store.BM25Config `yaml:"bm25"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		TitleBoost:         0.1,
		PhraseBoost:        0.05,
		DefaultLimit:       10,
		MaxLimit:           100,
		SemanticCandidates: 50,
		QueryTimeout:       2 * time.Second,
		SnippetChars:       200,
		BM25:               store.DefaultBM25Config(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.SemanticCandidates <= 0 {
		c.SemanticCandidates = d.SemanticCandidates
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = d.QueryTimeout
	}
	if c.SnippetChars <= 0 {
		c.SnippetChars = d.SnippetChars
	}
	if c.BM25.K1 <= 0 {
		c.BM25 = d.BM25
	}
	return c
}
