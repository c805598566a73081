// Package store holds the in-memory search structures (posting lists with
// BM25 scoring, embedding vector sets) and the persistent embedding cache.
package store

import (
	"fmt"
)

// BM25Config configures lexical scoring.
type BM25Config struct {
	// K1 controls term frequency saturation.
	K1 float64 `yaml:"k1" json:"k1"`
	// B controls document length normalization.
	B float64 `yaml:"b" json:"b"`
}

// DefaultBM25Config returns the standard BM25 parameters.
func DefaultBM25Config() BM25Config {
	return BM25Config{K1: 1.2, B: 0.75}
}

// LexicalHit is one document's BM25 score for a query.
type LexicalHit struct {
	Doc          int
	Score        float64
	MatchedTerms []string
}

// VectorHit is one document's cosine similarity to a query vector.
type VectorHit struct {
	Doc        int
	Similarity float64
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'amandocs index')", e.Expected, e.Got)
}
