package search

import (
	"sort"
	"time"
)

// candidate carries one document through fusion and re-ranking.
type candidate struct {
	doc          int
	lexical      float64 // raw BM25
	semantic     float64 // raw cosine similarity
	hasLexical   bool
	hasSemantic  bool
	lexNorm      float64
	semNorm      float64
	score        float64
	matchedTerms []string

	id        string
	updatedAt time.Time
}

// normalizeMinMax maps values onto [0, 1]. When every value is equal the
// result is 1 for all of them.
func normalizeMinMax(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	for i, v := range values {
		if span == 0 {
			out[i] = 1
			continue
		}
		out[i] = (v - lo) / span
	}
	return out
}

// fuse normalizes each signal over the candidates that carry it and
// combines them. Without semantic scores the fused score is the
// normalized lexical score.
func fuse(cands []*candidate, semantic bool) {
	var lexIdx, semIdx []int
	var lexVals, semVals []float64
	for i, c := range cands {
		if c.hasLexical {
			lexIdx = append(lexIdx, i)
			lexVals = append(lexVals, c.lexical)
		}
		if c.hasSemantic {
			semIdx = append(semIdx, i)
			semVals = append(semVals, c.semantic)
		}
	}

	for j, v := range normalizeMinMax(lexVals) {
		cands[lexIdx[j]].lexNorm = v
	}
	for j, v := range normalizeMinMax(semVals) {
		cands[semIdx[j]].semNorm = v
	}

	for _, c := range cands {
		if semantic {
			c.score = SemanticWeight*c.semNorm + LexicalWeight*c.lexNorm
		} else {
			c.score = c.lexNorm
		}
	}
}

// sortCandidates orders by score, then most recently updated, then ID.
func sortCandidates(cands []*candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.updatedAt.Equal(b.updatedAt) {
			return a.updatedAt.After(b.updatedAt)
		}
		return a.id < b.id
	})
}
