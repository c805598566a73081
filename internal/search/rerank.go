package search

import (
	"strings"

	"github.com/Aman-CERP/amandocs/internal/analysis"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// reranker applies the bounded boosts after fusion.
type reranker struct {
	titleBoost  float64
	phraseBoost float64
	postings    *store.PostingIndex
	normTitles  []string
}

// apply boosts candidates whose title contains the query or whose text has
// the query terms at consecutive positions.
func (r *reranker) apply(cands []*candidate, normQuery string, tokens []analysis.Token) {
	for _, c := range cands {
		if r.titleBoost > 0 && normQuery != "" && strings.Contains(r.normTitles[c.doc], normQuery) {
			c.score += r.titleBoost
		}
		if r.phraseBoost > 0 && len(tokens) > 1 && r.postings.HasPhrase(c.doc, tokens) {
			c.score += r.phraseBoost
		}
	}
}
