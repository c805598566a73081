package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/analysis"
)

func buildIndex(t *testing.T, texts ...string) *PostingIndex {
	t.Helper()
	b := NewPostingBuilder(len(texts))
	for i, text := range texts {
		b.Add(i, analysis.Analyze(text))
	}
	lists, lens := b.Build()
	return NewPostingIndex(lists, lens, DefaultBM25Config())
}

func TestPostingBuilder_SortsTermsAndRecordsPositions(t *testing.T) {
	b := NewPostingBuilder(2)
	b.Add(0, analysis.Analyze("saga saga outbox"))
	b.Add(1, analysis.Analyze("outbox"))

	lists, lens := b.Build()

	require.Len(t, lists, 2)
	assert.Equal(t, "outbox", lists[0].Term)
	assert.Equal(t, "saga", lists[1].Term)
	assert.Equal(t, []Posting{{Doc: 0, Freq: 2, Positions: []int{1, 2}}}, lists[1].Postings)
	assert.Equal(t, []int{3, 1}, lens)
}

func TestPostingIndex_Score_OnlyMatchingDocuments(t *testing.T) {
	idx := buildIndex(t,
		"event sourcing stores every change as an event",
		"the saga pattern coordinates transactions",
		"unrelated content about styling",
	)

	hits := idx.Score([]string{"event", "saga"}, nil)

	require.Len(t, hits, 2)
	docs := []int{hits[0].Doc, hits[1].Doc}
	assert.ElementsMatch(t, []int{0, 1}, docs)
	for _, h := range hits {
		assert.Greater(t, h.Score, 0.0)
	}
}

func TestPostingIndex_Score_TermFrequencyRaisesScore(t *testing.T) {
	idx := buildIndex(t,
		"saga one two three",
		"saga saga one two",
	)

	hits := idx.Score([]string{"saga"}, nil)

	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].Doc)
}

func TestPostingIndex_Score_LengthNormalization(t *testing.T) {
	idx := buildIndex(t,
		"outbox relay",
		"outbox relay with many extra words padding this particular document considerably",
	)

	hits := idx.Score([]string{"outbox"}, nil)

	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Doc, "shorter document ranks first")
}

func TestPostingIndex_Score_RareTermsWeighMore(t *testing.T) {
	idx := buildIndex(t, "common rare", "common", "common", "common")

	assert.Greater(t, idx.IDF("rare"), idx.IDF("common"))
	assert.GreaterOrEqual(t, idx.IDF("common"), 0.0)
}

func TestPostingIndex_Score_MatchedTermsAndFilter(t *testing.T) {
	idx := buildIndex(t, "saga outbox", "saga")

	hits := idx.Score([]string{"saga", "outbox", "missing"}, func(doc int) bool { return doc == 0 })

	require.Len(t, hits, 1)
	assert.Equal(t, []string{"saga", "outbox"}, hits[0].MatchedTerms)
}

func TestPostingIndex_Score_Empty(t *testing.T) {
	idx := buildIndex(t, "saga")

	assert.Empty(t, idx.Score(nil, nil))
	assert.Empty(t, idx.Score([]string{"absent"}, nil))
	assert.Empty(t, NewPostingIndex(nil, nil, BM25Config{}).Score([]string{"saga"}, nil))
}

func TestPostingIndex_HasPhrase(t *testing.T) {
	idx := buildIndex(t,
		"we use event sourcing here",
		"sourcing of each event",
		"event and sourcing",
	)
	query := analysis.Analyze("event sourcing")

	assert.True(t, idx.HasPhrase(0, query))
	assert.False(t, idx.HasPhrase(1, query))
	assert.False(t, idx.HasPhrase(2, query))
	assert.False(t, idx.HasPhrase(0, analysis.Analyze("event")), "single terms are not phrases")
}

func TestPostingIndex_HasPhrase_AcrossStopWords(t *testing.T) {
	idx := buildIndex(t, "state of the art tooling")

	assert.True(t, idx.HasPhrase(0, analysis.Analyze("state of the art")))
	assert.False(t, idx.HasPhrase(0, analysis.Analyze("state art")))
}
