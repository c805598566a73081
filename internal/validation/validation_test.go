package validation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/search"
)

// fakeSearcher answers from a fixed table keyed by query.
type fakeSearcher struct {
	answers map[string][]string
	calls   []search.Options
}

func (f *fakeSearcher) Search(_ context.Context, query string, opts search.Options) ([]search.RankedResult, error) {
	f.calls = append(f.calls, opts)
	if query == "boom" {
		return nil, errors.New("engine down")
	}
	var out []search.RankedResult
	for _, id := range f.answers[query] {
		out = append(out, search.RankedResult{DocumentID: id, Mode: search.ModeKeyword})
	}
	return out, nil
}

const queriesYAML = `
top_k: 3
tier1:
  - id: T1-Q1
    query: install windows
    version: v2
    expected: [v2/guides/install]
  - id: T1-Q2
    query: rate limits
    expected: [reference/]
tier2:
  - id: T2-Q1
    query: billing
    expected: [faq]
negative:
  - id: N-Q1
    query: quantum entanglement
`

func TestParseQueries_AssignsTiers(t *testing.T) {
	cfg, err := ParseQueries([]byte(queriesYAML))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.TopK)
	require.Len(t, cfg.Tier1, 2)
	assert.Equal(t, 1, cfg.Tier1[0].Tier)
	assert.Equal(t, 2, cfg.Tier2[0].Tier)
	assert.Equal(t, 0, cfg.Negative[0].Tier)
	assert.Equal(t, "v2", cfg.Tier1[0].Version)
}

func TestParseQueries_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty query", "tier1:\n  - id: a\n    expected: [x]\n", "no query text"},
		{"duplicate id", "tier1:\n  - id: a\n    query: q\n    expected: [x]\n  - id: a\n    query: r\n    expected: [y]\n", "duplicate"},
		{"tier without expectation", "tier2:\n  - id: a\n    query: q\n", "expects nothing"},
		{"bad yaml", "tier1: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQueries([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadQueries_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(queriesYAML), 0o644))

	cfg, err := LoadQueries(path)

	require.NoError(t, err)
	assert.Len(t, cfg.Negative, 1)
}

func TestValidator_RunAll(t *testing.T) {
	// Given: a searcher that finds the install guide second and misses billing
	s := &fakeSearcher{answers: map[string][]string{
		"install windows": {"v1/guides/install", "v2/guides/install"},
		"rate limits":     {"reference/api"},
	}}
	cfg, err := ParseQueries([]byte(queriesYAML))
	require.NoError(t, err)

	// When: running every query
	res := NewValidator(s, cfg.TopK).RunAll(context.Background(), cfg)

	// Then: tiers are scored with reciprocal ranks
	assert.Equal(t, TierSummary{Pass: 2, Total: 2, MRR: (0.5 + 1) / 2}, res.Tier1)
	assert.Equal(t, TierSummary{Pass: 0, Total: 1}, res.Tier2)
	assert.Equal(t, TierSummary{Pass: 1, Total: 1}, res.Negative)
	assert.True(t, res.Passed())
	require.Len(t, res.Results, 4)
	assert.Equal(t, 1, res.Results[0].MatchedAt)

	// And: filters and the top-k limit reach the searcher
	assert.Equal(t, search.Options{Limit: 3, Version: "v2"}, s.calls[0])
}

func TestValidator_RunQuery_ErrorFails(t *testing.T) {
	v := NewValidator(&fakeSearcher{}, 0)

	res := v.RunQuery(context.Background(), QuerySpec{ID: "x", Query: "boom", Tier: 0})

	assert.False(t, res.Passed)
	assert.Equal(t, "engine down", res.Error)
}

func TestValidator_NegativeWithHitsFails(t *testing.T) {
	v := NewValidator(&fakeSearcher{answers: map[string][]string{"q": {"faq"}}}, 0)

	res := v.RunQuery(context.Background(), QuerySpec{ID: "n", Query: "q"})

	assert.False(t, res.Passed)
	assert.Equal(t, []string{"faq"}, res.TopResults)
}
