// Package validation runs data-driven relevance checks against an index.
//
// Queries live in a YAML file so they can be edited without rebuilding:
//
//	tier1:
//	  - id: T1-Q1
//	    name: windows install guide
//	    query: install on windows
//	    version: v2
//	    expected: [v2/guides/install]
//	negative:
//	  - id: N-Q1
//	    query: quantum entanglement
//
// Tier 1 queries must find an expected document in the top results; tier 2
// queries are tracked but not required. Negative queries pass when nothing
// is returned.
package validation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amandocs/internal/search"
)

// DefaultTopK is how deep a query may match by default.
const DefaultTopK = 5

// QuerySpec defines a query with expected results.
type QuerySpec struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Query    string   `yaml:"query" json:"query"`
	Version  string   `yaml:"version" json:"version,omitempty"`
	Category string   `yaml:"category" json:"category,omitempty"`
	// Expected holds document ID prefixes; any one matching passes.
	Expected []string `yaml:"expected" json:"expected"`
	Notes    string   `yaml:"notes" json:"notes,omitempty"`
	Tier     int      `yaml:"-" json:"tier"`
}

// QueryConfig holds all validation queries.
type QueryConfig struct {
	TopK     int         `yaml:"top_k"`
	Tier1    []QuerySpec `yaml:"tier1"`
	Tier2    []QuerySpec `yaml:"tier2"`
	Negative []QuerySpec `yaml:"negative"`
}

// LoadQueries reads and validates a query file.
func LoadQueries(path string) (*QueryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries file %s: %w", path, err)
	}
	return ParseQueries(data)
}

// ParseQueries decodes query YAML and assigns tiers.
func ParseQueries(data []byte) (*QueryConfig, error) {
	var cfg QueryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse queries YAML: %w", err)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	seen := make(map[string]bool)
	assign := func(specs []QuerySpec, tier int) error {
		for i := range specs {
			specs[i].Tier = tier
			if strings.TrimSpace(specs[i].Query) == "" {
				return fmt.Errorf("query %q has no query text", specs[i].ID)
			}
			if specs[i].ID == "" {
				specs[i].ID = fmt.Sprintf("tier%d-%d", tier, i+1)
			}
			if seen[specs[i].ID] {
				return fmt.Errorf("duplicate query id %q", specs[i].ID)
			}
			seen[specs[i].ID] = true
			if tier > 0 && len(specs[i].Expected) == 0 {
				return fmt.Errorf("query %q expects nothing; move it to negative", specs[i].ID)
			}
		}
		return nil
	}
	for tier, specs := range map[int][]QuerySpec{1: cfg.Tier1, 2: cfg.Tier2, 0: cfg.Negative} {
		if err := assign(specs, tier); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Searcher is the query surface validation needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]search.RankedResult, error)
}

// TestResult is the outcome of one query.
type TestResult struct {
	Spec       QuerySpec     `json:"spec"`
	Passed     bool          `json:"passed"`
	Duration   time.Duration `json:"duration_ns"`
	TopResults []string      `json:"top_results"`
	// MatchedAt is the 0-based rank of the first expected hit, or -1.
	MatchedAt int         `json:"matched_at"`
	Mode      search.Mode `json:"mode,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// TierSummary counts passes within one tier.
type TierSummary struct {
	Pass  int `json:"pass"`
	Total int `json:"total"`
	// MRR is the mean reciprocal rank of the first expected hit.
	MRR float64 `json:"mrr"`
}

// Result is a complete validation run.
type Result struct {
	Timestamp time.Time    `json:"timestamp"`
	Results   []TestResult `json:"results"`
	Tier1     TierSummary  `json:"tier1"`
	Tier2     TierSummary  `json:"tier2"`
	Negative  TierSummary  `json:"negative"`
}

// Passed reports whether every tier 1 and negative query passed.
func (r *Result) Passed() bool {
	return r.Tier1.Pass == r.Tier1.Total && r.Negative.Pass == r.Negative.Total
}

// Validator runs query specs against a searcher.
type Validator struct {
	searcher Searcher
	topK     int
}

// NewValidator creates a validator that inspects the top topK results.
func NewValidator(s Searcher, topK int) *Validator {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Validator{searcher: s, topK: topK}
}

// RunQuery runs one spec.
func (v *Validator) RunQuery(ctx context.Context, spec QuerySpec) TestResult {
	start := time.Now()
	result := TestResult{Spec: spec, MatchedAt: -1}

	hits, err := v.searcher.Search(ctx, spec.Query, search.Options{
		Limit:    v.topK,
		Version:  spec.Version,
		Category: spec.Category,
	})
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.TopResults = make([]string, len(hits))
	for i, h := range hits {
		result.TopResults[i] = h.DocumentID
	}
	if len(hits) > 0 {
		result.Mode = hits[0].Mode
	}

	if spec.Tier == 0 {
		result.Passed = len(hits) == 0
		return result
	}
	result.MatchedAt = firstMatch(result.TopResults, spec.Expected)
	result.Passed = result.MatchedAt >= 0
	return result
}

// RunAll runs every query in cfg in file order: tier 1, tier 2, negative.
func (v *Validator) RunAll(ctx context.Context, cfg *QueryConfig) *Result {
	res := &Result{Timestamp: time.Now()}
	run := func(specs []QuerySpec, sum *TierSummary) {
		var rr float64
		for _, spec := range specs {
			if ctx.Err() != nil {
				return
			}
			tr := v.RunQuery(ctx, spec)
			res.Results = append(res.Results, tr)
			sum.Total++
			if tr.Passed {
				sum.Pass++
			}
			if tr.MatchedAt >= 0 {
				rr += 1 / float64(tr.MatchedAt+1)
			}
		}
		if sum.Total > 0 && len(specs) > 0 && specs[0].Tier > 0 {
			sum.MRR = rr / float64(sum.Total)
		}
	}
	run(cfg.Tier1, &res.Tier1)
	run(cfg.Tier2, &res.Tier2)
	run(cfg.Negative, &res.Negative)
	return res
}

// firstMatch returns the rank of the first ID with an expected prefix.
func firstMatch(ids, expected []string) int {
	for i, id := range ids {
		for _, exp := range expected {
			if strings.HasPrefix(id, exp) {
				return i
			}
		}
	}
	return -1
}
