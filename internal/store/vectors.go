package store

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/coder/hnsw"
)

// VectorSetConfig controls how similarity search is executed.
type VectorSetConfig struct {
	// HNSWThreshold is the document count from which an HNSW graph
	// preselects candidates instead of a full scan. Zero disables the graph.
	HNSWThreshold int `yaml:"hnsw_threshold" json:"hnsw_threshold"`
	// M is the HNSW neighbor count.
	M int `yaml:"hnsw_m" json:"hnsw_m"`
	// EfSearch is the HNSW search breadth.
	EfSearch int `yaml:"hnsw_ef_search" json:"hnsw_ef_search"`
}

// DefaultVectorSetConfig returns defaults suited to documentation corpora.
func DefaultVectorSetConfig() VectorSetConfig {
	return VectorSetConfig{HNSWThreshold: 5000, M: 16, EfSearch: 64}
}

// VectorSet holds one normalized embedding per document.
type VectorSet struct {
	dims  int
	docs  []int
	vecs  [][]float32
	graph *hnsw.Graph[uint64]
	cfg   VectorSetConfig
}

// NewVectorSet copies and normalizes vecs. docs[i] is the document ordinal
// that owns vecs[i].
func NewVectorSet(dims int, docs []int, vecs [][]float32, cfg VectorSetConfig) (*VectorSet, error) {
	if len(docs) != len(vecs) {
		return nil, fmt.Errorf("docs and vectors length mismatch: %d vs %d", len(docs), len(vecs))
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}

	s := &VectorSet{
		dims: dims,
		docs: append([]int(nil), docs...),
		vecs: make([][]float32, len(vecs)),
		cfg:  cfg,
	}
	for i, v := range vecs {
		if len(v) != dims {
			return nil, ErrDimensionMismatch{Expected: dims, Got: len(v)}
		}
		s.vecs[i] = Normalized(v)
	}

	if cfg.HNSWThreshold > 0 && len(s.vecs) >= cfg.HNSWThreshold {
		s.buildGraph()
	}
	return s, nil
}

func (s *VectorSet) buildGraph() {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = s.cfg.M
	graph.EfSearch = s.cfg.EfSearch
	graph.Ml = 0.25

	nodes := make([]hnsw.Node[uint64], len(s.vecs))
	for i, v := range s.vecs {
		nodes[i] = hnsw.MakeNode(uint64(i), v)
	}
	graph.Add(nodes...)
	s.graph = graph

	slog.Debug("vector_graph_built", slog.Int("vectors", len(s.vecs)), slog.Int("m", s.cfg.M))
}

// Dimensions returns the vector length.
func (s *VectorSet) Dimensions() int {
	return s.dims
}

// Len returns the number of vectors.
func (s *VectorSet) Len() int {
	return len(s.vecs)
}

// UsesGraph reports whether searches go through the HNSW graph.
func (s *VectorSet) UsesGraph() bool {
	return s.graph != nil
}

// Similar returns up to k documents ordered by descending cosine similarity.
// allow, when non-nil, excludes documents.
func (s *VectorSet) Similar(query []float32, k int, allow func(doc int) bool) ([]VectorHit, error) {
	if len(query) != s.dims {
		return nil, ErrDimensionMismatch{Expected: s.dims, Got: len(query)}
	}
	if k <= 0 || len(s.vecs) == 0 {
		return nil, nil
	}
	q := Normalized(query)

	var rows []int
	if s.graph != nil {
		// Oversample so filtering still leaves k candidates in most cases.
		want := k * 4
		if want > len(s.vecs) {
			want = len(s.vecs)
		}
		for _, node := range s.graph.Search(q, want) {
			rows = append(rows, int(node.Key))
		}
	} else {
		rows = make([]int, len(s.vecs))
		for i := range rows {
			rows[i] = i
		}
	}

	hits := make([]VectorHit, 0, len(rows))
	for _, row := range rows {
		doc := s.docs[row]
		if allow != nil && !allow(doc) {
			continue
		}
		hits = append(hits, VectorHit{Doc: doc, Similarity: dot(q, s.vecs[row])})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Doc < hits[j].Doc
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Normalized returns an L2-normalized copy of v. A zero vector is returned
// unchanged.
func Normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	n := float32(1 / math.Sqrt(sum))
	for i := range out {
		out[i] *= n
	}
	return out
}

// CosineSimilarity returns the cosine of the angle between a and b.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dotAB, na, nb float64
	for i := range a {
		dotAB += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dotAB / (math.Sqrt(na) * math.Sqrt(nb))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
