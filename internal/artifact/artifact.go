// Package artifact defines the persisted index produced by a build and
// reads and writes it atomically.
//
// An artifact is two files in the index directory. index.gob holds document
// metadata and posting lists and is loaded eagerly. vectors.gob holds the
// embeddings and is loaded in the background. Both carry the same digest so
// a reader can tell when they come from different builds.
package artifact

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"time"

	"github.com/Aman-CERP/amandocs/internal/store"
)

// File names inside the index directory.
const (
	IndexFile   = "index.gob"
	VectorsFile = "vectors.gob"
)

// FormatVersion is bumped whenever the encoded layout changes.
const FormatVersion = 1

// DocMeta is the persisted view of a document. The raw body is not stored;
// Excerpt holds a bounded prefix of the stripped text for snippets.
type DocMeta struct {
	ID           string
	Title        string
	Category     string
	Version      string
	Tags         []string
	UpdatedAt    time.Time
	Path         string
	ContentHash  string
	Excerpt      string
	HasEmbedding bool
}

// Index is the eagerly loaded part of an artifact.
type Index struct {
	FormatVersion int
	Digest        string
	// ModelVersion is empty when the build produced no embeddings.
	ModelVersion string
	Docs         []DocMeta
	DocLens      []int
	Postings     []store.PostingList
}

// Vectors is the progressively loaded part of an artifact.
type Vectors struct {
	FormatVersion int
	Digest        string
	ModelVersion  string
	Dimensions    int
	// Docs[i] is the ordinal in Index.Docs owning Vectors[i].
	Docs    []int
	Vectors [][]float32
}

// Artifact is the output of one build.
type Artifact struct {
	Index   *Index
	Vectors *Vectors // nil for keyword-only builds
}

// digestPayload is everything that defines an artifact's content. Digest
// fields are excluded so the digest can be stored alongside it.
type digestPayload struct {
	FormatVersion int
	ModelVersion  string
	Docs          []DocMeta
	DocLens       []int
	Postings      []store.PostingList
	Dimensions    int
	VectorDocs    []int
	Vectors       [][]float32
}

// Seal computes the content digest and stamps it on both parts.
// Two builds of the same corpus with the same model produce the same digest.
func (a *Artifact) Seal() string {
	p := digestPayload{
		FormatVersion: FormatVersion,
		ModelVersion:  a.Index.ModelVersion,
		Docs:          a.Index.Docs,
		DocLens:       a.Index.DocLens,
		Postings:      a.Index.Postings,
	}
	if a.Vectors != nil {
		p.Dimensions = a.Vectors.Dimensions
		p.VectorDocs = a.Vectors.Docs
		p.Vectors = a.Vectors.Vectors
	}

	h := sha256.New()
	// Encoding only slices and structs keeps the byte stream deterministic.
	if err := gob.NewEncoder(h).Encode(p); err != nil {
		panic("artifact: digest encoding failed: " + err.Error())
	}
	digest := hex.EncodeToString(h.Sum(nil))

	a.Index.FormatVersion = FormatVersion
	a.Index.Digest = digest
	if a.Vectors != nil {
		a.Vectors.FormatVersion = FormatVersion
		a.Vectors.Digest = digest
		a.Vectors.ModelVersion = a.Index.ModelVersion
	}
	return digest
}

// PostingIndex builds the BM25 query structure for ix.
func (ix *Index) PostingIndex(cfg store.BM25Config) *store.PostingIndex {
	return store.NewPostingIndex(ix.Postings, ix.DocLens, cfg)
}

// EmbeddedCount returns how many documents carry an embedding.
func (ix *Index) EmbeddedCount() int {
	n := 0
	for _, d := range ix.Docs {
		if d.HasEmbedding {
			n++
		}
	}
	return n
}

// VectorSet builds the similarity structure for v.
func (v *Vectors) VectorSet(cfg store.VectorSetConfig) (*store.VectorSet, error) {
	return store.NewVectorSet(v.Dimensions, v.Docs, v.Vectors, cfg)
}
