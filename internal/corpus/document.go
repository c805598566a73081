// Package corpus defines the Document model and loads documentation trees
// from disk.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Aman-CERP/amandocs/internal/analysis"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// Document is one unit of indexed content. It is never mutated once built.
type Document struct {
	ID        string
	Title     string
	Body      string
	Category  string
	Version   string // empty means unversioned and matches every version filter
	Tags      []string
	UpdatedAt time.Time
	Path      string

	// ContentHash is the hex SHA-256 of the normalized title and body.
	ContentHash string
}

// ContentHash hashes the normalized title and body.
func ContentHash(title, body string) string {
	h := sha256.New()
	h.Write([]byte(analysis.Normalize(title)))
	h.Write([]byte{0})
	h.Write([]byte(analysis.Normalize(body)))
	return hex.EncodeToString(h.Sum(nil))
}

// WithHash returns a copy of d with ContentHash filled in.
func (d Document) WithHash() Document {
	d.ContentHash = ContentHash(d.Title, d.Body)
	return d
}

// MatchesVersion reports whether d passes a version filter.
func (d Document) MatchesVersion(version string) bool {
	return version == "" || d.Version == "" || d.Version == version
}

// MatchesCategory reports whether d passes a category filter.
func (d Document) MatchesCategory(category string) bool {
	return category == "" || d.Category == category
}

// Validate checks the invariants the indexer relies on: every document has
// an ID and IDs are unique.
func Validate(docs []Document) error {
	seen := make(map[string]string, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return amanerrors.New(amanerrors.ErrCodeCorpusMalformed,
				fmt.Sprintf("document %d has an empty id", i), nil).
				WithDetail("path", d.Path)
		}
		if prev, ok := seen[d.ID]; ok {
			return amanerrors.New(amanerrors.ErrCodeDuplicateDocument,
				fmt.Sprintf("duplicate document id %q", d.ID), nil).
				WithDetail("first", prev).
				WithDetail("second", d.Path)
		}
		seen[d.ID] = d.Path
	}
	return nil
}
