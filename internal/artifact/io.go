package artifact

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// Write persists a sealed artifact into dir. Each file is written to a
// temporary name and renamed into place. The vectors file goes first so a
// reader never pairs a new index with missing vectors; a stale pairing is
// caught by the digest check.
func Write(dir string, a *Artifact) error {
	if a == nil || a.Index == nil {
		return amanerrors.New(amanerrors.ErrCodeArtifactWrite, "nothing to write", nil)
	}
	if a.Index.Digest == "" {
		a.Seal()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return amanerrors.New(amanerrors.ErrCodeArtifactWrite, "failed to create index directory", err).
			WithDetail("dir", dir)
	}

	vectorsPath := filepath.Join(dir, VectorsFile)
	if a.Vectors != nil {
		if err := writeAtomic(vectorsPath, a.Vectors); err != nil {
			return err
		}
	} else if err := os.Remove(vectorsPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return amanerrors.New(amanerrors.ErrCodeArtifactWrite, "failed to remove stale vectors", err).
			WithDetail("path", vectorsPath)
	}

	if err := writeAtomic(filepath.Join(dir, IndexFile), a.Index); err != nil {
		return err
	}

	slog.Info("artifact_written",
		slog.String("dir", dir),
		slog.String("digest", a.Index.Digest),
		slog.Int("documents", len(a.Index.Docs)),
		slog.Bool("has_vectors", a.Vectors != nil))
	return nil
}

func writeAtomic(path string, v any) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeArtifactWrite, "failed to create temp file", err).
			WithDetail("path", path)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = gob.NewEncoder(w).Encode(v); err != nil {
		return amanerrors.New(amanerrors.ErrCodeArtifactWrite, "failed to encode artifact", err).
			WithDetail("path", path)
	}
	if err = w.Flush(); err != nil {
		return amanerrors.New(amanerrors.ErrCodeArtifactWrite, "failed to flush artifact", err).
			WithDetail("path", path)
	}
	if err = tmp.Sync(); err != nil {
		return amanerrors.New(amanerrors.ErrCodeArtifactWrite, "failed to sync artifact", err).
			WithDetail("path", path)
	}
	if err = tmp.Close(); err != nil {
		return amanerrors.New(amanerrors.ErrCodeArtifactWrite, "failed to close artifact", err).
			WithDetail("path", path)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return amanerrors.New(amanerrors.ErrCodeArtifactWrite, "failed to rename artifact into place", err).
			WithDetail("path", path)
	}
	return nil
}

// ReadIndex loads index.gob from dir.
func ReadIndex(dir string) (*Index, error) {
	var ix Index
	if err := readGob(filepath.Join(dir, IndexFile), &ix); err != nil {
		return nil, err
	}
	if ix.FormatVersion != FormatVersion {
		return nil, formatMismatch(IndexFile, ix.FormatVersion)
	}
	if len(ix.DocLens) != len(ix.Docs) {
		return nil, amanerrors.New(amanerrors.ErrCodeArtifactCorrupt,
			fmt.Sprintf("index has %d documents but %d lengths", len(ix.Docs), len(ix.DocLens)), nil)
	}
	return &ix, nil
}

// ReadVectors loads vectors.gob from dir.
func ReadVectors(dir string) (*Vectors, error) {
	var v Vectors
	if err := readGob(filepath.Join(dir, VectorsFile), &v); err != nil {
		return nil, err
	}
	if v.FormatVersion != FormatVersion {
		return nil, formatMismatch(VectorsFile, v.FormatVersion)
	}
	if len(v.Docs) != len(v.Vectors) {
		return nil, amanerrors.New(amanerrors.ErrCodeArtifactCorrupt,
			fmt.Sprintf("vectors file has %d owners for %d vectors", len(v.Docs), len(v.Vectors)), nil)
	}
	return &v, nil
}

// CheckPair verifies that vectors belong to the build ix came from and
// were produced by modelVersion.
func CheckPair(ix *Index, v *Vectors, modelVersion string) error {
	if v.Digest != ix.Digest {
		return amanerrors.New(amanerrors.ErrCodeArtifactVersionMismatch,
			"vectors belong to a different build than the loaded index", nil).
			WithDetail("index_digest", ix.Digest).
			WithDetail("vectors_digest", v.Digest)
	}
	if v.ModelVersion != ix.ModelVersion || v.ModelVersion != modelVersion {
		return amanerrors.ArtifactVersionMismatch(v.ModelVersion, modelVersion)
	}
	for _, doc := range v.Docs {
		if doc < 0 || doc >= len(ix.Docs) {
			return amanerrors.New(amanerrors.ErrCodeArtifactCorrupt,
				fmt.Sprintf("vector owner %d out of range", doc), nil)
		}
	}
	return nil
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return amanerrors.New(amanerrors.ErrCodeArtifactNotFound, "index artifact not found", err).
			WithDetail("path", path).
			WithSuggestion("Build the index with 'amandocs index'")
	}
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeArtifactCorrupt, "failed to open index artifact", err).
			WithDetail("path", path)
	}
	defer f.Close()

	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(v); err != nil {
		return amanerrors.New(amanerrors.ErrCodeArtifactCorrupt, "failed to decode index artifact", err).
			WithDetail("path", path).
			WithSuggestion("Rebuild the index with 'amandocs index'")
	}
	return nil
}

func formatMismatch(file string, got int) error {
	return amanerrors.New(amanerrors.ErrCodeArtifactCorrupt,
		fmt.Sprintf("%s has format %d, expected %d", file, got, FormatVersion), nil).
		WithSuggestion("Rebuild the index with 'amandocs index'")
}
