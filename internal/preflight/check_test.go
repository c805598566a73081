package preflight

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/corpus"
	"github.com/Aman-CERP/amandocs/internal/embed"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/store"
)

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
		{CheckStatus(9), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{"required pass is not critical", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail is critical", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail is not critical", CheckResult{Status: StatusFail}, false},
		{"required warn is not critical", CheckResult{Status: StatusWarn, Required: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_SummaryStatus(t *testing.T) {
	c := New(Target{})

	assert.Equal(t, "ready", c.SummaryStatus([]CheckResult{{Status: StatusPass, Required: true}}))
	assert.Equal(t, "ready_with_warnings", c.SummaryStatus([]CheckResult{{Status: StatusWarn}}))
	assert.Equal(t, "ready_with_warnings", c.SummaryStatus([]CheckResult{{Status: StatusFail}}))
	assert.Equal(t, "failed", c.SummaryStatus([]CheckResult{{Status: StatusFail, Required: true}}))
}

// project lays out a corpus and returns a target for it.
func project(t *testing.T) Target {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "v1.0.0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "v1.0.0", "saga.md"), []byte("# Saga\n\nLocal transactions."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "intro.md"), []byte("# Intro\n\nWelcome."), 0o644))
	return Target{
		ProjectDir:   dir,
		CorpusDir:    docs,
		IndexDir:     filepath.Join(dir, ".amandocs"),
		CacheBackend: store.CacheBackendMemory,
	}
}

func buildIndex(t *testing.T, target Target) {
	t.Helper()
	docs, err := corpus.LoadDir(context.Background(), target.CorpusDir, target.CorpusOptions)
	require.NoError(t, err)
	model := embed.NewModel(embed.NewStaticEmbedder(32), embed.ModelConfig{})
	_, err = index.NewBuilder(model, nil).BuildAndWrite(context.Background(), target.IndexDir, docs)
	require.NoError(t, err)
}

func TestCheckCorpus(t *testing.T) {
	target := project(t)

	r := New(target).CheckCorpus(context.Background())

	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, "2 documents, 1 versions", r.Message)
}

func TestCheckCorpus_MissingRootFails(t *testing.T) {
	target := project(t)
	target.CorpusDir = filepath.Join(target.ProjectDir, "missing")

	r := New(target).CheckCorpus(context.Background())

	assert.True(t, r.IsCritical())
	assert.Contains(t, r.Message, "ERR_102")
}

func TestCheckIndex(t *testing.T) {
	target := project(t)
	c := New(target)

	// Given: no index yet
	r := c.CheckIndex()
	assert.Equal(t, StatusWarn, r.Status)
	assert.Contains(t, r.Message, "not built")

	// When: the index is built
	buildIndex(t, target)
	r = c.CheckIndex()

	// Then: the check passes and names the model
	assert.Equal(t, StatusPass, r.Status)
	assert.Contains(t, r.Message, "2 documents, 2 embedded")
	assert.Contains(t, r.Message, "static-hash-v1@32")
}

func TestCheckIndex_CorruptFails(t *testing.T) {
	target := project(t)
	require.NoError(t, os.MkdirAll(target.IndexDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target.IndexDir, "index.gob"), []byte("junk"), 0o644))

	r := New(target).CheckIndex()

	assert.Equal(t, StatusFail, r.Status)
	assert.False(t, r.IsCritical())
	assert.Contains(t, r.Message, "ERR_302")
}

func TestCheckEmbedder(t *testing.T) {
	target := project(t)
	buildIndex(t, target)

	same := New(target, WithModel(func() (*embed.Model, error) {
		return embed.NewModel(embed.NewStaticEmbedder(32), embed.ModelConfig{}), nil
	})).CheckEmbedder(context.Background())
	assert.Equal(t, StatusPass, same.Status)

	other := New(target, WithModel(func() (*embed.Model, error) {
		return embed.NewModel(embed.NewStaticEmbedder(64), embed.ModelConfig{}), nil
	})).CheckEmbedder(context.Background())
	assert.Equal(t, StatusWarn, other.Status)
	assert.Contains(t, other.Message, "rebuild")

	broken := New(target, WithLoadTimeout(time.Second), WithModel(func() (*embed.Model, error) {
		return nil, errors.New("unknown provider")
	})).CheckEmbedder(context.Background())
	assert.Equal(t, StatusWarn, broken.Status)
}

func TestCheckWritePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".amandocs")

	r := New(Target{}).CheckWritePermissions(dir)

	assert.Equal(t, StatusPass, r.Status)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunAll_PrintsReport(t *testing.T) {
	target := project(t)
	buildIndex(t, target)
	c := New(target, WithVerbose(true))

	results := c.RunAll(context.Background())
	buf := &bytes.Buffer{}
	c.PrintResults(output.NewPlain(buf), results)

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"disk_space", "write_permissions", "file_descriptors", "memory", "corpus", "index", "embedding_cache"}, names)
	assert.Contains(t, buf.String(), "corpus: 2 documents")
	assert.Contains(t, buf.String(), "Status: ")
}
