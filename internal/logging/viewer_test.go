package logging

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"time":"2026-01-02T03:04:05Z","level":"DEBUG","msg":"corpus_loaded","documents":4}
{"time":"2026-01-02T03:04:06Z","level":"INFO","msg":"index_built","embedded":4}
not json at all
{"time":"2026-01-02T03:04:07Z","level":"WARN","msg":"embedding_model_unavailable","code":"ERR_201_EMBEDDING_UNAVAILABLE"}
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amandocs.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseLine(t *testing.T) {
	e := ParseLine(`{"time":"2026-01-02T03:04:05Z","level":"info","msg":"hello","n":1}`)

	assert.True(t, e.Valid)
	assert.Equal(t, "INFO", e.Level)
	assert.Equal(t, "hello", e.Msg)
	assert.Equal(t, 2026, e.Time.Year())
	assert.Equal(t, map[string]any{"n": float64(1)}, e.Attrs)

	raw := ParseLine("plain text")
	assert.False(t, raw.Valid)
	assert.Equal(t, "plain text", raw.Msg)
}

func TestViewer_TailKeepsLastN(t *testing.T) {
	path := writeLog(t, sampleLog)

	entries, err := NewViewer(ViewerConfig{}).Tail(path, 2)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "not json at all", entries[0].Msg)
	assert.Equal(t, "embedding_model_unavailable", entries[1].Msg)
}

func TestViewer_TailFilters(t *testing.T) {
	path := writeLog(t, sampleLog)

	// Given: a minimum level of info
	entries, err := NewViewer(ViewerConfig{MinLevel: "info"}).Tail(path, 0)
	require.NoError(t, err)

	// Then: debug is dropped but non-JSON lines are kept
	msgs := make([]string, len(entries))
	for i, e := range entries {
		msgs[i] = e.Msg
	}
	assert.Equal(t, []string{"index_built", "not json at all", "embedding_model_unavailable"}, msgs)

	// Given: a pattern
	entries, err = NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`ERR_201`)}).Tail(path, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0].Level)
}

func TestViewer_TailMissingFile(t *testing.T) {
	_, err := NewViewer(ViewerConfig{}).Tail(filepath.Join(t.TempDir(), "missing.log"), 10)

	assert.Error(t, err)
}

func TestViewer_FollowSeesAppendedLines(t *testing.T) {
	path := writeLog(t, sampleLog)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan error, 1)
	go func() {
		done <- NewViewer(ViewerConfig{}).Follow(ctx, path, func(e LogEntry) {
			mu.Lock()
			seen = append(seen, e.Msg)
			mu.Unlock()
		})
	}()

	// When: appending after following starts
	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"level":"INFO","msg":"appended"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Then: only the new line is delivered
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 2*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, "appended", strings.Join(seen, ","))
}
