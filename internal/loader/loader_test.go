package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/artifact"
	"github.com/Aman-CERP/amandocs/internal/capability"
	"github.com/Aman-CERP/amandocs/internal/corpus"
	"github.com/Aman-CERP/amandocs/internal/embed"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/store"
)

var allowed = capability.Decision{SemanticEnabled: true, Reason: capability.ReasonEnabled}

// blockingEmbedder ignores its context and loads only when released.
type blockingEmbedder struct {
	*embed.StaticEmbedder
	release chan struct{}
	err     error
}

func newBlockingEmbedder(t *testing.T) *blockingEmbedder {
	b := &blockingEmbedder{StaticEmbedder: embed.NewStaticEmbedder(32), release: make(chan struct{})}
	t.Cleanup(func() { close(b.release) })
	return b
}

func (b *blockingEmbedder) Load(_ context.Context) error {
	<-b.release
	return b.err
}

type failingEmbedder struct {
	*embed.StaticEmbedder
}

func (failingEmbedder) Load(_ context.Context) error { return errors.New("model file missing") }

func staticModel() *embed.Model {
	return embed.NewModel(embed.NewStaticEmbedder(32), embed.ModelConfig{})
}

// buildIndex writes an artifact built with the static model and returns the index.
func buildIndex(t *testing.T) (string, *artifact.Index) {
	t.Helper()
	dir := t.TempDir()
	docs := []corpus.Document{
		{ID: "saga", Title: "Saga", Body: "Coordinating distributed transactions."},
		{ID: "events", Title: "Event Sourcing", Body: "Persist state as a sequence of events."},
	}
	_, err := index.NewBuilder(staticModel(), nil).BuildAndWrite(context.Background(), dir, docs)
	require.NoError(t, err)
	ix, err := artifact.ReadIndex(dir)
	require.NoError(t, err)
	return dir, ix
}

func waitSettled(t *testing.T, l *Loader) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := l.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func TestLoader_LoadsToReady(t *testing.T) {
	// Given: an index with embeddings and a matching model
	dir, ix := buildIndex(t)
	var mu sync.Mutex
	var states []State
	l := New(staticModel(), ix, nil, Config{IndexDir: dir}, WithOnChange(func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	}))

	// When: loading is authorized
	started := l.Start(context.Background(), allowed)
	snap := waitSettled(t, l)

	// Then: semantic resources are available
	assert.True(t, started)
	assert.Equal(t, StateReady, snap.State)
	require.True(t, snap.Semantic())
	assert.Equal(t, ix.ModelVersion, snap.Resources.ModelVersion)
	assert.Equal(t, 2, snap.Resources.Vectors.Len())
	mu.Lock()
	assert.Equal(t, []State{StateLoading, StateReady}, states)
	mu.Unlock()
}

func TestLoader_RefusedDecisionStaysIdle(t *testing.T) {
	dir, ix := buildIndex(t)
	l := New(staticModel(), ix, nil, Config{IndexDir: dir})

	started := l.Start(context.Background(), capability.Decision{Reason: capability.ReasonOverride})
	snap := waitSettled(t, l)

	assert.False(t, started)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, capability.ReasonOverride, snap.Reason)
	assert.False(t, snap.Semantic())
}

func TestLoader_KeywordOnlyIndexStaysIdle(t *testing.T) {
	l := New(staticModel(), &artifact.Index{}, nil, Config{})

	assert.False(t, l.Start(context.Background(), allowed))
	assert.Equal(t, StateIdle, l.Snapshot().State)
}

func TestLoader_LoadFailureIsRecordedInSession(t *testing.T) {
	dir, ix := buildIndex(t)
	session := capability.NewSession()
	model := embed.NewModel(failingEmbedder{embed.NewStaticEmbedder(32)}, embed.ModelConfig{})
	l := New(model, ix, session, Config{IndexDir: dir})

	l.Start(context.Background(), allowed)
	snap := waitSettled(t, l)

	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Reason, "model file missing")
	assert.Len(t, session.Failures(), 1)
	assert.False(t, capability.Assess(capability.DetectProfile(session, false, 1)).SemanticEnabled)
}

func TestLoader_TimeoutFails(t *testing.T) {
	dir, ix := buildIndex(t)
	session := capability.NewSession()
	model := embed.NewModel(newBlockingEmbedder(t), embed.ModelConfig{})
	l := New(model, ix, session, Config{IndexDir: dir, Timeout: 50 * time.Millisecond})

	l.Start(context.Background(), allowed)
	snap := waitSettled(t, l)

	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Reason, "timed out")
	assert.Len(t, session.Failures(), 1)
}

func TestLoader_SnapshotWhileLoading(t *testing.T) {
	dir, ix := buildIndex(t)
	model := embed.NewModel(newBlockingEmbedder(t), embed.ModelConfig{})
	l := New(model, ix, nil, Config{IndexDir: dir, Timeout: time.Minute})
	defer l.Close()

	l.Start(context.Background(), allowed)

	snap := l.Snapshot()
	assert.Equal(t, StateLoading, snap.State)
	assert.False(t, snap.Semantic())
}

func TestLoader_CloseCancelsSilently(t *testing.T) {
	dir, ix := buildIndex(t)
	session := capability.NewSession()
	model := embed.NewModel(newBlockingEmbedder(t), embed.ModelConfig{})
	l := New(model, ix, session, Config{IndexDir: dir, Timeout: time.Minute})
	l.Start(context.Background(), allowed)

	l.Close()

	snap := l.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Empty(t, session.Failures())
}

func TestLoader_ModelVersionMismatchFails(t *testing.T) {
	dir, ix := buildIndex(t)
	other := embed.NewModel(embed.NewStaticEmbedder(48), embed.ModelConfig{})
	l := New(other, ix, nil, Config{IndexDir: dir})

	l.Start(context.Background(), allowed)
	snap := waitSettled(t, l)

	assert.Equal(t, StateFailed, snap.State)
	assert.Nil(t, snap.Resources)
}

func TestLoader_MissingVectorsFails(t *testing.T) {
	dir, ix := buildIndex(t)
	require.NoError(t, os.Remove(filepath.Join(dir, artifact.VectorsFile)))
	l := New(staticModel(), ix, nil, Config{IndexDir: dir})

	l.Start(context.Background(), allowed)
	snap := waitSettled(t, l)

	assert.Equal(t, StateFailed, snap.State)
}

func TestLoader_DigestMismatchFails(t *testing.T) {
	dir, ix := buildIndex(t)
	l := New(staticModel(), ix, nil, Config{IndexDir: dir}, withVectorReader(func(string) (*artifact.Vectors, error) {
		return &artifact.Vectors{Digest: "other-build", ModelVersion: ix.ModelVersion, Dimensions: 32}, nil
	}))

	l.Start(context.Background(), allowed)
	snap := waitSettled(t, l)

	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Reason, "different build")
}

func TestLoader_StartIsEffectiveOnce(t *testing.T) {
	dir, ix := buildIndex(t)
	l := New(staticModel(), ix, nil, Config{IndexDir: dir, VectorSet: store.DefaultVectorSetConfig()})

	assert.True(t, l.Start(context.Background(), allowed))
	assert.False(t, l.Start(context.Background(), allowed))
	waitSettled(t, l)
}

func TestLoader_WaitHonorsContext(t *testing.T) {
	l := New(staticModel(), &artifact.Index{ModelVersion: "x"}, nil, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := l.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
