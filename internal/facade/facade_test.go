package facade

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vector-index-mcp/internal/embedder"
	"github.com/dshills/vector-index-mcp/internal/indexer"
	"github.com/dshills/vector-index-mcp/internal/pathfilter"
	"github.com/dshills/vector-index-mcp/internal/storage"
	"github.com/dshills/vector-index-mcp/pkg/types"
)

// fakeEmbedder is a deterministic embedder.Embedder stand-in, avoiding any
// network dependency in these tests.
type fakeEmbedder struct{ dimension int }

func newFakeEmbedder(dimension int) *fakeEmbedder { return &fakeEmbedder{dimension: dimension} }

func (e *fakeEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, e.dimension)
	for i, b := range []byte(text) {
		if i >= e.dimension {
			break
		}
		v[i] = float32(b) / 255.0
	}
	return v
}

func (e *fakeEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	return &embedder.Embedding{Vector: e.vectorFor(req.Text), Dimension: e.dimension, Provider: "fake", Model: "fake-v1"}, nil
}

func (e *fakeEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	embeddings := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		embeddings[i] = &embedder.Embedding{Vector: e.vectorFor(text), Dimension: e.dimension, Provider: "fake", Model: "fake-v1"}
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: embeddings, Provider: "fake", Model: "fake-v1"}, nil
}

func (e *fakeEmbedder) Dimension() int   { return e.dimension }
func (e *fakeEmbedder) Provider() string { return "fake" }
func (e *fakeEmbedder) Model() string    { return "fake-v1" }
func (e *fakeEmbedder) Close() error     { return nil }

// blockingEmbedder wraps a fakeEmbedder but holds GenerateBatch open until
// release is closed, so a test can deterministically catch a full_scan
// mid-flight instead of racing an in-memory scan that may already be done.
type blockingEmbedder struct {
	*fakeEmbedder
	release chan struct{}
}

func newBlockingEmbedder(dimension int) *blockingEmbedder {
	return &blockingEmbedder{fakeEmbedder: newFakeEmbedder(dimension), release: make(chan struct{})}
}

func (e *blockingEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	<-e.release
	return e.fakeEmbedder.GenerateBatch(ctx, req)
}

func newFacadeUnderTest(t *testing.T) (*Facade, string) {
	t.Helper()
	return newFacadeUnderTestWithEmbedder(t, newFakeEmbedder(8))
}

func newFacadeUnderTestWithEmbedder(t *testing.T, emb embedder.Embedder) (*Facade, string) {
	t.Helper()
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.go"), []byte("package main\nfunc A() {}\n"), 0o644))

	store, err := storage.NewSQLiteStorage(":memory:", emb.Dimension())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	filter := pathfilter.New(tmpDir, nil)
	idx := indexer.New(tmpDir, store, emb, filter, nil)

	return New(tmpDir, idx, nil), tmpDir
}

func TestTriggerIndex_AcceptsAndScans(t *testing.T) {
	f, _ := newFacadeUnderTest(t)

	result := f.TriggerIndex(context.Background(), false)
	assert.True(t, result.Accepted)

	ok := waitForState(t, f, types.StateWatching, 3*time.Second)
	require.True(t, ok, "expected status to reach Watching after the background scan completes")
}

func TestTriggerIndex_RefusesWhileScanning(t *testing.T) {
	emb := newBlockingEmbedder(8)
	f, _ := newFacadeUnderTestWithEmbedder(t, emb)

	first := f.TriggerIndex(context.Background(), false)
	require.True(t, first.Accepted)

	ok := waitForState(t, f, types.StateScanning, 3*time.Second)
	require.True(t, ok, "expected the first scan to reach Scanning before GenerateBatch unblocks")

	// TriggerIndex performs its accept/reject check-and-set synchronously
	// (Indexer.BeginScan), so this call is guaranteed to observe the first
	// scan still in flight rather than racing an unscheduled goroutine.
	second := f.TriggerIndex(context.Background(), false)
	assert.False(t, second.Accepted)
	assert.Equal(t, "scan in progress", second.Reason)

	close(emb.release)

	ok = waitForState(t, f, types.StateWatching, 3*time.Second)
	require.True(t, ok, "expected status to reach Watching once the first scan's embedding call unblocks")
}

func TestSearch_RejectsEmptyQuery(t *testing.T) {
	f, _ := newFacadeUnderTest(t)

	_, err := f.Search(context.Background(), "", 10)
	assert.ErrorIs(t, err, types.ErrInvalidParams)
}

func TestSearch_RejectsOutOfRangeTopK(t *testing.T) {
	f, _ := newFacadeUnderTest(t)

	_, err := f.Search(context.Background(), "anything", 0)
	assert.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = f.Search(context.Background(), "anything", 101)
	assert.ErrorIs(t, err, types.ErrInvalidParams)
}

func TestGetStatus_NotFoundForWrongPath(t *testing.T) {
	f, _ := newFacadeUnderTest(t)

	_, err := f.GetStatus("/not/the/configured/root")
	assert.ErrorIs(t, err, types.ErrProjectNotFound)
}

func TestGetStatus_ReturnsStatusForConfiguredPath(t *testing.T) {
	f, root := newFacadeUnderTest(t)

	status, err := f.GetStatus(root)
	require.NoError(t, err)
	assert.Equal(t, root, status.ProjectPath)
}

func waitForState(t *testing.T, f *Facade, want types.State, timeout time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f.idx.Status().State == want {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return f.idx.Status().State == want
}
