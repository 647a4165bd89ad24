package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vector-index-mcp/internal/embedder"
	"github.com/dshills/vector-index-mcp/internal/pathfilter"
	"github.com/dshills/vector-index-mcp/internal/storage"
	"github.com/dshills/vector-index-mcp/pkg/types"
)

// mockEmbedder implements embedder.Embedder deterministically for testing,
// counting how many texts it has ever been asked to embed (spec P2).
type mockEmbedder struct {
	dimension int
	err       error

	mu        sync.Mutex
	callCount int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dimension: 8}
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, m.dimension)
	for i, b := range []byte(text) {
		if i >= m.dimension {
			break
		}
		v[i] = float32(b) / 255.0
	}
	return v
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.callCount++
	return &embedder.Embedding{Vector: m.vectorFor(req.Text), Dimension: m.dimension, Provider: "mock", Model: "mock-v1"}, nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.callCount += len(req.Texts)
	embeddings := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		embeddings[i] = &embedder.Embedding{Vector: m.vectorFor(text), Dimension: m.dimension, Provider: "mock", Model: "mock-v1"}
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: embeddings, Provider: "mock", Model: "mock-v1"}, nil
}

func (m *mockEmbedder) Dimension() int   { return m.dimension }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "mock-v1" }
func (m *mockEmbedder) Close() error     { return nil }

func (m *mockEmbedder) getCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func newTestIndexer(t *testing.T, root string) (*Indexer, *mockEmbedder, storage.Store) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:", 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb := newMockEmbedder()
	filter := pathfilter.New(root, nil)
	idx := New(root, store, emb, filter, nil)
	return idx, emb, store
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIndexFile_NewFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "main.go", "package main\n\nfunc main() {}\n")

	idx, emb, store := newTestIndexer(t, tmpDir)
	ctx := context.Background()

	require.NoError(t, idx.IndexFile(ctx, path))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Greater(t, emb.getCallCount(), 0)
}

func TestIndexFile_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "main.go", "package main\n\nfunc main() {}\n")

	idx, emb, _ := newTestIndexer(t, tmpDir)
	ctx := context.Background()

	require.NoError(t, idx.IndexFile(ctx, path))
	firstCalls := emb.getCallCount()

	// P2: re-indexing an unchanged file performs zero embedder invocations.
	require.NoError(t, idx.IndexFile(ctx, path))
	assert.Equal(t, firstCalls, emb.getCallCount())
}

func TestIndexFile_ModifiedContentReEmbeds(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "main.go", "package main\n\nfunc main() {}\n")

	idx, emb, store := newTestIndexer(t, tmpDir)
	ctx := context.Background()

	require.NoError(t, idx.IndexFile(ctx, path))
	firstCalls := emb.getCallCount()

	writeFile(t, tmpDir, "main.go", "package main\n\nfunc main() { println(\"changed\") }\n")
	require.NoError(t, idx.IndexFile(ctx, path))
	assert.Greater(t, emb.getCallCount(), firstCalls)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "old chunks must be replaced, not appended")
}

func TestIndexFile_EmptyFileDeletesRows(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "main.go", "package main\n\nfunc main() {}\n")

	idx, _, store := newTestIndexer(t, tmpDir)
	ctx := context.Background()

	require.NoError(t, idx.IndexFile(ctx, path))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	writeFile(t, tmpDir, "main.go", "   \n\n  ")
	require.NoError(t, idx.IndexFile(ctx, path))

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIndexFile_IneligiblePathDeletesExistingRows(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "secret.log", "package main\nfunc main() {}\n")

	store, err := storage.NewSQLiteStorage(":memory:", 8)
	require.NoError(t, err)
	defer store.Close()

	emb := newMockEmbedder()
	filter := pathfilter.New(tmpDir, []string{"*.log"})
	idx := New(tmpDir, store, emb, filter, nil)
	ctx := context.Background()

	// Seed a row directly, simulating a pre-existing index entry for a path
	// that a newly-added ignore pattern now excludes.
	require.NoError(t, store.Upsert(ctx, []*types.Chunk{{
		FilePath: "secret.log", ContentHash: "h", TotalChunks: 1, Text: "x",
		OriginalPath: "secret.log", Vector: make([]float32, 8),
	}}))

	require.NoError(t, idx.IndexFile(ctx, path))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRemoveFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "main.go", "package main\n\nfunc main() {}\n")

	idx, _, store := newTestIndexer(t, tmpDir)
	ctx := context.Background()

	require.NoError(t, idx.IndexFile(ctx, path))
	require.NoError(t, idx.RemoveFile(ctx, "main.go"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFullScan_IndexesEligibleFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "a.go", "package main\nfunc A() {}\n")
	writeFile(t, tmpDir, "b.go", "package main\nfunc B() {}\n")
	writeFile(t, tmpDir, "ignored.log", "not indexed")

	store, err := storage.NewSQLiteStorage(":memory:", 8)
	require.NoError(t, err)
	defer store.Close()

	emb := newMockEmbedder()
	filter := pathfilter.New(tmpDir, []string{"*.log"})
	idx := New(tmpDir, store, emb, filter, nil)
	ctx := context.Background()

	require.NoError(t, idx.FullScan(ctx, false))

	state, err := store.ScanIndexState(ctx)
	require.NoError(t, err)
	assert.Len(t, state, 2)
	_, hasLog := state["ignored.log"]
	assert.False(t, hasLog)

	status := idx.Status()
	assert.Equal(t, types.StateWatching, status.State)
	assert.Equal(t, 2, status.IndexedChunkCount)
}

func TestFullScan_ReconcilesDeletedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	pathA := writeFile(t, tmpDir, "a.go", "package main\nfunc A() {}\n")
	writeFile(t, tmpDir, "b.go", "package main\nfunc B() {}\n")

	idx, _, store := newTestIndexer(t, tmpDir)
	ctx := context.Background()

	require.NoError(t, idx.FullScan(ctx, false))
	require.NoError(t, os.Remove(pathA))

	require.NoError(t, idx.FullScan(ctx, false))

	state, err := store.ScanIndexState(ctx)
	require.NoError(t, err)
	assert.Len(t, state, 1)
	_, ok := state["b.go"]
	assert.True(t, ok)
}

func TestFullScan_ForceReindexesEverything(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "a.go", "package main\nfunc A() {}\n")

	idx, emb, _ := newTestIndexer(t, tmpDir)
	ctx := context.Background()

	require.NoError(t, idx.FullScan(ctx, false))
	firstCalls := emb.getCallCount()

	require.NoError(t, idx.FullScan(ctx, false))
	assert.Equal(t, firstCalls, emb.getCallCount(), "unforced re-scan should skip unchanged files")

	require.NoError(t, idx.FullScan(ctx, true))
	assert.Greater(t, emb.getCallCount(), firstCalls, "forced re-scan re-embeds everything")
}

func TestFullScan_AlreadyScanning(t *testing.T) {
	tmpDir := t.TempDir()
	idx, _, _ := newTestIndexer(t, tmpDir)

	require.True(t, idx.scanLock.TryAcquire())
	defer idx.scanLock.Release()

	err := idx.FullScan(context.Background(), false)
	assert.ErrorIs(t, err, types.ErrAlreadyScanning)
}

func TestSearch_NotReadyBeforeScan(t *testing.T) {
	tmpDir := t.TempDir()
	idx, _, _ := newTestIndexer(t, tmpDir)

	_, err := idx.Search(context.Background(), "anything", 10)
	assert.ErrorIs(t, err, types.ErrNotReady)
}

func TestSearch_EmptyIndexReturnsEmptyNotError(t *testing.T) {
	tmpDir := t.TempDir()
	idx, _, _ := newTestIndexer(t, tmpDir)
	idx.MarkIdle()

	results, err := idx.Search(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ReturnsIndexedChunks(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "a.go", "package main\nfunc A() {}\n")

	idx, _, _ := newTestIndexer(t, tmpDir)
	ctx := context.Background()
	require.NoError(t, idx.FullScan(ctx, false))

	results, err := idx.Search(ctx, "package main", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go", results[0].FilePath)
}

func TestDiscoverFiles_SortedAndFiltered(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "z.go", "package main\nfunc Z() {}\n")
	writeFile(t, tmpDir, "a.go", "package main\nfunc A() {}\n")
	writeFile(t, tmpDir, "vendor/v.go", "package vendor\nfunc V() {}\n")

	store, err := storage.NewSQLiteStorage(":memory:", 8)
	require.NoError(t, err)
	defer store.Close()

	filter := pathfilter.New(tmpDir, []string{"vendor/*"})
	idx := New(tmpDir, store, newMockEmbedder(), filter, nil)

	files, err := idx.discoverFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, files[0] < files[1], "files must be sorted lexicographically")
	for _, f := range files {
		assert.NotContains(t, f, "vendor")
	}
}

func TestMarkIdle_OnlyAffectsInitializing(t *testing.T) {
	tmpDir := t.TempDir()
	idx, _, _ := newTestIndexer(t, tmpDir)

	require.Equal(t, types.StateInitializing, idx.Status().State)
	idx.MarkIdle()
	assert.Equal(t, types.StateIdleInitialScanRequired, idx.Status().State)

	require.NoError(t, idx.FullScan(context.Background(), false))
	idx.MarkIdle()
	assert.Equal(t, types.StateWatching, idx.Status().State, "MarkIdle must not regress a later state")
}

func TestFullScan_ConcurrentFiles(t *testing.T) {
	tmpDir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, tmpDir, fmt.Sprintf("file%02d.go", i),
			fmt.Sprintf("package main\nfunc Func%d() int { return %d }\n", i, i))
	}

	idx, _, store := newTestIndexer(t, tmpDir)
	idx.SetWorkers(4)

	require.NoError(t, idx.FullScan(context.Background(), false))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}
