package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/vector-index-mcp/internal/chunker"
	"github.com/dshills/vector-index-mcp/internal/embedder"
	"github.com/dshills/vector-index-mcp/internal/pathfilter"
	"github.com/dshills/vector-index-mcp/internal/storage"
	"github.com/dshills/vector-index-mcp/pkg/types"
)

// defaultWorkers bounds the full_scan embedding-stage worker pool when the
// caller doesn't override it.
const defaultWorkers = 8

// Indexer owns the writer mutex and implements index_file, remove_file, and
// full_scan (spec §4.5). It is also the sole writer of the status registry
// (spec §4.7): Status returns a value-copy snapshot safe for concurrent
// readers.
type Indexer struct {
	root   string
	store  storage.Store
	embed  embedder.Embedder
	filter *pathfilter.Filter
	chunk  *chunker.Chunker
	logger *zap.Logger

	workers int

	// scanLock implements full_scan's non-blocking AlreadyScanning
	// check-and-set. It is acquired only around a full_scan call, never
	// around ordinary index_file/remove_file calls.
	scanLock IndexLock

	// writerMu is the writer mutex W: it serializes the delete-then-upsert
	// transaction of every store mutation, whether driven by the watcher,
	// a direct index_file/remove_file call, or one of full_scan's workers.
	writerMu sync.Mutex

	statusMu sync.RWMutex
	status   types.ProjectStatus
}

// New constructs an Indexer for the project rooted at root.
func New(root string, store storage.Store, embed embedder.Embedder, filter *pathfilter.Filter, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		root:    root,
		store:   store,
		embed:   embed,
		filter:  filter,
		chunk:   chunker.New(),
		logger:  logger,
		workers: defaultWorkers,
		status: types.ProjectStatus{
			ProjectPath: root,
			State:       types.StateInitializing,
		},
	}
}

// SetWorkers overrides the full_scan embedding-stage worker pool size.
func (idx *Indexer) SetWorkers(n int) {
	if n > 0 {
		idx.workers = n
	}
}

// MarkIdle transitions the status out of Initializing once startup has
// loaded any persisted state, without running a scan.
func (idx *Indexer) MarkIdle() {
	idx.statusMu.Lock()
	defer idx.statusMu.Unlock()
	if idx.status.State == types.StateInitializing {
		idx.status.State = types.StateIdleInitialScanRequired
	}
}

// Status returns a consistent value-copy snapshot of the project status
// record (teacher's copy-before-return discipline from searcher.go,
// applied here to the status registry instead of search results).
func (idx *Indexer) Status() types.ProjectStatus {
	idx.statusMu.RLock()
	defer idx.statusMu.RUnlock()
	return idx.status
}

// MarkWatcherError transitions status to Error with the given message,
// used by the file watcher when the project root disappears or its
// backlog overflows (spec §4.6, §5 Backpressure).
func (idx *Indexer) MarkWatcherError(message string) {
	idx.setError(message)
}

// IndexFile implements index_file(abs_path) (spec §4.5). It may be called
// directly (by the watcher's coalescing worker) or from within full_scan.
func (idx *Indexer) IndexFile(ctx context.Context, absPath string) error {
	relPath, ok := idx.filter.RelPath(absPath)
	if !ok {
		// Outside the project root entirely; nothing to do.
		return nil
	}

	if !idx.filter.Eligible(absPath) {
		return idx.deleteFile(ctx, relPath)
	}

	hash, mtime, err := idx.chunk.HashFile(absPath)
	if err != nil {
		idx.logger.Warn("index_file: hash failed", zap.String("path", absPath), zap.Error(err))
		return fmt.Errorf("%w: %v", types.ErrIO, err)
	}

	existing, found, err := idx.store.GetFileIndexState(ctx, relPath)
	if err != nil {
		return err
	}
	if found && existing.ContentHash == hash {
		// I4: unchanged content, idempotent no-op.
		return nil
	}

	texts, err := idx.chunk.ExtractChunks(absPath)
	if err != nil {
		idx.logger.Warn("index_file: chunking failed", zap.String("path", absPath), zap.Error(err))
		return fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	if len(texts) == 0 {
		return idx.deleteFile(ctx, relPath)
	}

	rows, err := idx.embedChunks(ctx, relPath, absPath, hash, mtime, texts)
	if err != nil {
		idx.logger.Warn("index_file: embedding failed", zap.String("path", absPath), zap.Error(err))
		return err
	}

	return idx.writeFile(ctx, relPath, rows)
}

// RemoveFile implements remove_file(file_path): delete every row for the
// given project-relative path. Idempotent.
func (idx *Indexer) RemoveFile(ctx context.Context, filePath string) error {
	return idx.deleteFile(ctx, filePath)
}

func (idx *Indexer) embedChunks(ctx context.Context, relPath, absPath, hash string, mtime float64, texts []string) ([]*types.Chunk, error) {
	resp, err := idx.embed.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbed, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks",
			types.ErrEmbed, len(resp.Embeddings), len(texts))
	}

	total := uint32(len(texts))
	rows := make([]*types.Chunk, len(texts))
	for i, text := range texts {
		rows[i] = &types.Chunk{
			FilePath:              relPath,
			ContentHash:           hash,
			LastModifiedTimestamp: mtime,
			ChunkIndex:            uint32(i),
			TotalChunks:           total,
			Text:                  text,
			OriginalPath:          absPath,
			Vector:                resp.Embeddings[i].Vector,
		}
	}
	return rows, nil
}

// writeFile performs the delete-then-upsert for one file_path inside a
// single transaction (step 7), holding the writer mutex for the duration of
// the transaction only; hashing, chunking, and embedding above happen
// unlocked so full_scan's worker pool can parallelize them.
func (idx *Indexer) writeFile(ctx context.Context, relPath string, rows []*types.Chunk) error {
	idx.writerMu.Lock()
	defer idx.writerMu.Unlock()

	tx, err := idx.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", types.ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.DeleteWhereFilePathEq(ctx, relPath); err != nil {
		return err
	}
	if err := tx.Upsert(ctx, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", types.ErrStore, err)
	}
	return nil
}

func (idx *Indexer) deleteFile(ctx context.Context, relPath string) error {
	idx.writerMu.Lock()
	defer idx.writerMu.Unlock()
	if err := idx.store.DeleteWhereFilePathEq(ctx, relPath); err != nil {
		return err
	}
	return nil
}

// BeginScan atomically attempts the non-blocking AlreadyScanning
// check-and-set (scanLock.TryAcquire, then setScanning). It returns false
// if a scan is already in progress. Callers that win must eventually call
// RunScan to release the lock and perform the scan; this split lets a
// caller make the accept/reject decision synchronously while running the
// scan body itself in the background.
func (idx *Indexer) BeginScan() bool {
	if !idx.scanLock.TryAcquire() {
		return false
	}
	idx.setScanning()
	return true
}

// FullScan implements full_scan(force) (spec §4.5): the reconciliation
// driver. It refuses to run concurrently with itself via the non-blocking
// scanLock, returning types.ErrAlreadyScanning.
func (idx *Indexer) FullScan(ctx context.Context, force bool) error {
	if !idx.BeginScan() {
		return types.ErrAlreadyScanning
	}
	return idx.RunScan(ctx, force)
}

// RunScan runs the scan body and releases the scan lock acquired by a
// prior, already-successful BeginScan. It must not be called except as a
// continuation of BeginScan returning true.
func (idx *Indexer) RunScan(ctx context.Context, force bool) error {
	defer idx.scanLock.Release()

	if err := idx.runFullScan(ctx, force); err != nil {
		idx.setError(err.Error())
		return err
	}

	count, err := idx.store.Count(ctx)
	if err != nil {
		idx.setError(err.Error())
		return err
	}
	idx.setWatching(count)
	return nil
}

func (idx *Indexer) runFullScan(ctx context.Context, force bool) error {
	if force {
		idx.writerMu.Lock()
		err := idx.store.DeleteAll(ctx)
		idx.writerMu.Unlock()
		if err != nil {
			return err
		}
	}

	priorState, err := idx.store.ScanIndexState(ctx)
	if err != nil {
		return err
	}

	files, err := idx.discoverFiles()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(files))
	var seenMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, idx.workers)

	for _, absPath := range files {
		absPath := absPath

		relPath, ok := idx.filter.RelPath(absPath)
		if !ok {
			continue
		}
		seenMu.Lock()
		seen[relPath] = struct{}{}
		seenMu.Unlock()

		select {
		case <-gctx.Done():
			continue
		case sem <- struct{}{}:
		}

		g.Go(func() error {
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				return err
			}

			err := idx.IndexFile(gctx, absPath)
			if errors.Is(err, types.ErrStore) {
				// A store error is retried once; a second one aborts the scan.
				idx.logger.Warn("full_scan: store error, retrying", zap.String("path", absPath), zap.Error(err))
				err = idx.IndexFile(gctx, absPath)
			}
			if err == nil {
				return nil
			}
			if errors.Is(err, types.ErrStore) {
				idx.logger.Error("full_scan: store error, aborting", zap.String("path", absPath), zap.Error(err))
				return err
			}
			// IoError / EmbedError are recovered locally: log and continue.
			idx.logger.Warn("full_scan: skipping file", zap.String("path", absPath), zap.Error(err))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	var stale []string
	for relPath := range priorState {
		if _, ok := seen[relPath]; !ok {
			stale = append(stale, relPath)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	idx.writerMu.Lock()
	defer idx.writerMu.Unlock()
	return idx.store.DeleteWhereFilePathIn(ctx, stale)
}

// discoverFiles walks project_root and returns the eligible absolute paths,
// sorted lexicographically for deterministic full_scan ordering.
func (idx *Indexer) discoverFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(idx.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			idx.logger.Warn("full_scan: walk error", zap.String("path", path), zap.Error(walkErr))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if idx.filter.Eligible(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %s: %v", types.ErrIO, idx.root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Search implements search(query, k) (spec §4.5): it does not acquire the
// writer mutex and may run concurrently with an in-flight scan.
func (idx *Indexer) Search(ctx context.Context, query string, k int) ([]types.SearchResult, error) {
	if idx.Status().State == types.StateInitializing {
		return nil, types.ErrNotReady
	}

	count, err := idx.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []types.SearchResult{}, nil
	}

	resp, err := idx.embed.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbed, err)
	}

	return idx.store.Search(ctx, resp.Vector, k)
}

func (idx *Indexer) setScanning() {
	idx.statusMu.Lock()
	defer idx.statusMu.Unlock()
	now := secondsSinceEpoch()
	idx.status.State = types.StateScanning
	idx.status.LastScanStartTime = &now
	idx.status.ErrorMessage = ""
}

func (idx *Indexer) setWatching(count int) {
	idx.statusMu.Lock()
	defer idx.statusMu.Unlock()
	now := secondsSinceEpoch()
	idx.status.State = types.StateWatching
	idx.status.LastScanEndTime = &now
	idx.status.IndexedChunkCount = count
}

func (idx *Indexer) setError(message string) {
	idx.statusMu.Lock()
	defer idx.statusMu.Unlock()
	idx.status.State = types.StateError
	idx.status.ErrorMessage = message
}

func secondsSinceEpoch() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
