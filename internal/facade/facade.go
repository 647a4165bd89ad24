// Package facade exposes the three operations the transport layer calls:
// trigger_index, search, and get_status (spec §4.8). It validates input at
// this boundary and decides transport-agnostic result variants; it does not
// know about MCP, HTTP, or any other framing.
package facade

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/vector-index-mcp/internal/indexer"
	"github.com/dshills/vector-index-mcp/pkg/types"
)

// defaultMaxConcurrentSearches bounds parallel search calls, reusing the
// indexer's semaphore-channel idiom for bounded concurrency.
const defaultMaxConcurrentSearches = 16

// TriggerIndexResult is the result of trigger_index.
type TriggerIndexResult struct {
	Accepted bool
	Reason   string
}

// Facade is the single-project entry point wrapping an Indexer.
type Facade struct {
	projectPath string
	idx         *indexer.Indexer
	logger      *zap.Logger

	searchSem chan struct{}
}

// New builds a Facade over idx for the given project path.
func New(projectPath string, idx *indexer.Indexer, logger *zap.Logger) *Facade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Facade{
		projectPath: projectPath,
		idx:         idx,
		logger:      logger,
		searchSem:   make(chan struct{}, defaultMaxConcurrentSearches),
	}
}

// TriggerIndex kicks off a background full_scan and returns promptly. The
// accept/reject decision is made synchronously via Indexer.BeginScan, which
// performs the real check-and-set (scanLock.TryAcquire + setScanning)
// before TriggerIndex returns, so two calls issued back-to-back cannot both
// observe an idle state and both be accepted (spec §5, §8 acceptance test
// 7). Only the scan body itself runs in the background.
func (f *Facade) TriggerIndex(ctx context.Context, forceReindex bool) TriggerIndexResult {
	if !f.idx.BeginScan() {
		return TriggerIndexResult{Accepted: false, Reason: "scan in progress"}
	}

	go func() {
		scanCtx := context.Background()
		if err := f.idx.RunScan(scanCtx, forceReindex); err != nil {
			f.logger.Warn("trigger_index: full_scan failed", zap.Error(err))
		}
	}()

	return TriggerIndexResult{Accepted: true}
}

// Search validates (query non-empty, top_k in [1, 100]) and runs a
// synchronous search, bounded by a concurrency semaphore.
func (f *Facade) Search(ctx context.Context, query string, topK int) ([]types.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", types.ErrInvalidParams)
	}
	if topK < 1 || topK > 100 {
		return nil, fmt.Errorf("%w: top_k must be in [1, 100], got %d", types.ErrInvalidParams, topK)
	}

	select {
	case f.searchSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-f.searchSem }()

	return f.idx.Search(ctx, query, topK)
}

// GetStatus returns the current status for projectPath, or
// types.ErrProjectNotFound if it does not match the configured root.
func (f *Facade) GetStatus(projectPath string) (types.ProjectStatus, error) {
	if projectPath != f.projectPath {
		return types.ProjectStatus{}, types.ErrProjectNotFound
	}
	return f.idx.Status(), nil
}
