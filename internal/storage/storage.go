package storage

import (
	"context"

	"github.com/dshills/vector-index-mcp/pkg/types"
)

// Store is the Vector Store Adapter interface (spec §4.3): a fixed-schema
// table API over the underlying vector database.
type Store interface {
	// Upsert replaces rows matching on document_id.
	Upsert(ctx context.Context, rows []*types.Chunk) error

	// DeleteWhereFilePathEq removes all rows for one file.
	DeleteWhereFilePathEq(ctx context.Context, filePath string) error

	// DeleteWhereFilePathIn is the bulk variant.
	DeleteWhereFilePathIn(ctx context.Context, filePaths []string) error

	// DeleteAll removes every row in the table (used by force reindex).
	DeleteAll(ctx context.Context) error

	// ScanIndexState reads only the columns needed for reconciliation:
	// file_path -> (content_hash, total_chunks).
	ScanIndexState(ctx context.Context) (map[string]FileIndexState, error)

	// GetFileIndexState reads the reconciliation snapshot for a single
	// file_path, avoiding a full-table scan for a per-file index_file call.
	GetFileIndexState(ctx context.Context, filePath string) (FileIndexState, bool, error)

	// Search returns up to k rows ordered by ascending cosine distance,
	// ties broken by document_id ascending.
	Search(ctx context.Context, queryVector []float32, k int) ([]types.SearchResult, error)

	// Count returns the total row count.
	Count(ctx context.Context) (int, error)

	// Dimension returns the vector dimension the table was created with.
	Dimension() int

	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction; it embeds Store so the same
// operations compose whether called directly on the pool or within a
// transaction (teacher's querier-abstraction idiom).
type Tx interface {
	Commit() error
	Rollback() error
	Store
}

// FileIndexState is the reconciliation snapshot for one file_path: the
// content hash and chunk count recorded at last write time.
type FileIndexState struct {
	ContentHash string
	TotalChunks uint32
}
