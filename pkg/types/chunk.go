package types

import (
	"errors"
	"fmt"
)

// Chunk is one row of the vector store's software_project_index table: a
// bounded substring of a file plus the embedding produced for it.
type Chunk struct {
	// DocumentID is the identity key, "<FilePath>::<ChunkIndex>".
	DocumentID string

	// FilePath is project-relative, forward-slash normalized.
	FilePath string

	// ContentHash is the hex SHA-256 of the whole file's bytes at indexing time.
	ContentHash string

	// LastModifiedTimestamp is the file's mtime, seconds since epoch.
	LastModifiedTimestamp float64

	// ChunkIndex is the zero-based ordinal of this chunk within the file.
	ChunkIndex uint32

	// TotalChunks is the count of chunks produced from the file at indexing time.
	TotalChunks uint32

	// Text is the chunk content, verbatim, including any overlap region.
	Text string

	// OriginalPath is the absolute path of the source file at index time.
	OriginalPath string

	// Vector is the embedding, length Dimension (nil until embedded).
	Vector []float32
}

// DocumentID formats the identity key for a (filePath, chunkIndex) pair.
func DocumentID(filePath string, chunkIndex uint32) string {
	return fmt.Sprintf("%s::%d", filePath, chunkIndex)
}

// Validate checks the structural invariants of a chunk record (I1/I2 from
// the data model are cross-row invariants, checked by the storage layer;
// this validates a single row in isolation).
func (c *Chunk) Validate() error {
	if c.FilePath == "" {
		return errors.New("chunk: file path is required")
	}
	if c.ContentHash == "" {
		return errors.New("chunk: content hash is required")
	}
	if c.TotalChunks == 0 {
		return errors.New("chunk: total chunks must be positive")
	}
	if c.ChunkIndex >= c.TotalChunks {
		return errors.New("chunk: chunk index out of range")
	}
	if c.Text == "" {
		return errors.New("chunk: text cannot be empty")
	}
	return nil
}
