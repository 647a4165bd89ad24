// Package types provides shared type definitions for the vector-index-mcp server.
//
// This package defines the domain types used across every component: the
// chunk record persisted to the vector store, the project status record,
// and the search result shape returned to callers.
//
// # Core Types
//
// Chunk represents one bounded substring of a file, the unit of embedding
// and retrieval:
//
//	chunk := &types.Chunk{
//	    FilePath:     "internal/foo/bar.go",
//	    ContentHash:  hash,
//	    ChunkIndex:   0,
//	    TotalChunks:  3,
//	    Text:         text,
//	}
//
// SearchResult combines a chunk's metadata with relevance scoring:
//
//	result := &types.SearchResult{
//	    DocumentID:     "internal/foo/bar.go::0",
//	    RelevanceScore: 0.92,
//	    FilePath:       "internal/foo/bar.go",
//	}
//
// Relevance scores are normalized to [0, 1] range, with higher values
// indicating better matches.
package types
