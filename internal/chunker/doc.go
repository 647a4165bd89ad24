// Package chunker implements the Content Extractor: it reads a file as
// UTF-8 text, computes its content hash, and splits it into overlapping
// chunks bounded by a token budget.
//
// # Basic Usage
//
//	c := chunker.New()
//	hash, mtime, err := c.HashFile("/path/to/file.txt")
//	chunks, err := c.ExtractChunks("/path/to/file.txt")
//
// # Chunking Strategy
//
// Chunking is line-oriented, not syntax-aware: lines accumulate into a
// chunk until the token budget (CHUNK_MAX_TOKENS) is reached, then the next
// chunk starts CHUNK_OVERLAP_TOKENS worth of trailing lines earlier so
// adjacent chunks overlap. Token counts are estimated with a chars/4
// heuristic (EstimateTokenCount); the embedders do no token counting of
// their own.
//
// Empty or whitespace-only chunks are discarded. An empty file yields zero
// chunks.
package chunker
