// Package indexer coordinates the end-to-end indexing pipeline: filter,
// hash, chunk, embed, and store.
//
// The Indexer owns the writer mutex that serializes every vector-store
// mutation and is the sole writer of the process-wide status record.
//
// # Basic Usage
//
//	idx := indexer.New(projectRoot, store, embedder, filter, logger)
//
//	if err := idx.FullScan(ctx, false); err != nil {
//	    log.Fatal(err)
//	}
//
//	results, err := idx.Search(ctx, "parse config file", 10)
//
// # Incremental Indexing
//
// index_file compares the file's current SHA-256 content hash against the
// hash recorded at last write (storage.Store.GetFileIndexState). An
// unchanged file is a no-op:
//
//	// First scan: every eligible file is new, all get embedded.
//	_ = idx.FullScan(ctx, false)
//
//	// Nothing changed on disk: zero embedder invocations (spec P2).
//	_ = idx.FullScan(ctx, false)
//
// Force a full re-embed, discarding all existing rows first:
//
//	_ = idx.FullScan(ctx, true)
//
// # Concurrency
//
// full_scan parallelizes the hash/chunk/embed stage across a bounded worker
// pool (golang.org/x/sync/errgroup plus a semaphore channel); the
// delete-then-upsert transaction for any one file still serializes on the
// writer mutex, so concurrent writers never interleave within a single
// file's rows. A second concurrent FullScan call returns
// types.ErrAlreadyScanning without starting, via the non-blocking
// IndexLock check-and-set.
//
// # Error Handling
//
//	err := idx.FullScan(ctx, false)
//	// err is non-nil only for a scan-wide failure (repeated store errors);
//	// per-file IoError/EmbedError are logged and the scan continues.
//
// # Status
//
// Status() returns a value-copy snapshot of the current state machine node
// (Initializing, IdleInitialScanRequired, Scanning, Watching, Error) plus
// scan timestamps and the indexed chunk count.
package indexer
