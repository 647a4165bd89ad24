// Package storage provides the Vector Store Adapter: a SQLite-backed
// implementation of the Store interface over a single fixed-schema table,
// software_project_index.
//
// # Database Schema
//
// Tables:
//   - schema_version: applied migration history
//   - vector_store_meta: key/value metadata, currently just the embedding
//     dimension the table was created with
//   - software_project_index: one row per chunk, keyed by document_id
//     ("<file_path>::<chunk_index>")
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("~/.vector-index-mcp/indices/project.db", 384)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Upsert(ctx, []*types.Chunk{chunk})
//
// # Transactions
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.DeleteWhereFilePathEq(ctx, path); err != nil {
//	    return err
//	}
//	if err := tx.Upsert(ctx, rows); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Incremental Reconciliation
//
// ScanIndexState returns, per file_path, the content_hash and total_chunks
// recorded at last write. The Indexer compares this against a fresh
// filesystem hash to decide whether a file needs re-embedding:
//
//	state, err := store.ScanIndexState(ctx)
//	if existing, ok := state[filePath]; ok && existing.ContentHash == currentHash {
//	    // unchanged, skip
//	}
//
// # Vector Search
//
// Search ranks by cosine similarity, descending, ties broken by document_id
// ascending. The CGO build (sqlite_vec tag) computes distance in SQL via
// vec_distance_cosine; the purego build loads candidate vectors and ranks
// in Go.
//
// # Build Tags
//
// CGO build (sqlite_vec tag):
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec" ./...
//
// Uses github.com/mattn/go-sqlite3 and the sqlite-vec extension.
//
// Pure Go build (purego tag):
//
//	CGO_ENABLED=0 go build -tags "purego" ./...
//
// Uses modernc.org/sqlite with Go-computed cosine similarity.
package storage
