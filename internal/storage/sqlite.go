package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/vector-index-mcp/pkg/types"
)

const dimensionMetaKey = "dimension"

// SQLiteStorage implements Store using SQLite as the vector database.
type SQLiteStorage struct {
	db        *sql.DB
	dimension int
}

// openDatabase opens a SQLite database with the settings a single-writer,
// many-reader workload needs.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite serializes writers regardless of pool size; capping at one
	// connection lets database/sql's pool double as the writer mutex.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if necessary) the SQLite-backed vector
// store at dbPath. dimension is the embedding width the caller intends to
// write; on a pre-existing database a mismatch against the recorded
// dimension surfaces as types.ErrSchemaMismatch rather than corrupting
// similarity scores silently.
func NewSQLiteStorage(dbPath string, dimension int) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx := context.Background()
	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	storedDim, err := loadOrSetDimension(ctx, db, dimension)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStorage{db: db, dimension: storedDim}, nil
}

func loadOrSetDimension(ctx context.Context, db *sql.DB, dimension int) (int, error) {
	var raw string
	err := db.QueryRowContext(ctx, "SELECT value FROM vector_store_meta WHERE key = ?", dimensionMetaKey).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err := db.ExecContext(ctx, "INSERT INTO vector_store_meta (key, value) VALUES (?, ?)",
			dimensionMetaKey, fmt.Sprintf("%d", dimension))
		if err != nil {
			return 0, fmt.Errorf("failed to record vector dimension: %w", err)
		}
		return dimension, nil
	case err != nil:
		return 0, fmt.Errorf("failed to read vector dimension: %w", err)
	}

	var stored int
	if _, err := fmt.Sscanf(raw, "%d", &stored); err != nil {
		return 0, fmt.Errorf("corrupt vector_store_meta dimension value %q: %w", raw, err)
	}
	if stored != dimension {
		return 0, fmt.Errorf("%w: index was built with dimension %d, embedder produces %d",
			types.ErrSchemaMismatch, stored, dimension)
	}
	return stored, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Dimension returns the vector width this store was opened with.
func (s *SQLiteStorage) Dimension() int {
	return s.dimension
}

// BeginTx starts a new transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is implemented by both *sql.DB and *sql.Tx, letting every write
// helper run either directly against the pool or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

func (t *sqliteTx) querier() querier      { return t.tx }
func (s *SQLiteStorage) querier() querier { return s.db }

// Upsert operations

func (s *SQLiteStorage) upsertWithQuerier(ctx context.Context, q querier, rows []*types.Chunk) error {
	query := `
		INSERT INTO software_project_index (
			document_id, file_path, content_hash, last_modified_timestamp,
			chunk_index, total_chunks, extracted_text_chunk, original_path, vector, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			file_path = excluded.file_path,
			content_hash = excluded.content_hash,
			last_modified_timestamp = excluded.last_modified_timestamp,
			chunk_index = excluded.chunk_index,
			total_chunks = excluded.total_chunks,
			extracted_text_chunk = excluded.extracted_text_chunk,
			original_path = excluded.original_path,
			vector = excluded.vector,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("%w: %v", types.ErrStore, err)
		}
		docID := types.DocumentID(row.FilePath, row.ChunkIndex)
		_, err := q.ExecContext(ctx, query,
			docID, row.FilePath, row.ContentHash, row.LastModifiedTimestamp,
			row.ChunkIndex, row.TotalChunks, row.Text, row.OriginalPath,
			serializeVector(row.Vector), now,
		)
		if err != nil {
			return fmt.Errorf("%w: upsert %s: %v", types.ErrStore, docID, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) Upsert(ctx context.Context, rows []*types.Chunk) error {
	return s.upsertWithQuerier(ctx, s.querier(), rows)
}

func (t *sqliteTx) Upsert(ctx context.Context, rows []*types.Chunk) error {
	return t.storage.upsertWithQuerier(ctx, t.querier(), rows)
}

// Delete operations

func (s *SQLiteStorage) deleteWhereFilePathEqWithQuerier(ctx context.Context, q querier, filePath string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM software_project_index WHERE file_path = ?", filePath)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", types.ErrStore, filePath, err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteWhereFilePathEq(ctx context.Context, filePath string) error {
	return s.deleteWhereFilePathEqWithQuerier(ctx, s.querier(), filePath)
}

func (t *sqliteTx) DeleteWhereFilePathEq(ctx context.Context, filePath string) error {
	return t.storage.deleteWhereFilePathEqWithQuerier(ctx, t.querier(), filePath)
}

func (s *SQLiteStorage) deleteWhereFilePathInWithQuerier(ctx context.Context, q querier, filePaths []string) error {
	if len(filePaths) == 0 {
		return nil
	}
	placeholders := make([]string, len(filePaths))
	args := make([]interface{}, len(filePaths))
	for i, p := range filePaths {
		placeholders[i] = "?"
		args[i] = p
	}
	query := "DELETE FROM software_project_index WHERE file_path IN (" + strings.Join(placeholders, ",") + ")"
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: bulk delete: %v", types.ErrStore, err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteWhereFilePathIn(ctx context.Context, filePaths []string) error {
	return s.deleteWhereFilePathInWithQuerier(ctx, s.querier(), filePaths)
}

func (t *sqliteTx) DeleteWhereFilePathIn(ctx context.Context, filePaths []string) error {
	return t.storage.deleteWhereFilePathInWithQuerier(ctx, t.querier(), filePaths)
}

func (s *SQLiteStorage) deleteAllWithQuerier(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM software_project_index"); err != nil {
		return fmt.Errorf("%w: delete all: %v", types.ErrStore, err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteAll(ctx context.Context) error {
	return s.deleteAllWithQuerier(ctx, s.querier())
}

func (t *sqliteTx) DeleteAll(ctx context.Context) error {
	return t.storage.deleteAllWithQuerier(ctx, t.querier())
}

// ScanIndexState operations

func (s *SQLiteStorage) scanIndexStateWithQuerier(ctx context.Context, q querier) (map[string]FileIndexState, error) {
	// content_hash and total_chunks are identical across every chunk of a
	// given file_path, so grouping and taking either value is safe.
	rows, err := q.QueryContext(ctx, `
		SELECT file_path, content_hash, total_chunks
		FROM software_project_index
		GROUP BY file_path
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: scan index state: %v", types.ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	state := make(map[string]FileIndexState)
	for rows.Next() {
		var filePath, contentHash string
		var totalChunks uint32
		if err := rows.Scan(&filePath, &contentHash, &totalChunks); err != nil {
			return nil, fmt.Errorf("%w: scan index state row: %v", types.ErrStore, err)
		}
		state[filePath] = FileIndexState{ContentHash: contentHash, TotalChunks: totalChunks}
	}
	return state, rows.Err()
}

func (s *SQLiteStorage) ScanIndexState(ctx context.Context) (map[string]FileIndexState, error) {
	return s.scanIndexStateWithQuerier(ctx, s.querier())
}

func (t *sqliteTx) ScanIndexState(ctx context.Context) (map[string]FileIndexState, error) {
	return t.storage.scanIndexStateWithQuerier(ctx, t.querier())
}

func (s *SQLiteStorage) getFileIndexStateWithQuerier(ctx context.Context, q querier, filePath string) (FileIndexState, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT content_hash, total_chunks
		FROM software_project_index
		WHERE file_path = ?
		LIMIT 1
	`, filePath)

	var state FileIndexState
	switch err := row.Scan(&state.ContentHash, &state.TotalChunks); {
	case errors.Is(err, sql.ErrNoRows):
		return FileIndexState{}, false, nil
	case err != nil:
		return FileIndexState{}, false, fmt.Errorf("%w: get file index state %s: %v", types.ErrStore, filePath, err)
	}
	return state, true, nil
}

func (s *SQLiteStorage) GetFileIndexState(ctx context.Context, filePath string) (FileIndexState, bool, error) {
	return s.getFileIndexStateWithQuerier(ctx, s.querier(), filePath)
}

func (t *sqliteTx) GetFileIndexState(ctx context.Context, filePath string) (FileIndexState, bool, error) {
	return t.storage.getFileIndexStateWithQuerier(ctx, t.querier(), filePath)
}

// Count

func (s *SQLiteStorage) countWithQuerier(ctx context.Context, q querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM software_project_index").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", types.ErrStore, err)
	}
	return count, nil
}

func (s *SQLiteStorage) Count(ctx context.Context) (int, error) {
	return s.countWithQuerier(ctx, s.querier())
}

func (t *sqliteTx) Count(ctx context.Context) (int, error) {
	return t.storage.countWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Dimension() int {
	return t.storage.dimension
}

// Search

func (s *SQLiteStorage) Search(ctx context.Context, queryVector []float32, k int) ([]types.SearchResult, error) {
	return search(ctx, s.db, queryVector, k)
}

func (t *sqliteTx) Search(ctx context.Context, queryVector []float32, k int) ([]types.SearchResult, error) {
	return search(ctx, t.tx, queryVector, k)
}

func (t *sqliteTx) Close() error {
	// Transactions don't own the underlying connection.
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite has no true nested transactions; savepoints would be the
	// place to add this if a caller ever needs it.
	return nil, errors.New("nested transactions not supported")
}
