package types

import "errors"

// Domain errors for type validation.
var (
	ErrInvalidDocumentID     = errors.New("invalid document ID")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
	ErrMissingFileInfo       = errors.New("file info is required")
	ErrEmptyContent          = errors.New("content cannot be empty")
)

// Error taxonomy from the error handling design (spec §7). Components wrap
// these with fmt.Errorf("...: %w", ...) to add context; callers use
// errors.Is to classify a failure.
var (
	// ErrConfig covers a missing/invalid project_path or bad ignore patterns.
	// Fatal at startup.
	ErrConfig = errors.New("configuration error")

	// ErrSchemaMismatch means the existing vector store has an incompatible
	// vector dimension. Fatal; the operator must delete the store.
	ErrSchemaMismatch = errors.New("vector store schema mismatch")

	// ErrIO is a transient filesystem error on one file. The file is
	// skipped and the scan continues.
	ErrIO = errors.New("io error")

	// ErrEmbed is a transient or permanent embedding failure. Retried once
	// with backoff; on second failure the file is skipped.
	ErrEmbed = errors.New("embedding error")

	// ErrStore is a vector-store write failure. Retried once; repeated
	// failures abort the scan.
	ErrStore = errors.New("vector store error")

	// ErrAlreadyScanning is returned by trigger_index / full_scan when a
	// scan is already in progress. Not logged as an error.
	ErrAlreadyScanning = errors.New("scan already in progress")

	// ErrNotReady is returned by search while the status is still
	// Initializing.
	ErrNotReady = errors.New("index not ready")

	// ErrInvalidParams is returned by the Facade when top_k is out of
	// [1, 100] or query is empty (spec §4.8).
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrProjectNotFound is returned by get_status when the requested
	// project_path does not match the configured root (spec §6).
	ErrProjectNotFound = errors.New("project not found")
)
