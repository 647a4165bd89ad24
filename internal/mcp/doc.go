// Package mcp implements the stdio MCP transport binding for
// vector-index-mcp.
//
// The server exposes exactly three tools, thin wrappers over
// internal/facade (spec §4.8):
//   - trigger_index: start (or restart) a full_scan of the project root.
//   - search: semantic search over the indexed project.
//   - get_status: the current indexing state machine snapshot.
//
// # Basic Usage
//
//	s, err := mcp.NewServer(settings, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Serve starts the file watcher, triggers an initial scan, and then blocks
// reading MCP protocol messages from stdin and writing responses to stdout.
//
// # Error Handling
//
// Tool handlers translate Facade sentinel errors into MCP error codes:
// types.ErrInvalidParams -> -32602, types.ErrNotReady -> -32003,
// types.ErrProjectNotFound -> -32001, a refused trigger_index -> -32002.
package mcp
