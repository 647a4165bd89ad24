package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/vector-index-mcp/internal/config"
	"github.com/dshills/vector-index-mcp/internal/embedder"
	"github.com/dshills/vector-index-mcp/internal/facade"
	"github.com/dshills/vector-index-mcp/internal/indexer"
	"github.com/dshills/vector-index-mcp/internal/pathfilter"
	"github.com/dshills/vector-index-mcp/internal/storage"
	"github.com/dshills/vector-index-mcp/internal/watcher"
)

const (
	// ServerName is the MCP server name.
	ServerName = "vector-index-mcp"
	// ServerVersion is the current server version.
	ServerVersion = "1.0.0"
)

// Server wraps the MCP stdio transport with the application's single-project
// facade (spec §4.8). One Server indexes and serves exactly one project_path.
type Server struct {
	mcp     *server.MCPServer
	store   storage.Store
	idx     *indexer.Indexer
	watcher *watcher.Watcher
	facade  *facade.Facade
	logger  *zap.Logger
}

// NewServer wires Settings into a Store, Embedder, Indexer, Watcher, and
// Facade, then registers the three MCP tools.
func NewServer(settings *config.Settings, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(settings.VectorStoreURI, emb.Dimension())
	if err != nil {
		return nil, err
	}

	filter := pathfilter.New(settings.ProjectPath, settings.IgnorePatterns)
	idx := indexer.New(settings.ProjectPath, store, emb, filter, logger)
	idx.MarkIdle()

	w := watcher.New(settings.ProjectPath, filter, idx, logger)
	f := facade.New(settings.ProjectPath, idx, logger)

	mcpServer := server.NewMCPServer(ServerName, ServerVersion)

	s := &Server{
		mcp:     mcpServer,
		store:   store,
		idx:     idx,
		watcher: w,
		facade:  f,
		logger:  logger,
	}

	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	s.mcp.AddTool(triggerIndexTool(), s.handleTriggerIndex)
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// Serve starts the file watcher, kicks off the initial full_scan, and then
// blocks on the MCP stdio transport until shutdown (spec §5 Cancellation).
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()

	if err := s.watcher.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = s.watcher.Stop() }()

	s.facade.TriggerIndex(ctx, false)

	return server.ServeStdio(s.mcp)
}
