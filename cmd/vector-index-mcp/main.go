package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/vector-index-mcp/internal/config"
	"github.com/dshills/vector-index-mcp/internal/logging"
	"github.com/dshills/vector-index-mcp/internal/mcp"
	"github.com/dshills/vector-index-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// shutdownGracePeriod bounds how long Serve is given to wind down after a
// shutdown signal before the process exits anyway (spec §5 Cancellation).
const shutdownGracePeriod = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("vector-index-mcp\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		fmt.Printf("Vector Extension: %v\n", storage.VectorExtensionAvailable)
		return 0
	}

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: vector-index-mcp <project_path>\n")
		return 2
	}
	projectPath := os.Args[1]

	settings, err := config.Load(projectPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vector-index-mcp: invalid configuration: %v\n", err)
		return 1
	}

	logger, err := logging.New(settings.LogLevel, settings.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vector-index-mcp: failed to build logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("vector-index-mcp starting",
		zap.String("version", version),
		zap.String("project_path", settings.ProjectPath),
		zap.String("build_mode", storage.BuildMode),
		zap.String("sqlite_driver", storage.DriverName),
		zap.Bool("vector_extension", storage.VectorExtensionAvailable),
	)

	srv, err := mcp.NewServer(settings, logger)
	if err != nil {
		logger.Error("failed to create MCP server", zap.Error(err))
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errCh <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		select {
		case <-errCh:
		case <-time.After(shutdownGracePeriod):
			logger.Warn("shutdown grace period elapsed, exiting")
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server exited with error", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}
