// Package config loads the process-wide settings record: project root,
// vector-store URI, embedding provider/model, ignore patterns, and log
// level. Settings are read once at startup and shared read-only afterward.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dshills/vector-index-mcp/pkg/types"
)

// Default ignore patterns, matching the historical IGNORE_PATTERNS default.
var defaultIgnorePatterns = []string{
	".*", "*.db", "*.sqlite", "*.log", "node_modules/*", "venv/*", ".git/*",
}

// Settings is the immutable, process-wide configuration record.
type Settings struct {
	ProjectPath      string
	VectorStoreURI   string
	EmbeddingModel   string
	EmbeddingProvider string
	IgnorePatterns   []string
	LogLevel         string
	LogFile          string
	Host             string
	Port             int
}

// Load builds Settings for the given project path, reading environment
// variables with the defaults from spec §6. A ".env" file in the current
// directory is loaded first if present (godotenv.Load is a no-op when the
// file is missing, matching the original implementation's
// env_file=None-if-missing behavior).
func Load(projectPath string) (*Settings, error) {
	_ = godotenv.Load()

	if projectPath == "" {
		return nil, fmt.Errorf("%w: project_path is required", types.ErrConfig)
	}
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving project_path: %v", types.ErrConfig, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: project_path does not exist: %v", types.ErrConfig, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: project_path is not a directory", types.ErrConfig)
	}

	s := &Settings{
		ProjectPath:       absPath,
		VectorStoreURI:    resolveURI(absPath, getEnv("LANCEDB_URI", filepath.Join(absPath, ".lancedb"))),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL_NAME", "all-MiniLM-L6-v2"),
		EmbeddingProvider: strings.ToLower(getEnv("EMBEDDING_PROVIDER", "local")),
		IgnorePatterns:    parsePatterns(getEnv("IGNORE_PATTERNS", strings.Join(defaultIgnorePatterns, ","))),
		LogLevel:          strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		LogFile:           os.Getenv("LOG_FILE"),
		Host:              getEnv("HOST", "0.0.0.0"),
		Port:              8000,
	}
	if p := os.Getenv("PORT"); p != "" {
		if v, convErr := strconv.Atoi(p); convErr == nil {
			s.Port = v
		}
	}

	switch s.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return nil, fmt.Errorf("%w: invalid LOG_LEVEL %q", types.ErrConfig, s.LogLevel)
	}

	s.IgnorePatterns = append(s.IgnorePatterns, readGitignore(absPath)...)

	return s, nil
}

func resolveURI(projectPath, uri string) string {
	if filepath.IsAbs(uri) {
		return uri
	}
	return filepath.Join(projectPath, uri)
}

func parsePatterns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readGitignore merges the project's own .gitignore into the ignore-pattern
// set, following the original implementation's FileWatcher behavior. A
// missing or unreadable .gitignore is not an error.
func readGitignore(projectPath string) []string {
	f, err := os.Open(filepath.Join(projectPath, ".gitignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
