// Command test_embedding is a manual smoke test: it indexes a throwaway
// project directory with the local deterministic embedder and confirms
// search returns results, without needing a real Jina/OpenAI API key.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dshills/vector-index-mcp/internal/embedder"
	"github.com/dshills/vector-index-mcp/internal/indexer"
	"github.com/dshills/vector-index-mcp/internal/pathfilter"
	"github.com/dshills/vector-index-mcp/internal/storage"
)

func main() {
	fmt.Println("Testing embedding integration...")

	tmpDir, err := os.MkdirTemp("", "vector-index-mcp-test-*")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	testFile := filepath.Join(tmpDir, "test.go")
	testCode := `package main

// Add adds two numbers.
func Add(a, b int) int {
	return a + b
}

func main() {
	result := Add(1, 2)
	println(result)
}
`
	if err := os.WriteFile(testFile, []byte(testCode), 0o644); err != nil {
		log.Fatalf("Failed to write test file: %v", err)
	}

	emb, err := embedder.NewLocalProvider(nil)
	if err != nil {
		log.Fatalf("Failed to create local embedder: %v", err)
	}
	defer emb.Close()

	store, err := storage.NewSQLiteStorage(":memory:", emb.Dimension())
	if err != nil {
		log.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	filter := pathfilter.New(tmpDir, nil)
	idx := indexer.New(tmpDir, store, emb, filter, nil)

	ctx := context.Background()
	if err := idx.FullScan(ctx, false); err != nil {
		log.Fatalf("Failed to index project: %v", err)
	}

	status := idx.Status()
	fmt.Printf("\nIndexing Result:\n")
	fmt.Printf("  State: %s\n", status.State)
	fmt.Printf("  Indexed Chunk Count: %d\n", status.IndexedChunkCount)

	results, err := idx.Search(ctx, "function that adds two numbers", 5)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	fmt.Printf("\nSearch Results: %d\n", len(results))
	for _, r := range results {
		fmt.Printf("  - %s (chunk %d, score %.4f)\n", r.FilePath, r.ChunkIndex, r.RelevanceScore)
	}

	if len(results) > 0 {
		fmt.Println("\nSUCCESS: embeddings were generated, stored, and are searchable.")
	} else {
		fmt.Println("\nFAILURE: no search results returned.")
		os.Exit(1)
	}
}
