package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/dshills/vector-index-mcp/pkg/types"
)

// dbQuerier is the subset of *sql.DB / *sql.Tx that search needs.
type dbQuerier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// search performs cosine similarity search over software_project_index,
// dispatching to the sqlite-vec extension when available and falling back
// to Go-computed cosine similarity on purego builds.
func search(ctx context.Context, q dbQuerier, queryVector []float32, k int) ([]types.SearchResult, error) {
	if k <= 0 {
		return []types.SearchResult{}, nil
	}
	if VectorExtensionAvailable {
		return searchOptimized(ctx, q, queryVector, k)
	}
	return searchFallback(ctx, q, queryVector, k)
}

// searchOptimized computes cosine distance in SQL via sqlite-vec's
// vec_distance_cosine, converting it to a [0, 1] relevance score
// (1 - distance/2).
func searchOptimized(ctx context.Context, q dbQuerier, queryVector []float32, k int) ([]types.SearchResult, error) {
	queryBlob := serializeVector(queryVector)

	rows, err := q.QueryContext(ctx, `
		SELECT document_id, file_path, content_hash, last_modified_timestamp,
		       chunk_index, total_chunks, extracted_text_chunk, original_path,
		       1.0 - vec_distance_cosine(vector, ?) / 2.0 as similarity
		FROM software_project_index
		ORDER BY similarity DESC, document_id ASC
		LIMIT ?
	`, queryBlob, k)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", types.ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	return scanSearchResults(rows)
}

// searchFallback loads every row's vector and ranks with a Go-computed
// cosine similarity; used on purego builds where sqlite-vec is unavailable.
func searchFallback(ctx context.Context, q dbQuerier, queryVector []float32, k int) ([]types.SearchResult, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT document_id, file_path, content_hash, last_modified_timestamp,
		       chunk_index, total_chunks, extracted_text_chunk, original_path, vector
		FROM software_project_index
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", types.ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]types.SearchResult, 0, 1024)
	for rows.Next() {
		var r types.SearchResult
		var vectorBlob []byte
		if err := rows.Scan(&r.DocumentID, &r.FilePath, &r.ContentHash, &r.LastModifiedTimestamp,
			&r.ChunkIndex, &r.TotalChunks, &r.Text, &r.OriginalPath, &vectorBlob); err != nil {
			return nil, fmt.Errorf("%w: scan search row: %v", types.ErrStore, err)
		}
		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue
		}
		r.RelevanceScore = (1 + cosineSimilarity(queryVector, vector)) / 2
		candidates = append(candidates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RelevanceScore != candidates[j].RelevanceScore {
			return candidates[i].RelevanceScore > candidates[j].RelevanceScore
		}
		return candidates[i].DocumentID < candidates[j].DocumentID
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k], nil
}

func scanSearchResults(rows *sql.Rows) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, 0)
	for rows.Next() {
		var r types.SearchResult
		if err := rows.Scan(&r.DocumentID, &r.FilePath, &r.ContentHash, &r.LastModifiedTimestamp,
			&r.ChunkIndex, &r.TotalChunks, &r.Text, &r.OriginalPath, &r.RelevanceScore); err != nil {
			return nil, fmt.Errorf("%w: scan search row: %v", types.ErrStore, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// serializeVector converts a float32 slice to a little-endian byte blob,
// the layout sqlite-vec expects for its vector column.
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector reverses serializeVector.
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two equal-length
// vectors; used by the purego fallback path.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing.
func SerializeVector(vector []float32) []byte { return serializeVector(vector) }

// DeserializeVector is an exported helper for testing.
func DeserializeVector(blob []byte) []float32 { return deserializeVector(blob) }

// CosineSimilarity is an exported helper for testing.
func CosineSimilarity(a, b []float32) float64 { return cosineSimilarity(a, b) }
