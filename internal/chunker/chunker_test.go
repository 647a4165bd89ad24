package chunker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c := New()
	assert.NotNil(t, c)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha beta gamma"), 0o644))

	c := New()
	hash, mtime, err := c.HashFile(path)
	require.NoError(t, err)
	assert.Len(t, hash, 64) // hex sha256
	assert.Greater(t, mtime, 0.0)
}

func TestHashFile_Deterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("same content"), 0o644))

	c := New()
	h1, _, err := c.HashFile(path)
	require.NoError(t, err)
	h2, _, err := c.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestExtractChunks_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	c := New()
	chunks, err := c.ExtractChunks(path)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestExtractChunks_WhitespaceOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ws.txt")
	require.NoError(t, os.WriteFile(path, []byte("   \n\t\n  "), 0o644))

	c := New()
	chunks, err := c.ExtractChunks(path)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestExtractChunks_SingleSmallChunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha beta gamma"), 0o644))

	c := New()
	chunks, err := c.ExtractChunks(path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "alpha beta gamma", chunks[0])
}

func TestSplitText_RespectsTokenBudgetAndOverlaps(t *testing.T) {
	var lines []string
	for i := 0; i < 500; i++ {
		lines = append(lines, "this is a line of sample text for chunk budget testing")
	}
	text := strings.Join(lines, "\n")

	chunks := SplitText(text)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, EstimateTokenCount(chunk), MaxTokensPerChunk+EstimateTokenCount(lines[0]))
	}
}

func TestEstimateTokenCount(t *testing.T) {
	assert.Equal(t, 0, EstimateTokenCount(""))
	assert.Equal(t, 1, EstimateTokenCount("abc"))
	assert.Equal(t, 2, EstimateTokenCount("abcdefgh"))
}
