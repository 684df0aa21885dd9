package indexer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchcore/textindex/internal/corpus"
	"github.com/searchcore/textindex/internal/index/postings"
	"github.com/searchcore/textindex/internal/tokenizer"
	"github.com/searchcore/textindex/pkg/config"
	pkgerrors "github.com/searchcore/textindex/pkg/errors"
)

func writeCorpus(t *testing.T, dir string) []string {
	t.Helper()
	files := map[string]string{
		"sports/a.txt": "goal goal match",
		"sports/b.txt": "goal team",
		"tech/c.txt":   "chip chip chip",
	}
	for rel, body := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	paths, err := corpus.List(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	return paths
}

// readPostings loads the merged postings file into term -> doc -> count.
func readPostings(t *testing.T, path string) map[postings.TermID]map[postings.DocID]uint64 {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	out := make(map[postings.TermID]map[postings.DocID]uint64)
	r := postings.NewReader[postings.TermID, postings.DocID](f)
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		byDoc := make(map[postings.DocID]uint64, len(rec.Counts))
		for _, c := range rec.Counts {
			byDoc[c.Key] = c.Value
		}
		out[rec.Primary] = byDoc
	}
}

func TestBuildMultiChunk(t *testing.T) {
	corpusDir := t.TempDir()
	dataDir := t.TempDir()
	paths := writeCorpus(t, corpusDir)

	vocab := tokenizer.NewVocabulary()
	// One byte forces a chunk flush after every document.
	builder := New(config.IndexerConfig{
		DataDir:      dataDir,
		ChunkMaxSize: 1,
		MergeWorkers: 2,
	}, tokenizer.NewWord(vocab), nil)

	result, err := builder.Build(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, result.Documents, 3)

	got := readPostings(t, result.PostingsPath)
	goal := vocab.ID("goal")
	match := vocab.ID("match")
	team := vocab.ID("team")
	chip := vocab.ID("chip")

	require.Len(t, got, 4)
	assert.Equal(t, map[postings.DocID]uint64{0: 2, 1: 1}, got[goal])
	assert.Equal(t, map[postings.DocID]uint64{0: 1}, got[match])
	assert.Equal(t, map[postings.DocID]uint64{1: 1}, got[team])
	assert.Equal(t, map[postings.DocID]uint64{2: 3}, got[chip])

	// Document frequencies count presence, not occurrences.
	assert.Equal(t, uint64(2), result.Stats.DocFreq(goal))
	assert.Equal(t, uint64(1), result.Stats.DocFreq(chip))
	// Lengths 3, 2, 3.
	require.InDelta(t, 8.0/3.0, result.AvgDocLength, 1e-9)

	// Intermediate chunk files are consumed; only the store remains.
	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, PostingsFileName, entries[0].Name())
}

func TestBuildSingleBuffer(t *testing.T) {
	corpusDir := t.TempDir()
	dataDir := t.TempDir()
	paths := writeCorpus(t, corpusDir)

	vocab := tokenizer.NewVocabulary()
	builder := New(config.IndexerConfig{
		DataDir:      dataDir,
		ChunkMaxSize: 32 << 20,
		MergeWorkers: 2,
	}, tokenizer.NewWord(vocab), nil)

	result, err := builder.Build(context.Background(), paths)
	require.NoError(t, err)

	got := readPostings(t, result.PostingsPath)
	assert.Equal(t, map[postings.DocID]uint64{0: 2, 1: 1}, got[vocab.ID("goal")])
	assert.Len(t, got, 4)
}

func TestBuildMatchesRegardlessOfChunking(t *testing.T) {
	corpusDir := t.TempDir()
	paths := writeCorpus(t, corpusDir)

	build := func(chunkMax int64) map[postings.TermID]map[postings.DocID]uint64 {
		vocab := tokenizer.NewVocabulary()
		builder := New(config.IndexerConfig{
			DataDir:      t.TempDir(),
			ChunkMaxSize: chunkMax,
			MergeWorkers: 1,
		}, tokenizer.NewWord(vocab), nil)
		result, err := builder.Build(context.Background(), paths)
		require.NoError(t, err)
		return readPostings(t, result.PostingsPath)
	}

	assert.Equal(t, build(32<<20), build(1))
}

func TestBuildEmptyCorpus(t *testing.T) {
	builder := New(config.IndexerConfig{DataDir: t.TempDir(), ChunkMaxSize: 1}, tokenizer.NewWord(tokenizer.NewVocabulary()), nil)
	_, err := builder.Build(context.Background(), nil)
	require.ErrorIs(t, err, pkgerrors.ErrEmptyCorpus)
}
