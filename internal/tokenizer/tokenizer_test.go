package tokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchcore/textindex/internal/corpus"
	"github.com/searchcore/textindex/internal/index/termstats"
)

func TestVocabularyAssignsStableIDs(t *testing.T) {
	vocab := NewVocabulary()
	first := vocab.ID("alpha")
	second := vocab.ID("beta")

	assert.NotEqual(t, first, second)
	assert.Equal(t, first, vocab.ID("alpha"))
	assert.Equal(t, 2, vocab.Len())
}

func TestTermsNormalisesAndFilters(t *testing.T) {
	got := Terms("The dogs, and the cat!")
	assert.Equal(t, []string{"dog", "cat"}, got)
}

func TestTermsStemsSuffixes(t *testing.T) {
	assert.Equal(t, []string{"index"}, Terms("indexing"))
	assert.Equal(t, []string{"category"}, Terms("categories"))
	assert.Equal(t, []string{"quick"}, Terms("quickly"))
}

func TestTermsDropsShortTokens(t *testing.T) {
	assert.Empty(t, Terms("a I x"))
}

func TestWordTokenizeCountsAndRecordsPresence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sports", "a.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("goal goal match"), 0o644))

	vocab := NewVocabulary()
	tok := NewWord(vocab)
	doc := corpus.New(path)
	stats := termstats.New()

	require.NoError(t, tok.Tokenize(path, &doc, stats))

	assert.Equal(t, uint64(3), doc.Length)
	assert.Equal(t, uint64(2), doc.Frequency(vocab.ID("goal")))
	assert.Equal(t, uint64(1), doc.Frequency(vocab.ID("match")))
	// Presence counts once per document, not per occurrence.
	assert.Equal(t, uint64(1), stats.DocFreq(vocab.ID("goal")))
}

func TestWordTokenizeTextWithNilStats(t *testing.T) {
	vocab := NewVocabulary()
	tok := NewWord(vocab)
	doc := corpus.New("query")
	tok.TokenizeText("goal match", &doc, nil)
	assert.Equal(t, uint64(2), doc.Length)
}

func TestWordTokenizeMissingFile(t *testing.T) {
	vocab := NewVocabulary()
	tok := NewWord(vocab)
	doc := corpus.New("absent.txt")
	err := tok.Tokenize(filepath.Join(t.TempDir(), "absent.txt"), &doc, nil)
	require.Error(t, err)
}

func TestNGramJoinsAdjacentWords(t *testing.T) {
	vocab := NewVocabulary()
	tok := NewNGram(vocab, 2)
	doc := corpus.New("query")
	tok.TokenizeText("fast index merge", &doc, nil)

	assert.Equal(t, uint64(1), doc.Frequency(vocab.ID("fast_index")))
	assert.Equal(t, uint64(1), doc.Frequency(vocab.ID("index_merge")))
}
