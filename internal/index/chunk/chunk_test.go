package chunk

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchcore/textindex/internal/index/postings"
	pkgerrors "github.com/searchcore/textindex/pkg/errors"
)

type rec = postings.Data[postings.TermID, postings.DocID]
type cnt = postings.Count[postings.DocID]

func writeChunk(t *testing.T, dir, name string, recs []rec) *Chunk[postings.TermID, postings.DocID] {
	t.Helper()
	ch, err := Write(filepath.Join(dir, name), recs)
	require.NoError(t, err)
	return ch
}

func readAll(t *testing.T, path string) []rec {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := postings.NewReader[postings.TermID, postings.DocID](f)
	var recs []rec
	for {
		record, err := r.Next()
		if err == io.EOF {
			return recs
		}
		require.NoError(t, err)
		recs = append(recs, record)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open[postings.TermID, postings.DocID](filepath.Join(t.TempDir(), "nope.tix"))
	require.Error(t, err)
}

func TestMergeWithOverlappingKeys(t *testing.T) {
	dir := t.TempDir()
	a := writeChunk(t, dir, "a.tix", []rec{
		{Primary: 1, Counts: []cnt{{Key: 0, Value: 2}}},
		{Primary: 3, Counts: []cnt{{Key: 0, Value: 1}, {Key: 2, Value: 4}}},
		{Primary: 9, Counts: []cnt{{Key: 1, Value: 1}}},
	})
	b := writeChunk(t, dir, "b.tix", []rec{
		{Primary: 2, Counts: []cnt{{Key: 1, Value: 5}}},
		{Primary: 3, Counts: []cnt{{Key: 2, Value: 6}, {Key: 5, Value: 1}}},
	})

	require.NoError(t, a.MergeWith(b))

	got := readAll(t, a.Path())
	require.Len(t, got, 4)
	assert.Equal(t, postings.TermID(1), got[0].Primary)
	assert.Equal(t, postings.TermID(2), got[1].Primary)
	assert.Equal(t, postings.TermID(3), got[2].Primary)
	assert.Equal(t, postings.TermID(9), got[3].Primary)
	// Shared (3, 2) pair summed, rest unioned sorted.
	assert.Equal(t, []cnt{{Key: 0, Value: 1}, {Key: 2, Value: 10}, {Key: 5, Value: 1}}, got[2].Counts)

	// The source chunk's backing file is gone.
	_, err := os.Stat(b.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestMergeWithDisjointKeysSizeIsSum(t *testing.T) {
	dir := t.TempDir()
	a := writeChunk(t, dir, "a.tix", []rec{
		{Primary: 1, Counts: []cnt{{Key: 0, Value: 1}}},
	})
	b := writeChunk(t, dir, "b.tix", []rec{
		{Primary: 2, Counts: []cnt{{Key: 1, Value: 1}}},
		{Primary: 4, Counts: []cnt{{Key: 1, Value: 2}}},
	})
	sizeA, sizeB := a.Size(), b.Size()

	require.NoError(t, a.MergeWith(b))

	// Disjoint records interleave without combining, so the merged file
	// is exactly the two inputs' bytes.
	assert.Equal(t, sizeA+sizeB, a.Size())
}

func TestConsumedChunkIsUnusable(t *testing.T) {
	dir := t.TempDir()
	a := writeChunk(t, dir, "a.tix", []rec{{Primary: 1, Counts: []cnt{{Key: 0, Value: 1}}}})
	b := writeChunk(t, dir, "b.tix", []rec{{Primary: 2, Counts: []cnt{{Key: 0, Value: 1}}}})
	c := writeChunk(t, dir, "c.tix", []rec{{Primary: 3, Counts: []cnt{{Key: 0, Value: 1}}}})

	require.NoError(t, a.MergeWith(b))

	assert.ErrorIs(t, c.MergeWith(b), pkgerrors.ErrChunkConsumed)
	assert.ErrorIs(t, b.MergeWith(c), pkgerrors.ErrChunkConsumed)
	buf := []rec{}
	assert.ErrorIs(t, b.MemoryMergeWith(&buf), pkgerrors.ErrChunkConsumed)
}

func TestMemoryMergeWithClearsBuffer(t *testing.T) {
	dir := t.TempDir()
	ch := writeChunk(t, dir, "a.tix", []rec{
		{Primary: 2, Counts: []cnt{{Key: 0, Value: 3}}},
	})
	buf := []rec{
		{Primary: 1, Counts: []cnt{{Key: 1, Value: 1}}},
		{Primary: 2, Counts: []cnt{{Key: 0, Value: 2}, {Key: 4, Value: 1}}},
	}

	require.NoError(t, ch.MemoryMergeWith(&buf))

	assert.Empty(t, buf)
	got := readAll(t, ch.Path())
	require.Len(t, got, 2)
	assert.Equal(t, []cnt{{Key: 1, Value: 1}}, got[0].Counts)
	assert.Equal(t, []cnt{{Key: 0, Value: 5}, {Key: 4, Value: 1}}, got[1].Counts)
}

func TestIdempotentReRead(t *testing.T) {
	dir := t.TempDir()
	recs := []rec{
		{Primary: 1, Counts: []cnt{{Key: 3, Value: 7}}},
		{Primary: 6, Counts: []cnt{{Key: 0, Value: 1}, {Key: 9, Value: 2}}},
	}
	ch := writeChunk(t, dir, "a.tix", recs)
	first, err := os.ReadFile(ch.Path())
	require.NoError(t, err)

	reopened, err := Open[postings.TermID, postings.DocID](ch.Path())
	require.NoError(t, err)
	assert.Equal(t, ch.Size(), reopened.Size())
	second, err := os.ReadFile(reopened.Path())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLessOrdersBySize(t *testing.T) {
	dir := t.TempDir()
	small := writeChunk(t, dir, "s.tix", []rec{{Primary: 1, Counts: []cnt{{Key: 0, Value: 1}}}})
	large := writeChunk(t, dir, "l.tix", []rec{
		{Primary: 1, Counts: []cnt{{Key: 0, Value: 1}, {Key: 1, Value: 1}, {Key: 2, Value: 1}}},
	})

	assert.True(t, small.Less(large))
	assert.False(t, large.Less(small))
}
