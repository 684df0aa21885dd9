package postings

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddKeepsCountsSorted(t *testing.T) {
	var rec Data[TermID, DocID]
	rec.Primary = 3
	rec.Add(5, 2)
	rec.Add(1, 1)
	rec.Add(9, 4)
	rec.Add(5, 3)

	require.Len(t, rec.Counts, 3)
	assert.Equal(t, Count[DocID]{Key: 1, Value: 1}, rec.Counts[0])
	assert.Equal(t, Count[DocID]{Key: 5, Value: 5}, rec.Counts[1])
	assert.Equal(t, Count[DocID]{Key: 9, Value: 4}, rec.Counts[2])
}

func TestCombineSumsMatchingAndUnionsRest(t *testing.T) {
	a := Data[TermID, DocID]{
		Primary: 7,
		Counts:  []Count[DocID]{{Key: 1, Value: 2}, {Key: 3, Value: 1}, {Key: 8, Value: 5}},
	}
	b := Data[TermID, DocID]{
		Primary: 7,
		Counts:  []Count[DocID]{{Key: 2, Value: 4}, {Key: 3, Value: 6}, {Key: 9, Value: 1}},
	}

	merged := a.Combine(b)
	require.Equal(t, TermID(7), merged.Primary)
	assert.Equal(t, []Count[DocID]{
		{Key: 1, Value: 2},
		{Key: 2, Value: 4},
		{Key: 3, Value: 7},
		{Key: 8, Value: 5},
		{Key: 9, Value: 1},
	}, merged.Counts)
}

func TestCombineIsCommutativeInContent(t *testing.T) {
	a := Data[TermID, DocID]{Primary: 1, Counts: []Count[DocID]{{Key: 1, Value: 1}, {Key: 4, Value: 2}}}
	b := Data[TermID, DocID]{Primary: 1, Counts: []Count[DocID]{{Key: 2, Value: 3}, {Key: 4, Value: 5}}}

	assert.Equal(t, a.Combine(b).Counts, b.Combine(a).Counts)
}

func TestCodecRoundTrip(t *testing.T) {
	recs := []Data[TermID, DocID]{
		{Primary: 1, Counts: []Count[DocID]{{Key: 0, Value: 3}}},
		{Primary: 5, Counts: []Count[DocID]{{Key: 2, Value: 1}, {Key: 7, Value: 900}}},
		{Primary: 1 << 40, Counts: nil},
	}

	var buf bytes.Buffer
	w := NewWriter[TermID, DocID](&buf)
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Flush())

	r := NewReader[TermID, DocID](&buf)
	for _, want := range recs {
		got, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, want.Primary, got.Primary)
		assert.Len(t, got.Counts, len(want.Counts))
		for i := range want.Counts {
			assert.Equal(t, want.Counts[i], got.Counts[i])
		}
	}
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestWriterRejectsOutOfOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter[TermID, DocID](&buf)
	require.NoError(t, w.Write(Data[TermID, DocID]{Primary: 10}))

	err := w.Write(Data[TermID, DocID]{Primary: 10})
	require.ErrorIs(t, err, ErrOutOfOrder)
	err = w.Write(Data[TermID, DocID]{Primary: 4})
	require.ErrorIs(t, err, ErrOutOfOrder)
}

func TestReaderRejectsOutOfOrder(t *testing.T) {
	var buf bytes.Buffer
	// Hand-build a stream with primaries 5 then 2.
	buf.Write([]byte{5, 0, 2, 0})

	r := NewReader[TermID, DocID](&buf)
	_, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.ErrorIs(t, err, ErrOutOfOrder)
}
