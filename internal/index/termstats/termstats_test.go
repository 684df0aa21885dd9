package termstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchcore/textindex/internal/index/postings"
)

func TestRecordDocumentCountsPresenceNotOccurrences(t *testing.T) {
	acc := New()
	acc.RecordDocument(map[postings.TermID]uint64{1: 50, 2: 1})
	acc.RecordDocument(map[postings.TermID]uint64{1: 3})

	assert.Equal(t, uint64(2), acc.DocFreq(1))
	assert.Equal(t, uint64(1), acc.DocFreq(2))
	assert.Equal(t, uint64(0), acc.DocFreq(99))
	assert.Equal(t, 2, acc.Len())
}

func TestCombineSumsKeyWise(t *testing.T) {
	left := New()
	left.RecordDocument(map[postings.TermID]uint64{1: 1, 2: 1})
	left.RecordDocument(map[postings.TermID]uint64{1: 1})

	right := New()
	right.RecordDocument(map[postings.TermID]uint64{2: 1, 3: 1})

	left.Combine(right.Freqs())

	require.Equal(t, 3, left.Len())
	assert.Equal(t, uint64(2), left.DocFreq(1))
	assert.Equal(t, uint64(2), left.DocFreq(2))
	assert.Equal(t, uint64(1), left.DocFreq(3))
}

func TestRecordIncrementsSingleTerm(t *testing.T) {
	acc := New()
	acc.Record(7)
	acc.Record(7)
	acc.Record(8)

	assert.Equal(t, uint64(2), acc.DocFreq(7))
	assert.Equal(t, uint64(1), acc.DocFreq(8))
}
