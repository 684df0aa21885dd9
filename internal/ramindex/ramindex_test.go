package ramindex

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchcore/textindex/internal/corpus"
	"github.com/searchcore/textindex/internal/index/postings"
	pkgerrors "github.com/searchcore/textindex/pkg/errors"
)

func makeDoc(name, category string, freqs map[postings.TermID]uint64) corpus.Document {
	doc := corpus.Document{Name: name, Category: category, Freqs: make(map[postings.TermID]uint64)}
	for t, n := range freqs {
		doc.AddTerm(t, n)
	}
	return doc
}

// buildIndex wires documents into an index, deriving each document's
// frequency contribution from term presence.
func buildIndex(t *testing.T, docs []corpus.Document, opts ...Option) *Index {
	t.Helper()
	freqs := make([]map[postings.TermID]uint64, len(docs))
	for i, doc := range docs {
		presence := make(map[postings.TermID]uint64, len(doc.Freqs))
		for term := range doc.Freqs {
			presence[term] = 1
		}
		freqs[i] = presence
	}
	idx, err := NewFromDocuments(docs, freqs, opts...)
	require.NoError(t, err)
	return idx
}

func TestScoreClosedForm(t *testing.T) {
	// Ten documents of equal length, the queried term in exactly one of
	// them, once. Length normalisation and both saturation terms collapse
	// to 1, leaving Score = IDF = ln((10-1+0.5)/(1+0.5)).
	docs := make([]corpus.Document, 10)
	for i := range docs {
		filler := postings.TermID(100 + i)
		docs[i] = makeDoc("d", "cat", map[postings.TermID]uint64{filler: 4})
	}
	docs[0] = makeDoc("d0", "cat", map[postings.TermID]uint64{1: 1, 100: 3})
	idx := buildIndex(t, docs)

	query := makeDoc("query", "", map[postings.TermID]uint64{1: 1})
	got := idx.Score(&docs[0], &query)

	want := math.Log(9.5 / 1.5)
	require.InDelta(t, want, got, 1e-9)
}

func TestScoreIsNegativeForVeryCommonTerms(t *testing.T) {
	// A term in 9 of 10 documents has IDF ln(1.5/9.5) < 0.
	docs := make([]corpus.Document, 10)
	for i := range docs {
		docs[i] = makeDoc("d", "cat", map[postings.TermID]uint64{1: 1})
	}
	docs[9] = makeDoc("d9", "cat", map[postings.TermID]uint64{2: 1})
	idx := buildIndex(t, docs)

	query := makeDoc("query", "", map[postings.TermID]uint64{1: 1})
	assert.Negative(t, idx.Score(&docs[0], &query))
}

func TestSearchRanksByScoreAndExcludesZero(t *testing.T) {
	docs := []corpus.Document{
		makeDoc("heavy.txt", "sports", map[postings.TermID]uint64{1: 5, 2: 1}),
		makeDoc("light.txt", "sports", map[postings.TermID]uint64{1: 1, 3: 5}),
	}
	// Padding keeps the queried term rare so its IDF stays positive.
	for i := 0; i < 8; i++ {
		docs = append(docs, makeDoc("pad.txt", "tech", map[postings.TermID]uint64{4: 6}))
	}
	idx := buildIndex(t, docs)

	query := makeDoc("query", "", map[postings.TermID]uint64{1: 1})
	results, err := idx.Search(context.Background(), &query)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "heavy.txt", results[0].Name)
	assert.Equal(t, "light.txt", results[1].Name)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchTieBreaksByName(t *testing.T) {
	docs := []corpus.Document{
		makeDoc("b.txt", "sports", map[postings.TermID]uint64{1: 2}),
		makeDoc("a.txt", "tech", map[postings.TermID]uint64{1: 2}),
	}
	idx := buildIndex(t, docs)

	query := makeDoc("query", "", map[postings.TermID]uint64{1: 1})
	results, err := idx.Search(context.Background(), &query)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "a.txt", results[0].Name)
	assert.Equal(t, "b.txt", results[1].Name)
}

func TestSearchParallelMatchesSerial(t *testing.T) {
	docs := make([]corpus.Document, 64)
	for i := range docs {
		docs[i] = makeDoc("d", "cat", map[postings.TermID]uint64{
			postings.TermID(i % 7): uint64(i%3 + 1),
			postings.TermID(50):    1,
		})
		docs[i].Name = docs[i].Name + string(rune('a'+i%26))
	}
	serial := buildIndex(t, docs, WithWorkers(1))
	parallel := buildIndex(t, docs, WithWorkers(8))

	query := makeDoc("query", "", map[postings.TermID]uint64{3: 1, 50: 2})
	want, err := serial.Search(context.Background(), &query)
	require.NoError(t, err)
	got, err := parallel.Search(context.Background(), &query)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestClassifyKNNMajorityVote(t *testing.T) {
	docs := []corpus.Document{
		makeDoc("m1.txt", "sports", map[postings.TermID]uint64{1: 3}),
		makeDoc("m2.txt", "sports", map[postings.TermID]uint64{1: 2, 2: 1}),
		makeDoc("t1.txt", "tech", map[postings.TermID]uint64{1: 1, 3: 2}),
	}
	idx := buildIndex(t, docs)

	query := makeDoc("query", "", map[postings.TermID]uint64{1: 1})
	category, err := idx.ClassifyKNN(context.Background(), &query, 3)
	require.NoError(t, err)
	assert.Equal(t, "sports", category)
}

func TestClassifyKNNNoHits(t *testing.T) {
	docs := []corpus.Document{
		makeDoc("a.txt", "sports", map[postings.TermID]uint64{1: 1}),
	}
	idx := buildIndex(t, docs)

	query := makeDoc("query", "", map[postings.TermID]uint64{99: 1})
	category, err := idx.ClassifyKNN(context.Background(), &query, 5)
	require.NoError(t, err)
	assert.Equal(t, NoResults, category)
}

func TestNewFromDocumentsAvgLength(t *testing.T) {
	docs := []corpus.Document{
		makeDoc("a", "c", map[postings.TermID]uint64{1: 2}),
		makeDoc("b", "c", map[postings.TermID]uint64{1: 4}),
		makeDoc("c", "c", map[postings.TermID]uint64{1: 6}),
	}
	idx := buildIndex(t, docs)
	assert.Equal(t, 4.0, idx.AvgDocLength())
	assert.Equal(t, 3, idx.DocCount())
}

func TestEmptyCorpusRejected(t *testing.T) {
	_, err := NewFromDocuments(nil, nil)
	require.ErrorIs(t, err, pkgerrors.ErrEmptyCorpus)

	_, err = NewFromPaths(nil, nil)
	require.ErrorIs(t, err, pkgerrors.ErrEmptyCorpus)
}

func TestNewFromDocumentsLengthMismatch(t *testing.T) {
	docs := []corpus.Document{makeDoc("a", "c", map[postings.TermID]uint64{1: 1})}
	_, err := NewFromDocuments(docs, nil)
	require.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
}

func TestLabelCategoryRoundTrip(t *testing.T) {
	r := Result{Name: "match.txt", Category: "sports", Score: 1}
	assert.Equal(t, "match.txt (sports)", r.String())
	assert.Equal(t, "sports", CategoryOf(r.String()))

	// Categories containing spaces survive the round trip.
	r = Result{Name: "a.txt", Category: "world news"}
	assert.Equal(t, "world news", CategoryOf(r.String()))

	assert.Equal(t, "", CategoryOf("nospace"))
}
