// Package ramindex holds the full corpus in memory and scores documents
// against queries with the BM25 probabilistic relevance model. A k-nearest
// neighbour classifier sits on top of ranked search results.
package ramindex

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/searchcore/textindex/internal/corpus"
	"github.com/searchcore/textindex/internal/index/postings"
	"github.com/searchcore/textindex/internal/index/termstats"
	"github.com/searchcore/textindex/internal/tokenizer"
	pkgerrors "github.com/searchcore/textindex/pkg/errors"
)

// BM25 parameters. k1 saturates document term frequency, b normalises for
// document length, k3 saturates query term frequency.
const (
	k1 = 1.5
	b  = 0.75
	k3 = 500.0
)

// NoResults is the sentinel category returned when classification has no
// ranked results to vote on.
const NoResults = "[no results]"

// Index is an in-memory ranking engine: the document collection plus the
// corpus-wide statistics BM25 needs. Both are immutable once construction
// finishes, so scoring shares them across goroutines without locking.
type Index struct {
	docs      []corpus.Document
	stats     *termstats.Accumulator
	avgDocLen float64
	workers   int
	logger    *slog.Logger
}

// Option adjusts index construction.
type Option func(*Index)

// WithWorkers caps the number of goroutines used for parallel scoring.
func WithWorkers(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// NewFromPaths builds an index by tokenizing each corpus source. Document
// name and category come from the source's "category/name" path shape.
func NewFromPaths(paths []string, tok tokenizer.Tokenizer, opts ...Option) (*Index, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("building index: %w", pkgerrors.ErrEmptyCorpus)
	}
	idx := newIndex(opts)
	idx.stats = termstats.New()
	idx.docs = make([]corpus.Document, 0, len(paths))

	var totalLength uint64
	for i, path := range paths {
		doc := corpus.New(path)
		if err := tok.Tokenize(path, &doc, idx.stats); err != nil {
			return nil, fmt.Errorf("tokenizing %s: %w", path, err)
		}
		idx.docs = append(idx.docs, doc)
		totalLength += doc.Length
		if (i+1)%500 == 0 {
			idx.logger.Info("indexing corpus",
				"done", i+1,
				"total", len(paths),
				"pct", fmt.Sprintf("%.1f", float64(i+1)/float64(len(paths))*100),
			)
		}
	}
	idx.avgDocLen = float64(totalLength) / float64(len(idx.docs))
	idx.logger.Info("index built",
		"documents", len(idx.docs),
		"terms", idx.stats.Len(),
		"avg_doc_length", idx.avgDocLen,
	)
	return idx, nil
}

// NewFromDocuments builds an index from pre-built documents plus their
// precomputed document-frequency contributions, skipping tokenization.
// freqs[i] is the frequency map document i contributes; contributions are
// summed key-wise.
func NewFromDocuments(docs []corpus.Document, freqs []map[postings.TermID]uint64, opts ...Option) (*Index, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("building index: %w", pkgerrors.ErrEmptyCorpus)
	}
	if len(freqs) != len(docs) {
		return nil, fmt.Errorf("building index: %d documents but %d frequency maps: %w",
			len(docs), len(freqs), pkgerrors.ErrInvalidInput)
	}
	idx := newIndex(opts)
	idx.stats = termstats.New()
	idx.docs = docs

	var totalLength uint64
	for i, doc := range docs {
		totalLength += doc.Length
		idx.stats.Combine(freqs[i])
	}
	idx.avgDocLen = float64(totalLength) / float64(len(docs))
	return idx, nil
}

func newIndex(opts []Option) *Index {
	idx := &Index{
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default().With("component", "ram-index"),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// DocCount returns the number of indexed documents.
func (idx *Index) DocCount() int { return len(idx.docs) }

// AvgDocLength returns the corpus-wide average document length.
func (idx *Index) AvgDocLength() float64 { return idx.avgDocLen }

// Score computes the BM25 similarity of one document against a query. Only
// the query's terms contribute; a term unseen in the corpus has docFreq 0
// and a large positive IDF, a term in more than half the corpus has a
// negative IDF that pulls the score down. Neither is clamped.
func (idx *Index) Score(doc, query *corpus.Document) float64 {
	score := 0.0
	numDocs := float64(len(idx.docs))
	docLen := float64(doc.Length)

	for term, qtf := range query.Freqs {
		docFreq := float64(idx.stats.DocFreq(term))
		tf := float64(doc.Frequency(term))

		idf := math.Log((numDocs - docFreq + 0.5) / (docFreq + 0.5))
		tfNorm := ((k1 + 1) * tf) / (k1*((1-b)+b*docLen/idx.avgDocLen) + tf)
		qtfNorm := ((k3 + 1) * float64(qtf)) / (k3 + float64(qtf))

		score += idf * tfNorm * qtfNorm
	}
	return score
}

// Search scores every document against the query in parallel and returns
// the non-zero hits sorted by descending score. Scoring is fork-join: each
// worker fills a private buffer over its slice of the corpus, and buffers
// are combined and sorted only after all workers finish, so no shared state
// is written during the parallel phase.
func (idx *Index) Search(ctx context.Context, query *corpus.Document) ([]Result, error) {
	workers := idx.workers
	if workers > len(idx.docs) {
		workers = len(idx.docs)
	}
	buffers := make([][]Result, workers)

	g, _ := errgroup.WithContext(ctx)
	stride := (len(idx.docs) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * stride
		hi := min(lo+stride, len(idx.docs))
		g.Go(func() error {
			local := make([]Result, 0, hi-lo)
			for i := lo; i < hi; i++ {
				if score := idx.Score(&idx.docs[i], query); score != 0 {
					local = append(local, Result{
						Name:     idx.docs[i].Name,
						Category: idx.docs[i].Category,
						Score:    score,
					})
				}
			}
			buffers[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(idx.docs))
	for _, buf := range buffers {
		results = append(results, buf...)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})
	return results, nil
}

// ClassifyKNN ranks the corpus against the query and returns the majority
// category among the top k results, or NoResults when nothing ranked.
// Vote ties resolve to whichever tied category the tally iteration reaches
// first; map iteration order makes that nondeterministic, and that behaviour
// is deliberate (see DESIGN.md).
func (idx *Index) ClassifyKNN(ctx context.Context, query *corpus.Document, k int) (string, error) {
	results, err := idx.Search(ctx, query)
	if err != nil {
		return "", err
	}
	counts := make(map[string]int)
	for i := 0; i < len(results) && i < k; i++ {
		counts[CategoryOf(results[i].String())]++
	}

	best := NoResults
	high := 0
	for category, n := range counts {
		if n > high {
			best = category
			high = n
		}
	}
	return best, nil
}
