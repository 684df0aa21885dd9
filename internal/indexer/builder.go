// Package indexer builds the on-disk postings store for a corpus. Documents
// are tokenized into an in-memory postings buffer; each time the buffer
// passes its size threshold it is flushed as a sorted chunk file, and the
// merge scheduler reduces the chunks to a single canonical postings file.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/searchcore/textindex/internal/corpus"
	"github.com/searchcore/textindex/internal/index/chunk"
	"github.com/searchcore/textindex/internal/index/merge"
	"github.com/searchcore/textindex/internal/index/postings"
	"github.com/searchcore/textindex/internal/index/termstats"
	"github.com/searchcore/textindex/internal/tokenizer"
	"github.com/searchcore/textindex/pkg/config"
	pkgerrors "github.com/searchcore/textindex/pkg/errors"
	"github.com/searchcore/textindex/pkg/metrics"
)

// PostingsFileName is the canonical postings store inside the data dir.
const PostingsFileName = "postings.tix"

// Builder runs full index builds.
type Builder struct {
	cfg     config.IndexerConfig
	tok     tokenizer.Tokenizer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Result is the outcome of a build: the merged postings file plus the
// per-document and corpus-wide state the ranking engine consumes.
type Result struct {
	PostingsPath string
	Documents    []corpus.Document
	Stats        *termstats.Accumulator
	AvgDocLength float64
}

// New creates a Builder. m may be nil to disable instrumentation.
func New(cfg config.IndexerConfig, tok tokenizer.Tokenizer, m *metrics.Metrics) *Builder {
	return &Builder{
		cfg:     cfg,
		tok:     tok,
		logger:  slog.Default().With("component", "index-builder"),
		metrics: m,
	}
}

// Build indexes the given corpus sources and merges all intermediate chunks
// into a single postings file under the data dir. Any I/O failure aborts
// the build with the offending path in the error.
func (b *Builder) Build(ctx context.Context, paths []string) (*Result, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("building index: %w", pkgerrors.ErrEmptyCorpus)
	}
	if err := os.MkdirAll(b.cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", b.cfg.DataDir, err)
	}
	start := time.Now()

	docs := make([]corpus.Document, 0, len(paths))
	stats := termstats.New()
	buffer := make(map[postings.TermID]*postings.Data[postings.TermID, postings.DocID])
	var bufferBytes int64
	var chunks []*chunk.Chunk[postings.TermID, postings.DocID]
	var totalLength uint64

	for i, path := range paths {
		doc := corpus.New(path)
		if err := b.tok.Tokenize(path, &doc, stats); err != nil {
			return nil, fmt.Errorf("tokenizing %s: %w", path, err)
		}
		docID := postings.DocID(i)
		for term, freq := range doc.Freqs {
			rec, ok := buffer[term]
			if !ok {
				rec = &postings.Data[postings.TermID, postings.DocID]{Primary: term}
				buffer[term] = rec
				bufferBytes += 16
			}
			rec.Add(docID, freq)
			bufferBytes += 16
		}
		docs = append(docs, doc)
		totalLength += doc.Length
		if b.metrics != nil {
			b.metrics.DocsIndexedTotal.Inc()
		}
		if (i+1)%500 == 0 {
			b.logger.Info("indexing corpus",
				"done", i+1,
				"total", len(paths),
				"pct", fmt.Sprintf("%.1f", float64(i+1)/float64(len(paths))*100),
			)
		}

		if bufferBytes >= b.cfg.ChunkMaxSize {
			ch, err := b.flush(buffer, len(chunks))
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, ch)
			buffer = make(map[postings.TermID]*postings.Data[postings.TermID, postings.DocID])
			bufferBytes = 0
		}
	}

	postingsPath := filepath.Join(b.cfg.DataDir, PostingsFileName)
	final, err := b.mergeAll(ctx, chunks, buffer)
	if err != nil {
		return nil, err
	}
	if final.Path() != postingsPath {
		if err := os.Rename(final.Path(), postingsPath); err != nil {
			return nil, fmt.Errorf("installing postings file %s: %w", postingsPath, err)
		}
	}

	avgDocLength := float64(totalLength) / float64(len(docs))
	if b.metrics != nil {
		b.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	}
	b.logger.Info("index build complete",
		"documents", len(docs),
		"terms", stats.Len(),
		"chunks", len(chunks),
		"postings", postingsPath,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return &Result{
		PostingsPath: postingsPath,
		Documents:    docs,
		Stats:        stats,
		AvgDocLength: avgDocLength,
	}, nil
}

// flush writes the buffer as a new sorted chunk file.
func (b *Builder) flush(buffer map[postings.TermID]*postings.Data[postings.TermID, postings.DocID], n int) (*chunk.Chunk[postings.TermID, postings.DocID], error) {
	recs := sortedRecords(buffer)
	path := filepath.Join(b.cfg.DataDir, fmt.Sprintf("chunk_%06d.tix", n))
	ch, err := chunk.Write(path, recs)
	if err != nil {
		return nil, fmt.Errorf("flushing postings buffer: %w", err)
	}
	if b.metrics != nil {
		b.metrics.ChunkFlushesTotal.Inc()
	}
	b.logger.Debug("chunk flushed", "path", path, "records", len(recs), "bytes", ch.Size())
	return ch, nil
}

// mergeAll reduces the chunks to one via the scheduler and folds any
// leftover buffered records into the survivor.
func (b *Builder) mergeAll(
	ctx context.Context,
	chunks []*chunk.Chunk[postings.TermID, postings.DocID],
	buffer map[postings.TermID]*postings.Data[postings.TermID, postings.DocID],
) (*chunk.Chunk[postings.TermID, postings.DocID], error) {
	if len(chunks) == 0 {
		// Whole corpus fit in one buffer.
		recs := sortedRecords(buffer)
		path := filepath.Join(b.cfg.DataDir, PostingsFileName)
		ch, err := chunk.Write(path, recs)
		if err != nil {
			return nil, fmt.Errorf("writing postings file: %w", err)
		}
		return ch, nil
	}

	sched := merge.NewScheduler[postings.TermID, postings.DocID](b.cfg.MergeWorkers)
	if b.metrics != nil {
		sched.OnSelect = func(small, large int64) {
			b.metrics.ChunkMergesTotal.Inc()
			b.metrics.MergeBytesTotal.Add(float64(small + large))
		}
	}
	final, err := sched.Run(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(buffer) > 0 {
		recs := sortedRecords(buffer)
		if err := final.MemoryMergeWith(&recs); err != nil {
			return nil, err
		}
	}
	return final, nil
}

func sortedRecords(buffer map[postings.TermID]*postings.Data[postings.TermID, postings.DocID]) []postings.Data[postings.TermID, postings.DocID] {
	recs := make([]postings.Data[postings.TermID, postings.DocID], 0, len(buffer))
	for _, rec := range buffer {
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Primary < recs[j].Primary })
	return recs
}
