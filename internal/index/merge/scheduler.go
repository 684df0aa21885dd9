// Package merge reduces a set of sorted postings chunks to a single chunk
// using the optimal merge pattern: always combine the two smallest pending
// chunks, which bounds total bytes moved the same way Huffman merging does.
package merge

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/searchcore/textindex/internal/index/chunk"
	"github.com/searchcore/textindex/internal/index/postings"
	pkgerrors "github.com/searchcore/textindex/pkg/errors"
	"github.com/searchcore/textindex/pkg/resilience"
)

// Scheduler drives pairwise chunk merges until one chunk remains. Merge
// selection is serialized (the two smallest pending chunks are always
// chosen), while non-overlapping merges execute on parallel workers. A
// chunk handed to a worker is out of the heap until its merge completes, so
// no chunk is ever touched by two merges at once.
type Scheduler[P postings.Key, S postings.Key] struct {
	workers int
	logger  *slog.Logger

	// OnSelect, when set, observes every merge selection with the byte
	// sizes of the two chosen chunks, in ascending order.
	OnSelect func(small, large int64)
}

// NewScheduler creates a scheduler running at most workers concurrent
// merges. workers below 1 is treated as 1.
func NewScheduler[P postings.Key, S postings.Key](workers int) *Scheduler[P, S] {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler[P, S]{
		workers: workers,
		logger:  slog.Default().With("component", "merge-scheduler"),
	}
}

// Run merges chunks down to one and returns it. A transient merge failure
// is retried once; a second failure aborts the run and surfaces the error.
// The input slice is consumed: every chunk except the returned one has had
// its backing file deleted.
func (s *Scheduler[P, S]) Run(ctx context.Context, chunks []*chunk.Chunk[P, S]) (*chunk.Chunk[P, S], error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("merging chunks: %w", pkgerrors.ErrInvalidInput)
	}
	h := make(chunkHeap[P, S], len(chunks))
	copy(h, chunks)
	heap.Init(&h)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	// Lower bounds on the sizes of in-flight merge results. A merge's
	// output contains every record of its larger input, so it can never
	// come back smaller than that input. Selection stalls whenever an
	// in-flight result could undercut the pair it would pick, which keeps
	// the two-smallest invariant intact under parallel execution.
	var bounds []int64
	merges := 0

	mu.Lock()
	for {
		for ctx.Err() == nil && len(bounds) > 0 && (h.Len() < 2 || secondSmallest(h) > minBound(bounds)) {
			cond.Wait()
		}
		if ctx.Err() != nil || (h.Len() < 2 && len(bounds) == 0) {
			break
		}

		small := heap.Pop(&h).(*chunk.Chunk[P, S])
		large := heap.Pop(&h).(*chunk.Chunk[P, S])
		if s.OnSelect != nil {
			s.OnSelect(small.Size(), large.Size())
		}
		bound := large.Size()
		bounds = append(bounds, bound)
		merges++
		mu.Unlock()

		g.Go(func() error {
			err := s.mergePair(ctx, large, small)
			mu.Lock()
			dropBound(&bounds, bound)
			if err == nil {
				heap.Push(&h, large)
			}
			cond.Broadcast()
			mu.Unlock()
			return err
		})

		mu.Lock()
	}
	mu.Unlock()

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("merging chunks: %w", err)
	}
	s.logger.Info("chunk merge complete",
		"merges", merges,
		"final_path", h[0].Path(),
		"final_size", h[0].Size(),
	)
	return h[0], nil
}

// mergePair merges src into dst, retrying once on failure. A retry after
// src was already consumed fails fast with ErrChunkConsumed rather than
// double-counting.
func (s *Scheduler[P, S]) mergePair(ctx context.Context, dst, src *chunk.Chunk[P, S]) error {
	s.logger.Debug("merging chunks",
		"target", dst.Path(),
		"source", src.Path(),
		"target_size", dst.Size(),
		"source_size", src.Size(),
	)
	err := resilience.Retry(ctx, "chunk-merge", resilience.RetryConfig{MaxAttempts: 2}, func() error {
		return dst.MergeWith(src)
	})
	if err != nil {
		return fmt.Errorf("merging %s into %s: %w", src.Path(), dst.Path(), err)
	}
	return nil
}

// secondSmallest reports the byte size of the second-smallest chunk in a
// min-heap of at least two chunks. The children of the root are the only
// candidates.
func secondSmallest[P postings.Key, S postings.Key](h chunkHeap[P, S]) int64 {
	second := h[1]
	if len(h) > 2 && h[2].Less(second) {
		second = h[2]
	}
	return second.Size()
}

func minBound(bounds []int64) int64 {
	m := bounds[0]
	for _, b := range bounds[1:] {
		if b < m {
			m = b
		}
	}
	return m
}

func dropBound(bounds *[]int64, v int64) {
	for i, b := range *bounds {
		if b == v {
			(*bounds)[i] = (*bounds)[len(*bounds)-1]
			*bounds = (*bounds)[:len(*bounds)-1]
			return
		}
	}
}

type chunkHeap[P postings.Key, S postings.Key] []*chunk.Chunk[P, S]

func (h chunkHeap[P, S]) Len() int            { return len(h) }
func (h chunkHeap[P, S]) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h chunkHeap[P, S]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *chunkHeap[P, S]) Push(x interface{}) { *h = append(*h, x.(*chunk.Chunk[P, S])) }

func (h *chunkHeap[P, S]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
