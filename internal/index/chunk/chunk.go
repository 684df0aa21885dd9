// Package chunk manages the sorted on-disk runs of postings records produced
// during index construction. A chunk exclusively owns its backing file; the
// two merge operations rewrite that file atomically (write to a temp file,
// rename over the original) so a failed merge never leaves a partially
// merged file at the chunk's path.
package chunk

import (
	"fmt"
	"io"
	"os"

	"github.com/searchcore/textindex/internal/index/postings"
	pkgerrors "github.com/searchcore/textindex/pkg/errors"
)

// Chunk is a sorted run of postings records persisted at a single path.
type Chunk[P postings.Key, S postings.Key] struct {
	path     string
	size     int64
	consumed bool
}

// Open attaches a chunk to an existing sorted postings file and records its
// current size.
func Open[P postings.Key, S postings.Key](path string) (*Chunk[P, S], error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk %s: %w", path, err)
	}
	return &Chunk[P, S]{path: path, size: info.Size()}, nil
}

// Write creates a new chunk file at path from records already sorted by
// primary key, then returns the chunk attached to it.
func Write[P postings.Key, S postings.Key](path string, recs []postings.Data[P, S]) (*Chunk[P, S], error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating chunk %s: %w", path, err)
	}
	w := postings.NewWriter[P, S](f)
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("writing chunk %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing chunk %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing chunk %s: %w", path, err)
	}
	return Open[P, S](path)
}

// Path returns the location of the chunk's backing file.
func (c *Chunk[P, S]) Path() string { return c.path }

// Size returns the cached byte size of the backing file. It is the only
// input to merge ordering: smaller chunks merge first.
func (c *Chunk[P, S]) Size() int64 { return c.size }

// Less orders chunks by size.
func (c *Chunk[P, S]) Less(other *Chunk[P, S]) bool { return c.size < other.size }

// MergeWith merges other's records into this chunk with a streaming sorted
// merge, then deletes other's backing file. Records sharing a primary key
// are combined (matching secondary keys summed, the rest unioned in sorted
// order). After a successful merge other is consumed and must not be used
// again; any further operation on it returns ErrChunkConsumed.
func (c *Chunk[P, S]) MergeWith(other *Chunk[P, S]) error {
	if c.consumed {
		return fmt.Errorf("merge target %s: %w", c.path, pkgerrors.ErrChunkConsumed)
	}
	if other.consumed {
		return fmt.Errorf("merge source %s: %w", other.path, pkgerrors.ErrChunkConsumed)
	}

	self, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("opening chunk %s: %w", c.path, err)
	}
	defer self.Close()
	src, err := os.Open(other.path)
	if err != nil {
		return fmt.Errorf("opening chunk %s: %w", other.path, err)
	}
	defer src.Close()

	if err := c.rewrite(fileSource[P, S]{r: postings.NewReader[P, S](self)}, fileSource[P, S]{r: postings.NewReader[P, S](src)}); err != nil {
		return err
	}

	other.consumed = true
	if err := os.Remove(other.path); err != nil {
		return fmt.Errorf("removing merged chunk %s: %w", other.path, err)
	}
	return nil
}

// MemoryMergeWith merges an in-memory buffer of records, already sorted by
// primary key, into the chunk's file. On success the buffer is cleared: its
// contents now live in the chunk and the caller must not reuse them.
func (c *Chunk[P, S]) MemoryMergeWith(buf *[]postings.Data[P, S]) error {
	if c.consumed {
		return fmt.Errorf("merge target %s: %w", c.path, pkgerrors.ErrChunkConsumed)
	}
	self, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("opening chunk %s: %w", c.path, err)
	}
	defer self.Close()

	if err := c.rewrite(fileSource[P, S]{r: postings.NewReader[P, S](self)}, &sliceSource[P, S]{recs: *buf}); err != nil {
		return err
	}
	*buf = (*buf)[:0]
	return nil
}

// rewrite runs the two-pointer merge of a and b into a temp file and renames
// it over the chunk's path, refreshing the cached size.
func (c *Chunk[P, S]) rewrite(a, b source[P, S]) error {
	tmpPath := c.path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp chunk %s: %w", tmpPath, err)
	}
	w := postings.NewWriter[P, S](tmp)
	if err := mergeSources(a, b, w); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("merging into chunk %s: %w", c.path, err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("merging into chunk %s: %w", c.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp chunk %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp chunk %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing chunk %s: %w", c.path, err)
	}
	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("sizing chunk %s: %w", c.path, err)
	}
	c.size = info.Size()
	return nil
}

// source is a sorted stream of postings records. The merge algorithm is
// written once against this interface and fed either two files or a file
// plus an in-memory buffer.
type source[P postings.Key, S postings.Key] interface {
	next() (postings.Data[P, S], error)
}

type fileSource[P postings.Key, S postings.Key] struct {
	r *postings.Reader[P, S]
}

func (s fileSource[P, S]) next() (postings.Data[P, S], error) { return s.r.Next() }

type sliceSource[P postings.Key, S postings.Key] struct {
	recs []postings.Data[P, S]
	pos  int
}

func (s *sliceSource[P, S]) next() (postings.Data[P, S], error) {
	if s.pos >= len(s.recs) {
		return postings.Data[P, S]{}, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, nil
}

// mergeSources advances two sorted record streams in lockstep, combining
// records that share a primary key and writing the union in increasing
// primary-key order.
func mergeSources[P postings.Key, S postings.Key](a, b source[P, S], w *postings.Writer[P, S]) error {
	ra, okA, err := advance(a)
	if err != nil {
		return err
	}
	rb, okB, err := advance(b)
	if err != nil {
		return err
	}
	for okA && okB {
		switch {
		case ra.Primary < rb.Primary:
			if err := w.Write(ra); err != nil {
				return err
			}
			if ra, okA, err = advance(a); err != nil {
				return err
			}
		case ra.Primary > rb.Primary:
			if err := w.Write(rb); err != nil {
				return err
			}
			if rb, okB, err = advance(b); err != nil {
				return err
			}
		default:
			if err := w.Write(ra.Combine(rb)); err != nil {
				return err
			}
			if ra, okA, err = advance(a); err != nil {
				return err
			}
			if rb, okB, err = advance(b); err != nil {
				return err
			}
		}
	}
	for okA {
		if err := w.Write(ra); err != nil {
			return err
		}
		if ra, okA, err = advance(a); err != nil {
			return err
		}
	}
	for okB {
		if err := w.Write(rb); err != nil {
			return err
		}
		if rb, okB, err = advance(b); err != nil {
			return err
		}
	}
	return nil
}

func advance[P postings.Key, S postings.Key](s source[P, S]) (postings.Data[P, S], bool, error) {
	rec, err := s.next()
	if err == io.EOF {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	return rec, true, nil
}
