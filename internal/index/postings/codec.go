package postings

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Chunk files are a sequence of varint-framed records in strictly increasing
// primary-key order:
//
//	uvarint primary | uvarint pairCount | pairCount × (uvarint key, uvarint value)
//
// The format supports purely sequential streaming in both directions, so a
// merge never needs to hold more than two records in memory.

// ErrOutOfOrder reports a record written or read out of primary-key order.
var ErrOutOfOrder = errors.New("postings record out of primary-key order")

// Writer streams postings records to an underlying writer.
type Writer[P Key, S Key] struct {
	bw      *bufio.Writer
	scratch [binary.MaxVarintLen64]byte
	last    P
	wrote   bool
}

// NewWriter wraps w in a buffered postings encoder.
func NewWriter[P Key, S Key](w io.Writer) *Writer[P, S] {
	return &Writer[P, S]{bw: bufio.NewWriter(w)}
}

// Write appends one record. Records must arrive in strictly increasing
// primary-key order.
func (w *Writer[P, S]) Write(rec Data[P, S]) error {
	if w.wrote && rec.Primary <= w.last {
		return fmt.Errorf("writing record %d after %d: %w", rec.Primary, w.last, ErrOutOfOrder)
	}
	w.last = rec.Primary
	w.wrote = true

	if err := w.putUvarint(uint64(rec.Primary)); err != nil {
		return err
	}
	if err := w.putUvarint(uint64(len(rec.Counts))); err != nil {
		return err
	}
	for _, c := range rec.Counts {
		if err := w.putUvarint(uint64(c.Key)); err != nil {
			return err
		}
		if err := w.putUvarint(c.Value); err != nil {
			return err
		}
	}
	return nil
}

// Flush drains the write buffer to the underlying writer.
func (w *Writer[P, S]) Flush() error {
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flushing postings writer: %w", err)
	}
	return nil
}

func (w *Writer[P, S]) putUvarint(v uint64) error {
	n := binary.PutUvarint(w.scratch[:], v)
	if _, err := w.bw.Write(w.scratch[:n]); err != nil {
		return fmt.Errorf("writing postings record: %w", err)
	}
	return nil
}

// Reader streams postings records from an underlying reader.
type Reader[P Key, S Key] struct {
	br   *bufio.Reader
	last P
	read bool
}

// NewReader wraps r in a buffered postings decoder.
func NewReader[P Key, S Key](r io.Reader) *Reader[P, S] {
	return &Reader[P, S]{br: bufio.NewReader(r)}
}

// Next decodes the following record. It returns io.EOF at a clean end of
// stream and ErrOutOfOrder if the file violates the sorted invariant.
func (r *Reader[P, S]) Next() (Data[P, S], error) {
	var rec Data[P, S]
	primary, err := binary.ReadUvarint(r.br)
	if err != nil {
		if err == io.EOF {
			return rec, io.EOF
		}
		return rec, fmt.Errorf("reading postings primary key: %w", err)
	}
	if r.read && P(primary) <= r.last {
		return rec, fmt.Errorf("record %d after %d: %w", primary, r.last, ErrOutOfOrder)
	}
	r.last = P(primary)
	r.read = true

	pairs, err := binary.ReadUvarint(r.br)
	if err != nil {
		return rec, fmt.Errorf("reading postings pair count: %w", err)
	}
	rec.Primary = P(primary)
	rec.Counts = make([]Count[S], pairs)
	for i := range rec.Counts {
		key, err := binary.ReadUvarint(r.br)
		if err != nil {
			return rec, fmt.Errorf("reading postings pair key: %w", err)
		}
		value, err := binary.ReadUvarint(r.br)
		if err != nil {
			return rec, fmt.Errorf("reading postings pair value: %w", err)
		}
		rec.Counts[i] = Count[S]{Key: S(key), Value: value}
	}
	return rec, nil
}
