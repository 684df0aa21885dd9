// Package termstats accumulates corpus-wide document-frequency counts: for
// each term, the number of documents it appears in at least once. It is not
// an occurrence counter.
package termstats

import "github.com/searchcore/textindex/internal/index/postings"

// Accumulator aggregates document frequencies across documents or across
// already-built sub-indexes. It is not safe for concurrent use; frequency
// accumulation is a per-term read-modify-write, so construction stays
// single-threaded and the finished map is shared read-only.
type Accumulator struct {
	freqs map[postings.TermID]uint64
}

// New creates an empty accumulator.
func New() *Accumulator {
	return &Accumulator{freqs: make(map[postings.TermID]uint64)}
}

// Record notes one more document containing the given term.
func (a *Accumulator) Record(t postings.TermID) {
	a.freqs[t]++
}

// RecordDocument notes a document by its term-frequency map: every term
// present contributes exactly one document occurrence, regardless of how
// often it appears in the document.
func (a *Accumulator) RecordDocument(freqs map[postings.TermID]uint64) {
	for t := range freqs {
		a.freqs[t]++
	}
}

// Combine folds another document-frequency map into this one, summing
// counts key-wise. Used when combining already-built sub-indexes, each of
// which contributes its own frequency map.
func (a *Accumulator) Combine(freqs map[postings.TermID]uint64) {
	for t, n := range freqs {
		a.freqs[t] += n
	}
}

// DocFreq returns the number of documents containing t, zero if the term
// was never seen.
func (a *Accumulator) DocFreq(t postings.TermID) uint64 {
	return a.freqs[t]
}

// Len returns the number of distinct terms recorded.
func (a *Accumulator) Len() int { return len(a.freqs) }

// Freqs returns the underlying frequency map. Callers treat it as read-only
// once construction has finished.
func (a *Accumulator) Freqs() map[postings.TermID]uint64 { return a.freqs }
