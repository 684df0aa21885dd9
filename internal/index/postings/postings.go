// Package postings defines the elemental record of the on-disk index: a
// primary key mapped to a sorted run of (secondary key, count) pairs. The
// record is generic over its key types so the same merge machinery serves
// both the term→document and document→term orientations.
package postings

// TermID is the integer handle assigned to a vocabulary term. IDs are
// stable for the lifetime of a single indexing run.
type TermID uint64

// DocID identifies a document within a single indexing run.
type DocID uint64

// Key constrains the primary and secondary key types of a postings record.
type Key interface {
	~uint32 | ~uint64
}

// Count pairs a secondary key with its occurrence count.
type Count[S Key] struct {
	Key   S
	Value uint64
}

// Data is one postings record: a primary key and its counts, sorted by
// secondary key in ascending order.
type Data[P Key, S Key] struct {
	Primary P
	Counts  []Count[S]
}

// Add accumulates n occurrences for the given secondary key, keeping the
// counts sorted. Appends are O(1) when keys arrive in increasing order,
// which is the common case during construction.
func (d *Data[P, S]) Add(key S, n uint64) {
	if last := len(d.Counts) - 1; last < 0 || d.Counts[last].Key < key {
		d.Counts = append(d.Counts, Count[S]{Key: key, Value: n})
		return
	}
	i := searchCounts(d.Counts, key)
	if i < len(d.Counts) && d.Counts[i].Key == key {
		d.Counts[i].Value += n
		return
	}
	d.Counts = append(d.Counts, Count[S]{})
	copy(d.Counts[i+1:], d.Counts[i:])
	d.Counts[i] = Count[S]{Key: key, Value: n}
}

// Combine merges two records sharing the same primary key: counts for
// matching secondary keys are summed, the rest are unioned in sorted order.
func (d Data[P, S]) Combine(other Data[P, S]) Data[P, S] {
	merged := Data[P, S]{
		Primary: d.Primary,
		Counts:  make([]Count[S], 0, len(d.Counts)+len(other.Counts)),
	}
	i, j := 0, 0
	for i < len(d.Counts) && j < len(other.Counts) {
		a, b := d.Counts[i], other.Counts[j]
		switch {
		case a.Key < b.Key:
			merged.Counts = append(merged.Counts, a)
			i++
		case a.Key > b.Key:
			merged.Counts = append(merged.Counts, b)
			j++
		default:
			merged.Counts = append(merged.Counts, Count[S]{Key: a.Key, Value: a.Value + b.Value})
			i++
			j++
		}
	}
	merged.Counts = append(merged.Counts, d.Counts[i:]...)
	merged.Counts = append(merged.Counts, other.Counts[j:]...)
	return merged
}

func searchCounts[S Key](counts []Count[S], key S) int {
	lo, hi := 0, len(counts)
	for lo < hi {
		mid := (lo + hi) / 2
		if counts[mid].Key < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
