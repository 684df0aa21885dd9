// Package corpus models the documents consumed by the indexing and ranking
// engines and discovers corpus files on disk. Documents are identified by
// "category/name" style paths: the final path segment is the document name
// and its parent directory is the category label.
package corpus

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/searchcore/textindex/internal/index/postings"
)

// Document is one indexed (or queried) unit: a name, a category label, a
// total term count, and per-term frequencies. Queries are Documents too,
// with term frequencies holding the query's term counts.
type Document struct {
	Name     string
	Category string
	Length   uint64
	Freqs    map[postings.TermID]uint64
}

// New creates an empty document named after the given path.
func New(path string) Document {
	return Document{
		Name:     NameOf(path),
		Category: CategoryOf(path),
		Freqs:    make(map[postings.TermID]uint64),
	}
}

// AddTerm records n occurrences of a term and grows the document length.
func (d *Document) AddTerm(t postings.TermID, n uint64) {
	d.Freqs[t] += n
	d.Length += n
}

// Frequency returns the term's count in this document, zero if absent.
func (d *Document) Frequency(t postings.TermID) uint64 {
	return d.Freqs[t]
}

// NameOf returns the final segment of a path-style identifier.
func NameOf(path string) string {
	return filepath.Base(path)
}

// CategoryOf returns the parent segment of a path-style identifier.
func CategoryOf(path string) string {
	return filepath.Base(filepath.Dir(path))
}

// List walks dir recursively and returns the paths of all regular corpus
// files in lexical order, skipping hidden files and directories.
func List(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing corpus %s: %w", dir, err)
	}
	return paths, nil
}
