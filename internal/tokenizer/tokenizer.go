// Package tokenizer turns raw document sources into term-frequency vectors.
// Terms are mapped through a shared Vocabulary to stable integer TermIDs;
// tokenizers also record per-document term presence into a shared
// document-frequency accumulator.
package tokenizer

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/searchcore/textindex/internal/corpus"
	"github.com/searchcore/textindex/internal/index/postings"
	"github.com/searchcore/textindex/internal/index/termstats"
)

// Tokenizer populates a document's term frequencies from a raw source and
// records the document's term presence into stats.
type Tokenizer interface {
	Tokenize(source string, doc *corpus.Document, stats *termstats.Accumulator) error
}

// Vocabulary assigns TermIDs to distinct term strings. It is safe for
// concurrent use; an ID, once assigned, never changes within a run.
type Vocabulary struct {
	mu   sync.Mutex
	ids  map[string]postings.TermID
	next postings.TermID
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{ids: make(map[string]postings.TermID)}
}

// ID returns the TermID for term, assigning the next free ID on first use.
func (v *Vocabulary) ID(term string) postings.TermID {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id, ok := v.ids[term]; ok {
		return id
	}
	id := v.next
	v.ids[term] = id
	v.next++
	return id
}

// Len returns the number of distinct terms seen so far.
func (v *Vocabulary) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.ids)
}

// Word tokenizes sources into lower-cased, stop-word-filtered, stemmed word
// terms.
type Word struct {
	vocab *Vocabulary
}

// NewWord creates a word tokenizer over the given vocabulary.
func NewWord(vocab *Vocabulary) *Word {
	return &Word{vocab: vocab}
}

// Tokenize reads the source file, adds its terms to doc, and records the
// document's term presence into stats.
func (w *Word) Tokenize(source string, doc *corpus.Document, stats *termstats.Accumulator) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("reading source %s: %w", source, err)
	}
	w.TokenizeText(string(data), doc, stats)
	return nil
}

// TokenizeText tokenizes already-loaded text. Split out so queries and
// ingested documents can be tokenized without touching the filesystem.
func (w *Word) TokenizeText(text string, doc *corpus.Document, stats *termstats.Accumulator) {
	for _, term := range Terms(text) {
		doc.AddTerm(w.vocab.ID(term), 1)
	}
	if stats != nil {
		stats.RecordDocument(doc.Freqs)
	}
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Terms breaks text into normalised term strings: lower-cased, split on
// non-alphanumeric boundaries, stop-words removed, suffix-stemmed.
func Terms(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words)/2)
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		if stemmed := stem(word); stemmed != "" {
			terms = append(terms, stemmed)
		}
	}
	return terms
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	suffixes := []struct {
		suffix      string
		replacement string
		minLen      int
	}{
		{"ational", "ate", 2},
		{"tional", "tion", 2},
		{"encies", "ence", 2},
		{"ances", "ance", 2},
		{"ments", "ment", 2},
		{"izing", "ize", 2},
		{"ating", "ate", 2},
		{"iness", "y", 2},
		{"ously", "ous", 2},
		{"ively", "ive", 2},
		{"eness", "ene", 2},
		{"tion", "t", 3},
		{"sion", "s", 3},
		{"ying", "y", 2},
		{"ling", "l", 3},
		{"ies", "y", 2},
		{"ing", "", 3},
		{"ers", "er", 2},
		{"est", "", 3},
		{"ful", "", 3},
		{"ous", "", 3},
		{"ess", "", 3},
		{"ble", "", 3},
		{"ed", "", 3},
		{"er", "", 3},
		{"ly", "", 3},
		{"es", "", 3},
		{"ss", "ss", 2},
		{"s", "", 3},
	}
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
