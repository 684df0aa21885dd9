package tokenizer

import (
	"fmt"
	"os"
	"strings"

	"github.com/searchcore/textindex/internal/corpus"
	"github.com/searchcore/textindex/internal/index/termstats"
)

// NGram tokenizes sources into overlapping word n-grams, joined with an
// underscore. n=1 degenerates to the word tokenizer's output.
type NGram struct {
	vocab *Vocabulary
	n     int
}

// NewNGram creates an n-gram tokenizer over the given vocabulary. n below 1
// is treated as 1.
func NewNGram(vocab *Vocabulary, n int) *NGram {
	if n < 1 {
		n = 1
	}
	return &NGram{vocab: vocab, n: n}
}

func (g *NGram) Tokenize(source string, doc *corpus.Document, stats *termstats.Accumulator) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("reading source %s: %w", source, err)
	}
	g.TokenizeText(string(data), doc, stats)
	return nil
}

func (g *NGram) TokenizeText(text string, doc *corpus.Document, stats *termstats.Accumulator) {
	terms := Terms(text)
	if len(terms) < g.n {
		if stats != nil {
			stats.RecordDocument(doc.Freqs)
		}
		return
	}
	for i := 0; i+g.n <= len(terms); i++ {
		gram := strings.Join(terms[i:i+g.n], "_")
		doc.AddTerm(g.vocab.ID(gram), 1)
	}
	if stats != nil {
		stats.RecordDocument(doc.Freqs)
	}
}
