// Package tokenizer turns raw document and query text into ordered sequences
// of normalised terms. Text is lower-cased, split on every byte outside
// [0-9a-z], stripped of English stop-words and stemmed, in that order.
package tokenizer

import (
	"fmt"
	"sort"
)

// Stemmer maps a token to its stem. Implementations must be deterministic and
// safe for concurrent use.
type Stemmer interface {
	Stem(token string) string
	Name() string
}

// TermStat is the occurrence count of one term in one document together with
// its 1-based positions in the preprocessed term sequence.
type TermStat struct {
	Count     int
	Positions []int
}

// TermStats maps each term of a document to its TermStat.
type TermStats map[string]TermStat

// Length returns the number of terms the statistics were built from.
func (ts TermStats) Length() int {
	n := 0
	for _, st := range ts {
		n += st.Count
	}
	return n
}

// OrderedTerms returns the distinct terms ordered by first occurrence.
func (ts TermStats) OrderedTerms() []string {
	terms := make([]string, 0, len(ts))
	for term := range ts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		return ts[terms[i]].Positions[0] < ts[terms[j]].Positions[0]
	})
	return terms
}

// Preprocessor owns the stop-word set and the stemmer. Both are read-only
// after construction, so a single Preprocessor can be shared by every
// indexing and query goroutine.
type Preprocessor struct {
	stopWords map[string]struct{}
	stemmer   Stemmer
}

// New creates a Preprocessor with the English stop-word list and the given
// stemmer.
func New(stemmer Stemmer) *Preprocessor {
	return &Preprocessor{
		stopWords: englishStopWords(),
		stemmer:   stemmer,
	}
}

// NewDefault creates a Preprocessor using the Lancaster stemmer.
func NewDefault() *Preprocessor {
	return New(NewLancaster())
}

// ForStemmer creates a Preprocessor for a configured stemmer name.
func ForStemmer(name string) (*Preprocessor, error) {
	switch name {
	case "", "lancaster":
		return New(NewLancaster()), nil
	case "snowball":
		return New(NewSnowball()), nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}

// StemmerName reports which stemmer this Preprocessor applies.
func (p *Preprocessor) StemmerName() string {
	return p.stemmer.Name()
}

// Tokenize lower-cases text and splits it on any byte outside [0-9a-z].
// Empty tokens are discarded. Non-ASCII bytes act as separators.
func (p *Preprocessor) Tokenize(text string) []string {
	tokens := make([]string, 0, len(text)/6)
	buf := make([]byte, 0, 32)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			buf = append(buf, c)
			continue
		}
		if len(buf) > 0 {
			tokens = append(tokens, string(buf))
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		tokens = append(tokens, string(buf))
	}
	return tokens
}

// RemoveStopWords drops stop-words while keeping the order of the rest.
func (p *Preprocessor) RemoveStopWords(tokens []string) []string {
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := p.stopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}

// Stem maps a single token to its stem.
func (p *Preprocessor) Stem(token string) string {
	return p.stemmer.Stem(token)
}

// Preprocess runs Tokenize, RemoveStopWords and Stem in that fixed order.
// Stemming after stop-word removal keeps stems of discarded words out of the
// vocabulary.
func (p *Preprocessor) Preprocess(text string) []string {
	tokens := p.RemoveStopWords(p.Tokenize(text))
	for i, tok := range tokens {
		tokens[i] = p.stemmer.Stem(tok)
	}
	return tokens
}

// ToTermStats collapses a term sequence into per-term counts and 1-based
// positions in a single left-to-right pass.
func ToTermStats(terms []string) TermStats {
	stats := make(TermStats, len(terms))
	for i, term := range terms {
		st := stats[term]
		st.Count++
		st.Positions = append(st.Positions, i+1)
		stats[term] = st
	}
	return stats
}
