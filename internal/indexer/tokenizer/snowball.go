package tokenizer

import (
	"github.com/kljensen/snowball/english"
)

// Snowball wraps the Snowball (Porter2) English stemmer. It strips less
// aggressively than Lancaster, which suits corpora where over-conflation
// hurts precision.
type Snowball struct{}

func NewSnowball() *Snowball {
	return &Snowball{}
}

func (s *Snowball) Name() string { return "snowball" }

// Stem applies the English Snowball algorithm. Stop-words are already removed
// by the Preprocessor, so every token is stemmed, stop-word or not.
func (s *Snowball) Stem(token string) string {
	return english.Stem(token, true)
}
