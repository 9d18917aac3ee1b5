// Package parser turns free-text queries into query plans. A query is run
// through the same preprocessing as documents; there are no operators.
package parser

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/tokenizer"
)

type QueryPlan struct {
	RawQuery string
	// Terms holds the distinct preprocessed terms in ascending order.
	Terms []string
	Stats tokenizer.TermStats
}

func Parse(pre *tokenizer.Preprocessor, query string) *QueryPlan {
	stats := tokenizer.ToTermStats(pre.Preprocess(query))
	terms := make([]string, 0, len(stats))
	for term := range stats {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return &QueryPlan{
		RawQuery: query,
		Terms:    terms,
		Stats:    stats,
	}
}

// Empty reports whether nothing in the query survived preprocessing.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

// Canonical renders the plan as "term:count" pairs in term order. Queries
// that preprocess to the same statistics share a canonical form.
func (p *QueryPlan) Canonical() string {
	var b strings.Builder
	for i, term := range p.Terms {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(term)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(p.Stats[term].Count))
	}
	return b.String()
}
