// Package ranker scores matched terms with BM25 or PL2 and orders documents
// by their total score.
package ranker

import "sort"

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Rank orders docs by descending score and keeps at most topN of them; a
// negative topN keeps all. docs must be in ascending id order so that equal
// scores rank the lower id first. docs may be reordered in place.
func Rank(docs []ScoredDoc, topN int) []ScoredDoc {
	if topN >= 0 && topN*4 < len(docs) {
		return selectTop(docs, topN)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
	if topN >= 0 && len(docs) > topN {
		docs = docs[:topN]
	}
	return docs
}
