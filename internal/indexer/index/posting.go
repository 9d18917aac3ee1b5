package index

import "github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/tokenizer"

// Posting records one document's occurrences of a term. Positions are kept so
// phrase or proximity scoring can be added without reprocessing documents.
type Posting struct {
	DocID     int
	Frequency int
	Positions []int
}

type PostingList []Posting

// TermEntry is the inverted-index record for one vocabulary term.
// DocFreq always equals len(Postings) and CollectionFreq the sum of the
// postings' frequencies.
type TermEntry struct {
	TermID         int
	CollectionFreq int
	DocFreq        int
	Postings       PostingList
}

// DocRecord holds the per-document statistics. A document's id is its
// position in the record list.
type DocRecord struct {
	Length int
	Terms  tokenizer.TermStats
}
