// Package snapshot persists a corpus index as a single JSON blob.
//
// The blob is one object with the fields index_path, inverted_index,
// docs_index, term_id and doc_id. Inverted-index entries are encoded as
// [term_id, collection_freq, doc_freq, [[doc_id, freq, [positions]]...]] and
// document records as [length, {term: [count, [positions]]}], which keeps the
// files readable by tools that produced or consumed the earlier format.
// Writers may add a "stemmer" field; readers treat a missing one as lancaster.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/tokenizer"
)

// Snapshot is everything needed to rebuild a corpus index.
type Snapshot struct {
	IndexPath string
	Stemmer   string
	State     index.State
	NextDocID int
}

type wireSnapshot struct {
	IndexPath     json.RawMessage `json:"index_path"`
	InvertedIndex json.RawMessage `json:"inverted_index"`
	DocsIndex     json.RawMessage `json:"docs_index"`
	TermID        json.RawMessage `json:"term_id"`
	DocID         json.RawMessage `json:"doc_id"`
	Stemmer       json.RawMessage `json:"stemmer,omitempty"`
}

type wireEntry index.TermEntry

func (e wireEntry) MarshalJSON() ([]byte, error) {
	postings := make([]wirePosting, len(e.Postings))
	for i, p := range e.Postings {
		postings[i] = wirePosting(p)
	}
	return json.Marshal([]any{e.TermID, e.CollectionFreq, e.DocFreq, postings})
}

func (e *wireEntry) UnmarshalJSON(data []byte) error {
	var postings []wirePosting
	if err := decodeTuple(data, &e.TermID, &e.CollectionFreq, &e.DocFreq, &postings); err != nil {
		return err
	}
	e.Postings = make(index.PostingList, len(postings))
	for i, p := range postings {
		e.Postings[i] = index.Posting(p)
	}
	return nil
}

type wirePosting index.Posting

func (p wirePosting) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.DocID, p.Frequency, positions(p.Positions)})
}

func (p *wirePosting) UnmarshalJSON(data []byte) error {
	return decodeTuple(data, &p.DocID, &p.Frequency, &p.Positions)
}

type wireStat tokenizer.TermStat

func (s wireStat) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Count, positions(s.Positions)})
}

func (s *wireStat) UnmarshalJSON(data []byte) error {
	return decodeTuple(data, &s.Count, &s.Positions)
}

type wireDoc index.DocRecord

func (d wireDoc) MarshalJSON() ([]byte, error) {
	terms := make(map[string]wireStat, len(d.Terms))
	for term, st := range d.Terms {
		terms[term] = wireStat(st)
	}
	return json.Marshal([]any{d.Length, terms})
}

func (d *wireDoc) UnmarshalJSON(data []byte) error {
	var terms map[string]wireStat
	if err := decodeTuple(data, &d.Length, &terms); err != nil {
		return err
	}
	if terms == nil {
		return fmt.Errorf("document term map is null")
	}
	d.Terms = make(tokenizer.TermStats, len(terms))
	for term, st := range terms {
		d.Terms[term] = tokenizer.TermStat(st)
	}
	return nil
}

// decodeTuple decodes a JSON array with exactly len(fields) elements into
// fields, in order.
func decodeTuple(data []byte, fields ...any) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != len(fields) {
		return fmt.Errorf("expected %d-element array, got %d elements", len(fields), len(parts))
	}
	for i, part := range parts {
		if err := json.Unmarshal(part, fields[i]); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// positions keeps empty position lists as [] rather than null.
func positions(p []int) []int {
	if p == nil {
		return []int{}
	}
	return p
}

func encode(snap Snapshot) ([]byte, error) {
	entries := make(map[string]wireEntry, len(snap.State.Entries))
	for term, e := range snap.State.Entries {
		entries[term] = wireEntry(*e)
	}
	docs := make([]wireDoc, len(snap.State.Docs))
	for i, d := range snap.State.Docs {
		docs[i] = wireDoc(d)
	}
	return json.Marshal(struct {
		IndexPath     string               `json:"index_path"`
		InvertedIndex map[string]wireEntry `json:"inverted_index"`
		DocsIndex     []wireDoc            `json:"docs_index"`
		TermID        int                  `json:"term_id"`
		DocID         int                  `json:"doc_id"`
		Stemmer       string               `json:"stemmer,omitempty"`
	}{
		IndexPath:     snap.IndexPath,
		InvertedIndex: entries,
		DocsIndex:     docs,
		TermID:        snap.State.NextTermID,
		DocID:         snap.NextDocID,
		Stemmer:       snap.Stemmer,
	})
}

func decode(data []byte) (Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return Snapshot{}, fmt.Errorf("parsing snapshot: %w", err)
	}
	required := []struct {
		name string
		raw  json.RawMessage
	}{
		{"index_path", w.IndexPath},
		{"inverted_index", w.InvertedIndex},
		{"docs_index", w.DocsIndex},
		{"term_id", w.TermID},
		{"doc_id", w.DocID},
	}
	for _, f := range required {
		if len(f.raw) == 0 || string(f.raw) == "null" {
			return Snapshot{}, fmt.Errorf("missing field %q", f.name)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(w.IndexPath, &snap.IndexPath); err != nil {
		return Snapshot{}, fmt.Errorf("field index_path: %w", err)
	}
	if err := json.Unmarshal(w.TermID, &snap.State.NextTermID); err != nil {
		return Snapshot{}, fmt.Errorf("field term_id: %w", err)
	}
	if err := json.Unmarshal(w.DocID, &snap.NextDocID); err != nil {
		return Snapshot{}, fmt.Errorf("field doc_id: %w", err)
	}
	if len(w.Stemmer) > 0 {
		if err := json.Unmarshal(w.Stemmer, &snap.Stemmer); err != nil {
			return Snapshot{}, fmt.Errorf("field stemmer: %w", err)
		}
	}

	var entries map[string]*wireEntry
	if err := json.Unmarshal(w.InvertedIndex, &entries); err != nil {
		return Snapshot{}, fmt.Errorf("field inverted_index: %w", err)
	}
	snap.State.Entries = make(map[string]*index.TermEntry, len(entries))
	for term, e := range entries {
		if e == nil {
			return Snapshot{}, fmt.Errorf("field inverted_index: term %q is null", term)
		}
		snap.State.Entries[term] = (*index.TermEntry)(e)
	}

	var docs []wireDoc
	if err := json.Unmarshal(w.DocsIndex, &docs); err != nil {
		return Snapshot{}, fmt.Errorf("field docs_index: %w", err)
	}
	snap.State.Docs = make([]index.DocRecord, len(docs))
	for i, d := range docs {
		snap.State.Docs[i] = index.DocRecord(d)
	}
	return snap, nil
}
