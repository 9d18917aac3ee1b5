package index

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/errors"
)

// MemoryIndex is the append-only inverted index plus the document records.
// Documents receive sequential ids from 0 and terms receive dense ids in the
// order they are first seen.
type MemoryIndex struct {
	mu          sync.RWMutex
	entries     map[string]*TermEntry
	docs        []DocRecord
	nextTermID  int
	totalLength int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		entries: make(map[string]*TermEntry),
	}
}

// AddDocument appends a document record built from stats and folds it into
// every touched term entry. New terms get ids in order of their first
// position in the document, so ids do not depend on map iteration order.
func (m *MemoryIndex) AddDocument(stats tokenizer.TermStats) int {
	terms := stats.OrderedTerms()
	length := stats.Length()

	m.mu.Lock()
	defer m.mu.Unlock()

	docID := len(m.docs)
	m.docs = append(m.docs, DocRecord{Length: length, Terms: stats})
	m.totalLength += int64(length)

	for _, term := range terms {
		st := stats[term]
		entry, exists := m.entries[term]
		if !exists {
			entry = &TermEntry{TermID: m.nextTermID}
			m.entries[term] = entry
			m.nextTermID++
		}
		entry.CollectionFreq += st.Count
		entry.DocFreq++
		entry.Postings = append(entry.Postings, Posting{
			DocID:     docID,
			Frequency: st.Count,
			Positions: st.Positions,
		})
	}
	return docID
}

// NextDocID is the id the next AddDocument call will assign.
func (m *MemoryIndex) NextDocID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) NextTermID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextTermID
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Lookup returns the entry for term. The entry must not be modified.
func (m *MemoryIndex) Lookup(term string) (*TermEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[term]
	return entry, ok
}

// Doc returns the record of document id.
func (m *MemoryIndex) Doc(id int) (DocRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 0 || id >= len(m.docs) {
		return DocRecord{}, false
	}
	return m.docs[id], true
}

// Docs returns the document records in id order. Records already returned
// are never modified, so callers may iterate without holding a lock.
func (m *MemoryIndex) Docs() []DocRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs[:len(m.docs):len(m.docs)]
}

// AvgDocLength is the total length of all documents divided by their count.
func (m *MemoryIndex) AvgDocLength() (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.docs) == 0 {
		return 0, fmt.Errorf("average document length: %w", apperrors.ErrEmptyCorpus)
	}
	return float64(m.totalLength) / float64(len(m.docs)), nil
}

// State is the complete persisted form of a MemoryIndex.
type State struct {
	Entries    map[string]*TermEntry
	Docs       []DocRecord
	NextTermID int
}

// State returns the index contents for serialisation. The returned values
// share memory with the index.
func (m *MemoryIndex) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make(map[string]*TermEntry, len(m.entries))
	for term, e := range m.entries {
		entries[term] = e
	}
	return State{
		Entries:    entries,
		Docs:       m.docs[:len(m.docs):len(m.docs)],
		NextTermID: m.nextTermID,
	}
}

// Restore rebuilds a MemoryIndex from a State after checking every index
// invariant. nextDocID is the persisted document counter and must equal the
// number of records. Any violation is reported as ErrCorruptIndex.
func Restore(s State, nextDocID int) (*MemoryIndex, error) {
	if err := validate(s, nextDocID); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptIndex, err)
	}
	m := &MemoryIndex{
		entries:    s.Entries,
		docs:       s.Docs,
		nextTermID: s.NextTermID,
	}
	if m.entries == nil {
		m.entries = make(map[string]*TermEntry)
	}
	for _, d := range s.Docs {
		m.totalLength += int64(d.Length)
	}
	return m, nil
}

func validate(s State, nextDocID int) error {
	if nextDocID != len(s.Docs) {
		return fmt.Errorf("doc_id %d does not match %d document records", nextDocID, len(s.Docs))
	}
	if s.NextTermID != len(s.Entries) {
		return fmt.Errorf("term_id %d does not match %d vocabulary terms", s.NextTermID, len(s.Entries))
	}
	seen := make([]bool, s.NextTermID)
	// postings found per document; must end up equal to its distinct terms
	covered := make([]int, len(s.Docs))
	for term, e := range s.Entries {
		if e == nil {
			return fmt.Errorf("term %q has no entry", term)
		}
		if e.TermID < 0 || e.TermID >= s.NextTermID || seen[e.TermID] {
			return fmt.Errorf("term %q has invalid or duplicate id %d", term, e.TermID)
		}
		seen[e.TermID] = true
		if e.DocFreq != len(e.Postings) {
			return fmt.Errorf("term %q: doc_freq %d but %d postings", term, e.DocFreq, len(e.Postings))
		}
		cf, prev := 0, -1
		for _, p := range e.Postings {
			if p.DocID <= prev || p.DocID >= len(s.Docs) {
				return fmt.Errorf("term %q: posting doc id %d out of order or range", term, p.DocID)
			}
			prev = p.DocID
			if p.Frequency <= 0 || p.Frequency != len(p.Positions) {
				return fmt.Errorf("term %q doc %d: frequency %d with %d positions", term, p.DocID, p.Frequency, len(p.Positions))
			}
			if st, ok := s.Docs[p.DocID].Terms[term]; !ok || !slices.Equal(st.Positions, p.Positions) {
				return fmt.Errorf("term %q doc %d: posting disagrees with document record", term, p.DocID)
			}
			covered[p.DocID]++
			cf += p.Frequency
		}
		if cf != e.CollectionFreq {
			return fmt.Errorf("term %q: collection freq %d, postings sum %d", term, e.CollectionFreq, cf)
		}
	}
	for id, d := range s.Docs {
		if d.Length != d.Terms.Length() {
			return fmt.Errorf("document %d: length %d but %d term occurrences", id, d.Length, d.Terms.Length())
		}
		for term, st := range d.Terms {
			if _, ok := s.Entries[term]; !ok {
				return fmt.Errorf("document %d: term %q missing from inverted index", id, term)
			}
			if err := validateTermStat(st, d.Length); err != nil {
				return fmt.Errorf("document %d term %q: %w", id, term, err)
			}
		}
		if covered[id] != len(d.Terms) {
			return fmt.Errorf("document %d: %d terms but %d postings", id, len(d.Terms), covered[id])
		}
	}
	return nil
}

// validateTermStat requires a positive count matching 1-based, strictly
// increasing positions that fit inside a document of the given length.
func validateTermStat(st tokenizer.TermStat, length int) error {
	if st.Count <= 0 || st.Count != len(st.Positions) {
		return fmt.Errorf("count %d with %d positions", st.Count, len(st.Positions))
	}
	prev := 0
	for _, pos := range st.Positions {
		if pos <= prev || pos > length {
			return fmt.Errorf("position %d out of order or outside 1..%d", pos, length)
		}
		prev = pos
	}
	return nil
}
