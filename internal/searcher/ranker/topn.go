package ranker

import "container/heap"

// selectTop returns the topN best docs in ranked order using a bounded
// min-heap. It orders exactly like Rank: higher score first, then lower id.
func selectTop(docs []ScoredDoc, topN int) []ScoredDoc {
	h := make(scoredDocHeap, 0, topN+1)
	for _, doc := range docs {
		heap.Push(&h, doc)
		if h.Len() > topN {
			heap.Pop(&h)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

// scoredDocHeap keeps the worst retained doc at the root.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
