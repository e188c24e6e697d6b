package flash

import (
	"container/heap"
	"math"
	"sort"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INTERSECTION AND SCORING
// ═══════════════════════════════════════════════════════════════════════════════
// Conjunctive queries drive their N-way merge off the smallest posting
// list, the same strategy CompressedGramPostings.IntersectMultiple uses:
// sort iterators by remaining document frequency ascending and treat the
// shortest list as the candidate generator, skip-matching the rest of the
// iterators against each candidate doc-id in turn.
//
// Scoring uses the ES-compatible BM25 formula:
//
//	score(d, q) = Σ_t IDF(t) * (tf(t,d) * (k1+1)) / (tf(t,d) + k1*(1-b+b*len(d)/avgLen))
//	IDF(t)      = ln(1 + (N - df(t) + 0.5) / (df(t) + 0.5))
//
// Top-K selection uses a bounded min-heap of size K: once full, any new
// candidate only displaces the heap's minimum if it scores strictly
// higher; ties are broken by the smaller doc-id winning (so the heap
// evicts the larger doc-id on a tie).
// ═══════════════════════════════════════════════════════════════════════════════

// ScoredDoc is one candidate document's BM25 score.
type ScoredDoc struct {
	DocID uint32
	Score float64
}

// IDF computes the BM25 inverse document frequency for a term with
// document frequency df in a corpus of n documents.
func IDF(n, df uint32) float64 {
	return math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
}

// BM25Score computes a single term's contribution to a document's score.
func BM25Score(idf float64, tf uint32, docLen uint32, avgLen float64, params BM25Parameters) float64 {
	if avgLen == 0 {
		avgLen = 1
	}
	num := float64(tf) * (params.K1 + 1)
	den := float64(tf) + params.K1*(1-params.B+params.B*float64(docLen)/avgLen)
	if den == 0 {
		return 0
	}
	return idf * (num / den)
}

// Intersect walks N posting iterators in conjunction, calling fn for every
// document present in all of them, and returns once the shortest iterator
// is exhausted.
func Intersect(iterators []*PostingIterator, fn func(docID uint32, freqs []uint32)) {
	if len(iterators) == 0 {
		return
	}

	// Sort by ascending remaining length so the shortest list drives
	// candidate generation — matches the smallest-cardinality-first
	// strategy used elsewhere in the pack for multi-way bitmap merges.
	ordered := make([]*PostingIterator, len(iterators))
	copy(ordered, iterators)
	remaining := func(it *PostingIterator) int {
		if it.entry.Kind == TermKindInline {
			return len(it.inlineDocIDs)
		}
		return int(it.entry.DocFreq)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return remaining(ordered[i]) < remaining(ordered[j])
	})
	driver := ordered[0]
	rest := ordered[1:]

	for driver.Advance() {
		candidate := driver.DocID()

		matched := true
		freqs := make([]uint32, len(iterators))
		freqs[indexOf(iterators, driver)] = driver.TermFreq()

		for _, other := range rest {
			if !other.SkipTo(candidate) || other.DocID() != candidate {
				matched = false
				break
			}
			freqs[indexOf(iterators, other)] = other.TermFreq()
		}
		if matched {
			fn(candidate, freqs)
		}
	}
}

func indexOf(iterators []*PostingIterator, target *PostingIterator) int {
	for i, it := range iterators {
		if it == target {
			return i
		}
	}
	return -1
}

// scoredHeap is a min-heap over ScoredDoc, ordered by ascending score
// (ties broken by descending doc-id, so the smaller doc-id is the one
// kept when scores are equal and the heap must evict one of them).
type scoredHeap []ScoredDoc

func (h scoredHeap) Len() int { return len(h) }
func (h scoredHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}
func (h scoredHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x interface{}) { *h = append(*h, x.(ScoredDoc)) }
func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TopK maintains the K highest-scoring documents seen via Offer, breaking
// ties by preferring the smaller doc-id.
type TopK struct {
	k int
	h scoredHeap
}

// NewTopK returns a collector bounded to the k highest scores.
func NewTopK(k int) *TopK {
	return &TopK{k: k}
}

// Offer considers a new scored document for inclusion in the top-K set.
func (t *TopK) Offer(doc ScoredDoc) {
	if t.k <= 0 {
		return
	}
	if len(t.h) < t.k {
		heap.Push(&t.h, doc)
		return
	}
	if doc.Score > t.h[0].Score || (doc.Score == t.h[0].Score && doc.DocID < t.h[0].DocID) {
		t.h[0] = doc
		heap.Fix(&t.h, 0)
	}
}

// Results drains the collector into a descending-score slice (ties broken
// by ascending doc-id).
func (t *TopK) Results() []ScoredDoc {
	out := make([]ScoredDoc, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocID < out[j].DocID
	})
	return out
}
