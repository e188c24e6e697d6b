package flash

import (
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// QUERY COORDINATOR
// ═══════════════════════════════════════════════════════════════════════════════
// FlashSearcher ties together the persisted index's posting iterators,
// scorer, and highlighter into the external-facing search entry point.
// This is the Go shape of the original engine's SearchQuery/SearchResult
// types (types.h).
// ═══════════════════════════════════════════════════════════════════════════════

// SearchQuery describes one search request against a persisted index.
type SearchQuery struct {
	Terms            []string
	NResults         int
	ReturnSnippets   bool
	NSnippetPassages int
	IsPhrase         bool
}

// SearchResultEntry is one ranked document in a SearchResult.
type SearchResultEntry struct {
	DocID    uint32
	DocScore float64
	Snippet  string
}

// SearchResult is the full ranked response to a SearchQuery. Partial is
// true if the query's deadline was reached before every candidate could
// be scored, in which case Entries reflects only the candidates scored so
// far.
type SearchResult struct {
	Entries []SearchResultEntry
	Partial bool
}

// Size returns the number of entries in the result.
func (r SearchResult) Size() int {
	return len(r.Entries)
}

// FlashSearcher evaluates SearchQuery values against one open persisted
// index using a shared, immutable mmap view and a scoped buffer pool.
type FlashSearcher struct {
	reader *IndexReader
	cfg    Config
	pool   *BufferPool
}

// NewFlashSearcher returns a searcher over an already-open index reader.
func NewFlashSearcher(reader *IndexReader, cfg Config) *FlashSearcher {
	return &FlashSearcher{reader: reader, cfg: cfg, pool: NewBufferPool(cfg.BufferPoolSize, cfg.BufferSize)}
}

// Search evaluates q and returns a ranked, optionally-snippeted result.
func (s *FlashSearcher) Search(q SearchQuery) (SearchResult, error) {
	buf := s.pool.Get()
	defer s.pool.Put(buf)

	var deadline time.Time
	if s.cfg.QueryDeadline > 0 {
		deadline = time.Now().Add(s.cfg.QueryDeadline)
	}

	iterators := make([]*PostingIterator, 0, len(q.Terms))
	weights := make(map[string]float64, len(q.Terms))
	nDocs := s.reader.DocLength.NDocs

	for _, term := range q.Terms {
		entry, ok := s.reader.Terms.Lookup(term)
		if !ok {
			// An unknown term makes a conjunctive query empty: nothing
			// can satisfy AND-ing against a zero-posting list. This is
			// KindQuery territory, not an error.
			return SearchResult{}, nil
		}
		it, err := NewPostingIterator(s.reader, entry)
		if err != nil {
			return SearchResult{}, err
		}
		iterators = append(iterators, it)
		weights[strings.ToLower(term)] = IDF(nDocs, entry.DocFreq)
	}

	if len(iterators) == 0 {
		return SearchResult{}, nil
	}

	topK := NewTopK(q.NResults)
	partial := false

	if q.IsPhrase {
		s.evaluatePhrase(iterators, weights, topK, deadline, &partial)
	} else {
		Intersect(iterators, func(docID uint32, freqs []uint32) {
			if !deadline.IsZero() && time.Now().After(deadline) {
				partial = true
				return
			}
			score := s.scoreDoc(docID, iterators, freqs, weights, nDocs)
			topK.Offer(ScoredDoc{DocID: docID, Score: score})
		})
	}

	results := topK.Results()
	entries := make([]SearchResultEntry, len(results))
	nPassages := q.NSnippetPassages
	if nPassages == 0 {
		nPassages = s.cfg.SnippetPassages
	}

	for i, r := range results {
		entry := SearchResultEntry{DocID: r.DocID, DocScore: r.Score}
		if q.ReturnSnippets {
			body, err := s.reader.Document(r.DocID)
			if err == nil {
				matches, err := s.termMatches(q.Terms, weights, r.DocID)
				if err == nil {
					snippets := TopSnippets(string(body), matches, nPassages)
					entry.Snippet = strings.Join(snippets, " … ")
				}
			}
		}
		entries[i] = entry
	}

	return SearchResult{Entries: entries, Partial: partial}, nil
}

// termMatches builds the per-term offset data TopSnippets needs for one
// document: a fresh posting iterator per query term, skipped directly to
// docID, with its occurrence ranges read via Offsets() rather than
// re-deriving them from the document text.
func (s *FlashSearcher) termMatches(terms []string, weights map[string]float64, docID uint32) ([]TermMatch, error) {
	matches := make([]TermMatch, 0, len(terms))
	for _, term := range terms {
		entry, ok := s.reader.Terms.Lookup(term)
		if !ok {
			continue
		}
		it, err := NewPostingIterator(s.reader, entry)
		if err != nil {
			return nil, err
		}
		if !it.SkipTo(docID) || it.DocID() != docID {
			continue
		}
		offs, err := it.Offsets()
		if err != nil {
			return nil, err
		}
		var ranges [][2]int
		for offs.HasNext() {
			start := offs.Next()
			if !offs.HasNext() {
				break
			}
			end := offs.Next()
			ranges = append(ranges, [2]int{int(start), int(end)})
		}
		if len(ranges) == 0 {
			continue
		}
		matches = append(matches, TermMatch{
			Term:   strings.ToLower(term),
			Weight: weights[strings.ToLower(term)],
			Ranges: ranges,
		})
	}
	return matches, nil
}

func (s *FlashSearcher) scoreDoc(docID uint32, iterators []*PostingIterator, freqs []uint32, weights map[string]float64, nDocs uint32) float64 {
	docLen := s.reader.DocLength.LengthOf(docID)
	var score float64
	for i, it := range iterators {
		if freqs[i] == 0 {
			continue
		}
		idf := weights[strings.ToLower(it.entry.Term)]
		score += BM25Score(idf, freqs[i], docLen, s.reader.DocLength.AvgLen, s.cfg.BM25)
	}
	return score
}

// evaluatePhrase filters intersection candidates down to those where the
// query terms' positions form a contiguous arithmetic progression (i.e.
// actually occur as the literal phrase), without materializing full
// position lists for documents that never even reach the intersection
// stage.
func (s *FlashSearcher) evaluatePhrase(iterators []*PostingIterator, weights map[string]float64, topK *TopK, deadline time.Time, partial *bool) {
	Intersect(iterators, func(docID uint32, freqs []uint32) {
		if !deadline.IsZero() && time.Now().After(deadline) {
			*partial = true
			return
		}
		if !isPhraseMatch(iterators, docID) {
			return
		}
		score := s.scoreDoc(docID, iterators, freqs, weights, s.reader.DocLength.NDocs)
		topK.Offer(ScoredDoc{DocID: docID, Score: score})
	})
}

// isPhraseMatch checks whether, for the current candidate doc-id on every
// iterator, there exists a starting position p such that term i occurs at
// position p+i for every i — the arithmetic-progression test for a
// literal phrase match.
func isPhraseMatch(iterators []*PostingIterator, docID uint32) bool {
	positionSets := make([][]uint32, len(iterators))
	for i, it := range iterators {
		if it.Done() || it.DocID() != docID {
			// Land this iterator on docID without disturbing others'
			// cursors; SkipTo only advances forward so a prior hit on a
			// smaller doc-id is safe to re-skip.
			if !it.SkipTo(docID) || it.DocID() != docID {
				return false
			}
		}
		sub, err := it.Positions()
		if err != nil {
			return false
		}
		var vals []uint32
		for sub.HasNext() {
			vals = append(vals, sub.Next())
		}
		positionSets[i] = vals
	}

	first := positionSets[0]
	for _, base := range first {
		match := true
		for i := 1; i < len(positionSets); i++ {
			if !containsUint32(positionSets[i], base+uint32(i)) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func containsUint32(vals []uint32, target uint32) bool {
	for _, v := range vals {
		if v == target {
			return true
		}
	}
	return false
}
