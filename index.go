// Package flash implements a persisted, mmap-backed inverted index for
// full-text search, plus the in-memory accumulator used while a corpus is
// being built up ahead of a flush.
package flash

import (
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// BM25Parameters holds the tuning constants the persisted-index scorer
// (scorer.go) reads through Config; it has no behavior of its own.
type BM25Parameters struct {
	K1 float64
	B  float64
}

// DocumentStats stores statistics about a single document
type DocumentStats struct {
	DocID     int            // Document identifier
	Length    int            // Number of terms in the document
	TermFreqs map[string]int // How many times each term appears
}

// ═══════════════════════════════════════════════════════════════════════════════
// CORE DATA STRUCTURE: InvertedIndex (ingest-time accumulator)
// ═══════════════════════════════════════════════════════════════════════════════
// Hybrid storage used purely as scratch state during ingest: a roaring
// bitmap per term for document-level membership, and a position-level
// SkipList per term for the token positions ExportTerm needs to
// delta-encode at Flush time.
// ═══════════════════════════════════════════════════════════════════════════════
type InvertedIndex struct {
	mu sync.Mutex

	DocBitmaps   map[string]*roaring.Bitmap // term -> document-id bitmap
	PostingsList map[string]SkipList        // term -> ordered positions

	DocStats   map[int]DocumentStats // docID -> per-document term-frequency stats
	TotalDocs  int
	TotalTerms int64
}

// NewInvertedIndex returns an empty accumulator.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		DocBitmaps:   make(map[string]*roaring.Bitmap),
		PostingsList: make(map[string]SkipList),
		DocStats:     make(map[int]DocumentStats),
	}
}

// Index tokenizes document with Analyze (lowercasing, stopwords, optional
// stemming) and indexes the result, tracking per-document term frequency
// and length alongside the postings themselves.
func (idx *InvertedIndex) Index(docID int, document string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	slog.Info("indexing document", slog.Int("docID", docID))

	tokens := Analyze(document)

	docStats := DocumentStats{
		DocID:     docID,
		Length:    len(tokens),
		TermFreqs: make(map[string]int),
	}
	for position, token := range tokens {
		idx.indexToken(token, docID, position)
		docStats.TermFreqs[token]++
	}

	idx.DocStats[docID] = docStats
	idx.TotalDocs++
	idx.TotalTerms += int64(len(tokens))
}

// IndexTokens adds a document to the index using an already-tokenized
// stream instead of running it through Analyze. The persisted flash
// builder uses this with whitespace-only tokens (no stemming, no
// stopword removal) so the positions and offsets it records line up
// exactly with what a caller sees in the stored document body.
func (idx *InvertedIndex) IndexTokens(docID int, tokens []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	slog.Info("indexing document", slog.Int("docID", docID), slog.Int("tokenCount", len(tokens)))

	docStats := DocumentStats{
		DocID:     docID,
		Length:    len(tokens),
		TermFreqs: make(map[string]int),
	}

	for position, token := range tokens {
		idx.indexToken(token, docID, position)
		docStats.TermFreqs[token]++
	}

	idx.DocStats[docID] = docStats
	idx.TotalDocs++
	idx.TotalTerms += int64(len(tokens))
}

// indexToken records one token occurrence in both the bitmap (document
// membership) and the skip list (ordered positions) for token.
func (idx *InvertedIndex) indexToken(token string, docID, position int) {
	if idx.DocBitmaps[token] == nil {
		idx.DocBitmaps[token] = roaring.NewBitmap()
	}
	idx.DocBitmaps[token].Add(uint32(docID))

	skipList, exists := idx.getPostingList(token)
	if !exists {
		skipList = *NewSkipList()
	}
	skipList.Insert(Position{DocumentID: float64(docID), Offset: float64(position)})
	idx.PostingsList[token] = skipList
}

// getPostingList returns the skip list for token, if any.
func (idx *InvertedIndex) getPostingList(token string) (SkipList, bool) {
	skipList, exists := idx.PostingsList[token]
	return skipList, exists
}

// ═══════════════════════════════════════════════════════════════════════════════
// EXPORTING TO THE PERSISTED FORMAT
// ═══════════════════════════════════════════════════════════════════════════════
// ExportTerm walks this in-memory index's hybrid storage for one term and
// returns the ordered (docID, termFreq, positions) triples a flashBuilder
// needs to delta-encode and flush. Document order follows the roaring
// bitmap's natural ascending iteration, which is also the on-disk posting
// order the persisted format requires.
func (idx *InvertedIndex) ExportTerm(token string) []TermPosting {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	bitmap, ok := idx.DocBitmaps[token]
	if !ok {
		return nil
	}

	skipList, hasPositions := idx.PostingsList[token]

	out := make([]TermPosting, 0, bitmap.GetCardinality())
	it := bitmap.Iterator()
	for it.HasNext() {
		docID := int(it.Next())
		tf := idx.DocStats[docID].TermFreqs[token]

		var positions []int
		if hasPositions {
			positions = collectPositionsForDoc(skipList, docID)
		}

		out = append(out, TermPosting{
			DocID:     docID,
			TermFreq:  tf,
			Positions: positions,
		})
	}
	return out
}

// TermPosting is one document's worth of occurrence data for a single term,
// in the shape the persisted-index builder consumes.
type TermPosting struct {
	DocID     int
	TermFreq  int
	Positions []int
}

// collectPositionsForDoc walks a term's skip list in order and collects
// every position belonging to docID. Level 0 of the skip list holds every
// document's positions in (docID, offset) order, so this does a linear
// scan over it rather than a point query.
func collectPositionsForDoc(sl SkipList, docID int) []int {
	var positions []int
	node := sl.Head.Tower[0]
	for node != nil {
		if node.Key.DocumentID == float64(docID) {
			positions = append(positions, int(node.Key.Offset))
		}
		node = node.Tower[0]
	}
	return positions
}

// Terms returns every distinct term currently tracked by the index, in no
// particular order. flashBuilder.Flush uses this to enumerate the work set
// before sorting it into the term dictionary's byte order.
func (idx *InvertedIndex) Terms() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	terms := make([]string, 0, len(idx.DocBitmaps))
	for term := range idx.DocBitmaps {
		terms = append(terms, term)
	}
	return terms
}
