package flash

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TERM DICTIONARY AND TERM INDEX
// ═══════════════════════════════════════════════════════════════════════════════
// Every term known to the index has one TermDictEntry, recording its
// document frequency and how to reach its postings:
//
//   kind=0 (skip-list-backed): the term has >= InlinePostingThreshold
//   postings. The entry stores a DiskSkipList plus the per-stream file
//   offsets postings decode from.
//
//   kind=1 (inline): the term has fewer documents than the threshold, so
//   its postings are stored directly in the dictionary entry as a sorted
//   doc-id list backed by a roaring bitmap (for O(1) membership tests)
//   alongside the parallel term-frequency/position/offset data needed to
//   score and highlight it without touching the shared stream files at all.
//
// The term index (terms.tip) is a flat, newline-delimited "term\toffset"
// file mapping each term to its byte offset within the term dictionary
// payload file (terms.tim). It is small enough to load wholly into
// memory and is the only structure consulted to resolve a term string to
// its dictionary entry.
// ═══════════════════════════════════════════════════════════════════════════════

const (
	// TermKindSkipList marks a dictionary entry backed by an on-disk skip
	// list over the shared stream files.
	TermKindSkipList = byte(0)
	// TermKindInline marks a dictionary entry whose postings are stored
	// directly inline, for low document-frequency terms.
	TermKindInline = byte(1)
)

// InlinePosting is one document's postings for an inline (kind=1) term.
type InlinePosting struct {
	DocID     uint32
	TermFreq  uint32
	Positions []uint32
	Offsets   []uint32 // pairs, flattened as start0,end0,start1,end1,...
}

// TermDictEntry is everything known about one term.
type TermDictEntry struct {
	Term    string
	DocFreq uint32
	Kind    byte

	// Populated when Kind == TermKindSkipList. The *Start fields are the
	// absolute byte offset, in the corresponding shared stream file,
	// where this term's own contiguous run of packed blocks (or, if it
	// has fewer than PackedBlockSize postings, its VarInt tail) begins.
	SkipList      *DiskSkipList
	DocIDStart    int64
	TermFreqStart int64
	PositionStart int64
	OffsetStart   int64

	// PositionCount/OffsetCount are the total value counts of the
	// position/offset streams (sums of every posting's term frequency,
	// times 1 and 2 respectively). Positions/Offsets need these to know
	// where a stream's packed blocks end and its VarInt tail begins when
	// decoding just one posting's group out of the middle of the stream.
	PositionCount uint32
	OffsetCount   uint32

	// Populated when Kind == TermKindInline.
	InlineBitmap   *roaring.Bitmap
	InlinePostings []InlinePosting
}

// TermIndex is the fully in-memory term -> dictionary-entry map for an
// open flash index.
type TermIndex struct {
	entries map[string]*TermDictEntry
}

// NewTermIndex returns an empty term index.
func NewTermIndex() *TermIndex {
	return &TermIndex{entries: make(map[string]*TermDictEntry)}
}

// Put installs (or overwrites) a term's dictionary entry.
func (t *TermIndex) Put(e *TermDictEntry) {
	t.entries[e.Term] = e
}

// Lookup returns the dictionary entry for term, or (nil, false) if the
// term was never indexed. A miss here is KindQuery territory, not an
// error: callers should treat it as an empty posting list.
func (t *TermIndex) Lookup(term string) (*TermDictEntry, bool) {
	e, ok := t.entries[term]
	return e, ok
}

// Len returns the number of distinct terms in the index.
func (t *TermIndex) Len() int {
	return len(t.entries)
}

// WriteTermIndexFile writes the flat, newline-delimited "term\toffset"
// file describing where each term's dictionary payload begins within a
// term dictionary payload file.
func WriteTermIndexFile(path string, offsets map[string]int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return newFlashError(KindIO, path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for term, off := range offsets {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", term, off); err != nil {
			return newFlashError(KindIO, path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return newFlashError(KindIO, path, err)
	}
	return nil
}

// ReadTermIndexFile loads a term index file wholly into memory, returning
// the term -> dictionary-payload-offset map.
func ReadTermIndexFile(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newFlashError(KindIO, path, err)
	}
	defer f.Close()

	offsets := make(map[string]int64)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		tab := strings.LastIndexByte(line, '\t')
		if tab < 0 {
			return nil, newFlashError(KindInvariant, path, fmt.Errorf("malformed term index line %q", line))
		}
		term := line[:tab]
		off, err := strconv.ParseInt(line[tab+1:], 10, 64)
		if err != nil {
			return nil, newFlashError(KindInvariant, path, err)
		}
		offsets[term] = off
	}
	if err := sc.Err(); err != nil {
		return nil, newFlashError(KindIO, path, err)
	}
	return offsets, nil
}
