package flash

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MMAP READER
// ═══════════════════════════════════════════════════════════════════════════════
// IndexReader mmaps the files that make up a persisted flash index
// read-only: the four posting streams (doc-ids, term frequencies,
// positions, offsets), the doc store, and the term dictionary payload.
// Once mmapped, the backing bytes are immutable and shared freely across
// concurrent query goroutines with no locking, matching the concurrency
// model every other component here assumes.
// ═══════════════════════════════════════════════════════════════════════════════

type mappedFile struct {
	f *os.File
	m mmap.MMap
}

func openMapped(path string) (*mappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newFlashError(KindIO, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newFlashError(KindIO, path, err)
	}
	if info.Size() == 0 {
		// mmap-go refuses to map a zero-length file; an empty stream is
		// valid (a freshly built index with no postings of that kind).
		f.Close()
		return &mappedFile{}, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, newFlashError(KindIO, path, err)
	}
	return &mappedFile{f: f, m: m}, nil
}

func (mf *mappedFile) bytes() []byte {
	return mf.m
}

func (mf *mappedFile) Close() error {
	if mf.m != nil {
		if err := mf.m.Unmap(); err != nil {
			return newFlashError(KindIO, mf.f.Name(), err)
		}
	}
	if mf.f != nil {
		return mf.f.Close()
	}
	return nil
}

// IndexReader is a fully-open, read-only persisted flash index: the four
// mmapped posting streams, the doc store, the doc-length store, and the
// wholly in-memory term index.
type IndexReader struct {
	dir string

	docIDStream    *mappedFile
	termFreqStream *mappedFile
	positionStream *mappedFile
	offsetStream   *mappedFile

	docStoreIndex *mappedFile
	docStoreData  *mappedFile
	docs          *DocStoreReader

	termDictData *mappedFile

	Terms     *DiskTermDict
	DocLength *DocLengthStore
}

// OpenIndexReader mmaps every file under dir and loads the term index and
// doc-length store into memory.
func OpenIndexReader(dir string) (*IndexReader, error) {
	r := &IndexReader{dir: dir}

	var err error
	if r.docIDStream, err = openMapped(dir + "/doc_ids.pack"); err != nil {
		return nil, err
	}
	if r.termFreqStream, err = openMapped(dir + "/term_freqs.pack"); err != nil {
		return nil, err
	}
	if r.positionStream, err = openMapped(dir + "/positions.pack"); err != nil {
		return nil, err
	}
	if r.offsetStream, err = openMapped(dir + "/offsets.pack"); err != nil {
		return nil, err
	}
	if r.docStoreIndex, err = openMapped(dir + "/store.fdx"); err != nil {
		return nil, err
	}
	if r.docStoreData, err = openMapped(dir + "/store.fdt"); err != nil {
		return nil, err
	}
	if r.termDictData, err = openMapped(dir + "/terms.tim"); err != nil {
		return nil, err
	}

	r.DocLength, err = LoadDocLengthStore(dir+"/doclen.bin", dir+"/meta.bin")
	if err != nil {
		return nil, err
	}

	r.docs, err = NewDocStoreReader(r.docStoreIndex.bytes(), r.docStoreData.bytes())
	if err != nil {
		return nil, err
	}

	r.Terms, err = OpenDiskTermDict(dir+"/terms.tip", r.termDictData.bytes())
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Document returns the decompressed body of docID.
func (r *IndexReader) Document(docID uint32) ([]byte, error) {
	return r.docs.Get(docID)
}

// Close unmaps and closes every open file.
func (r *IndexReader) Close() error {
	var firstErr error
	for _, mf := range []*mappedFile{
		r.docIDStream, r.termFreqStream, r.positionStream, r.offsetStream,
		r.docStoreIndex, r.docStoreData, r.termDictData,
	} {
		if mf == nil {
			continue
		}
		if err := mf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ═══════════════════════════════════════════════════════════════════════════════
// POSTING ITERATOR
// ═══════════════════════════════════════════════════════════════════════════════
// PostingIterator walks one term's postings in ascending doc-id order.
// Doc-ids are decoded one packed block (128 postings) at a time, on
// demand, rather than the whole stream up front: Advance grows the decoded
// window by one block whenever it runs past the end, and SkipTo uses the
// on-disk skip list to jump the decode cursor straight to the block a
// target doc-id would fall in, so a skip deep into a large posting list
// never pays to decode the doc-id blocks it lands past. Term frequencies
// are decoded in full when the iterator is created.
//
// Positions and offsets are left to sub-iterators, which share the
// parent's borrow flag: exactly one of Positions()/Offsets() may be live
// at a time, since both would otherwise alias the same decode bookkeeping.
// ═══════════════════════════════════════════════════════════════════════════════

// PostingIterator walks a term's posting list.
type PostingIterator struct {
	reader *IndexReader
	entry  *TermDictEntry

	idx int // current global posting index, -1 before the first posting

	// inline-kind storage: every posting decoded once, up front (the
	// entry is small by construction, so there is nothing to lazily grow)
	inlineDocIDs    []uint32
	inlineTermFreqs []uint32

	// skip-list-kind doc-id decode window: docIDs[0] corresponds to global
	// posting index windowBase, and grows one block at a time as Advance
	// needs postings past what has been decoded so far. Term frequencies
	// are decoded in full up front instead of windowed: positions/offsets
	// need every posting's frequency (from index 0) to compute an
	// arbitrary posting's group bounds in the shared value streams, so
	// there is no windowing scheme that avoids that one full pass — but
	// unlike doc-ids, frequencies are never compared against a skip-to
	// target, so they don't need a cursor.
	docIDs         []uint32
	termFreqs      []uint32 // globally indexed, decoded once, in full
	windowBase     int
	curDocID       uint32 // running absolute doc-id at len(docIDs)-1 within the window
	docNextOff     int64  // byte offset of the next undecoded doc-id block/tail
	skipFirstDelta bool   // true right after a SkipTo lands mid-stream: the
	// landed block's first value is an absolute skip key, not a delta to add

	borrowed bool // true while a sub-iterator holds the stream cursor
}

// NewPostingIterator returns an iterator positioned before the first
// posting of entry.
func NewPostingIterator(r *IndexReader, entry *TermDictEntry) (*PostingIterator, error) {
	it := &PostingIterator{reader: r, entry: entry, idx: -1}
	if entry.Kind == TermKindInline {
		it.inlineDocIDs = make([]uint32, len(entry.InlinePostings))
		it.inlineTermFreqs = make([]uint32, len(entry.InlinePostings))
		for i, p := range entry.InlinePostings {
			it.inlineDocIDs[i] = p.DocID
			it.inlineTermFreqs[i] = p.TermFreq
		}
		return it, nil
	}

	tfs, err := decodeDeltaStream(r.termFreqStream.bytes(), entry.TermFreqStart, int(entry.DocFreq), false)
	if err != nil {
		return nil, err
	}
	it.termFreqs = tfs
	it.docNextOff = entry.DocIDStart
	return it, nil
}

// growWindow decodes one more packed block (or the final VarInt tail) of
// the doc-id stream and appends the values to the decode window, so that
// len(docIDs) covers at least upTo+1 global postings. This is the only
// stream SkipTo needs to consult to decide how far to advance, so it is
// the only one kept as a growable window rather than decoded in full.
func (it *PostingIterator) growWindow(upTo int) error {
	n := int(it.entry.DocFreq)
	for it.windowBase+len(it.docIDs) <= upTo && it.windowBase+len(it.docIDs) < n {
		nPacked := n / PackedBlockSize
		global := it.windowBase + len(it.docIDs)
		blockIdx := global / PackedBlockSize

		if blockIdx < nPacked {
			docBlock, dn, err := DecodePackedBlock(it.reader.docIDStream.bytes()[it.docNextOff:])
			if err != nil {
				return err
			}
			for i := 0; i < PackedBlockSize; i++ {
				if i == 0 && it.skipFirstDelta {
					it.skipFirstDelta = false
				} else {
					it.curDocID += docBlock.Get(i)
				}
				it.docIDs = append(it.docIDs, it.curDocID)
			}
			it.docNextOff += int64(dn)
			continue
		}

		// the remainder lives in a VarInt tail shorter than a full block;
		// decode the rest of it in one pass, since that's at most
		// PackedBlockSize-1 values regardless of how far in it starts.
		docIt := NewVarintIterator(it.reader.docIDStream.bytes()[it.docNextOff:])
		for first := true; it.windowBase+len(it.docIDs) < n; first = false {
			d, ok := docIt.Next()
			if !ok {
				return newFlashError(KindInvariant, "doc-id tail truncated", ErrCorruptBlock)
			}
			if first && it.skipFirstDelta {
				it.skipFirstDelta = false
			} else {
				it.curDocID += d
			}
			it.docIDs = append(it.docIDs, it.curDocID)
		}
	}
	return nil
}

// Advance moves to the next posting, returning false once exhausted.
func (it *PostingIterator) Advance() bool {
	if it.entry.Kind == TermKindInline {
		if it.idx+1 >= len(it.inlineDocIDs) {
			it.idx = len(it.inlineDocIDs)
			return false
		}
		it.idx++
		return true
	}

	n := int(it.entry.DocFreq)
	if it.idx+1 >= n {
		it.idx = n
		return false
	}
	it.idx++
	if err := it.growWindow(it.idx); err != nil {
		// Advance has no error channel; a corrupt stream surfaces as an
		// early end-of-postings (and so does SkipTo, which advances through
		// Advance). Positions/Offsets report decode errors through their
		// own error returns.
		it.idx = n
		return false
	}
	return true
}

func (it *PostingIterator) local() int {
	return it.idx - it.windowBase
}

// DocID returns the current posting's document id.
func (it *PostingIterator) DocID() uint32 {
	if it.entry.Kind == TermKindInline {
		return it.inlineDocIDs[it.idx]
	}
	return it.docIDs[it.local()]
}

// TermFreq returns the current posting's term frequency.
func (it *PostingIterator) TermFreq() uint32 {
	if it.entry.Kind == TermKindInline {
		return it.inlineTermFreqs[it.idx]
	}
	return it.termFreqs[it.idx]
}

// Done reports whether the iterator has been advanced past the last posting.
func (it *PostingIterator) Done() bool {
	if it.entry.Kind == TermKindInline {
		return it.idx >= len(it.inlineDocIDs)
	}
	return it.idx >= int(it.entry.DocFreq)
}

// SkipTo advances the iterator to the first posting with doc-id >= target,
// using the skip list (when present) to jump the decode window straight
// to the block the target would fall in, and returns whether such a
// posting exists. This runs in O(log S + k) where S is the number of
// skip-list samples and k is the number of postings scanned after landing
// on the right sample — the landing itself decodes only that one block,
// never the blocks it skipped past. If the current posting already has
// doc-id >= target, SkipTo leaves the iterator where it is.
func (it *PostingIterator) SkipTo(target uint32) bool {
	if it.idx >= 0 && !it.Done() && it.DocID() >= target {
		return true
	}
	if it.entry.Kind == TermKindSkipList && it.entry.SkipList != nil {
		if sampleIdx, ok := it.entry.SkipList.Locate(target); ok {
			sample := it.entry.SkipList.At(sampleIdx)
			if sample.PostingIndex > it.idx {
				it.windowBase = sample.PostingIndex
				it.docIDs = it.docIDs[:0]
				it.curDocID = sample.DocIDSkipKey
				it.docNextOff = sample.DocFileOffset
				it.skipFirstDelta = true
				it.idx = sample.PostingIndex - 1
			}
		}
	}
	for it.Advance() {
		if it.DocID() >= target {
			return true
		}
	}
	return false
}

// Positions returns a sub-iterator over the current posting's positions.
// It borrows the parent's stream cursor; the borrow must be released by
// fully draining the sub-iterator or calling Release before the parent is
// advanced or another sub-iterator is requested.
func (it *PostingIterator) Positions() (*ValueSubIterator, error) {
	if it.borrowed {
		return nil, newFlashError(KindInvariant, "positions", ErrIteratorBorrowed)
	}
	if it.entry.Kind == TermKindInline {
		vals := it.entry.InlinePostings[it.idx].Positions
		it.borrowed = true
		return &ValueSubIterator{parent: it, values: vals}, nil
	}
	total := int(it.entry.PositionCount)
	vals, err := decodeInlineGroup(it.reader.positionStream.bytes(), it.entry.PositionStart, total, it.termFreqs, it.idx, 1, true)
	if err != nil {
		return nil, err
	}
	it.borrowed = true
	return &ValueSubIterator{parent: it, values: vals}, nil
}

// Offsets returns a sub-iterator over the current posting's (start, end)
// offset pairs, flattened. Same borrow semantics as Positions.
func (it *PostingIterator) Offsets() (*ValueSubIterator, error) {
	if it.borrowed {
		return nil, newFlashError(KindInvariant, "offsets", ErrIteratorBorrowed)
	}
	if it.entry.Kind == TermKindInline {
		vals := it.entry.InlinePostings[it.idx].Offsets
		it.borrowed = true
		return &ValueSubIterator{parent: it, values: vals}, nil
	}
	total := int(it.entry.OffsetCount)
	vals, err := decodeInlineGroup(it.reader.offsetStream.bytes(), it.entry.OffsetStart, total, it.termFreqs, it.idx, 2, true)
	if err != nil {
		return nil, err
	}
	it.borrowed = true
	return &ValueSubIterator{parent: it, values: vals}, nil
}

// release returns the borrowed cursor to the parent.
func (it *PostingIterator) release() {
	it.borrowed = false
}

// ValueSubIterator walks one posting's decoded sub-stream (positions or
// flattened offset pairs).
type ValueSubIterator struct {
	parent *PostingIterator
	values []uint32
	i      int
}

// HasNext reports whether another value remains.
func (s *ValueSubIterator) HasNext() bool {
	return s.i < len(s.values)
}

// Next returns the next value, advancing the sub-iterator.
func (s *ValueSubIterator) Next() uint32 {
	v := s.values[s.i]
	s.i++
	if s.i >= len(s.values) {
		s.parent.release()
	}
	return v
}

// Release returns the borrowed cursor without draining the rest of the
// sub-iterator. Callers that stop early must call this.
func (s *ValueSubIterator) Release() {
	s.parent.release()
}
