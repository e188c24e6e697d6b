package flash

import "sort"

// ═══════════════════════════════════════════════════════════════════════════════
// ON-DISK SKIP LIST
// ═══════════════════════════════════════════════════════════════════════════════
// This is a different data structure from the in-memory SkipList in
// skiplist.go. That one is a probabilistic, per-position linked structure
// built while ingesting documents. This one is deterministic: it samples
// every PackedBlockSize'th posting in a flushed term entry and records the
// doc-id at that posting (its skip key) and the posting's ordinal index,
// letting SkipTo jump the iterator's cursor straight to the right posting
// instead of scanning from the start.
//
// Traversal here walks a flat, sorted array rather than a tower of forward
// pointers, but the two-step "journey then land" shape of Locate mirrors
// skiplist.go's in-memory Search: find the last sample whose key is
// <= target, then the caller continues from there.
// ═══════════════════════════════════════════════════════════════════════════════

// DiskSkipEntry is one sample point in an on-disk skip list: the doc-id at
// a posting boundary, that posting's ordinal index within the term's full
// list, and the byte offset of the doc-id packed block holding it. Doc-ids
// are stored one value per posting, so a sample's posting index always
// lands exactly on a block boundary, letting SkipTo decode from there
// directly instead of from the start of the term.
type DiskSkipEntry struct {
	DocIDSkipKey uint32 // doc-id at this sampled posting (monotonically increasing)
	PostingIndex int    // ordinal index of this posting within the term's list

	DocFileOffset int64 // byte offset of the doc-id block starting at PostingIndex
}

// DiskSkipList is the full, in-memory-resident sample array for one term's
// postings. It is small by construction (one entry per 128 postings) and
// is always loaded in full, unlike the postings themselves.
type DiskSkipList struct {
	entries []DiskSkipEntry
}

// NewDiskSkipList wraps a pre-built, doc-id-ascending sample array.
func NewDiskSkipList(entries []DiskSkipEntry) *DiskSkipList {
	return &DiskSkipList{entries: entries}
}

// Len returns the number of sample entries.
func (s *DiskSkipList) Len() int {
	return len(s.entries)
}

// Locate performs a binary search for the last sample entry whose
// DocIDSkipKey is <= target, returning its index. A caller then continues
// scanning forward linearly from that sample until it reaches target or
// passes it. Locate returns (0, false) if target is smaller than every
// sample (the caller must then start from the very first posting).
func (s *DiskSkipList) Locate(target uint32) (index int, ok bool) {
	// sort.Search finds the first index where the predicate is true;
	// we want the last index where skipKey <= target, i.e. one before
	// the first index where skipKey > target.
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].DocIDSkipKey > target
	})
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

// At returns the sample entry at index i.
func (s *DiskSkipList) At(i int) DiskSkipEntry {
	return s.entries[i]
}

// BuildDiskSkipList samples every PackedBlockSize'th posting from a term's
// ascending doc-id sequence, recording each sample's doc-id, ordinal
// position, and the file offset of the doc-id block that starts there
// (docIDOffs is the same PackOffsets the builder used to dump that
// stream, so this never needs to re-derive byte lengths).
func BuildDiskSkipList(docIDs []uint32, docIDOffs PackOffsets) *DiskSkipList {
	var entries []DiskSkipEntry
	for i := 0; i < len(docIDs); i += PackedBlockSize {
		blockIdx := i / PackedBlockSize
		entries = append(entries, DiskSkipEntry{
			DocIDSkipKey:  docIDs[i],
			PostingIndex:  i,
			DocFileOffset: blockFileOffset(docIDOffs, blockIdx),
		})
	}
	return NewDiskSkipList(entries)
}

// blockFileOffset resolves the absolute byte offset of the blockIdx'th
// packed block in a dumped stream, or its VarInt tail once blockIdx runs
// past the last full block.
func blockFileOffset(offs PackOffsets, blockIdx int) int64 {
	if blockIdx < len(offs.PackOffs) {
		return offs.PackOffs[blockIdx]
	}
	return offs.TailOff
}
