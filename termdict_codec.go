package flash

import (
	"encoding/binary"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TERM DICTIONARY PAYLOAD CODEC
// ═══════════════════════════════════════════════════════════════════════════════
// Each term's record in terms.tim is one of two shapes, selected by its
// leading kind byte:
//
//	kind=0 (skip list):
//	  [1: kind] [4: docFreq]
//	  [8: docIDStart] [8: termFreqStart] [8: positionStart] [8: offsetStart]
//	  [4: positionCount] [4: offsetCount]
//	  [4: nSkipEntries]
//	  repeated nSkipEntries times: [4: docIDSkipKey] [4: postingIndex] [8: docFileOffset]
//
//	kind=1 (inline):
//	  [1: kind] [4: docFreq] [roaring bitmap: length-prefixed serialized bytes]
//	  repeated docFreq times:
//	    [4: docID] [4: termFreq] [4: nPositions] positions... [4: nOffsets] offsets...
// ═══════════════════════════════════════════════════════════════════════════════

func putU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func encodeSkipListPayload(e *TermDictEntry) []byte {
	var buf []byte
	buf = append(buf, TermKindSkipList)
	buf = putU32(buf, e.DocFreq)
	buf = putU64(buf, uint64(e.DocIDStart))
	buf = putU64(buf, uint64(e.TermFreqStart))
	buf = putU64(buf, uint64(e.PositionStart))
	buf = putU64(buf, uint64(e.OffsetStart))
	buf = putU32(buf, e.PositionCount)
	buf = putU32(buf, e.OffsetCount)
	buf = putU32(buf, uint32(e.SkipList.Len()))
	for i := 0; i < e.SkipList.Len(); i++ {
		entry := e.SkipList.At(i)
		buf = putU32(buf, entry.DocIDSkipKey)
		buf = putU32(buf, uint32(entry.PostingIndex))
		buf = putU64(buf, uint64(entry.DocFileOffset))
	}
	return buf
}

func encodeInlinePayload(e *TermDictEntry) []byte {
	var buf []byte
	buf = append(buf, TermKindInline)
	buf = putU32(buf, e.DocFreq)

	bitmapBytes, _ := e.InlineBitmap.ToBytes()
	buf = putU32(buf, uint32(len(bitmapBytes)))
	buf = append(buf, bitmapBytes...)

	for _, p := range e.InlinePostings {
		buf = putU32(buf, p.DocID)
		buf = putU32(buf, p.TermFreq)
		buf = putU32(buf, uint32(len(p.Positions)))
		for _, v := range p.Positions {
			buf = putU32(buf, v)
		}
		buf = putU32(buf, uint32(len(p.Offsets)))
		for _, v := range p.Offsets {
			buf = putU32(buf, v)
		}
	}
	return buf
}

// decodeTermDictEntry parses one term's record starting at data[0],
// returning the entry and the number of bytes it occupied. The term name
// itself is not stored in the payload (it is only known via the term
// index that pointed here), so callers must fill in entry.Term themselves.
func decodeTermDictEntry(data []byte) (*TermDictEntry, int, error) {
	if len(data) < 5 {
		return nil, 0, newFlashError(KindInvariant, "term dict record", ErrCorruptBlock)
	}
	kind := data[0]
	docFreq := binary.LittleEndian.Uint32(data[1:5])
	pos := 5

	switch kind {
	case TermKindSkipList:
		const headerSize = 8*4 + 4*2
		if len(data) < pos+headerSize+4 {
			return nil, 0, newFlashError(KindInvariant, "term dict record", ErrCorruptBlock)
		}
		docIDStart := int64(binary.LittleEndian.Uint64(data[pos : pos+8]))
		tfStart := int64(binary.LittleEndian.Uint64(data[pos+8 : pos+16]))
		posStart := int64(binary.LittleEndian.Uint64(data[pos+16 : pos+24]))
		offStart := int64(binary.LittleEndian.Uint64(data[pos+24 : pos+32]))
		posCount := binary.LittleEndian.Uint32(data[pos+32 : pos+36])
		offCount := binary.LittleEndian.Uint32(data[pos+36 : pos+40])
		pos += headerSize

		nEntries := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4

		entries := make([]DiskSkipEntry, nEntries)
		for i := 0; i < nEntries; i++ {
			const rowSize = 4 + 4 + 8
			if len(data) < pos+rowSize {
				return nil, 0, newFlashError(KindInvariant, "term dict skip entry", ErrCorruptBlock)
			}
			row := data[pos : pos+rowSize]
			entries[i] = DiskSkipEntry{
				DocIDSkipKey:  binary.LittleEndian.Uint32(row[0:4]),
				PostingIndex:  int(binary.LittleEndian.Uint32(row[4:8])),
				DocFileOffset: int64(binary.LittleEndian.Uint64(row[8:16])),
			}
			pos += rowSize
		}

		e := &TermDictEntry{
			DocFreq:       docFreq,
			Kind:          TermKindSkipList,
			SkipList:      NewDiskSkipList(entries),
			DocIDStart:    docIDStart,
			TermFreqStart: tfStart,
			PositionStart: posStart,
			OffsetStart:   offStart,
			PositionCount: posCount,
			OffsetCount:   offCount,
		}
		return e, pos, nil

	case TermKindInline:
		if len(data) < pos+4 {
			return nil, 0, newFlashError(KindInvariant, "term dict record", ErrCorruptBlock)
		}
		bitmapLen := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if len(data) < pos+bitmapLen {
			return nil, 0, newFlashError(KindInvariant, "term dict bitmap", ErrCorruptBlock)
		}
		bitmap := roaring.NewBitmap()
		if err := bitmap.UnmarshalBinary(data[pos : pos+bitmapLen]); err != nil {
			return nil, 0, newFlashError(KindInvariant, "term dict bitmap", err)
		}
		pos += bitmapLen

		postings := make([]InlinePosting, docFreq)
		for i := range postings {
			if len(data) < pos+12 {
				return nil, 0, newFlashError(KindInvariant, "term dict inline posting", ErrCorruptBlock)
			}
			docID := binary.LittleEndian.Uint32(data[pos : pos+4])
			tf := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
			nPos := int(binary.LittleEndian.Uint32(data[pos+8 : pos+12]))
			pos += 12

			positions := make([]uint32, nPos)
			for j := range positions {
				positions[j] = binary.LittleEndian.Uint32(data[pos : pos+4])
				pos += 4
			}

			if len(data) < pos+4 {
				return nil, 0, newFlashError(KindInvariant, "term dict inline posting", ErrCorruptBlock)
			}
			nOff := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
			pos += 4
			offs := make([]uint32, nOff)
			for j := range offs {
				offs[j] = binary.LittleEndian.Uint32(data[pos : pos+4])
				pos += 4
			}

			postings[i] = InlinePosting{DocID: docID, TermFreq: tf, Positions: positions, Offsets: offs}
		}

		e := &TermDictEntry{
			DocFreq:        docFreq,
			Kind:           TermKindInline,
			InlineBitmap:   bitmap,
			InlinePostings: postings,
		}
		return e, pos, nil

	default:
		return nil, 0, newFlashError(KindInvariant, "term dict kind byte", ErrCorruptBlock)
	}
}

// DiskTermDict is the on-disk term dictionary: a wholly in-memory term ->
// byte-offset index (terms.tip) over a mmapped payload file (terms.tim),
// decoding and caching each entry the first time it is looked up.
type DiskTermDict struct {
	mu      sync.Mutex
	offsets map[string]int64
	data    []byte
	cache   map[string]*TermDictEntry
}

// OpenDiskTermDict loads the term index file and wraps the mmapped
// terms.tim payload bytes.
func OpenDiskTermDict(tipPath string, dictData []byte) (*DiskTermDict, error) {
	offsets, err := ReadTermIndexFile(tipPath)
	if err != nil {
		return nil, err
	}
	return &DiskTermDict{offsets: offsets, data: dictData, cache: make(map[string]*TermDictEntry)}, nil
}

// Lookup decodes (and caches) the dictionary entry for term.
func (d *DiskTermDict) Lookup(term string) (*TermDictEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.cache[term]; ok {
		return e, true
	}
	off, ok := d.offsets[term]
	if !ok {
		return nil, false
	}
	entry, _, err := decodeTermDictEntry(d.data[off:])
	if err != nil {
		return nil, false
	}
	entry.Term = term
	d.cache[term] = entry
	return entry, true
}

// Len returns the number of distinct terms in the dictionary.
func (d *DiskTermDict) Len() int {
	return len(d.offsets)
}
