package flash

import (
	"encoding/binary"
	"math"
	"os"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DOC-LENGTH STORE
// ═══════════════════════════════════════════════════════════════════════════════
// doclen.bin holds one uint32 per document, indexed by docID, giving its
// length in tokens. meta.bin holds the two aggregate numbers BM25 scoring
// needs across the whole corpus: the document count and the average
// length.
// ═══════════════════════════════════════════════════════════════════════════════

// DocLengthStore is the wholly-loaded length-per-document array plus
// corpus aggregates.
type DocLengthStore struct {
	Lengths []uint32
	NDocs   uint32
	AvgLen  float64
}

// LengthOf returns the length of docID, or 0 if out of range.
func (s *DocLengthStore) LengthOf(docID uint32) uint32 {
	if int(docID) >= len(s.Lengths) {
		return 0
	}
	return s.Lengths[docID]
}

// WriteDocLengthStore persists lengths (indexed by docID) and the derived
// aggregates to the two files at doclenPath/metaPath.
func WriteDocLengthStore(doclenPath, metaPath string, lengths []uint32) error {
	doclenBuf := make([]byte, 4*len(lengths))
	for i, l := range lengths {
		binary.LittleEndian.PutUint32(doclenBuf[i*4:], l)
	}
	if err := os.WriteFile(doclenPath, doclenBuf, 0666); err != nil {
		return newFlashError(KindIO, doclenPath, err)
	}

	var total uint64
	for _, l := range lengths {
		total += uint64(l)
	}
	avg := 0.0
	if len(lengths) > 0 {
		avg = float64(total) / float64(len(lengths))
	}

	meta := make([]byte, 12)
	binary.LittleEndian.PutUint32(meta[0:4], uint32(len(lengths)))
	binary.LittleEndian.PutUint64(meta[4:12], math.Float64bits(avg))
	if err := os.WriteFile(metaPath, meta, 0666); err != nil {
		return newFlashError(KindIO, metaPath, err)
	}
	return nil
}

// LoadDocLengthStore reads the doc-length array and aggregates back from disk.
func LoadDocLengthStore(doclenPath, metaPath string) (*DocLengthStore, error) {
	doclenBuf, err := os.ReadFile(doclenPath)
	if err != nil {
		return nil, newFlashError(KindIO, doclenPath, err)
	}
	if len(doclenBuf)%4 != 0 {
		return nil, newFlashError(KindInvariant, doclenPath, ErrCorruptBlock)
	}
	lengths := make([]uint32, len(doclenBuf)/4)
	for i := range lengths {
		lengths[i] = binary.LittleEndian.Uint32(doclenBuf[i*4:])
	}

	metaBuf, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, newFlashError(KindIO, metaPath, err)
	}
	if len(metaBuf) < 12 {
		return nil, newFlashError(KindInvariant, metaPath, ErrCorruptBlock)
	}
	nDocs := binary.LittleEndian.Uint32(metaBuf[0:4])
	avg := math.Float64frombits(binary.LittleEndian.Uint64(metaBuf[4:12]))

	return &DocLengthStore{Lengths: lengths, NDocs: nDocs, AvgLen: avg}, nil
}
