package flash

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DOC STORE
// ═══════════════════════════════════════════════════════════════════════════════
// The doc store persists each document's original body text so search
// results can be highlighted and returned to a caller. It is split into
// two files:
//
//	store.fdx — a flat array of fixed 12-byte entries, one per
//	            document, each (docID uint32, offset uint64) pointing
//	            into store.fdt
//	store.fdt — the concatenated, independently-compressed bodies
//
// Each body is compressed on its own (a fresh zstd frame per document), so
// Get(docID) never has to touch any other document's bytes to decode.
// ═══════════════════════════════════════════════════════════════════════════════

const fdxEntrySize = 12 // uint32 docID + uint64 offset

// DocStoreWriter appends compressed document bodies to a doc store being
// built, recording the fdx index as it goes.
type DocStoreWriter struct {
	fdt     *os.File
	fdx     *os.File
	encoder *zstd.Encoder
}

// NewDocStoreWriter creates (truncating) the fdx/fdt files under dir.
func NewDocStoreWriter(dir string) (*DocStoreWriter, error) {
	fdt, err := os.OpenFile(dir+"/store.fdt", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, newFlashError(KindIO, dir, err)
	}
	fdx, err := os.OpenFile(dir+"/store.fdx", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		fdt.Close()
		return nil, newFlashError(KindIO, dir, err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		fdt.Close()
		fdx.Close()
		return nil, newFlashError(KindIO, dir, err)
	}
	return &DocStoreWriter{fdt: fdt, fdx: fdx, encoder: enc}, nil
}

// Add compresses body independently and appends it to the doc store,
// recording docID's fdx entry.
func (w *DocStoreWriter) Add(docID uint32, body []byte) error {
	off, err := w.fdt.Seek(0, io.SeekCurrent)
	if err != nil {
		return newFlashError(KindIO, "store.fdt", err)
	}

	compressed := w.encoder.EncodeAll(body, nil)
	if _, err := w.fdt.Write(compressed); err != nil {
		return newFlashError(KindIO, "store.fdt", err)
	}

	var entry [fdxEntrySize]byte
	binary.LittleEndian.PutUint32(entry[0:4], docID)
	binary.LittleEndian.PutUint64(entry[4:12], uint64(off))
	if _, err := w.fdx.Write(entry[:]); err != nil {
		return newFlashError(KindIO, "store.fdx", err)
	}
	return nil
}

// Close flushes and closes both files.
func (w *DocStoreWriter) Close() error {
	w.encoder.Close()
	if err := w.fdt.Sync(); err != nil {
		return newFlashError(KindIO, "store.fdt", err)
	}
	if err := w.fdx.Sync(); err != nil {
		return newFlashError(KindIO, "store.fdx", err)
	}
	if err := w.fdt.Close(); err != nil {
		return newFlashError(KindIO, "store.fdt", err)
	}
	return w.fdx.Close()
}

// DocStoreReader resolves a docID to its decompressed body using the
// mmapped fdx/fdt files.
type DocStoreReader struct {
	fdxData []byte
	fdtData []byte
	decoder *zstd.Decoder

	// offsetByDocID is built once at open time from the fdx index and
	// holds each docID's [start, end) byte range in fdt (end is the next
	// fdx entry's offset, or the end of fdt for the last entry); it
	// trades a little memory for O(1) lookups instead of a binary search
	// over the fdx entries on every Get.
	offsetByDocID map[uint32][2]int64
}

// NewDocStoreReader builds a reader over already-mmapped fdx/fdt bytes.
func NewDocStoreReader(fdxData, fdtData []byte) (*DocStoreReader, error) {
	if len(fdxData)%fdxEntrySize != 0 {
		return nil, newFlashError(KindInvariant, "store.fdx", ErrCorruptBlock)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, newFlashError(KindIO, "docstore", err)
	}

	offsets := make(map[uint32][2]int64, len(fdxData)/fdxEntrySize)
	for i := 0; i+fdxEntrySize <= len(fdxData); i += fdxEntrySize {
		docID := binary.LittleEndian.Uint32(fdxData[i : i+4])
		off := binary.LittleEndian.Uint64(fdxData[i+4 : i+12])
		end := uint64(len(fdtData))
		if next := i + fdxEntrySize; next+fdxEntrySize <= len(fdxData) {
			end = binary.LittleEndian.Uint64(fdxData[next+4 : next+12])
		}
		offsets[docID] = [2]int64{int64(off), int64(end)}
	}

	return &DocStoreReader{fdxData: fdxData, fdtData: fdtData, decoder: dec, offsetByDocID: offsets}, nil
}

// Get returns the decompressed body for docID.
func (r *DocStoreReader) Get(docID uint32) ([]byte, error) {
	span, ok := r.offsetByDocID[docID]
	if !ok {
		return nil, newFlashError(KindInvariant, "doc store", ErrTermNotFound)
	}
	// Each body is its own independent zstd frame. DecodeAll decodes every
	// frame in its input, so the input is cut to this document's span.
	body, err := r.decoder.DecodeAll(r.fdtData[span[0]:span[1]], nil)
	if err != nil {
		return nil, newFlashError(KindInvariant, "doc store frame", err)
	}
	return body, nil
}
