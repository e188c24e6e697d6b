package flash

import (
	"io"
	"os"
)

// ═══════════════════════════════════════════════════════════════════════════════
// FILE DUMPER
// ═══════════════════════════════════════════════════════════════════════════════
// A streamDumper appends packed blocks and a VarInt tail to one stream
// file, tracking the absolute file offset of every block it writes so a
// skip list can later locate postings within the file.
//
// This mirrors the original engine's FileDumper, with one correction: its
// DumpPackedBlock had no return statement for the start offset it computed,
// silently discarding the value the caller needed. Here the block-dump
// method's signature makes the starting offset an explicit, checked return.
// ═══════════════════════════════════════════════════════════════════════════════

// PackOffsets records, for a term entry dumped to a stream file, the
// absolute file offset of each packed block and (if present) the tail.
type PackOffsets struct {
	PackOffs []int64
	TailOff  int64 // -1 if no tail was written
}

// streamDumper appends encoded term-entry data to a single backing file.
type streamDumper struct {
	f *os.File
}

// newStreamDumper creates (truncating if it exists) the file at path and
// returns a dumper over it.
func newStreamDumper(path string) (*streamDumper, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, newFlashError(KindIO, path, err)
	}
	return &streamDumper{f: f}, nil
}

// CurrentOffset returns the dumper's current write position.
func (d *streamDumper) CurrentOffset() (int64, error) {
	off, err := d.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, newFlashError(KindIO, d.f.Name(), err)
	}
	return off, nil
}

// Dump writes every packed block followed by the VarInt tail (if any) and
// returns their absolute file offsets.
func (d *streamDumper) Dump(blocks [][PackedBlockSize]uint32, tail []byte) (PackOffsets, error) {
	offs := PackOffsets{TailOff: -1}

	for _, block := range blocks {
		start, err := d.CurrentOffset()
		if err != nil {
			return offs, err
		}
		encoded := EncodePackedBlock(block)
		if err := d.writeAll(encoded); err != nil {
			return offs, err
		}
		offs.PackOffs = append(offs.PackOffs, start)
	}

	if len(tail) > 0 {
		start, err := d.CurrentOffset()
		if err != nil {
			return offs, err
		}
		if err := d.writeAll(tail); err != nil {
			return offs, err
		}
		offs.TailOff = start
	}

	return offs, nil
}

// writeAll retries partial writes until buf is fully written or an error
// other than a short write occurs.
func (d *streamDumper) writeAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := d.f.Write(buf)
		if err != nil {
			return newFlashError(KindIO, d.f.Name(), err)
		}
		if n == 0 {
			return newFlashError(KindIO, d.f.Name(), ErrShortWrite)
		}
		buf = buf[n:]
	}
	return nil
}

// Flush fsyncs the underlying file.
func (d *streamDumper) Flush() error {
	if err := d.f.Sync(); err != nil {
		return newFlashError(KindIO, d.f.Name(), err)
	}
	return nil
}

// Close closes the underlying file.
func (d *streamDumper) Close() error {
	return d.f.Close()
}

// streamSet is the four parallel stream files a flushed term entry writes
// to: doc-ids, term frequencies, positions, offsets.
type streamSet struct {
	docIDs    *streamDumper
	termFreqs *streamDumper
	positions *streamDumper
	offsets   *streamDumper
}

// openStreamSet opens (or creates) the four stream files under dir using
// the conventional flash index file names.
func openStreamSet(dir string) (*streamSet, error) {
	docIDs, err := newStreamDumper(dir + "/doc_ids.pack")
	if err != nil {
		return nil, err
	}
	termFreqs, err := newStreamDumper(dir + "/term_freqs.pack")
	if err != nil {
		return nil, err
	}
	positions, err := newStreamDumper(dir + "/positions.pack")
	if err != nil {
		return nil, err
	}
	offsets, err := newStreamDumper(dir + "/offsets.pack")
	if err != nil {
		return nil, err
	}
	return &streamSet{docIDs: docIDs, termFreqs: termFreqs, positions: positions, offsets: offsets}, nil
}

// Flush fsyncs all four stream files.
func (s *streamSet) Flush() error {
	for _, d := range []*streamDumper{s.docIDs, s.termFreqs, s.positions, s.offsets} {
		if err := d.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all four stream files.
func (s *streamSet) Close() error {
	var firstErr error
	for _, d := range []*streamDumper{s.docIDs, s.termFreqs, s.positions, s.offsets} {
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
