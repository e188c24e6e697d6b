package flash

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStreamDumper_DumpTracksOffsets(t *testing.T) {
	dir := t.TempDir()
	d, err := newStreamDumper(filepath.Join(dir, "doc_ids.pack"))
	if err != nil {
		t.Fatalf("newStreamDumper: %v", err)
	}
	defer d.Close()

	var block [PackedBlockSize]uint32
	for i := range block {
		block[i] = uint32(i)
	}
	tail := EncodeVarint(42)

	offs, err := d.Dump([][PackedBlockSize]uint32{block}, tail)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if len(offs.PackOffs) != 1 || offs.PackOffs[0] != 0 {
		t.Errorf("PackOffs = %v, want [0]", offs.PackOffs)
	}
	encoded := EncodePackedBlock(block)
	if offs.TailOff != int64(len(encoded)) {
		t.Errorf("TailOff = %d, want %d", offs.TailOff, len(encoded))
	}
}

func TestStreamDumper_NoTailLeavesSentinel(t *testing.T) {
	dir := t.TempDir()
	d, err := newStreamDumper(filepath.Join(dir, "term_freqs.pack"))
	if err != nil {
		t.Fatalf("newStreamDumper: %v", err)
	}
	defer d.Close()

	offs, err := d.Dump(nil, nil)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if offs.TailOff != -1 {
		t.Errorf("TailOff = %d, want -1 for no tail", offs.TailOff)
	}
	if len(offs.PackOffs) != 0 {
		t.Errorf("PackOffs = %v, want empty", offs.PackOffs)
	}
}

func TestOpenStreamSet_CreatesFourFiles(t *testing.T) {
	dir := t.TempDir()
	ss, err := openStreamSet(dir)
	if err != nil {
		t.Fatalf("openStreamSet: %v", err)
	}
	defer ss.Close()

	if err := ss.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	for _, name := range []string{"doc_ids.pack", "term_freqs.pack", "positions.pack", "offsets.pack"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected file %s to exist: %v", name, err)
		}
	}
}

func TestStreamDumper_SequentialDumpsAppend(t *testing.T) {
	dir := t.TempDir()
	d, err := newStreamDumper(filepath.Join(dir, "positions.pack"))
	if err != nil {
		t.Fatalf("newStreamDumper: %v", err)
	}
	defer d.Close()

	tailA := EncodeVarint(1)
	offsA, err := d.Dump(nil, tailA)
	if err != nil {
		t.Fatalf("Dump A: %v", err)
	}
	if offsA.TailOff != 0 {
		t.Errorf("first dump tail offset = %d, want 0", offsA.TailOff)
	}

	tailB := EncodeVarint(2)
	offsB, err := d.Dump(nil, tailB)
	if err != nil {
		t.Fatalf("Dump B: %v", err)
	}
	if offsB.TailOff != int64(len(tailA)) {
		t.Errorf("second dump tail offset = %d, want %d", offsB.TailOff, len(tailA))
	}
}
