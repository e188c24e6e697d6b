package flash

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
)

func TestEncodeDecodeSkipListPayload_RoundTrip(t *testing.T) {
	entries := []DiskSkipEntry{
		{DocIDSkipKey: 0, PostingIndex: 0},
		{DocIDSkipKey: 512, PostingIndex: 128},
	}
	e := &TermDictEntry{
		DocFreq:       300,
		Kind:          TermKindSkipList,
		SkipList:      NewDiskSkipList(entries),
		DocIDStart:    10,
		TermFreqStart: 20,
		PositionStart: 30,
		OffsetStart:   40,
	}

	buf := encodeSkipListPayload(e)
	got, n, err := decodeTermDictEntry(buf)
	if err != nil {
		t.Fatalf("decodeTermDictEntry: %v", err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d bytes, payload was %d", n, len(buf))
	}
	if got.DocFreq != e.DocFreq || got.Kind != TermKindSkipList {
		t.Errorf("DocFreq/Kind mismatch: got %+v", got)
	}
	if got.DocIDStart != 10 || got.TermFreqStart != 20 || got.PositionStart != 30 || got.OffsetStart != 40 {
		t.Errorf("start offsets mismatch: got %+v", got)
	}
	if got.SkipList.Len() != 2 {
		t.Fatalf("SkipList.Len() = %d, want 2", got.SkipList.Len())
	}
	for i, want := range entries {
		if got.SkipList.At(i) != want {
			t.Errorf("SkipList.At(%d) = %+v, want %+v", i, got.SkipList.At(i), want)
		}
	}
}

func TestEncodeDecodeInlinePayload_RoundTrip(t *testing.T) {
	bitmap := roaring.New()
	bitmap.Add(3)
	bitmap.Add(7)

	postings := []InlinePosting{
		{DocID: 3, TermFreq: 2, Positions: []uint32{1, 5}, Offsets: []uint32{0, 1, 10, 11}},
		{DocID: 7, TermFreq: 1, Positions: []uint32{0}, Offsets: []uint32{0, 1}},
	}
	e := &TermDictEntry{
		DocFreq:        2,
		Kind:           TermKindInline,
		InlineBitmap:   bitmap,
		InlinePostings: postings,
	}

	buf := encodeInlinePayload(e)
	got, n, err := decodeTermDictEntry(buf)
	if err != nil {
		t.Fatalf("decodeTermDictEntry: %v", err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d bytes, payload was %d", n, len(buf))
	}
	if got.Kind != TermKindInline || got.DocFreq != 2 {
		t.Errorf("Kind/DocFreq mismatch: got %+v", got)
	}
	if !got.InlineBitmap.Contains(3) || !got.InlineBitmap.Contains(7) {
		t.Errorf("InlineBitmap missing expected members")
	}
	if len(got.InlinePostings) != 2 {
		t.Fatalf("got %d postings, want 2", len(got.InlinePostings))
	}
	for i, want := range postings {
		gp := got.InlinePostings[i]
		if gp.DocID != want.DocID || gp.TermFreq != want.TermFreq {
			t.Errorf("posting[%d] = %+v, want %+v", i, gp, want)
		}
		if len(gp.Positions) != len(want.Positions) || len(gp.Offsets) != len(want.Offsets) {
			t.Errorf("posting[%d] slice length mismatch: got %+v, want %+v", i, gp, want)
		}
	}
}

func TestDecodeTermDictEntry_RejectsUnknownKind(t *testing.T) {
	buf := []byte{0xff, 0, 0, 0, 0}
	if _, _, err := decodeTermDictEntry(buf); err == nil {
		t.Error("unknown kind byte should be rejected")
	}
}

func TestDecodeTermDictEntry_RejectsTruncatedHeader(t *testing.T) {
	buf := []byte{0, 0, 0}
	if _, _, err := decodeTermDictEntry(buf); err == nil {
		t.Error("truncated header should be rejected")
	}
}

func TestDiskTermDict_LookupCachesDecodedEntry(t *testing.T) {
	dir := t.TempDir()

	e := &TermDictEntry{
		DocFreq:    1,
		Kind:       TermKindSkipList,
		SkipList:   NewDiskSkipList(nil),
		DocIDStart: 0,
	}
	payload := encodeSkipListPayload(e)

	offsets := map[string]int64{"hello": 0}
	tipPath := dir + "/terms.tip"
	if err := WriteTermIndexFile(tipPath, offsets); err != nil {
		t.Fatalf("WriteTermIndexFile: %v", err)
	}

	dict, err := OpenDiskTermDict(tipPath, payload)
	if err != nil {
		t.Fatalf("OpenDiskTermDict: %v", err)
	}

	got, ok := dict.Lookup("hello")
	if !ok {
		t.Fatal("Lookup(\"hello\") = false, want true")
	}
	if got.Term != "hello" {
		t.Errorf("Term = %q, want hello", got.Term)
	}

	if _, ok := dict.Lookup("missing"); ok {
		t.Error("Lookup(\"missing\") should be false")
	}
	if dict.Len() != 1 {
		t.Errorf("Len() = %d, want 1", dict.Len())
	}
}
