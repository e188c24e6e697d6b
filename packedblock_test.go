package flash

import "testing"

func TestPackedBlock_RoundTrip(t *testing.T) {
	var values [PackedBlockSize]uint32
	for i := range values {
		values[i] = uint32(i * 3 % 97)
	}

	encoded := EncodePackedBlock(values)
	block, n, err := DecodePackedBlock(encoded)
	if err != nil {
		t.Fatalf("DecodePackedBlock: %v", err)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d bytes, encoding was %d bytes", n, len(encoded))
	}
	for i, want := range values {
		if got := block.Get(i); got != want {
			t.Errorf("Get(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestPackedBlock_WidthMinimality(t *testing.T) {
	cases := []struct {
		max       uint32
		wantWidth byte
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{127, 7},
		{128, 8},
		{255, 8},
		{256, 9},
		{1<<32 - 1, 32},
	}
	for _, c := range cases {
		var values [PackedBlockSize]uint32
		values[0] = c.max
		encoded := EncodePackedBlock(values)
		if got := encoded[0]; got != c.wantWidth {
			t.Errorf("max=%d: width byte = %d, want %d", c.max, got, c.wantWidth)
		}
	}
}

func TestPackedBlock_AllZeroes(t *testing.T) {
	var values [PackedBlockSize]uint32
	encoded := EncodePackedBlock(values)
	block, _, err := DecodePackedBlock(encoded)
	if err != nil {
		t.Fatalf("DecodePackedBlock: %v", err)
	}
	if block.Width() != 1 {
		t.Errorf("all-zero block width = %d, want 1", block.Width())
	}
	for i := 0; i < PackedBlockSize; i++ {
		if block.Get(i) != 0 {
			t.Errorf("Get(%d) = %d, want 0", i, block.Get(i))
		}
	}
}

func TestDecodePackedBlock_RejectsBadWidth(t *testing.T) {
	buf := []byte{0, 0, 0}
	if _, _, err := DecodePackedBlock(buf); err == nil {
		t.Error("width 0 should be rejected as corrupt")
	}
	buf = []byte{33, 0, 0}
	if _, _, err := DecodePackedBlock(buf); err == nil {
		t.Error("width 33 should be rejected as corrupt")
	}
}

func TestDecodePackedBlock_RejectsTruncated(t *testing.T) {
	var values [PackedBlockSize]uint32
	values[0] = 1 << 20
	encoded := EncodePackedBlock(values)
	if _, _, err := DecodePackedBlock(encoded[:len(encoded)-1]); err == nil {
		t.Error("truncated block should be rejected as corrupt")
	}
}
