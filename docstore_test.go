package flash

import "testing"

func TestDocStore_WriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDocStoreWriter(dir)
	if err != nil {
		t.Fatalf("NewDocStoreWriter: %v", err)
	}

	docs := map[uint32]string{
		0: "the quick brown fox",
		1: "jumps over the lazy dog",
		2: "",
	}
	for id := uint32(0); id < 3; id++ {
		if err := w.Add(id, []byte(docs[id])); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fdx, err := openMapped(dir + "/store.fdx")
	if err != nil {
		t.Fatalf("openMapped fdx: %v", err)
	}
	defer fdx.Close()
	fdt, err := openMapped(dir + "/store.fdt")
	if err != nil {
		t.Fatalf("openMapped fdt: %v", err)
	}
	defer fdt.Close()

	r, err := NewDocStoreReader(fdx.bytes(), fdt.bytes())
	if err != nil {
		t.Fatalf("NewDocStoreReader: %v", err)
	}
	for id, want := range docs {
		got, err := r.Get(id)
		if err != nil {
			t.Fatalf("Get(%d): %v", id, err)
		}
		if string(got) != want {
			t.Errorf("Get(%d) = %q, want %q", id, got, want)
		}
	}
}

func TestDocStoreReader_MissingDocID(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDocStoreWriter(dir)
	if err != nil {
		t.Fatalf("NewDocStoreWriter: %v", err)
	}
	if err := w.Add(0, []byte("hello")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fdx, err := openMapped(dir + "/store.fdx")
	if err != nil {
		t.Fatalf("openMapped fdx: %v", err)
	}
	defer fdx.Close()
	fdt, err := openMapped(dir + "/store.fdt")
	if err != nil {
		t.Fatalf("openMapped fdt: %v", err)
	}
	defer fdt.Close()

	r, err := NewDocStoreReader(fdx.bytes(), fdt.bytes())
	if err != nil {
		t.Fatalf("NewDocStoreReader: %v", err)
	}
	if _, err := r.Get(99); err == nil {
		t.Error("Get(99) on an unknown docID should error")
	}
}

func TestNewDocStoreReader_RejectsMisalignedIndex(t *testing.T) {
	if _, err := NewDocStoreReader([]byte{1, 2, 3}, nil); err == nil {
		t.Error("fdx data not a multiple of entry size should be rejected")
	}
}
