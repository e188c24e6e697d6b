package flash

import "testing"

func TestNewSkipList(t *testing.T) {
	sl := NewSkipList()
	if sl.Head == nil {
		t.Fatal("Head is nil")
	}
	if sl.Height != 1 {
		t.Errorf("Height = %d, want 1", sl.Height)
	}
}

func TestSkipList_Insert_Single(t *testing.T) {
	sl := NewSkipList()
	sl.Insert(Position{DocumentID: 1, Offset: 0})

	found, _ := sl.Search(Position{DocumentID: 1, Offset: 0})
	if found == nil {
		t.Fatal("inserted key not found")
	}
}

func TestSkipList_Insert_Multiple_StaysOrdered(t *testing.T) {
	sl := NewSkipList()
	sl.Insert(Position{DocumentID: 3, Offset: 0})
	sl.Insert(Position{DocumentID: 1, Offset: 0})
	sl.Insert(Position{DocumentID: 2, Offset: 0})

	var got []float64
	for n := sl.Head.Tower[0]; n != nil; n = n.Tower[0] {
		got = append(got, n.Key.DocumentID)
	}
	want := []float64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSkipList_Insert_SameDocDifferentOffsets(t *testing.T) {
	sl := NewSkipList()
	sl.Insert(Position{DocumentID: 1, Offset: 5})
	sl.Insert(Position{DocumentID: 1, Offset: 2})
	sl.Insert(Position{DocumentID: 1, Offset: 8})

	var offsets []float64
	for n := sl.Head.Tower[0]; n != nil; n = n.Tower[0] {
		offsets = append(offsets, n.Key.Offset)
	}
	want := []float64{2, 5, 8}
	if len(offsets) != len(want) {
		t.Fatalf("got %v, want %v", offsets, want)
	}
	for i := range want {
		if offsets[i] != want[i] {
			t.Errorf("offsets[%d] = %v, want %v", i, offsets[i], want[i])
		}
	}
}

func TestSkipList_Insert_Duplicate_DoesNotDoubleInsert(t *testing.T) {
	sl := NewSkipList()
	sl.Insert(Position{DocumentID: 1, Offset: 0})
	sl.Insert(Position{DocumentID: 1, Offset: 0})

	count := 0
	for n := sl.Head.Tower[0]; n != nil; n = n.Tower[0] {
		count++
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestSkipList_Search_NotFound(t *testing.T) {
	sl := NewSkipList()
	sl.Insert(Position{DocumentID: 1, Offset: 0})

	found, _ := sl.Search(Position{DocumentID: 2, Offset: 0})
	if found != nil {
		t.Error("expected no match")
	}
}

func TestSkipList_Search_EmptyList(t *testing.T) {
	sl := NewSkipList()
	found, _ := sl.Search(Position{DocumentID: 1, Offset: 0})
	if found != nil {
		t.Error("expected no match on empty list")
	}
}

func TestPosition_IsBefore(t *testing.T) {
	a := Position{DocumentID: 1, Offset: 5}
	b := Position{DocumentID: 1, Offset: 6}
	c := Position{DocumentID: 2, Offset: 0}

	if !a.IsBefore(b) {
		t.Error("a should sort before b (same doc, smaller offset)")
	}
	if b.IsBefore(a) {
		t.Error("b should not sort before a")
	}
	if !b.IsBefore(c) {
		t.Error("b should sort before c (smaller doc id)")
	}
}

func TestPosition_Equals(t *testing.T) {
	a := Position{DocumentID: 1, Offset: 5}
	b := Position{DocumentID: 1, Offset: 5}
	c := Position{DocumentID: 1, Offset: 6}

	if !a.Equals(b) {
		t.Error("a and b should be equal")
	}
	if a.Equals(c) {
		t.Error("a and c should not be equal")
	}
}

func TestSkipList_LargeDataset(t *testing.T) {
	sl := NewSkipList()
	const n = 500
	for i := n - 1; i >= 0; i-- {
		sl.Insert(Position{DocumentID: float64(i), Offset: 0})
	}

	count := 0
	prev := float64(-1)
	for node := sl.Head.Tower[0]; node != nil; node = node.Tower[0] {
		if node.Key.DocumentID <= prev {
			t.Fatalf("out of order at count %d: %v <= %v", count, node.Key.DocumentID, prev)
		}
		prev = node.Key.DocumentID
		count++
	}
	if count != n {
		t.Errorf("count = %d, want %d", count, n)
	}
}
