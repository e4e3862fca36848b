package ring

import "testing"

func TestPushEvictsOldest(t *testing.T) {
	b := New(3)
	b.Push(1)
	b.Push(2)
	b.Push(3)
	b.Push(4) // evicts 1

	if b.Len() != 3 {
		t.Fatalf("expected Len 3, got %d", b.Len())
	}
	got := b.Last(3)
	want := []float64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected contents: %v", got)
		}
	}
}

func TestLastClampsToAvailable(t *testing.T) {
	b := New(5)
	b.Push(1)
	b.Push(2)
	got := b.Last(10)
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
}

func TestNewClampsMinDepth(t *testing.T) {
	b := New(0)
	b.Push(1)
	b.Push(2)
	if b.Len() != 1 {
		t.Fatalf("depth-0 buffer should behave as depth 1, got len %d", b.Len())
	}
}
