package zrandom

import "testing"

func TestPredictableCycle(t *testing.T) {
	s := New(1)
	s.Draw(-5, nil) // seed a cycle of length 5

	var got []uint16
	for i := 0; i < 3*5; i++ {
		got = append(got, s.Draw(5, nil))
	}

	for i, v := range got {
		want := uint16(i%5) + 1
		if v != want {
			t.Fatalf("draw %d: expected %d, got %d", i, want, v)
		}
	}
}

func TestRandomModeInRange(t *testing.T) {
	s := New(42)
	for i := 0; i < 200; i++ {
		v := s.Draw(10, nil)
		if v < 1 || v > 10 {
			t.Fatalf("draw out of range: %d", v)
		}
	}
}

func TestZeroReseedsAndReturnsZero(t *testing.T) {
	s := New(1)
	s.StartPredictable(3)
	s.Draw(3, nil)

	calls := 0
	result := s.Draw(0, func() int64 {
		calls++
		return 99
	})

	if result != 0 {
		t.Fatalf("random(0) must return 0, got %d", result)
	}
	if calls != 1 {
		t.Fatalf("expected reseed callback to run once, ran %d times", calls)
	}
	if s.predictable {
		t.Fatal("random(0) must leave predictable mode")
	}
}
