package rng

import "testing"

func TestSeedZeroMapsToOne(t *testing.T) {
	a := New(0)
	b := New(1)
	if a.Next() != b.Next() {
		t.Fatalf("seed 0 should behave like seed 1")
	}
}

func TestDeterministicSequence(t *testing.T) {
	a := New(12345)
	b := New(12345)
	for i := 0; i < 100; i++ {
		va, vb := a.Next(), b.Next()
		if va != vb {
			t.Fatalf("sequence diverged at step %d: %d != %d", i, va, vb)
		}
	}
}

func TestFloatRange(t *testing.T) {
	s := New(7)
	for i := 0; i < 10000; i++ {
		f := s.Float()
		if f < 0 || f >= 1 {
			t.Fatalf("Float() out of range: %v", f)
		}
	}
}

func TestRangeU32Bounds(t *testing.T) {
	s := New(99)
	for i := 0; i < 10000; i++ {
		v := s.RangeU32(10)
		if v >= 10 {
			t.Fatalf("RangeU32(10) out of range: %v", v)
		}
	}
	if s.RangeU32(0) != 0 {
		t.Fatalf("RangeU32(0) should be 0")
	}
}

func TestRangeI32Bounds(t *testing.T) {
	s := New(1)
	for i := 0; i < 10000; i++ {
		v := s.RangeI32(-5, 5)
		if v < -5 || v > 5 {
			t.Fatalf("RangeI32(-5,5) out of range: %v", v)
		}
	}
}

func TestSignedHalfRange(t *testing.T) {
	s := New(3)
	for i := 0; i < 10000; i++ {
		v := s.SignedHalf()
		if v < -0.5 || v >= 0.5 {
			t.Fatalf("SignedHalf out of range: %v", v)
		}
	}
}
