package mathx

import "testing"

func TestFloorDivMod(t *testing.T) {
	cases := []struct{ a, b, q, m int }{
		{0, 16, 0, 0},
		{15, 16, 0, 15},
		{16, 16, 1, 0},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{-17, 16, -2, 15},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.q {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.q)
		}
		if got := Mod(c.a, c.b); got != c.m {
			t.Fatalf("Mod(%d,%d)=%d want %d", c.a, c.b, got, c.m)
		}
	}
}

func TestRoundingHelpers(t *testing.T) {
	if got := FloorInt(-0.5); got != -1 {
		t.Fatalf("FloorInt(-0.5)=%d want -1", got)
	}
	if got := RoundHalfUp(64.5); got != 65 {
		t.Fatalf("RoundHalfUp(64.5)=%d want 65", got)
	}
	if got := RoundHalfUp(-2.5); got != -2 {
		t.Fatalf("RoundHalfUp(-2.5)=%d want -2", got)
	}
}

func TestUnit2Range(t *testing.T) {
	for x := -50; x < 50; x++ {
		v := Unit2(1337, x, x*7)
		if v < 0 || v >= 1 {
			t.Fatalf("Unit2 out of range: %v", v)
		}
		if v != Unit2(1337, x, x*7) {
			t.Fatalf("Unit2 not deterministic at %d", x)
		}
	}
}

func TestClampWithDefault(t *testing.T) {
	if got := ClampWithDefault(0, 1, 5, 3); got != 3 {
		t.Fatalf("ClampWithDefault default failed: %d", got)
	}
	if got := ClampWithDefault(4, 1, 5, 3); got != 4 {
		t.Fatalf("ClampWithDefault passthrough failed: %d", got)
	}
}
