package tile

import "testing"

func TestContainingAndLocal(t *testing.T) {
	cases := []struct {
		wx, wz int
		want   Coord
		lx, lz int
	}{
		{0, 0, Coord{0, 0}, 0, 0},
		{15, 31, Coord{0, 1}, 15, 15},
		{-1, -16, Coord{-1, -1}, 15, 0},
		{-17, 40, Coord{-2, 2}, 15, 8},
	}
	for _, c := range cases {
		if got := Containing(c.wx, c.wz); got != c.want {
			t.Fatalf("Containing(%d,%d)=%v want %v", c.wx, c.wz, got, c.want)
		}
		lx, lz := Local(c.wx, c.wz)
		if lx != c.lx || lz != c.lz {
			t.Fatalf("Local(%d,%d)=(%d,%d) want (%d,%d)", c.wx, c.wz, lx, lz, c.lx, c.lz)
		}
		wx, wz := c.want.Block(lx, lz)
		if wx != c.wx || wz != c.wz {
			t.Fatalf("Block round trip got (%d,%d) want (%d,%d)", wx, wz, c.wx, c.wz)
		}
	}
}

func TestSquare(t *testing.T) {
	keys := Square(Coord{X: 0, Z: 0}, 3)
	if len(keys) != 49 {
		t.Fatalf("len=%d want 49", len(keys))
	}
	seen := map[Coord]bool{}
	for _, k := range keys {
		if k.X < -3 || k.X > 3 || k.Z < -3 || k.Z > 3 {
			t.Fatalf("tile %v outside window", k)
		}
		seen[k] = true
	}
	if len(seen) != 49 {
		t.Fatalf("expected 49 distinct tiles, got %d", len(seen))
	}
}

func TestChebyshevAndSort(t *testing.T) {
	if d := (Coord{1, -4}).Chebyshev(Coord{0, 0}); d != 4 {
		t.Fatalf("Chebyshev=%d want 4", d)
	}
	keys := []Coord{{2, 1}, {-1, 5}, {2, 0}}
	Sort(keys)
	if keys[0] != (Coord{-1, 5}) || keys[1] != (Coord{2, 0}) {
		t.Fatalf("unexpected order: %v", keys)
	}
}
