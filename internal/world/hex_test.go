package world

import "testing"

func TestCubeDerivesS(t *testing.T) {
	c := Cube(3, -5)
	if c.S != 2 || !c.Valid() {
		t.Fatalf("Cube(3,-5) = %v, want s=2 and valid", c)
	}
	if (CubeCoord{Q: 1, R: 1, S: 1}).Valid() {
		t.Fatal("(1,1,1) reported valid")
	}
}

func TestDirectionsOrder(t *testing.T) {
	want := [6]CubeCoord{
		{1, 0, -1}, {1, -1, 0}, {0, -1, 1},
		{-1, 0, 1}, {-1, 1, 0}, {0, 1, -1},
	}
	if Directions != want {
		t.Fatalf("Directions = %v, want %v", Directions, want)
	}
	for i, d := range Directions {
		if !d.Valid() {
			t.Errorf("direction %d %v is not a valid cube vector", i, d)
		}
	}
	if NeighborOffsets(Cube(7, -2)) != Directions {
		t.Error("NeighborOffsets must not depend on the coordinate")
	}
}

func TestNeighborsAreAdjacent(t *testing.T) {
	c := Cube(2, -1)
	seen := map[CubeCoord]bool{}
	for _, n := range c.Neighbors() {
		if Distance(c, n) != 1 || !IsAdjacent(c, n) {
			t.Errorf("neighbor %v of %v is not one step away", n, c)
		}
		if !n.Valid() {
			t.Errorf("neighbor %v is invalid", n)
		}
		seen[n] = true
	}
	if len(seen) != 6 {
		t.Fatalf("expected 6 distinct neighbors, got %d", len(seen))
	}
	if IsAdjacent(c, c) {
		t.Error("a coordinate must not be adjacent to itself")
	}
}

func TestDistanceAndCubeStraightLine(t *testing.T) {
	tests := []struct {
		a, b          CubeCoord
		hex, straight int
	}{
		{Cube(0, 0), Cube(0, 0), 0, 0},
		{Cube(0, 0), Cube(1, 0), 1, 1},
		{Cube(0, 0), Cube(2, -1), 2, 2},
		{Cube(0, 0), Cube(3, 0), 3, 4},
		{Cube(-2, 1), Cube(1, -1), 3, 3},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.hex {
			t.Errorf("Distance(%v,%v) = %d, want %d", tt.a, tt.b, got, tt.hex)
		}
		if got := Distance(tt.b, tt.a); got != tt.hex {
			t.Errorf("Distance is not symmetric for %v,%v", tt.a, tt.b)
		}
		if got := CubeStraightLine(tt.a, tt.b); got != tt.straight {
			t.Errorf("CubeStraightLine(%v,%v) = %d, want %d", tt.a, tt.b, got, tt.straight)
		}
	}
}
