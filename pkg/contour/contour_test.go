package contour

import (
	"math"
	"testing"
)

type grid struct {
	rows, cols int
	data       []float64
}

func (g grid) Dims() (int, int)        { return g.rows, g.cols }
func (g grid) At(r, c int) float64     { return g.data[r*g.cols+c] }
func newGrid(rows, cols int) grid      { return grid{rows, cols, make([]float64, rows*cols)} }
func (g grid) set(r, c int, v float64) { g.data[r*g.cols+c] = v }

// TestFindSquare traces a 3x3 block of ones inside a field of zeros.
func TestFindSquare(t *testing.T) {
	g := newGrid(5, 5)
	for r := 1; r <= 3; r++ {
		for c := 1; c <= 3; c++ {
			g.set(r, c, 1)
		}
	}

	lines := Find(g, 0.5)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 contour, got %d", len(lines))
	}
	line := lines[0]
	if line[0] != line[len(line)-1] {
		t.Errorf("Expected closed loop, first %v last %v", line[0], line[len(line)-1])
	}
	// One crossing per edge leaving the block, plus the repeated start.
	if len(line) != 13 {
		t.Errorf("Expected 13 points, got %d", len(line))
	}
	for _, p := range line {
		if p.Row < 0.5 || p.Row > 3.5 || p.Col < 0.5 || p.Col > 3.5 {
			t.Errorf("Point %v outside the expected boundary box", p)
		}
	}
}

// TestFindOpenLine traces a vertical step edge running off the grid.
func TestFindOpenLine(t *testing.T) {
	g := newGrid(3, 4)
	for r := 0; r < 3; r++ {
		g.set(r, 0, 1)
		g.set(r, 1, 1)
	}

	lines := Find(g, 0.5)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 contour, got %d", len(lines))
	}
	if len(lines[0]) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(lines[0]))
	}
	for _, p := range lines[0] {
		if p.Col != 1.5 {
			t.Errorf("Expected column 1.5, got %v", p)
		}
	}
}

func TestFindInterpolates(t *testing.T) {
	g := newGrid(2, 2)
	g.set(0, 0, 0)
	g.set(0, 1, 4)
	g.set(1, 0, 0)
	g.set(1, 1, 4)

	lines := Find(g, 1)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 contour, got %d", len(lines))
	}
	for _, p := range lines[0] {
		if math.Abs(p.Col-0.25) > 1e-12 {
			t.Errorf("Expected column 0.25, got %v", p)
		}
	}
}

func TestFindSaddle(t *testing.T) {
	g := newGrid(2, 2)
	g.set(0, 0, 1)
	g.set(1, 1, 1)

	// Mean 0.5 is inside at level 0.5, so the two ones join.
	if lines := Find(g, 0.5); len(lines) != 2 {
		t.Errorf("Expected 2 contours through the saddle, got %d", len(lines))
	}
}

func TestFindSkipsNaN(t *testing.T) {
	g := newGrid(3, 3)
	for i := range g.data {
		g.data[i] = math.NaN()
	}
	g.set(1, 1, 1)
	if lines := Find(g, 0.5); len(lines) != 0 {
		t.Errorf("Expected no contours, got %d", len(lines))
	}

	if lines := Find(newGrid(1, 5), 0.5); lines != nil {
		t.Errorf("Expected nil for a single row, got %v", lines)
	}
}

func TestFindUniform(t *testing.T) {
	g := newGrid(4, 4)
	if lines := Find(g, 0.5); len(lines) != 0 {
		t.Errorf("Expected no contours in a flat field, got %d", len(lines))
	}
}
