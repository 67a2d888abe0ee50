// Package contour traces iso-lines of a 2D scalar field with marching
// squares.
package contour

import "math"

// Field is a 2D scalar field sampled on a regular grid.
type Field interface {
	Dims() (rows, cols int)
	At(r, c int) float64
}

// Point is a position in fractional (row, column) sample coordinates.
type Point struct {
	Row, Col float64
}

// edge identifies a grid edge: horizontal edges join (r, c) and (r, c+1),
// vertical edges join (r, c) and (r+1, c).
type edge struct {
	r, c     int
	vertical bool
}

type segment struct {
	a, b edge
}

func (s segment) other(e edge) edge {
	if s.a == e {
		return s.b
	}
	return s.a
}

// Find returns the iso-lines of f at level as polylines in sample
// coordinates. Samples >= level count as inside. Cells touching a NaN
// sample are skipped. A closed loop repeats its first point at the end.
func Find(f Field, level float64) [][]Point {
	rows, cols := f.Dims()
	if rows < 2 || cols < 2 {
		return nil
	}

	points := make(map[edge]Point)
	at := func(e edge) edge {
		if _, ok := points[e]; ok {
			return e
		}
		a := f.At(e.r, e.c)
		var b float64
		if e.vertical {
			b = f.At(e.r+1, e.c)
		} else {
			b = f.At(e.r, e.c+1)
		}
		t := 0.5
		if b != a {
			t = (level - a) / (b - a)
		}
		if e.vertical {
			points[e] = Point{Row: float64(e.r) + t, Col: float64(e.c)}
		} else {
			points[e] = Point{Row: float64(e.r), Col: float64(e.c) + t}
		}
		return e
	}

	var segs []segment
	add := func(a, b edge) {
		segs = append(segs, segment{at(a), at(b)})
	}

	for r := 0; r < rows-1; r++ {
		for c := 0; c < cols-1; c++ {
			tl, tr := f.At(r, c), f.At(r, c+1)
			bl, br := f.At(r+1, c), f.At(r+1, c+1)
			if math.IsNaN(tl) || math.IsNaN(tr) || math.IsNaN(bl) || math.IsNaN(br) {
				continue
			}

			code := 0
			if tl >= level {
				code |= 8
			}
			if tr >= level {
				code |= 4
			}
			if br >= level {
				code |= 2
			}
			if bl >= level {
				code |= 1
			}

			top := edge{r, c, false}
			bottom := edge{r + 1, c, false}
			left := edge{r, c, true}
			right := edge{r, c + 1, true}

			switch code {
			case 1, 14:
				add(left, bottom)
			case 2, 13:
				add(bottom, right)
			case 3, 12:
				add(left, right)
			case 4, 11:
				add(top, right)
			case 6, 9:
				add(top, bottom)
			case 7, 8:
				add(top, left)
			case 5, 10:
				centerInside := (tl+tr+bl+br)/4 >= level
				// Code 5 has tr and bl inside, code 10 has tl and br inside.
				// Cut off the corners that the cell centre does not join.
				if (code == 5) == centerInside {
					add(left, top)
					add(bottom, right)
				} else {
					add(left, bottom)
					add(top, right)
				}
			}
		}
	}

	return join(segs, points)
}

// join links segments sharing an edge point into polylines. Every edge is
// shared by at most two segments.
func join(segs []segment, points map[edge]Point) [][]Point {
	adj := make(map[edge][]int, len(segs)*2)
	for i, s := range segs {
		adj[s.a] = append(adj[s.a], i)
		adj[s.b] = append(adj[s.b], i)
	}

	used := make([]bool, len(segs))
	trace := func(start int, from edge) []Point {
		line := []Point{points[from]}
		cur, at := start, from
		for {
			used[cur] = true
			next := segs[cur].other(at)
			line = append(line, points[next])
			found := -1
			for _, s := range adj[next] {
				if !used[s] {
					found = s
					break
				}
			}
			if found < 0 {
				return line
			}
			cur, at = found, next
		}
	}

	var lines [][]Point
	// Open chains start at an edge owned by a single segment.
	for i, s := range segs {
		if used[i] {
			continue
		}
		if len(adj[s.a]) == 1 {
			lines = append(lines, trace(i, s.a))
		} else if len(adj[s.b]) == 1 {
			lines = append(lines, trace(i, s.b))
		}
	}
	// Whatever remains forms closed loops.
	for i, s := range segs {
		if !used[i] {
			lines = append(lines, trace(i, s.a))
		}
	}
	return lines
}
