package emath

import "math"

type Point struct {
	X, Y float64
}

// A Segment is one straight piece of a contour line, in pixel coordinates.
type Segment struct {
	A, B Point
}

// Contour traces the iso-line at `level` through the grid using
// marching squares, and returns the line segments. Cells touching a
// NaN are skipped, so contours stop at the edge of valid data.
// Saddle cells are disambiguated by the mean of the four corners.
func Contour(g *FloatGrid, level float64) []Segment {
	segs := []Segment{}
	if math.IsNaN(level) {
		return segs
	}

	for y := 0; y < g.Dy()-1; y++ {
		for x := 0; x < g.Dx()-1; x++ {
			v0 := g.Get(x, y)     // bottom-left
			v1 := g.Get(x+1, y)   // bottom-right
			v2 := g.Get(x+1, y+1) // top-right
			v3 := g.Get(x, y+1)   // top-left
			if math.IsNaN(v0) || math.IsNaN(v1) || math.IsNaN(v2) || math.IsNaN(v3) {
				continue
			}

			idx := 0
			if v0 >= level {
				idx |= 1
			}
			if v1 >= level {
				idx |= 2
			}
			if v2 >= level {
				idx |= 4
			}
			if v3 >= level {
				idx |= 8
			}
			if idx == 0 || idx == 15 {
				continue
			}

			fx, fy := float64(x), float64(y)
			bottom := Point{fx + frac(v0, v1, level), fy}
			right := Point{fx + 1, fy + frac(v1, v2, level)}
			top := Point{fx + frac(v3, v2, level), fy + 1}
			left := Point{fx, fy + frac(v0, v3, level)}

			switch idx {
			case 1, 14:
				segs = append(segs, Segment{left, bottom})
			case 2, 13:
				segs = append(segs, Segment{bottom, right})
			case 3, 12:
				segs = append(segs, Segment{left, right})
			case 4, 11:
				segs = append(segs, Segment{right, top})
			case 6, 9:
				segs = append(segs, Segment{bottom, top})
			case 7, 8:
				segs = append(segs, Segment{left, top})
			case 5, 10:
				center := (v0 + v1 + v2 + v3) / 4.0
				if (center >= level) == (idx == 5) {
					segs = append(segs, Segment{left, top}, Segment{bottom, right})
				} else {
					segs = append(segs, Segment{left, bottom}, Segment{right, top})
				}
			}
		}
	}

	return segs
}

// frac is where between a and b the level crossing lies.
func frac(a, b, level float64) float64 {
	if a == b {
		return 0.5
	}
	return Clamp01((level - a) / (b - a))
}
