package emath

import (
	"fmt"
	"math"
)

// A FloatGrid is a grid of floats, with some operations. It is how
// every 2D data product (moment maps, SNR maps, PV slices, survey
// images) is held in memory. Pixel [0,0] is the first value in the
// FITS data array, i.e. bottom-left when plotted with origin=lower.
//
// NaN is the invalid/blank sentinel throughout.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFromValues wraps `vals` (not copied), which must be
// laid out in rows of `w`.
func NewFloatGridFromValues(w, h int, vals []float64) (FloatGrid, error) {
	if w <= 0 || h <= 0 {
		return FloatGrid{}, fmt.Errorf("floatgrid: bad dimensions %dx%d", w, h)
	}
	if len(vals) != w*h {
		return FloatGrid{}, fmt.Errorf("floatgrid: %d values for %dx%d grid", len(vals), w, h)
	}
	return FloatGrid{stride: w, values: vals}, nil
}

// NewNaNGrid returns a grid with every value invalid.
func NewNaNGrid(w, h int) FloatGrid {
	g := NewFloatGrid(w, h)
	g.Fill(math.NaN())
	return g
}

func (fg *FloatGrid) Set(x, y int, v float64) { fg.values[fg.stride*y+x] = v }
func (fg *FloatGrid) Get(x, y int) float64    { return fg.values[fg.stride*y+x] }
func (fg *FloatGrid) Dx() int                 { return fg.stride }
func (fg *FloatGrid) Len() int                { return len(fg.values) }
func (fg *FloatGrid) Values() []float64       { return fg.values }

func (fg *FloatGrid) Dy() int {
	if fg.stride == 0 {
		return 0
	}
	return len(fg.values) / fg.stride
}

func (fg *FloatGrid) SameShape(other *FloatGrid) bool {
	return fg.Dx() == other.Dx() && fg.Dy() == other.Dy()
}

func (fg *FloatGrid) Fill(v float64) {
	for i := range fg.values {
		fg.values[i] = v
	}
}

func (g1 *FloatGrid) Copy() *FloatGrid {
	g2 := FloatGrid{stride: g1.stride, values: make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// Bilinear samples the grid at a fractional pixel position, where
// integer positions are pixel centers. Positions up to half a pixel
// beyond the outermost centers are clamped onto the edge. The bool is
// false if the position is off the grid, or any contributing value is
// NaN.
func (fg *FloatGrid) Bilinear(x, y float64) (float64, bool) {
	w, h := float64(fg.Dx()), float64(fg.Dy())
	if math.IsNaN(x) || math.IsNaN(y) || x < -0.5 || y < -0.5 || x > w-0.5 || y > h-0.5 {
		return math.NaN(), false
	}
	x = math.Max(0, math.Min(x, w-1))
	y = math.Max(0, math.Min(y, h-1))

	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := x0+1, y0+1
	if x1 >= fg.Dx() {
		x1 = x0
	}
	if y1 >= fg.Dy() {
		y1 = y0
	}
	fx, fy := x-float64(x0), y-float64(y0)

	v00, v10 := fg.Get(x0, y0), fg.Get(x1, y0)
	v01, v11 := fg.Get(x0, y1), fg.Get(x1, y1)
	if math.IsNaN(v00) || math.IsNaN(v10) || math.IsNaN(v01) || math.IsNaN(v11) {
		return math.NaN(), false
	}

	top := v00*(1-fx) + v10*fx
	bot := v01*(1-fx) + v11*fx
	return top*(1-fy) + bot*fy, true
}

// MinMax ignores NaNs. If there are no finite values, both are NaN.
func (fg *FloatGrid) MinMax() (float64, float64) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range fg.values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if math.IsInf(min, 1) {
		return math.NaN(), math.NaN()
	}
	return min, max
}

// Finite returns a new slice holding just the finite values.
func (fg *FloatGrid) Finite() []float64 {
	return FiniteValues(fg.values)
}

func (fg *FloatGrid) Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}
