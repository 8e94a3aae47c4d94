package gallery

import (
	"fmt"
	"math"

	"github.com/abworrall/hi-gallery/pkg/emath"
)

// fovMargin is the fraction added around a source that outgrows the default field.
const fovMargin = 1.05

// Extent is the largest distance (arcmin) from the source centroid to
// the edge of its bounding box, over both spatial axes.
func Extent(s *Source, cellSize float64) (float64, error) {
	if !emath.IsFinite(cellSize) || cellSize <= 0 {
		return 0, fmt.Errorf("%w: cell size %v", ErrValidation, cellSize)
	}

	vals := []float64{s.X, s.XMin, s.XMax, s.Y, s.YMin, s.YMax}
	for _, v := range vals {
		if !emath.IsFinite(v) {
			return 0, fmt.Errorf("%w: source %d bounding box has non-finite values %v", ErrValidation, s.ID, vals)
		}
	}
	if s.XMax < s.XMin || s.YMax < s.YMin {
		return 0, fmt.Errorf("%w: source %d bounding box is inside out %v", ErrValidation, s.ID, vals)
	}

	ext := math.Max(
		math.Max(s.XMax-s.X, s.X-s.XMin),
		math.Max(s.YMax-s.Y, s.Y-s.YMin),
	)
	return ext * cellSize / 60.0, nil
}

// ResolveFieldOfView returns the default field (arcmin), unless the
// source extends beyond half of it, in which case the field is twice the
// extent plus a margin.
func ResolveFieldOfView(s *Source, cellSize, def float64) (float64, error) {
	if !emath.IsFinite(def) || def <= 0 {
		return 0, fmt.Errorf("%w: default field of view %v", ErrValidation, def)
	}

	ext, err := Extent(s, cellSize)
	if err != nil {
		return 0, err
	}

	if ext > def/2.0 {
		return 2.0 * ext * fovMargin, nil
	}
	return def, nil
}
