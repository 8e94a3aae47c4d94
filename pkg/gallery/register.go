package gallery

import (
	"fmt"
	"math"

	"github.com/abworrall/hi-gallery/pkg/emath"
	"github.com/abworrall/hi-gallery/pkg/product"
	"github.com/abworrall/hi-gallery/pkg/skycoord"
	"github.com/abworrall/hi-gallery/pkg/wcs"
)

// Registered is a product resampled onto a target grid. Footprint marks
// the target pixels that fall on the product's own grid; outside it the
// value is NaN.
type Registered struct {
	Grid      emath.FloatGrid
	Footprint []bool
	WCS       *wcs.WCS
}

func (r *Registered) Covered(x, y int) bool { return r.Footprint[y*r.Grid.Dx()+x] }

// Reproject resamples p onto the grid defined by the target header,
// using bilinear interpolation between the two world coordinate systems.
func Reproject(p *product.Product, target product.Header) (*Registered, error) {
	srcWCS, err := wcs.FromHeader(p.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: product '%s': %v", ErrValidation, p.Path, err)
	}
	dstWCS, err := wcs.FromHeader(target)
	if err != nil {
		return nil, fmt.Errorf("%w: target grid: %v", ErrValidation, err)
	}
	return ReprojectGrid(&p.Grid, srcWCS, dstWCS)
}

// ReprojectGrid is Reproject with the coordinate systems already built.
func ReprojectGrid(src *emath.FloatGrid, srcWCS, dstWCS *wcs.WCS) (*Registered, error) {
	nx, ny := dstWCS.NAXIS[0], dstWCS.NAXIS[1]
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: target grid has no size (%dx%d)", ErrValidation, nx, ny)
	}

	reg := Registered{
		Grid:      emath.NewNaNGrid(nx, ny),
		Footprint: make([]bool, nx*ny),
		WCS:       dstWCS,
	}
	w, h := float64(src.Dx()), float64(src.Dy())

	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			sx, sy, ok := mapPixel(srcWCS, dstWCS, float64(x), float64(y))
			if !ok || sx < -0.5 || sy < -0.5 || sx > w-0.5 || sy > h-0.5 {
				continue
			}
			reg.Footprint[y*nx+x] = true
			if v, ok := src.Bilinear(sx, sy); ok {
				reg.Grid.Set(x, y, v)
			}
		}
	}

	return &reg, nil
}

// mapPixel takes a pixel on dst's grid to the same spot on src's grid.
func mapPixel(src, dst *wcs.WCS, x, y float64) (float64, float64, bool) {
	ra, dec, ok := dst.PixToWorld(x, y)
	if !ok {
		return math.NaN(), math.NaN(), false
	}
	if src.Frame != dst.Frame {
		c := skycoord.Coord{RA: ra, Dec: dec, Frame: dst.Frame}.Convert(src.Frame)
		ra, dec = c.RA, c.Dec
	}
	return src.WorldToPix(ra, dec)
}

// MaskBelow blanks every pixel of r where the co-registered intensity is
// below c, or is itself blank.
func MaskBelow(r, intensity *Registered, c float64) error {
	if !r.Grid.SameShape(&intensity.Grid) {
		return fmt.Errorf("%w: cannot mask a %dx%d grid with a %dx%d one", ErrValidation,
			r.Grid.Dx(), r.Grid.Dy(), intensity.Grid.Dx(), intensity.Grid.Dy())
	}

	vals := r.Grid.Values()
	for i, iv := range intensity.Grid.Values() {
		if !(iv >= c) {
			vals[i] = math.NaN()
		}
	}
	return nil
}

// SkyToPixel places an ICRS position on a grid.
func SkyToPixel(w *wcs.WCS, ra, dec float64) (float64, float64, bool) {
	c := skycoord.FromICRS(ra, dec, w.Frame)
	return w.WorldToPix(c.RA, c.Dec)
}

// PixelToICRS is the inverse of SkyToPixel.
func PixelToICRS(w *wcs.WCS, x, y float64) (float64, float64, bool) {
	ra, dec, ok := w.PixToWorld(x, y)
	if !ok {
		return ra, dec, false
	}
	c := skycoord.Coord{RA: ra, Dec: dec, Frame: w.Frame}.ToICRS()
	return c.RA, c.Dec, true
}

// gridTransform maps pixel positions on src's grid onto dst's grid, for
// drawing contours traced on one grid over an image on another.
func gridTransform(src, dst *wcs.WCS) func(emath.Point) (emath.Point, bool) {
	return func(p emath.Point) (emath.Point, bool) {
		x, y, ok := mapPixel(dst, src, p.X, p.Y)
		return emath.Point{X: x, Y: y}, ok
	}
}
