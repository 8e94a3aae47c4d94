// Package wcs maps between pixel positions and sky positions, using the
// world coordinate keywords in a FITS header.
//
// Only the zenithal projections that the image services and the source
// finder actually write (TAN, SIN, ARC) are supported. Pixel positions
// are 0-based throughout: pixel (0,0) is FITS pixel (1,1).
package wcs

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/abworrall/hi-gallery/pkg/emath"
	"github.com/abworrall/hi-gallery/pkg/product"
	"github.com/abworrall/hi-gallery/pkg/skycoord"
)

var ErrUnsupportedProjection = errors.New("unsupported projection")

type Projection string

const (
	TAN Projection = "TAN"
	SIN Projection = "SIN"
	ARC Projection = "ARC"
)

// A WCS is the celestial part of a 2D (or higher) image header.
type WCS struct {
	Proj    Projection
	CRVAL   [2]float64 // deg
	Frame   skycoord.Frame
	NAXIS   [2]int
	LonPole float64

	pix2int emath.Aff3 // 0-based pixel -> intermediate world coords, deg
	int2pix emath.Aff3
}

// FromHeader builds the WCS; the linear part comes from CDi_j if present,
// else PCi_j x CDELTi, else CDELTi with CROTA2.
func FromHeader(h product.Header) (*WCS, error) {
	ctype1 := h.StrOr("CTYPE1", "")
	ctype2 := h.StrOr("CTYPE2", "")
	if !strings.HasPrefix(ctype1, "RA") || !strings.HasPrefix(ctype2, "DEC") {
		return nil, fmt.Errorf("wcs: need RA/DEC axes, got '%s','%s': %w", ctype1, ctype2, ErrUnsupportedProjection)
	}

	proj := Projection(projCode(ctype1))
	switch proj {
	case TAN, SIN, ARC:
	default:
		return nil, fmt.Errorf("wcs: projection '%s': %w", ctype1, ErrUnsupportedProjection)
	}

	w := WCS{
		Proj:    proj,
		CRVAL:   [2]float64{h.FloatOr("CRVAL1", math.NaN()), h.FloatOr("CRVAL2", math.NaN())},
		LonPole: h.FloatOr("LONPOLE", 180.0),
	}
	if !emath.IsFinite(w.CRVAL[0]) || !emath.IsFinite(w.CRVAL[1]) {
		return nil, fmt.Errorf("wcs: missing CRVAL1/CRVAL2")
	}
	w.NAXIS[0], _ = h.Int("NAXIS1")
	w.NAXIS[1], _ = h.Int("NAXIS2")

	crpix1, crpix2 := h.FloatOr("CRPIX1", 0), h.FloatOr("CRPIX2", 0)
	cd, err := linearMatrix(h)
	if err != nil {
		return nil, err
	}

	// Remember they compose back to front: shift to FITS 1-based, offset from CRPIX, then scale/rotate
	w.pix2int = cd.Translate(1-crpix1, 1-crpix2)
	if w.int2pix, err = w.pix2int.Invert(); err != nil {
		return nil, fmt.Errorf("wcs: singular CD matrix: %w", err)
	}

	equinox := h.FloatOr("EQUINOX", h.FloatOr("EPOCH", 0))
	if w.Frame, err = skycoord.ParseFrame(h.StrOr("RADESYS", h.StrOr("RADECSYS", "")), equinox); err != nil {
		return nil, fmt.Errorf("wcs: %w", err)
	}

	return &w, nil
}

// "RA---TAN" -> "TAN"
func projCode(ctype string) string {
	if len(ctype) < 5 {
		return ""
	}
	return strings.TrimSpace(strings.TrimLeft(ctype[4:], "-"))
}

func linearMatrix(h product.Header) (emath.Aff3, error) {
	if h.Has("CD1_1") || h.Has("CD2_2") {
		return emath.Aff3{
			h.FloatOr("CD1_1", 0), h.FloatOr("CD1_2", 0), 0,
			h.FloatOr("CD2_1", 0), h.FloatOr("CD2_2", 0), 0,
		}, nil
	}

	cdelt1, ok1 := h.Float("CDELT1")
	cdelt2, ok2 := h.Float("CDELT2")
	if !ok1 || !ok2 {
		return emath.Aff3{}, fmt.Errorf("wcs: no CD matrix and no CDELT1/CDELT2")
	}

	if h.Has("PC1_1") || h.Has("PC1_2") || h.Has("PC2_1") || h.Has("PC2_2") || !h.Has("CROTA2") {
		return emath.Aff3{
			cdelt1 * h.FloatOr("PC1_1", 1), cdelt1 * h.FloatOr("PC1_2", 0), 0,
			cdelt2 * h.FloatOr("PC2_1", 0), cdelt2 * h.FloatOr("PC2_2", 1), 0,
		}, nil
	}

	rho := emath.Deg2Rad(h.FloatOr("CROTA2", 0))
	return emath.Aff3{
		cdelt1 * math.Cos(rho), -cdelt2 * math.Sin(rho), 0,
		cdelt1 * math.Sin(rho), cdelt2 * math.Cos(rho), 0,
	}, nil
}

// PixelScale is the geometric mean pixel size, in arcsec.
func (w *WCS) PixelScale() float64 {
	det := w.pix2int[0]*w.pix2int[4] - w.pix2int[1]*w.pix2int[3]
	return math.Sqrt(math.Abs(det)) * 3600.0
}

// PixToWorld maps a 0-based pixel position to RA/Dec in degrees, in the
// WCS's own frame. The bool is false where the projection is undefined.
func (w *WCS) PixToWorld(px, py float64) (float64, float64, bool) {
	x, y := w.pix2int.Apply(px, py)
	r := math.Hypot(x, y)

	var theta float64 // rad
	switch w.Proj {
	case TAN:
		theta = math.Atan2(180.0/math.Pi, r)
	case SIN:
		s := emath.Deg2Rad(r)
		if s > 1 {
			return math.NaN(), math.NaN(), false
		}
		theta = math.Acos(s)
	case ARC:
		theta = emath.Deg2Rad(90.0 - r)
	}
	phi := math.Atan2(x, -y)

	ra, dec := w.nativeToCelestial(phi, theta)
	return ra, dec, true
}

// WorldToPix maps RA/Dec (degrees, in the WCS's frame) to a 0-based pixel position.
func (w *WCS) WorldToPix(ra, dec float64) (float64, float64, bool) {
	phi, theta := w.celestialToNative(ra, dec)

	var r float64 // deg
	switch w.Proj {
	case TAN:
		if theta <= 0 {
			return math.NaN(), math.NaN(), false
		}
		r = emath.Rad2Deg(math.Cos(theta) / math.Sin(theta))
	case SIN:
		if theta < 0 {
			return math.NaN(), math.NaN(), false
		}
		r = emath.Rad2Deg(math.Cos(theta))
	case ARC:
		r = 90.0 - emath.Rad2Deg(theta)
	}

	x, y := r*math.Sin(phi), -r*math.Cos(phi)
	px, py := w.int2pix.Apply(x, y)
	return px, py, true
}

func (w *WCS) nativeToCelestial(phi, theta float64) (float64, float64) {
	ap, dp := emath.Deg2Rad(w.CRVAL[0]), emath.Deg2Rad(w.CRVAL[1])
	dphi := phi - emath.Deg2Rad(w.LonPole)

	a := ap + math.Atan2(-math.Cos(theta)*math.Sin(dphi),
		math.Sin(theta)*math.Cos(dp)-math.Cos(theta)*math.Sin(dp)*math.Cos(dphi))
	d := math.Asin(clampUnit(math.Sin(theta)*math.Sin(dp) + math.Cos(theta)*math.Cos(dp)*math.Cos(dphi)))

	return emath.WrapDegrees(emath.Rad2Deg(a)), emath.Rad2Deg(d)
}

func (w *WCS) celestialToNative(ra, dec float64) (float64, float64) {
	ap, dp := emath.Deg2Rad(w.CRVAL[0]), emath.Deg2Rad(w.CRVAL[1])
	a, d := emath.Deg2Rad(ra), emath.Deg2Rad(dec)
	da := a - ap

	phi := emath.Deg2Rad(w.LonPole) + math.Atan2(-math.Cos(d)*math.Sin(da),
		math.Sin(d)*math.Cos(dp)-math.Cos(d)*math.Sin(dp)*math.Cos(da))
	theta := math.Asin(clampUnit(math.Sin(d)*math.Sin(dp) + math.Cos(d)*math.Cos(dp)*math.Cos(da)))

	return phi, theta
}

func clampUnit(f float64) float64 { return math.Max(-1, math.Min(1, f)) }

func (w *WCS) String() string {
	return fmt.Sprintf("wcs[%s %s crval=(%.5f,%.5f) %dx%d %.3f\"/pix]", w.Proj, w.Frame,
		w.CRVAL[0], w.CRVAL[1], w.NAXIS[0], w.NAXIS[1], w.PixelScale())
}
