package wcs

import (
	"fmt"

	"github.com/abworrall/hi-gallery/pkg/product"
)

// Linear1D is a single linear axis, as used by the offset and spectral
// axes of a PV slice: world = CRVAL + CDELT*(p+1-CRPIX), p 0-based.
type Linear1D struct {
	CType string
	CUnit string
	CRPIX float64
	CRVAL float64
	CDELT float64
	N     int
}

// AxisFromHeader reads axis `n` (1-based, as in the FITS keywords).
func AxisFromHeader(h product.Header, n int) (Linear1D, error) {
	key := func(k string) string { return fmt.Sprintf("%s%d", k, n) }

	a := Linear1D{
		CType: h.StrOr(key("CTYPE"), ""),
		CUnit: h.StrOr(key("CUNIT"), ""),
		CRPIX: h.FloatOr(key("CRPIX"), 1),
		CRVAL: h.FloatOr(key("CRVAL"), 0),
		CDELT: h.FloatOr(key("CDELT"), 0),
	}
	a.N, _ = h.Int(key("NAXIS"))

	if a.CDELT == 0 {
		return a, fmt.Errorf("wcs: axis %d has no usable CDELT", n)
	}
	return a, nil
}

func (a Linear1D) PixToWorld(p float64) float64 { return a.CRVAL + a.CDELT*(p+1-a.CRPIX) }
func (a Linear1D) WorldToPix(v float64) float64 { return (v-a.CRVAL)/a.CDELT + a.CRPIX - 1 }

// Extent is the world range covered by the outer edges of the first and last pixels.
func (a Linear1D) Extent() (float64, float64) {
	return a.PixToWorld(-0.5), a.PixToWorld(float64(a.N) - 0.5)
}
