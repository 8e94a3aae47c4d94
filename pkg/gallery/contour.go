package gallery

import (
	"fmt"
	"math"
	"strings"

	"github.com/abworrall/hi-gallery/pkg/emath"
)

// LadderSteps is how many contours every figure draws.
const LadderSteps = 10

// ComputeBaseContour is the median intensity over the pixels whose
// significance lies strictly inside band. Every contour drawn for the
// source is a power-of-two multiple of it.
func ComputeBaseContour(mom0, snr *emath.FloatGrid, band [2]float64) (float64, error) {
	if !mom0.SameShape(snr) {
		return 0, fmt.Errorf("%w: intensity map is %dx%d but significance map is %dx%d", ErrValidation,
			mom0.Dx(), mom0.Dy(), snr.Dx(), snr.Dy())
	}
	if !(band[0] < band[1]) {
		return 0, fmt.Errorf("%w: significance band (%v,%v) is empty", ErrValidation, band[0], band[1])
	}

	inBand := []float64{}
	sv, iv := snr.Values(), mom0.Values()
	for i := range sv {
		if sv[i] > band[0] && sv[i] < band[1] {
			inBand = append(inBand, iv[i])
		}
	}

	c := emath.Median(inBand)
	if math.IsNaN(c) {
		return 0, fmt.Errorf("%w: no pixels with significance in (%v,%v)", ErrValidation, band[0], band[1])
	}
	return c, nil
}

// ContourLadder is {c, 2c, 4c, ...}, LadderSteps long.
func ContourLadder(c float64) []float64 {
	levels := make([]float64, LadderSteps)
	for i := range levels {
		levels[i] = c * math.Pow(2, float64(i))
	}
	return levels
}

// SBR2NHI turns a moment-0 surface brightness into an HI column density
// (cm^-2) for a beam of bmaj x bmin arcsec. The bool is false when the
// units are not understood, and the value is returned unconverted.
func SBR2NHI(sbr float64, bunit string, bmaj, bmin float64) (float64, bool) {
	switch strings.ToLower(strings.ReplaceAll(bunit, " ", "")) {
	case "jy/beam*m/s", "beam-1jy*m/s", "jy/beam*m*s-1":
		return 1.104e21 * sbr / bmaj / bmin, true
	case "jy/beam*hz", "beam-1jy*hz":
		return 2.330e20 * sbr / bmaj / bmin, true
	}
	return sbr, false
}

// NHILabel labels the first four contours in units of 1e19 cm^-2.
func NHILabel(nhi float64) string {
	n := nhi / 1e19
	return fmt.Sprintf("N_HI = %.1f, %.1f, %.0f, %.0fe+19", n, n*2, n*4, n*8)
}

// NHILabelSingle labels just the base contour.
func NHILabelSingle(nhi float64) string {
	return fmt.Sprintf("N_HI = %.1fe+19", nhi/1e19)
}
