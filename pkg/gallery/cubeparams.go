package gallery

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/abworrall/hi-gallery/pkg/product"
	"github.com/abworrall/hi-gallery/pkg/skycoord"
	"github.com/abworrall/hi-gallery/pkg/spectral"
)

// Beam sizes in arcsec, position angle in degrees.
type Beam struct {
	Major, Minor float64
	PA           float64
}

// CubeParams are read from the source's cubelet header, once.
type CubeParams struct {
	Beam           Beam
	BeamFromHeader bool

	CellSize  float64 // arcsec per pixel
	ChanWidth float64 // Hz or m/s
	SpecAxis  string  // first four chars of CTYPE3, e.g. FREQ, VRAD
	Frame     skycoord.Frame
	SpecSys   string        // e.g. BARYCENT
	Spectral  spectral.Axis // in Hz or m/s
	BUnit     string
}

// Patch is the size of the beam ellipse as fractions of a field `fov`
// arcmin across.
func (cp CubeParams) Patch(fov float64) (width, height float64) {
	return cp.Beam.Minor / (fov * 60.0), cp.Beam.Major / (fov * 60.0)
}

func (cp CubeParams) String() string {
	return fmt.Sprintf("cube[beam=%.1fx%.1f\"@%.0f cell=%.2f\" chan=%g %s %s %s]", cp.Beam.Major, cp.Beam.Minor,
		cp.Beam.PA, cp.CellSize, cp.ChanWidth, cp.SpecAxis, cp.Frame, cp.SpecSys)
}

// fallbackBeamPixels is the beam size assumed, in pixels, when neither
// the header nor the configuration gives one.
const fallbackBeamPixels = 3.5

// LoadCubeParams interprets a cubelet header. A non-empty beamOverride
// (arcsec, arcsec, deg) wins over the header: one value is a circular
// beam, two are major and minor, a third is the PA.
func LoadCubeParams(ctx context.Context, h product.Header, beamOverride []float64) (CubeParams, error) {
	log := zerolog.Ctx(ctx)
	cp := CubeParams{}

	cdelt1, ok := h.Float("CDELT1")
	if !ok {
		cdelt1, ok = h.Float("CDELT2")
	}
	if !ok || cdelt1 == 0 || math.IsNaN(cdelt1) {
		return cp, fmt.Errorf("%w: cube header has no usable CDELT1/CDELT2", ErrValidation)
	}
	cp.CellSize = math.Abs(cdelt1) * 3600.0

	ctype3 := strings.ToUpper(h.StrOr("CTYPE3", ""))
	if len(ctype3) > 4 {
		ctype3 = ctype3[:4]
	}
	cp.SpecAxis = strings.TrimRight(ctype3, "-")

	scale, err := spectralUnitScale(h.StrOr("CUNIT3", ""), cp.SpecAxis)
	if err != nil {
		return cp, err
	}
	cdelt3, ok := h.Float("CDELT3")
	if !ok || cdelt3 == 0 {
		return cp, fmt.Errorf("%w: cube header has no usable CDELT3", ErrValidation)
	}
	cp.ChanWidth = cdelt3 * scale
	cp.Spectral = spectral.Axis{
		CRPIX: h.FloatOr("CRPIX3", 1),
		CRVAL: h.FloatOr("CRVAL3", 0) * scale,
		CDELT: cp.ChanWidth,
		Unit:  h.StrOr("CUNIT3", ""),
	}

	radesys := h.StrOr("RADESYS", h.StrOr("RADECSYS", ""))
	equinox := h.FloatOr("EQUINOX", h.FloatOr("EPOCH", 0))
	if cp.Frame, err = skycoord.ParseFrame(radesys, equinox); err != nil {
		return cp, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	cp.SpecSys = h.StrOr("SPECSYS", h.StrOr("SPECSYS3", ""))
	cp.BUnit = h.StrOr("BUNIT", "")

	switch len(beamOverride) {
	case 0:
		bmaj, okMaj := h.Float("BMAJ")
		bmin, okMin := h.Float("BMIN")
		if okMaj && okMin {
			cp.Beam = Beam{Major: bmaj * 3600.0, Minor: bmin * 3600.0, PA: h.FloatOr("BPA", 0)}
			cp.BeamFromHeader = true
		} else {
			b := fallbackBeamPixels * cp.CellSize
			cp.Beam = Beam{Major: b, Minor: b}
			log.Warn().Float64("beam_arcsec", b).Msg("no beam in cube header; assuming 3.5x3.5 pixels")
		}
	case 1:
		cp.Beam = Beam{Major: beamOverride[0], Minor: beamOverride[0]}
	case 2:
		cp.Beam = Beam{Major: beamOverride[0], Minor: beamOverride[1]}
	case 3:
		cp.Beam = Beam{Major: beamOverride[0], Minor: beamOverride[1], PA: beamOverride[2]}
	default:
		return cp, fmt.Errorf("%w: beam override takes 1-3 values, got %d", ErrValidation, len(beamOverride))
	}

	if !(cp.Beam.Major > 0) || !(cp.Beam.Minor > 0) {
		return cp, fmt.Errorf("%w: beam %.2fx%.2f is not positive", ErrValidation, cp.Beam.Major, cp.Beam.Minor)
	}

	return cp, nil
}

// spectralUnitScale converts CUNIT3 values into SI (Hz, m/s).
func spectralUnitScale(cunit, specAxis string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(cunit)) {
	case "":
		// FITS default units are SI
		return 1, nil
	case "hz", "m/s", "m s-1":
		return 1, nil
	case "khz":
		return 1e3, nil
	case "mhz":
		return 1e6, nil
	case "ghz":
		return 1e9, nil
	case "km/s", "km s-1":
		return 1e3, nil
	}
	return 0, fmt.Errorf("%w: spectral unit '%s' (%s) not supported", ErrValidation, cunit, specAxis)
}

// CubePath is where the source finder put the source's cubelet.
func CubePath(base string, id, sofiaVersion int) string {
	if sofiaVersion == 1 {
		return fmt.Sprintf("%s_%d.fits", base, id)
	}
	return fmt.Sprintf("%s_%d_cube.fits", base, id)
}

// ProductPath is e.g. "<base>_<id>_mom0.fits".
func ProductPath(base string, id int, kind string) string {
	return fmt.Sprintf("%s_%d_%s.fits", base, id, kind)
}
