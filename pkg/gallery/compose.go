package gallery

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/abworrall/hi-gallery/pkg/emath"
	"github.com/abworrall/hi-gallery/pkg/product"
	"github.com/abworrall/hi-gallery/pkg/render"
	"github.com/abworrall/hi-gallery/pkg/skycoord"
	"github.com/abworrall/hi-gallery/pkg/spectral"
	"github.com/abworrall/hi-gallery/pkg/survey"
	"github.com/abworrall/hi-gallery/pkg/wcs"
)

// Figure kinds, as they appear in output filenames.
const (
	KindOverlay = "mom0" // followed by the survey tag
	KindMom0    = "mom0hi"
	KindSNR     = "snr"
	KindMom1    = "mom1"
	KindPV      = "pv"
)

// composer holds what every figure of one source shares, so they all
// agree on the contour ladder, beam and spectral regime.
type composer struct {
	src    *Source
	params CubeParams
	regime spectral.Regime
	conv   spectral.Converter

	base   float64 // lowest contour, mom0 units
	levels []float64
	nhi    float64 // base contour as a column density
}

func newComposer(src *Source, cp CubeParams, regime spectral.Regime, conv spectral.Converter, base float64) *composer {
	nhi, _ := SBR2NHI(base, cp.BUnit, cp.Beam.Major, cp.Beam.Minor)
	return &composer{
		src:    src,
		params: cp,
		regime: regime,
		conv:   conv,
		base:   base,
		levels: ContourLadder(base),
		nhi:    nhi,
	}
}

var (
	white  = render.MustColor("white")
	black  = render.MustColor("black")
	orange = render.MustColor("orange")
)

func (c *composer) newSkyFigure(w *wcs.WCS) *render.Figure {
	fig := render.NewFigure(c.src.Name)
	fig.TitleSize = 20
	fig.Bottom.Label = "RA (ICRS)"
	fig.Left.Label = "Dec (ICRS)"
	fig.Bottom.Ticks, fig.Left.Ticks = skyTicks(w)
	return fig
}

// skyTicks spreads five ticks along each axis, labelled with the ICRS
// coordinate through the middle of the grid.
func skyTicks(w *wcs.WCS) ([]render.Tick, []render.Tick) {
	nx, ny := float64(w.NAXIS[0]), float64(w.NAXIS[1])
	ra, dec := []render.Tick{}, []render.Tick{}
	for _, f := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		x := f*nx - 0.5
		if r, _, ok := PixelToICRS(w, x, (ny-1)/2); ok {
			ra = append(ra, render.Tick{Pos: x, Label: skycoord.FormatRA(r)})
		}
		y := f*ny - 0.5
		if _, d, ok := PixelToICRS(w, (nx-1)/2, y); ok {
			dec = append(dec, render.Tick{Pos: y, Label: skycoord.FormatDec(d)})
		}
	}
	return ra, dec
}

func (c *composer) addMarker(fig *render.Figure, w *wcs.WCS, col color.Color) {
	if x, y, ok := SkyToPixel(w, c.src.RA, c.src.Dec); ok {
		fig.Markers = append(fig.Markers, render.Marker{X: x, Y: y, Style: render.MarkerCross, Size: 14, Color: col, Width: 1.5})
	}
}

func (c *composer) addBeam(fig *render.Figure, fov float64, face, edge color.Color) {
	width, height := c.params.Patch(fov)
	fig.Ellipses = append(fig.Ellipses, render.Ellipse{
		X: 0.92, Y: 0.9,
		Width: width, Height: height,
		Angle: c.params.Beam.PA,
		Face:  face, Edge: edge,
	})
}

func addLabel(fig *render.Figure, s string, col color.Color) {
	fig.Texts = append(fig.Texts, render.Text{S: s, X: 0.5, Y: 0.05, Coords: render.AxesCoords, Color: col, Size: 18, AX: 0.5, AY: 0.5})
}

func colorbar(cmap render.Colormap, norm emath.LinearNorm, label string) *render.Colorbar {
	return &render.Colorbar{Cmap: cmap, Norm: norm, Label: label, Ticks: render.NiceTicks(norm.Min, norm.Max, 5)}
}

// composeOverlay draws the intensity contours over one survey image, on
// that survey's own grid.
func (c *composer) composeOverlay(img *survey.Image, mom0 *product.Product) (*render.Figure, error) {
	imgWCS, err := wcs.FromHeader(img.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: %s header: %v", ErrValidation, img.Survey, err)
	}
	mom0WCS, err := wcs.FromHeader(mom0.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", ErrValidation, mom0.Path, err)
	}

	fig := c.newSkyFigure(imgWCS)
	contourCols := render.LevelColors(render.MustColormap("oranges"), c.levels)

	if img.IsColor() {
		reg, err := ReprojectGrid(&mom0.Grid, mom0WCS, imgWCS)
		if err != nil {
			return nil, err
		}
		fig.Base = render.Base{Image: img.Color}
		fig.AddContours(&reg.Grid, c.levels, contourCols, 1, nil)
		c.addMarker(fig, imgWCS, white)
		addLabel(fig, NHILabel(c.nhi), white)
		c.addBeam(fig, img.FieldOfView, nil, render.MustColor("lightgray"))
		return fig, nil
	}

	if img.Grid == nil {
		return nil, fmt.Errorf("%w: %s returned neither pixels nor a color image", ErrValidation, img.Survey)
	}

	vals := img.Grid.Values()
	if strings.EqualFold(img.Survey, survey.NameHST) {
		fig.Base = render.Base{
			Grid: img.Grid,
			Cmap: render.MustColormap("greys"),
			Norm: emath.PowerNorm{Gamma: 0.25, Min: emath.Percentile(vals, 20), Max: emath.Percentile(vals, 99.5)},
		}
	} else {
		fig.Base = render.Base{Grid: img.Grid, Cmap: render.MustColormap("viridis"), Norm: emath.PercentileNorm(vals, 10, 99.8)}
	}

	// Trace on the product's own grid, then move the lines onto the survey's
	fig.AddContours(&mom0.Grid, c.levels, contourCols, 1, gridTransform(mom0WCS, imgWCS))
	c.addMarker(fig, imgWCS, black)
	addLabel(fig, NHILabel(c.nhi), white)
	c.addBeam(fig, img.FieldOfView, nil, white)
	return fig, nil
}

// composeMom0 is the greyscale intensity map on the primary grid.
func (c *composer) composeMom0(mom0 *Registered, fov float64) *render.Figure {
	fig := c.newSkyFigure(mom0.WCS)
	lo, hi := mom0.Grid.MinMax()
	norm := emath.LinearNorm{Min: lo, Max: hi}
	cmap := render.MustColormap("gray_r")

	fig.Base = render.Base{Grid: &mom0.Grid, Cmap: cmap, Norm: norm}
	fig.AddContours(&mom0.Grid, c.levels, render.LevelColors(render.MustColormap("oranges_r"), c.levels), 1.2, nil)
	c.addMarker(fig, mom0.WCS, white)
	addLabel(fig, NHILabel(c.nhi), black)
	c.addBeam(fig, fov, render.MustColor("darkorange"), black)
	fig.Colorbar = colorbar(cmap, norm, fmt.Sprintf("HI Intensity [%s]", c.params.BUnit))
	return fig
}

var snrBoundaries = []float64{0, 1, 2, 3, 4, 5, 6}

// composeSNR is the discrete significance map, with the base contour
// of the intensity map over it.
func (c *composer) composeSNR(snr, mom0 *Registered, fov float64) *render.Figure {
	fig := c.newSkyFigure(snr.WCS)
	cmap, _ := render.NewListed("w", "royalblue", "limegreen", "yellow", "orange", "r")
	norm := emath.BoundaryNorm{Boundaries: snrBoundaries}

	fig.Base = render.Base{Grid: &snr.Grid, Cmap: cmap, Norm: norm}
	fig.AddContours(&mom0.Grid, c.levels[:1], []color.Color{black}, 2, nil)
	c.addMarker(fig, snr.WCS, black)
	addLabel(fig, NHILabelSingle(c.nhi), black)
	c.addBeam(fig, fov, render.MustColor("gold"), render.MustColor("indigo"))
	fig.Colorbar = &render.Colorbar{Cmap: cmap, Norm: norm, Label: "Pixel SNR", Ticks: snrBoundaries}
	return fig
}

// VelocitySummary is what goes in the velocity figure's label, km/s.
type VelocitySummary struct {
	VSys, W50, W20 float64
}

func (v VelocitySummary) Label() string {
	return fmt.Sprintf("v_sys = %d   W_50 = %d  W_20 = %d", int(v.VSys), int(v.W50), int(v.W20))
}

func (c *composer) velocitySummary() VelocitySummary {
	return VelocitySummary{
		VSys: c.conv.SystemicVelocity(c.regime, c.src.Spectral()) / 1000.0,
		W50:  c.conv.LineWidth(c.regime, c.src.W50, c.src.Freq, c.params.ChanWidth) / 1000.0,
		W20:  c.conv.LineWidth(c.regime, c.src.W20, c.src.Freq, c.params.ChanWidth) / 1000.0,
	}
}

// velocityBuffer widens the velocity range of the source, km/s.
const velocityBuffer = 5.0

// IsoVelocityLevels are the velocity contours: two either side of v_sys
// for broad lines, one for narrow ones.
func IsoVelocityLevels(vsys, velMin, velMax float64) ([]float64, []color.Color) {
	if math.Abs(velMax-velMin) > 200 {
		return []float64{vsys - 100, vsys - 50, vsys, vsys + 50, vsys + 100},
			[]color.Color{white, render.MustColor("gray"), black, render.MustColor("gray"), white}
	}
	lg := render.MustColor("lightgray")
	return []float64{vsys - 50, vsys, vsys + 50}, []color.Color{lg, black, lg}
}

// VelocityMap converts a moment-1 map into km/s, in place.
func (c *composer) VelocityMap(g *emath.FloatGrid) {
	vals := g.Values()
	for i, v := range vals {
		vals[i] = c.conv.ToVelocity(c.regime, v) / 1000.0
	}
}

// composeMom1 is the velocity field on the primary grid. mom1 must
// already be in km/s and masked to the emission.
func (c *composer) composeMom1(mom1 *Registered, fov float64) *render.Figure {
	fig := c.newSkyFigure(mom1.WCS)
	lo, hi := mom1.Grid.MinMax()
	norm := emath.LinearNorm{Min: lo, Max: hi}
	cmap := render.MustColormap("rdbu_r")

	summary := c.velocitySummary()
	velMin, velMax := c.conv.VelocityBounds(c.regime, c.params.Spectral, c.src.ZMin, c.src.ZMax, velocityBuffer)
	levels, cols := IsoVelocityLevels(summary.VSys, velMin, velMax)

	fig.Base = render.Base{Grid: &mom1.Grid, Cmap: cmap, Norm: norm}
	fig.AddContours(&mom1.Grid, levels, cols, 0.6, nil)
	c.addMarker(fig, mom1.WCS, black)
	if line, ok := c.kinematicAxis(mom1.WCS, fov); ok {
		fig.Lines = append(fig.Lines, line)
	}
	addLabel(fig, summary.Label(), black)
	c.addBeam(fig, fov, nil, render.MustColor("darkred"))
	fig.Colorbar = colorbar(cmap, norm, c.regime.VelocityLabel(c.params.SpecSys, "km/s"))
	return fig
}

// kinematicAxis is a line through the source along the kinematic
// position angle, reaching half the field either side.
func (c *composer) kinematicAxis(w *wcs.WCS, fov float64) (render.Line, bool) {
	half := 0.5 * fov / 60.0 // deg
	pa := emath.Deg2Rad(c.src.KinPA)
	cosDec := math.Cos(emath.Deg2Rad(c.src.Dec))

	line := render.Line{Color: black, Width: 0.75, Dashed: true}
	for _, sign := range []float64{1, -1} {
		ra := c.src.RA + sign*half*math.Sin(pa)/cosDec
		dec := c.src.Dec + sign*half*math.Cos(pa)
		x, y, ok := SkyToPixel(w, ra, dec)
		if !ok {
			return line, false
		}
		line.Points = append(line.Points, emath.Point{X: x, Y: y})
	}
	return line, true
}

// composePV draws the position-velocity slice; it needs no survey grid.
func (c *composer) composePV(pv *product.Product) (*render.Figure, error) {
	offAxis, err := wcs.AxisFromHeader(pv.Header, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", ErrValidation, pv.Path, err)
	}
	specAxis, err := wcs.AxisFromHeader(pv.Header, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", ErrValidation, pv.Path, err)
	}
	nx, ny := pv.Grid.Dx(), pv.Grid.Dy()
	offAxis.N, specAxis.N = nx, ny

	fig := render.NewFigure(c.src.Name)
	fig.TitleSize = 16
	fig.EqualAspect = false
	lo, hi := pv.Grid.MinMax()
	fig.Base = render.Base{Grid: &pv.Grid, Cmap: render.MustColormap("gray"), Norm: emath.LinearNorm{Min: lo, Max: hi}}

	rms := emath.NaNStdDev(pv.Grid.Values())
	if emath.IsFinite(rms) && rms > 0 {
		fig.AddContours(&pv.Grid, []float64{-2 * rms, 2 * rms, 4 * rms}, nil, 1, nil)
	}

	top := float64(ny) - 0.5
	right := float64(nx) - 0.5
	x0 := offAxis.WorldToPix(0)
	ySys := specAxis.WorldToPix(c.src.Spectral())
	fig.Lines = append(fig.Lines,
		render.Line{Points: []emath.Point{{X: x0, Y: -0.5}, {X: x0, Y: top}}, Color: orange, Width: 0.75, Dashed: true},
		render.Line{Points: []emath.Point{{X: -0.5, Y: ySys}, {X: right, Y: ySys}}, Color: orange, Width: 0.75, Dashed: true},
	)
	fig.Texts = append(fig.Texts, render.Text{S: fmt.Sprintf("Kinematic PA = %5.1f deg", c.src.KinPA),
		X: 0.5, Y: 0.05, Coords: render.AxesCoords, Color: orange, Size: 18, AX: 0.5, AY: 0.5})

	fig.Bottom = render.Axis{Label: "Angular Offset [deg]", Ticks: linearTicks(offAxis, 5)}
	fig.Left.Ticks = linearTicks(specAxis, 6)

	specSys := spectral.Capitalize(c.params.SpecSys)
	if c.regime.Native == spectral.FrequencyNative {
		fig.Left.Label = "Frequency [Hz]"
		fig.Right = &render.Axis{
			Label: fmt.Sprintf("%s %s velocity [km/s]", specSys, c.regime.Convention),
			Ticks: c.velocityTicks(specAxis, 6),
		}
	} else {
		fig.Left.Label = fmt.Sprintf("%s %s velocity [m/s]", specSys, c.regime.Convention)
	}

	return fig, nil
}

// linearTicks puts round world values along a linear axis.
func linearTicks(a wcs.Linear1D, n int) []render.Tick {
	lo, hi := a.Extent()
	ticks := []render.Tick{}
	for _, v := range render.NiceTicks(lo, hi, n) {
		ticks = append(ticks, render.Tick{Pos: a.WorldToPix(v), Label: render.FormatTick(v)})
	}
	return ticks
}

// velocityTicks labels a frequency axis with round optical velocities.
func (c *composer) velocityTicks(freqAxis wcs.Linear1D, n int) []render.Tick {
	f1, f2 := freqAxis.Extent()
	v1 := c.conv.FreqToVelocity(f1, spectral.Optical) / 1000.0
	v2 := c.conv.FreqToVelocity(f2, spectral.Optical) / 1000.0

	ticks := []render.Tick{}
	for _, v := range render.NiceTicks(v1, v2, n) {
		f := c.conv.VelocityToFreq(v*1000.0, spectral.Optical)
		ticks = append(ticks, render.Tick{Pos: freqAxis.WorldToPix(f), Label: render.FormatTick(v)})
	}
	return ticks
}
