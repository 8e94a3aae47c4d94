package gallery

import (
	"context"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hi-gallery/pkg/emath"
	"github.com/abworrall/hi-gallery/pkg/product"
	"github.com/abworrall/hi-gallery/pkg/spectral"
	"github.com/abworrall/hi-gallery/pkg/survey"
	"github.com/abworrall/hi-gallery/pkg/wcs"
)

func testComposer(t *testing.T, src *Source) *composer {
	cp, err := LoadCubeParams(context.Background(), cubeHeader(), nil)
	require.NoError(t, err)
	regime := spectral.ResolveRegime(src.HasFreq, cp.SpecAxis)
	return newComposer(src, cp, regime, spectral.NewHIConverter(), 2.5)
}

func TestIsoVelocityLevels(t *testing.T) {
	levels, cols := IsoVelocityLevels(1000, 800, 1100)
	assert.Equal(t, []float64{900, 950, 1000, 1050, 1100}, levels)
	assert.Len(t, cols, 5)

	levels, cols = IsoVelocityLevels(1000, 950, 1050)
	assert.Equal(t, []float64{950, 1000, 1050}, levels)
	assert.Len(t, cols, 3)
}

func TestVelocitySummaryLabel(t *testing.T) {
	v := VelocitySummary{VSys: 1234.9, W50: 150.7, W20: 200.2}
	assert.Equal(t, "v_sys = 1234   W_50 = 150  W_20 = 200", v.Label())
}

func TestVelocitySummaryFrequencyNative(t *testing.T) {
	c := testComposer(t, testSource(1))
	conv := spectral.NewHIConverter()

	v := c.velocitySummary()
	assert.InDelta(t, conv.FreqToVelocity(testFreq, spectral.Optical)/1000, v.VSys, 1e-9)
	assert.InDelta(t, spectral.SpeedOfLight*2e5/testFreq/1000, v.W20, 1e-9)
	assert.InDelta(t, spectral.SpeedOfLight*1.5e5/testFreq/1000, v.W50, 1e-9)
}

func TestVelocityMap(t *testing.T) {
	c := testComposer(t, testSource(1))
	g := emath.NewFloatGrid(2, 1)
	g.Set(0, 0, testFreq)
	g.Set(1, 0, math.NaN())
	c.VelocityMap(&g)

	conv := spectral.NewHIConverter()
	assert.InDelta(t, conv.FreqToVelocity(testFreq, spectral.Optical)/1000, g.Get(0, 0), 1e-9)
	assert.True(t, math.IsNaN(g.Get(1, 0)))

	src := testSource(1)
	src.HasFreq, src.VCol = false, 1.5e6
	c = testComposer(t, src)
	g.Set(0, 0, 1.5e6)
	c.VelocityMap(&g)
	assert.Equal(t, 1500.0, g.Get(0, 0))
}

func TestKinematicAxis(t *testing.T) {
	src := testSource(1)
	src.KinPA = 0
	c := testComposer(t, src)
	w, err := wcs.FromHeader(skyHeader(20, 150, 2, cellDeg))
	require.NoError(t, err)

	// half of a 6' field is 30 pixels of 6"
	line, ok := c.kinematicAxis(w, 6)
	require.True(t, ok)
	require.Len(t, line.Points, 2)
	assert.InDelta(t, 9.5, line.Points[0].X, 1e-3)
	assert.InDelta(t, 39.5, line.Points[0].Y, 1e-2)
	assert.InDelta(t, 9.5, line.Points[1].X, 1e-3)
	assert.InDelta(t, -20.5, line.Points[1].Y, 1e-2)
	assert.True(t, line.Dashed)
}

func TestComposeMom1MasksAndLabels(t *testing.T) {
	c := testComposer(t, testSource(1))
	reader := productsFor(1)
	target := skyHeader(20, 150, 2, cellDeg)

	mom1 := reader[ProductPath(testBase, 1, "mom1")]
	vel := mom1.Grid.Copy()
	c.VelocityMap(vel)
	reg, err := Reproject(&product.Product{Header: mom1.Header, Grid: *vel}, target)
	require.NoError(t, err)
	mom0, err := Reproject(reader[ProductPath(testBase, 1, "mom0")], target)
	require.NoError(t, err)
	require.NoError(t, MaskBelow(reg, mom0, c.base))

	fig := c.composeMom1(reg, 6)
	assert.True(t, math.IsNaN(fig.Base.Grid.Get(0, 0)))
	require.NotNil(t, fig.Colorbar)
	assert.Equal(t, "Barycent Optical Velocity [km/s]", fig.Colorbar.Label)
	assert.Contains(t, fig.Texts[0].S, "v_sys = ")
	assert.Len(t, fig.Lines, 1)
	assert.Len(t, fig.Markers, 1)
}

func TestComposePVFrequency(t *testing.T) {
	c := testComposer(t, testSource(1))
	pv := productsFor(1)[ProductPath(testBase, 1, "pv")]

	fig, err := c.composePV(pv)
	require.NoError(t, err)

	assert.False(t, fig.EqualAspect)
	assert.Equal(t, "Angular Offset [deg]", fig.Bottom.Label)
	assert.Equal(t, "Frequency [Hz]", fig.Left.Label)
	require.NotNil(t, fig.Right)
	assert.Equal(t, "Barycent Optical velocity [km/s]", fig.Right.Label)
	assert.NotEmpty(t, fig.Right.Ticks)

	require.Len(t, fig.Contours, 3)
	assert.True(t, fig.Contours[0].Dashed)
	assert.InDelta(t, -fig.Contours[1].Level, fig.Contours[0].Level, 1e-12)
	assert.InDelta(t, 2*fig.Contours[1].Level, fig.Contours[2].Level, 1e-12)

	require.Len(t, fig.Lines, 2)
	assert.InDelta(t, 9.5, fig.Lines[0].Points[0].X, 1e-9)
	assert.InDelta(t, (testFreq-1.4e9)/chanWidth, fig.Lines[1].Points[0].Y, 1e-6)
	assert.Equal(t, "Kinematic PA =  45.0 deg", fig.Texts[0].S)
}

func TestComposePVVelocity(t *testing.T) {
	src := testSource(1)
	src.HasFreq, src.VCol = false, 1.2e6
	cp, err := LoadCubeParams(context.Background(), cubeHeader(), nil)
	require.NoError(t, err)
	c := newComposer(src, cp, spectral.Regime{Native: spectral.VelocityNative, Convention: spectral.Radio}, spectral.NewHIConverter(), 2.5)

	h := product.NewHeader(map[string]interface{}{
		"CTYPE1": "OFFSET", "CRPIX1": 1.0, "CRVAL1": 0.0, "CDELT1": cellDeg,
		"CTYPE2": "VRAD", "CRPIX2": 1.0, "CRVAL2": 1.1e6, "CDELT2": 5e3,
	})
	g := emath.NewFloatGrid(10, 40)
	fig, err := c.composePV(&product.Product{Header: h, Grid: g})
	require.NoError(t, err)

	assert.Nil(t, fig.Right)
	assert.Equal(t, "Barycent Radio velocity [m/s]", fig.Left.Label)
	// a blank slice has no noise to contour
	assert.Empty(t, fig.Contours)
}

func TestComposePVNeedsAxes(t *testing.T) {
	c := testComposer(t, testSource(1))
	_, err := c.composePV(&product.Product{Header: product.NewHeader(nil), Grid: emath.NewFloatGrid(2, 2)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestComposeOverlayColor(t *testing.T) {
	c := testComposer(t, testSource(1))
	mom0 := productsFor(1)[ProductPath(testBase, 1, "mom0")]

	img := &survey.Image{
		Survey:      "PanSTARRS",
		Header:      skyHeader(60, 150, 2, 0.1/60),
		Color:       image.NewRGBA(image.Rect(0, 0, 60, 60)),
		FieldOfView: 6,
	}
	fig, err := c.composeOverlay(img, mom0)
	require.NoError(t, err)

	assert.Equal(t, img.Color, fig.Base.Image)
	assert.Nil(t, fig.Base.Grid)
	require.Len(t, fig.Contours, LadderSteps)
	assert.Equal(t, ContourLadder(2.5), []float64{fig.Contours[0].Level, fig.Contours[1].Level, fig.Contours[2].Level,
		fig.Contours[3].Level, fig.Contours[4].Level, fig.Contours[5].Level, fig.Contours[6].Level,
		fig.Contours[7].Level, fig.Contours[8].Level, fig.Contours[9].Level})
	require.Len(t, fig.Markers, 1)
	assert.InDelta(t, 29.5, fig.Markers[0].X, 1e-6)
}

func TestComposeOverlayHSTStretch(t *testing.T) {
	c := testComposer(t, testSource(1))
	mom0 := productsFor(1)[ProductPath(testBase, 1, "mom0")]
	img, err := imageFetcher("HST").Fetch(context.Background(), survey.Position{RA: 150, Dec: 2}, 1)
	require.NoError(t, err)
	img.FieldOfView = 1

	fig, err := c.composeOverlay(img, mom0)
	require.NoError(t, err)
	_, isPower := fig.Base.Norm.(emath.PowerNorm)
	assert.True(t, isPower)

	img.Survey = "DSS2 Blue"
	fig, err = c.composeOverlay(img, mom0)
	require.NoError(t, err)
	_, isLinear := fig.Base.Norm.(emath.LinearNorm)
	assert.True(t, isLinear)
}

func TestComposeOverlayNeedsPixels(t *testing.T) {
	c := testComposer(t, testSource(1))
	mom0 := productsFor(1)[ProductPath(testBase, 1, "mom0")]
	_, err := c.composeOverlay(&survey.Image{Survey: "x", Header: skyHeader(10, 150, 2, cellDeg)}, mom0)
	assert.ErrorIs(t, err, ErrValidation)
}
