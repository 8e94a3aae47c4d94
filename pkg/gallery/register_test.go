package gallery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hi-gallery/pkg/emath"
	"github.com/abworrall/hi-gallery/pkg/product"
	"github.com/abworrall/hi-gallery/pkg/wcs"
)

func TestReprojectOntoItself(t *testing.T) {
	h := skyHeader(20, 150, 2, cellDeg)
	p := &product.Product{Header: h, Grid: blob(20)}

	reg, err := Reproject(p, h)
	require.NoError(t, err)
	require.Equal(t, 20, reg.Grid.Dx())

	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			assert.True(t, reg.Covered(x, y))
			assert.InDelta(t, p.Grid.Get(x, y), reg.Grid.Get(x, y), 1e-6, "(%d,%d)", x, y)
		}
	}
}

func TestReprojectFootprint(t *testing.T) {
	// product covers 20x6"=2'; target is 4' across, so only the middle is covered
	p := &product.Product{Header: skyHeader(20, 150, 2, cellDeg), Grid: blob(20)}
	reg, err := Reproject(p, skyHeader(40, 150, 2, cellDeg))
	require.NoError(t, err)

	assert.False(t, reg.Covered(0, 0))
	assert.True(t, math.IsNaN(reg.Grid.Get(0, 0)))
	assert.True(t, reg.Covered(20, 20))
	assert.InDelta(t, p.Grid.Get(10, 10), reg.Grid.Get(20, 20), 1e-6)
}

func TestReprojectNeedsCelestialHeaders(t *testing.T) {
	p := &product.Product{Header: product.NewHeader(map[string]interface{}{"CTYPE1": "OFFSET"}), Grid: blob(4)}
	_, err := Reproject(p, skyHeader(4, 150, 2, cellDeg))
	assert.ErrorIs(t, err, ErrValidation)
}

// Every pixel below C is blanked; every covered pixel at or above C survives.
func TestMaskBelow(t *testing.T) {
	h := skyHeader(20, 150, 2, cellDeg)
	mom0, err := Reproject(&product.Product{Header: h, Grid: blob(20)}, skyHeader(30, 150, 2, cellDeg))
	require.NoError(t, err)

	vel := emath.NewFloatGrid(20, 20)
	vel.Fill(1234)
	mom1, err := Reproject(&product.Product{Header: h, Grid: vel}, skyHeader(30, 150, 2, cellDeg))
	require.NoError(t, err)

	const c = 2.5
	require.NoError(t, MaskBelow(mom1, mom0, c))

	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			iv, vv := mom0.Grid.Get(x, y), mom1.Grid.Get(x, y)
			if !(iv >= c) {
				assert.True(t, math.IsNaN(vv), "(%d,%d) intensity %v", x, y, iv)
			} else if mom1.Covered(x, y) {
				assert.InDelta(t, 1234, vv, 1e-9, "(%d,%d)", x, y)
			}
		}
	}
}

func TestMaskBelowShapeMismatch(t *testing.T) {
	a := &Registered{Grid: emath.NewFloatGrid(2, 2)}
	b := &Registered{Grid: emath.NewFloatGrid(3, 2)}
	assert.ErrorIs(t, MaskBelow(a, b, 1), ErrValidation)
}

func TestSkyToPixelRoundTrip(t *testing.T) {
	w, err := wcs.FromHeader(skyHeader(20, 150, 2, cellDeg))
	require.NoError(t, err)

	x, y, ok := SkyToPixel(w, 150, 2)
	require.True(t, ok)
	assert.InDelta(t, 9.5, x, 1e-9)
	assert.InDelta(t, 9.5, y, 1e-9)

	ra, dec, ok := PixelToICRS(w, 3, 17)
	require.True(t, ok)
	x, y, ok = SkyToPixel(w, ra, dec)
	require.True(t, ok)
	assert.InDelta(t, 3, x, 1e-6)
	assert.InDelta(t, 17, y, 1e-6)
}

func TestGridTransform(t *testing.T) {
	small, err := wcs.FromHeader(skyHeader(20, 150, 2, cellDeg))
	require.NoError(t, err)
	big, err := wcs.FromHeader(skyHeader(40, 150, 2, cellDeg/2))
	require.NoError(t, err)

	xf := gridTransform(small, big)
	p, ok := xf(emath.Point{X: 9.5, Y: 9.5})
	require.True(t, ok)
	assert.InDelta(t, 19.5, p.X, 1e-6)
	assert.InDelta(t, 19.5, p.Y, 1e-6)

	p, ok = xf(emath.Point{X: 10.5, Y: 9.5})
	require.True(t, ok)
	assert.InDelta(t, 21.5, p.X, 1e-4)
}
