package gallery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hi-gallery/pkg/catalog"
	"github.com/abworrall/hi-gallery/pkg/product"
	"github.com/abworrall/hi-gallery/pkg/skycoord"
)

func sofiaRow() catalog.Row {
	return catalog.Row{
		"name": "SoFiA J100041.43+021525.5", "id": "3",
		"x": "50.3", "y": "49.9", "z": "30.1",
		"x_min": "40", "x_max": "61", "y_min": "39", "y_max": "60", "z_min": "20", "z_max": "40",
		"ra": "150.1726", "dec": "2.2571",
		"freq": "1.396239e+09", "w20": "3.4567e+05", "w50": "2.9876e+05",
		"kin_pa": "123.4",
	}
}

func TestNewSourceFromRow(t *testing.T) {
	s, err := NewSourceFromRow(sofiaRow())
	require.NoError(t, err)

	assert.Equal(t, 3, s.ID)
	assert.Equal(t, "SoFiA J100041.43+021525.5", s.Name)
	assert.Equal(t, 150.1726, s.RA)
	assert.Equal(t, 61.0, s.XMax)
	assert.Equal(t, 123.4, s.KinPA)
	assert.True(t, s.HasFreq)
	assert.Equal(t, 1.396239e9, s.Spectral())
	assert.False(t, s.Normalized())
}

func TestNewSourceFromVelocityRow(t *testing.T) {
	row := sofiaRow()
	delete(row, "freq")
	delete(row, "kin_pa")
	row["v_opt"] = "1.2345e+06"

	s, err := NewSourceFromRow(row)
	require.NoError(t, err)
	assert.False(t, s.HasFreq)
	assert.Equal(t, 1.2345e6, s.Spectral())
	assert.Equal(t, 0.0, s.KinPA)
}

func TestNewSourceFromBadRows(t *testing.T) {
	mods := map[string]func(catalog.Row){
		"fractional id":     func(r catalog.Row) { r["id"] = "1.5" },
		"negative id":       func(r catalog.Row) { r["id"] = "-1" },
		"missing ra":        func(r catalog.Row) { delete(r, "ra") },
		"garbage dec":       func(r catalog.Row) { r["dec"] = "north" },
		"no spectral value": func(r catalog.Row) { delete(r, "freq") },
		"garbage kin_pa":    func(r catalog.Row) { r["kin_pa"] = "?" },
	}
	for name, mod := range mods {
		row := sofiaRow()
		mod(row)
		_, err := NewSourceFromRow(row)
		assert.True(t, errors.Is(err, ErrValidation), name)
	}
}

func TestNormalizeToICRSOnlyOnce(t *testing.T) {
	s := testSource(1)
	require.NoError(t, s.NormalizeToICRS(skycoord.Frame{Kind: skycoord.ICRS}))
	assert.True(t, s.Normalized())
	assert.Equal(t, 150.0, s.RA)

	err := s.NormalizeToICRS(skycoord.Frame{Kind: skycoord.FK4, Equinox: 1950})
	assert.True(t, errors.Is(err, ErrAlreadyNormalized))
	assert.Equal(t, 150.0, s.RA)
}

func TestNormalizeFromFK4(t *testing.T) {
	s := testSource(1)
	require.NoError(t, s.NormalizeToICRS(skycoord.Frame{Kind: skycoord.FK4, Equinox: 1950}))

	// B1950 to J2000 moves this position by about 0.64 deg in RA
	assert.InDelta(t, 150.64, s.RA, 0.05)
	assert.InDelta(t, 1.76, s.Dec, 0.05)
}

func TestLoadCubeParams(t *testing.T) {
	cp, err := LoadCubeParams(context.Background(), cubeHeader(), nil)
	require.NoError(t, err)

	assert.True(t, cp.BeamFromHeader)
	assert.InDelta(t, 30, cp.Beam.Major, 1e-9)
	assert.InDelta(t, 20, cp.Beam.Minor, 1e-9)
	assert.Equal(t, 10.0, cp.Beam.PA)
	assert.InDelta(t, 6, cp.CellSize, 1e-9)
	assert.Equal(t, chanWidth, cp.ChanWidth)
	assert.Equal(t, "FREQ", cp.SpecAxis)
	assert.Equal(t, "BARYCENT", cp.SpecSys)
	assert.Equal(t, skycoord.ICRS, cp.Frame.Kind)
	assert.Equal(t, 1.4e9, cp.Spectral.CRVAL)

	width, height := cp.Patch(6)
	assert.InDelta(t, 20.0/360, width, 1e-12)
	assert.InDelta(t, 30.0/360, height, 1e-12)
}

func TestLoadCubeParamsBeamOverride(t *testing.T) {
	tests := []struct {
		override []float64
		want     Beam
	}{
		{[]float64{25}, Beam{25, 25, 0}},
		{[]float64{25, 15}, Beam{25, 15, 0}},
		{[]float64{25, 15, 30}, Beam{25, 15, 30}},
	}
	for _, test := range tests {
		cp, err := LoadCubeParams(context.Background(), cubeHeader(), test.override)
		require.NoError(t, err)
		assert.Equal(t, test.want, cp.Beam)
		assert.False(t, cp.BeamFromHeader)
	}

	_, err := LoadCubeParams(context.Background(), cubeHeader(), []float64{1, 2, 3, 4})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = LoadCubeParams(context.Background(), cubeHeader(), []float64{-5})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestLoadCubeParamsWithoutBeam(t *testing.T) {
	h := product.NewHeader(map[string]interface{}{
		"CDELT1": -cellDeg, "CDELT2": cellDeg,
		"CTYPE3": "VRAD", "CUNIT3": "km/s", "CDELT3": 5.0, "CRVAL3": 1000.0, "CRPIX3": 1.0,
		"RADESYS": "FK5", "EQUINOX": 2000.0,
	})
	cp, err := LoadCubeParams(context.Background(), h, nil)
	require.NoError(t, err)

	assert.False(t, cp.BeamFromHeader)
	assert.InDelta(t, 21, cp.Beam.Major, 1e-9)
	assert.InDelta(t, 21, cp.Beam.Minor, 1e-9)
	assert.Equal(t, "VRAD", cp.SpecAxis)
	assert.Equal(t, 5000.0, cp.ChanWidth)
	assert.Equal(t, 1e6, cp.Spectral.CRVAL)
	assert.Equal(t, skycoord.FK5, cp.Frame.Kind)
}

func TestLoadCubeParamsRejects(t *testing.T) {
	bad := []map[string]interface{}{
		{"CDELT3": 1.0},
		{"CDELT1": cellDeg, "CUNIT3": "furlong/fortnight", "CDELT3": 1.0},
		{"CDELT1": cellDeg, "CUNIT3": "Hz"},
	}
	for i, kv := range bad {
		_, err := LoadCubeParams(context.Background(), product.NewHeader(kv), nil)
		assert.True(t, errors.Is(err, ErrValidation), "case %d", i)
	}
}

func TestCubeAndProductPaths(t *testing.T) {
	assert.Equal(t, "d/c_cubelets/c_4_cube.fits", CubePath("d/c_cubelets/c", 4, 2))
	assert.Equal(t, "d/c_cubelets/c_4.fits", CubePath("d/c_cubelets/c", 4, 1))
	assert.Equal(t, "d/c_cubelets/c_4_mom1.fits", ProductPath("d/c_cubelets/c", 4, "mom1"))
}
