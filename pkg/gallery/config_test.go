package gallery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	c := Config{}
	require.NoError(t, c.Finalize())

	assert.Equal(t, 6.0, c.OptView)
	assert.InDelta(t, 40.0/60, c.HSTViewArcmin(), 1e-12)
	assert.Equal(t, []string{"DSS2 Blue"}, c.Surveys)
	assert.Equal(t, [2]float64{2, 3}, c.Band())
	assert.Equal(t, 2, c.SofiaVersion)
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, "local", c.Store.Kind)
	assert.NotEmpty(t, c.Endpoints.SkyView)
}

func TestConfigFromYaml(t *testing.T) {
	c, err := newConfigFromYaml([]byte(`
optview: 8
suffix: .JPG
surveys: [panstarrs, "DSS2 Red"]
snrrange: [3, 5]
beam: [30]
ids: [4, 7]
store:
  kind: s3
  bucket: figures
`))
	require.NoError(t, err)
	require.NoError(t, c.Finalize())

	assert.Equal(t, 8.0, c.OptView)
	assert.Equal(t, "jpg", c.Suffix)
	assert.Equal(t, []string{"panstarrs", "DSS2 Red"}, c.Surveys)
	assert.Equal(t, [2]float64{3, 5}, c.Band())
	assert.Equal(t, []float64{30}, c.Beam)
	assert.True(t, c.WantID(7))
	assert.False(t, c.WantID(5))
	assert.Equal(t, "figures", c.Store.Bucket)
	assert.Contains(t, c.AsYaml(), "optview: 8")
}

func TestConfigRejects(t *testing.T) {
	bad := map[string]func(*Config){
		"sofia":        func(c *Config) { c.SofiaVersion = 3 },
		"beam":         func(c *Config) { c.Beam = []float64{1, 2, 3, 4} },
		"snrrange":     func(c *Config) { c.SNRRange = []float64{3, 2} },
		"suffix":       func(c *Config) { c.Suffix = "tiff" },
		"store":        func(c *Config) { c.Store.Kind = "ftp" },
		"bucket":       func(c *Config) { c.Store.Kind = "s3" },
		"optview":      func(c *Config) { c.OptView = -1 },
		"logformat":    func(c *Config) { c.LogFormat = "xml" },
		"speedoflight": func(c *Config) { c.SpeedOfLight = -1 },
	}
	for name, mod := range bad {
		c := NewConfig()
		mod(&c)
		assert.Error(t, c.Finalize(), name)
	}
}

func TestWantIDWithNoList(t *testing.T) {
	assert.True(t, NewConfig().WantID(123))
}

const testCatalog = `# SoFiA 2.3.1 source catalogue
#    name      id      x      y      z  x_min  x_max  y_min  y_max  z_min  z_max       ra      dec          freq        w20        w50
#    -          -    pix    pix    pix    pix    pix    pix    pix    pix    pix      deg      deg            Hz         Hz         Hz
 "src one"      1   10.0   10.0   15.0      5     15      5     15     10     20  150.000    2.000  1.400100e+09  2.000e+05  1.500e+05
 "src two"      2   20.0   20.0   15.0     15     25     15     25     10     20  150.010    2.010  1.400200e+09  2.000e+05  1.500e+05
`

func TestLoadFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "survey_cat.txt"), []byte(testCatalog), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "more"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "more", "deep_cat.txt"), []byte(testCatalog), 0644))
	cfgFile := filepath.Join(dir, "gallery.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("optview: 9\nids: [2]\n"), 0644))

	in := NewInputs()
	require.NoError(t, in.LoadFilesAndDirs(dir, cfgFile))

	assert.ElementsMatch(t, []string{filepath.Join(dir, "survey_cat.txt"), filepath.Join(dir, "more", "deep_cat.txt")}, in.Catalogs)
	assert.Equal(t, cfgFile, in.ConfigFile)
	assert.Equal(t, 9.0, in.Config.OptView)

	sources, base, rowErrs, err := LoadSources(context.Background(), in.Catalogs[0], in.Config)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, sources, 1)
	assert.Equal(t, 2, sources[0].ID)
	assert.Equal(t, "src two", sources[0].Name)
	assert.Contains(t, base, "_cubelets")
}

func TestLoadFilesAndDirsRejects(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "image.fits")
	require.NoError(t, os.WriteFile(other, []byte{}, 0644))

	in := NewInputs()
	assert.Error(t, in.LoadFilesAndDirs(other))
	assert.Error(t, in.LoadFilesAndDirs(filepath.Join(dir, "missing_cat.txt")))
}

func TestLoadSourcesKeepsGoodRowsAroundABadOne(t *testing.T) {
	cat := `#    name      id      x      y      z  x_min  x_max  y_min  y_max  z_min  z_max       ra      dec          freq        w20        w50
 "src one"      1   10.0   10.0   15.0      5     15      5     15     10     20  150.000    2.000  1.400100e+09  2.000e+05  1.500e+05
 "src half"   2.5   15.0   15.0   15.0     10     20     10     20     10     20  150.005    2.005  1.400150e+09  2.000e+05  1.500e+05
 "src two"      3   20.0   20.0   15.0     15     25     15     25     10     20  150.010    2.010  1.400200e+09  2.000e+05  1.500e+05
`
	path := filepath.Join(t.TempDir(), "run_cat.txt")
	require.NoError(t, os.WriteFile(path, []byte(cat), 0644))

	sources, _, rowErrs, err := LoadSources(testContext(t), path, NewConfig())
	require.NoError(t, err)

	require.Len(t, sources, 2)
	assert.Equal(t, 1, sources[0].ID)
	assert.Equal(t, 3, sources[1].ID)

	require.Len(t, rowErrs, 1)
	assert.True(t, errors.Is(rowErrs[0], ErrValidation))
	assert.Contains(t, rowErrs[0].Error(), "row 2")
}

func TestLoadSourcesUnreadableCatalog(t *testing.T) {
	_, _, _, err := LoadSources(context.Background(), filepath.Join(t.TempDir(), "missing_cat.txt"), NewConfig())
	assert.Error(t, err)
}
