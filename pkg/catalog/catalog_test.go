package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sofia2Catalog = `# SoFiA 2.3.1 source catalogue
# Creator: SoFiA 2.3.1
#
# Header rows:
#   1 = column name
#   2 = unit
#
#    name                             id          x          y          z      x_min      x_max      y_min      y_max      z_min      z_max             ra            dec             freq              w20              w50          kin_pa
#    -                                 -        pix        pix        pix        pix        pix        pix        pix        pix        pix            deg            deg               Hz               Hz               Hz             deg
 "SoFiA J100041.43+021525.5"           1    50.3210    49.8800    30.1000         40         61         39         60         20         40    150.1726210      2.2570840    1.3962390e+09    3.4567000e+05    2.9876000e+05    123.4000000
 "SoFiA J100102.10+020000.0"           2    10.0000    12.0000    80.0000          5         15          8         16         70         90    150.2587500      2.0000000    1.3901000e+09    1.0000000e+05    8.0000000e+04     10.0000000
`

func TestReadSoFiA2(t *testing.T) {
	tbl, err := Read(strings.NewReader(sofia2Catalog))
	require.NoError(t, err)

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "name", tbl.Columns[0])
	assert.True(t, tbl.Has("freq"))
	assert.False(t, tbl.Has("v_rad"))
	assert.Equal(t, "Hz", tbl.Units[13])

	r := tbl.Rows[0]
	assert.Equal(t, "SoFiA J100041.43+021525.5", r["name"])
	id, err := r.Float("id")
	require.NoError(t, err)
	assert.Equal(t, 1.0, id)
	freq, _ := r.Float("freq")
	assert.Equal(t, 1.396239e9, freq)

	_, err = r.Float("v_opt")
	assert.Error(t, err)
	_, err = r.Float("name")
	assert.Error(t, err)
}

func TestReadRejectsBadRows(t *testing.T) {
	_, err := Read(strings.NewReader("# name id x\n \"a\" 1\n"))
	assert.Error(t, err)

	_, err = Read(strings.NewReader("# name id\n \"unterminated 1\n"))
	assert.Error(t, err)

	_, err = Read(strings.NewReader("# nothing useful\n 1 2 3\n"))
	assert.Error(t, err)
}

func TestReadEmptyCatalog(t *testing.T) {
	tbl, err := Read(strings.NewReader("# name id ra dec\n# - - deg deg\n"))
	require.NoError(t, err)
	assert.Empty(t, tbl.Rows)
	assert.Equal(t, []string{"-", "-", "deg", "deg"}, tbl.Units)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_cat.txt")
	require.NoError(t, os.WriteFile(path, []byte(sofia2Catalog), 0644))

	tbl, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 2)

	_, err = ReadFile(path + ".missing")
	assert.Error(t, err)
}

func TestBasename(t *testing.T) {
	assert.Equal(t, "/data/run/cosmos_cubelets/cosmos", Basename("/data/run/cosmos_cat.txt"))
	assert.Equal(t, "cosmos_cubelets/cosmos", Basename("cosmos_cat.txt"))
}
