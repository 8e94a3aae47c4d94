// Package catalog reads the plain-text source catalogs written by the
// SoFiA source finder.
//
// The format is a block of '#' comment lines, the last two of which
// name the columns and give their units, followed by one row per
// source. The name column is double-quoted and may contain spaces.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Row map[string]string

type Table struct {
	Columns []string
	Units   []string
	Rows    []Row
}

func (t *Table) Has(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Float parses a numeric column; a missing column is an error.
func (r Row) Float(col string) (float64, error) {
	s, ok := r[col]
	if !ok {
		return 0, fmt.Errorf("catalog: no column '%s'", col)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("catalog: column '%s' value '%s': %w", col, s, err)
	}
	return f, nil
}

func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open '%s': %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read '%s': %w", path, err)
	}
	return t, nil
}

func Read(r io.Reader) (*Table, error) {
	t := Table{}
	comments := [][]string{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			comments = append(comments, strings.Fields(strings.TrimPrefix(line, "#")))
			continue
		}

		if t.Columns == nil {
			if err := t.setColumns(comments); err != nil {
				return nil, err
			}
		}

		fields, err := splitRow(line)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: %w", lineNum, err)
		}
		if len(fields) != len(t.Columns) {
			return nil, fmt.Errorf("catalog line %d: %d fields, expected %d", lineNum, len(fields), len(t.Columns))
		}

		row := Row{}
		for i, c := range t.Columns {
			row[c] = fields[i]
		}
		t.Rows = append(t.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if t.Columns == nil {
		if err := t.setColumns(comments); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// The column header is the last comment line that has both 'name' and
// 'id' in it; the units are on the line after.
func (t *Table) setColumns(comments [][]string) error {
	for i := len(comments) - 1; i >= 0; i-- {
		if contains(comments[i], "name") && contains(comments[i], "id") {
			t.Columns = comments[i]
			if i+1 < len(comments) && len(comments[i+1]) == len(t.Columns) {
				t.Units = comments[i+1]
			}
			return nil
		}
	}
	return fmt.Errorf("catalog: no column header line found")
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// splitRow splits on whitespace, keeping double-quoted fields whole.
func splitRow(line string) ([]string, error) {
	fields := []string{}
	for i := 0; i < len(line); {
		switch {
		case line[i] == ' ' || line[i] == '\t':
			i++
		case line[i] == '"':
			end := strings.IndexByte(line[i+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("unterminated quote")
			}
			fields = append(fields, line[i+1:i+1+end])
			i += end + 2
		default:
			end := strings.IndexAny(line[i:], " \t")
			if end < 0 {
				end = len(line) - i
			}
			fields = append(fields, line[i:i+end])
			i += end
		}
	}
	return fields, nil
}

// Basename is the path prefix the source finder used for the per-source
// products (cubelets, moment maps) of this catalog: for
// "dir/run_cat.txt" it is "dir/run_cubelets/run".
func Basename(catalogPath string) string {
	dir, file := filepath.Split(catalogPath)
	name := strings.TrimSuffix(file, "_cat.txt")
	name = strings.TrimSuffix(name, ".txt")
	return filepath.Join(dir, name+"_cubelets", name)
}
