package gallery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/abworrall/hi-gallery/pkg/catalog"
)

// Inputs collects what was named on the command line: catalogs, and
// optionally a config file.
type Inputs struct {
	Config     Config
	ConfigFile string
	Catalogs   []string
}

func NewInputs() Inputs {
	return Inputs{Config: NewConfig()}
}

// LoadFilesAndDirs walks the args; directories are searched for
// catalogs, .yaml files are loaded as the config.
func (in *Inputs) LoadFilesAndDirs(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %w", arg, err)

		case item.IsDir():
			contents, err := os.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %w", arg, err)
			}
			for _, content := range contents {
				name := content.Name()
				if !content.IsDir() && !isCatalog(name) {
					continue
				}
				if err := in.LoadFilesAndDirs(filepath.Join(arg, name)); err != nil {
					return fmt.Errorf("load %s: %w", arg, err)
				}
			}

		default:
			if err := in.loadFile(arg); err != nil {
				return fmt.Errorf("loadfile %s: %w", arg, err)
			}
		}
	}

	return nil
}

func isCatalog(name string) bool { return strings.HasSuffix(name, "_cat.txt") }

func (in *Inputs) loadFile(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {

	case ".yaml", ".yml":
		cfg, err := loadConfig(filename)
		if err != nil {
			return fmt.Errorf("loading %s as config YAML failed: %w", filename, err)
		}
		in.Config = cfg
		in.ConfigFile = filename

	case ".txt":
		in.Catalogs = append(in.Catalogs, filename)

	default:
		return fmt.Errorf("don't know what to do with '%s' (want *_cat.txt or *.yaml)", filename)
	}

	return nil
}

func loadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %w", filename, err)
	}

	return newConfigFromYaml(contents)
}

// LoadSources reads a catalog and returns the sources the config asks
// for, plus the product basename for the catalog. A row that doesn't
// make a valid Source is logged and returned in rowErrs; the other rows
// still load. err is only set when the catalog can't be read at all.
func LoadSources(ctx context.Context, catPath string, cfg Config) (sources []*Source, base string, rowErrs []error, err error) {
	tbl, err := catalog.ReadFile(catPath)
	if err != nil {
		return nil, "", nil, err
	}

	log := zerolog.Ctx(ctx)
	sources = []*Source{}
	for i, row := range tbl.Rows {
		s, err := NewSourceFromRow(row)
		if err != nil {
			log.Error().Err(err).Str("catalog", catPath).Int("row", i+1).Str("id", row["id"]).Msg("bad catalog row, skipping source")
			rowErrs = append(rowErrs, fmt.Errorf("catalog '%s' row %d: %w", catPath, i+1, err))
			continue
		}
		if cfg.WantID(s.ID) {
			sources = append(sources, s)
		}
	}

	return sources, catalog.Basename(catPath), rowErrs, nil
}
