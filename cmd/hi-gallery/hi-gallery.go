package main

// go run cmd/hi-gallery/hi-gallery.go [-v=1] [-optview=8] [-surveys="DSS2 Blue,PanSTARRS"] ~/sofia/out/ [cfg.yaml]

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/abworrall/hi-gallery/pkg/gallery"
	"github.com/abworrall/hi-gallery/pkg/metrics"
	"github.com/abworrall/hi-gallery/pkg/product"
	"github.com/abworrall/hi-gallery/pkg/render"
	"github.com/abworrall/hi-gallery/pkg/store"
	"github.com/abworrall/hi-gallery/pkg/survey"
)

var (
	Verbosity int

	fOptView  float64
	fHSTView  float64
	fSurveys  string
	fSNRRange string
	fSuffix   string
	fSofia    int
	fBeam     string
	fWorkers  int
	fIDs      string
	fMetrics  string
	fStore    string
	fBucket   string
	fLogJSON  bool
)

func init() {
	flag.IntVar(&Verbosity, "v", 0, "verbosity level")

	flag.Float64Var(&fOptView, "optview", 0, "default optical field of view, in arcmin")
	flag.Float64Var(&fHSTView, "hstview", 0, "HST field of view, in arcsec")
	flag.StringVar(&fSurveys, "surveys", "", "comma separated list of surveys to try, in order of preference")
	flag.StringVar(&fSNRRange, "snrrange", "", "SNR band used to find the base contour, e.g. 2,3")
	flag.StringVar(&fSuffix, "suffix", "", "image file type (png, jpg)")
	flag.IntVar(&fSofia, "sofia", 0, "SoFiA version that made the catalog (1 or 2)")
	flag.StringVar(&fBeam, "beam", "", "beam override: bmaj[,bmin[,bpa]] in arcsec, arcsec, deg")
	flag.IntVar(&fWorkers, "workers", 0, "number of sources to process in parallel")
	flag.StringVar(&fIDs, "ids", "", "comma separated source ids to process (default all)")
	flag.StringVar(&fMetrics, "metrics", "", "write prometheus metrics to this textfile when done")
	flag.StringVar(&fStore, "store", "", "where figures go (local, s3)")
	flag.StringVar(&fBucket, "bucket", "", "S3 bucket, for -store=s3")
	flag.BoolVar(&fLogJSON, "json", false, "log as JSON lines")
	flag.Parse()
}

func main() {
	inputs := gallery.NewInputs()
	if err := inputs.LoadFilesAndDirs(flag.Args()...); err != nil {
		log.Fatal(err)
	}
	if len(inputs.Catalogs) == 0 {
		log.Fatal("no catalogs found; name some *_cat.txt files or dirs containing them")
	}

	cfg := inputs.Config
	if err := applyFlags(&cfg); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Finalize(); err != nil {
		log.Fatal(err)
	}

	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	logger, err := newLogger(os.Stdout, cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logger.WithContext(ctx)

	g, err := newGallery(cfg)
	if err != nil {
		log.Fatal(err)
	}

	failed := 0
	for _, catPath := range inputs.Catalogs {
		sources, base, rowErrs, err := gallery.LoadSources(ctx, catPath, cfg)
		if err != nil {
			logger.Error().Err(err).Str("catalog", catPath).Msg("can't load catalog")
			failed++
			continue
		}
		failed += len(rowErrs)
		logger.Info().Str("catalog", catPath).Int("sources", len(sources)).Int("bad_rows", len(rowErrs)).Msg("loaded catalog")

		for _, rep := range g.ProcessAll(ctx, sources, base) {
			if rep.Err != nil {
				failed++
			}
			if cfg.Verbosity > 0 {
				fmt.Printf("%s\n", rep)
			}
		}
	}

	if cfg.MetricsFile != "" {
		if err := g.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error().Err(err).Str("path", cfg.MetricsFile).Msg("can't write metrics")
		}
	}

	if failed > 0 {
		logger.Warn().Int("failed", failed).Msg("some sources failed")
		os.Exit(1)
	}
}

// applyFlags lets anything set on the command line win over the config file.
func applyFlags(cfg *gallery.Config) error {
	if Verbosity > 0 {
		cfg.Verbosity = Verbosity
	}
	if fOptView > 0 {
		cfg.OptView = fOptView
	}
	if fHSTView > 0 {
		cfg.HSTView = fHSTView
	}
	if fSurveys != "" {
		cfg.Surveys = nil
		for _, s := range strings.Split(fSurveys, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Surveys = append(cfg.Surveys, s)
			}
		}
	}
	if fSNRRange != "" {
		vals, err := parseFloats(fSNRRange)
		if err != nil {
			return fmt.Errorf("-snrrange: %w", err)
		}
		cfg.SNRRange = vals
	}
	if fSuffix != "" {
		cfg.Suffix = fSuffix
	}
	if fSofia != 0 {
		cfg.SofiaVersion = fSofia
	}
	if fBeam != "" {
		vals, err := parseFloats(fBeam)
		if err != nil {
			return fmt.Errorf("-beam: %w", err)
		}
		cfg.Beam = vals
	}
	if fWorkers > 0 {
		cfg.Workers = fWorkers
	}
	if fIDs != "" {
		cfg.IDs = nil
		for _, s := range strings.Split(fIDs, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("-ids: %w", err)
			}
			cfg.IDs = append(cfg.IDs, id)
		}
	}
	if fMetrics != "" {
		cfg.MetricsFile = fMetrics
	}
	if fStore != "" {
		cfg.Store.Kind = fStore
	}
	if fBucket != "" {
		cfg.Store.Bucket = fBucket
	}
	if fLogJSON {
		cfg.LogFormat = "json"
	}
	if cfg.Verbosity > 1 {
		cfg.LogLevel = "debug"
	}

	return nil
}

func parseFloats(s string) ([]float64, error) {
	ret := []float64{}
	for _, str := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil, err
		}
		ret = append(ret, f)
	}
	return ret, nil
}

func newLogger(out io.Writer, cfg gallery.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("loglevel: %w", err)
	}

	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: out}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func newGallery(cfg gallery.Config) (*gallery.Gallery, error) {
	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return nil, err
	}

	client := survey.NewClient(cfg.Endpoints, time.Duration(cfg.HTTPTimeoutSeconds)*time.Second)

	var figures store.FigureStore = store.FSStore{}
	if cfg.Store.Kind == "s3" {
		s3store, err := store.NewS3StoreFromRegion(cfg.Store.Region, cfg.Store.Bucket, cfg.Store.Prefix)
		if err != nil {
			return nil, err
		}
		figures = s3store
	}

	return &gallery.Gallery{
		Config:   cfg,
		Reader:   product.FileReader{},
		Resolver: &survey.Resolver{Lookup: survey.NewRegistry(client), Observer: collector},
		Renderer: render.NewRenderer(),
		Store:    figures,
		Metrics:  collector,
	}, nil
}
