// Package gallery turns one source finder catalog entry, its data
// products, and whatever survey imagery is available at its position,
// into a set of figures.
package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/abworrall/hi-gallery/pkg/metrics"
	"github.com/abworrall/hi-gallery/pkg/product"
	"github.com/abworrall/hi-gallery/pkg/render"
	"github.com/abworrall/hi-gallery/pkg/spectral"
	"github.com/abworrall/hi-gallery/pkg/store"
	"github.com/abworrall/hi-gallery/pkg/survey"
)

// State is a step in processing one source.
type State string

const (
	StateInit               State = "INIT"
	StateFOVComputed        State = "FOV_COMPUTED"
	StateContourComputed    State = "CONTOUR_COMPUTED"
	StateAncillaryResolved  State = "ANCILLARY_RESOLVED"
	StateProductsRegistered State = "PRODUCTS_REGISTERED"
	StateSkipped            State = "SKIPPED"
	StatePVRendered         State = "PV_RENDERED"
	StateDone               State = "DONE"
)

// Figure outcomes, as recorded in the Report and in metrics.
const (
	FigureWritten = "written"
	FigureExists  = "exists"
	FigureSkipped = "skipped"
	FigureFailed  = "failed"
)

// Source outcomes, for metrics.
const (
	SourceOK         = "ok"
	SourceNoCoverage = "no_coverage"
	SourceFailed     = "failed"
)

// A Renderer draws a figure as an image file.
type Renderer interface {
	Render(fig *render.Figure, w io.Writer, suffix string) error
}

type Gallery struct {
	Config   Config
	Reader   product.Reader
	Resolver *survey.Resolver
	Renderer Renderer
	Store    store.FigureStore
	Metrics  *metrics.Collector // optional
}

// FigureResult is what happened to one output figure.
type FigureResult struct {
	Kind    string
	Survey  string // empty for figures that aren't survey overlays
	Path    string
	Outcome string
	Err     error
}

// A Report is the outcome of processing one source.
type Report struct {
	SourceID   int
	SourceName string

	States      []State
	FieldOfView float64 // arcmin, of the primary grid if there is one
	BaseContour float64
	Primary     string // survey that defined the registration grid

	Figures  []FigureResult
	Warnings []error
	Err      error // fatal; processing stopped early
}

func (r *Report) visit(s State) { r.States = append(r.States, s) }

func (r *Report) Visited(s State) bool {
	for _, v := range r.States {
		if v == s {
			return true
		}
	}
	return false
}

// Count is how many figures ended with outcome.
func (r *Report) Count(outcome string) int {
	n := 0
	for _, f := range r.Figures {
		if f.Outcome == outcome {
			n++
		}
	}
	return n
}

func (r *Report) String() string {
	return fmt.Sprintf("source %d: %d written, %d present, %d skipped, %d failed, %d warnings",
		r.SourceID, r.Count(FigureWritten), r.Count(FigureExists), r.Count(FigureSkipped), r.Count(FigureFailed),
		len(r.Warnings))
}

// FigurePath is where a figure for the source lands: the catalog's
// cubelets directory swapped for a figures one.
func FigurePath(base string, id int, kind, suffix string) string {
	return fmt.Sprintf("%s_%d_%s.%s", strings.ReplaceAll(base, "cubelets", "figures"), id, kind, suffix)
}

// ProcessSource makes every figure it can for one source. `base` is the
// product basename for the source's catalog (see catalog.Basename). The
// returned error is fatal for this source only; everything else is
// logged, and noted in the Report.
func (g *Gallery) ProcessSource(ctx context.Context, src *Source, base string) (*Report, error) {
	log := zerolog.Ctx(ctx).With().Int("source_id", src.ID).Str("source_name", src.Name).Logger()
	ctx = log.WithContext(ctx)

	tStart := time.Now()
	rep := &Report{SourceID: src.ID, SourceName: src.Name}
	rep.visit(StateInit)
	log.Info().Msg("start making images")

	err := g.processSource(ctx, src, base, rep)

	outcome := SourceOK
	switch {
	case err != nil:
		rep.Err = err
		outcome = SourceFailed
		log.Error().Err(err).Msg("source abandoned")
	case rep.Visited(StateSkipped):
		outcome = SourceNoCoverage
	}
	g.Metrics.ObserveSource(outcome, time.Since(tStart))

	if err == nil {
		rep.visit(StateDone)
		log.Info().Str("report", rep.String()).Msg("done making images")
	}
	return rep, err
}

func (g *Gallery) processSource(ctx context.Context, src *Source, base string, rep *Report) error {
	log := zerolog.Ctx(ctx)
	cfg := g.Config

	cubePath := CubePath(base, src.ID, cfg.SofiaVersion)
	hdr, err := g.Reader.ReadHeader(cubePath)
	if err != nil {
		return fmt.Errorf("cubelet '%s': %w", cubePath, missing(err))
	}
	cp, err := LoadCubeParams(ctx, hdr, cfg.Beam)
	if err != nil {
		return fmt.Errorf("cubelet '%s': %w", cubePath, err)
	}
	log.Debug().Str("cube", cp.String()).Msg("cube parameters")

	fov, err := ResolveFieldOfView(src, cp.CellSize, cfg.OptView)
	if err != nil {
		return err
	}
	hstFOV, err := ResolveFieldOfView(src, cp.CellSize, cfg.HSTViewArcmin())
	if err != nil {
		return err
	}
	if fov != cfg.OptView {
		log.Info().Float64("fov", fov).Msgf("image size bigger than default, now %.2f arcmin", fov)
	}
	rep.FieldOfView = fov
	rep.visit(StateFOVComputed)

	// The intensity and significance maps are the only inputs every
	// figure needs; without them nothing can be drawn.
	mom0, err := g.Reader.Read(ProductPath(base, src.ID, "mom0"))
	if err != nil {
		return fmt.Errorf("intensity map: %w (were moment maps generated?)", missing(err))
	}
	snr, err := g.Reader.Read(ProductPath(base, src.ID, "snr"))
	if err != nil {
		return fmt.Errorf("significance map: %w (were moment maps generated?)", missing(err))
	}
	c, err := ComputeBaseContour(&mom0.Grid, &snr.Grid, cfg.Band())
	if err != nil {
		return err
	}
	rep.BaseContour = c
	log.Info().Floats64("snr_range", cfg.SNRRange).Float64("level", c).Msg("first HI contour defined")
	rep.visit(StateContourComputed)

	if !src.Normalized() {
		if err := src.NormalizeToICRS(cp.Frame); err != nil {
			return err
		}
	}

	regime := spectral.ResolveRegime(src.HasFreq, cp.SpecAxis)
	comp := newComposer(src, cp, regime, cfg.Converter(), c)
	if _, ok := SBR2NHI(c, cp.BUnit, cp.Beam.Major, cp.Beam.Minor); !ok {
		log.Warn().Str("bunit", cp.BUnit).Msg("intensity units not understood, N_HI label is unconverted")
	}

	fig := figureWriter{g: g, rep: rep, src: src, base: base}

	req := survey.Request{
		Position:       src.Position(),
		FieldOfView:    fov,
		HSTFieldOfView: hstFOV,
		Surveys:        cfg.Surveys,
	}
	res := g.Resolver.Resolve(ctx, req, func(ctx context.Context, img *survey.Image, primary bool) error {
		return fig.write(ctx, KindOverlay, img.FileTag(), func() (*render.Figure, error) {
			return comp.composeOverlay(img, mom0)
		})
	})
	for _, r := range res.Results {
		if r.Err != nil {
			rep.Warnings = append(rep.Warnings, fmt.Errorf("survey %s: %w", r.Survey, r.Err))
		}
	}
	rep.visit(StateAncillaryResolved)

	if res.Primary == nil {
		rep.Warnings = append(rep.Warnings, fmt.Errorf("source %d, surveys %v: %w", src.ID, cfg.Surveys, ErrNoAncillaryCoverage))
		log.Warn().Msg("no survey image to regrid to, skipping intensity, significance and velocity figures")
		rep.visit(StateSkipped)
	} else {
		g.registeredFigures(ctx, fig, comp, res.Primary, mom0, snr)
		rep.visit(StateProductsRegistered)
	}

	log.Info().Msg("making pv diagram")
	fig.write(ctx, KindPV, "", func() (*render.Figure, error) {
		pv, err := g.Reader.Read(ProductPath(base, src.ID, "pv"))
		if err != nil {
			return nil, fmt.Errorf("pv slice: %w", missing(err))
		}
		return comp.composePV(pv)
	})
	rep.visit(StatePVRendered)

	return nil
}

// registeredFigures draws the figures that are reprojected onto the
// primary survey grid. Each one stands alone; a failure in one does not
// stop the others.
func (g *Gallery) registeredFigures(ctx context.Context, fig figureWriter, comp *composer, primary *survey.Image, mom0, snr *product.Product) {
	log := zerolog.Ctx(ctx)
	fig.rep.Primary = primary.Survey
	fov := primary.FieldOfView
	fig.rep.FieldOfView = fov

	log.Info().Str("survey", primary.Survey).Msg("making HI grayscale image")
	fig.write(ctx, KindMom0, "", func() (*render.Figure, error) {
		reg, err := Reproject(mom0, primary.Header)
		if err != nil {
			return nil, err
		}
		return comp.composeMom0(reg, fov), nil
	})

	log.Info().Msg("making pixel SNR image")
	fig.write(ctx, KindSNR, "", func() (*render.Figure, error) {
		snrReg, err := Reproject(snr, primary.Header)
		if err != nil {
			return nil, err
		}
		mom0Reg, err := Reproject(mom0, primary.Header)
		if err != nil {
			return nil, err
		}
		return comp.composeSNR(snrReg, mom0Reg, fov), nil
	})

	log.Info().Msg("making velocity map")
	fig.write(ctx, KindMom1, "", func() (*render.Figure, error) {
		mom1, err := g.Reader.Read(ProductPath(fig.base, fig.src.ID, "mom1"))
		if err != nil {
			return nil, fmt.Errorf("velocity map: %w", missing(err))
		}
		vel := mom1.Grid.Copy()
		comp.VelocityMap(vel)
		velProduct := &product.Product{Path: mom1.Path, Header: mom1.Header, Grid: *vel}

		mom1Reg, err := Reproject(velProduct, primary.Header)
		if err != nil {
			return nil, err
		}
		mom0Reg, err := Reproject(mom0, primary.Header)
		if err != nil {
			return nil, err
		}
		if err := MaskBelow(mom1Reg, mom0Reg, comp.base); err != nil {
			return nil, err
		}
		return comp.composeMom1(mom1Reg, fov), nil
	})
}

// missing turns a product reader's not-found into ErrMissingInput.
func missing(err error) error {
	if errors.Is(err, product.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrMissingInput, err)
	}
	return err
}

// figureWriter takes a figure from existence check through to storage,
// recording how it went.
type figureWriter struct {
	g    *Gallery
	rep  *Report
	src  *Source
	base string
}

// write makes the figure `kind` (plus the survey tag, for overlays)
// unless it is already in the store. compose is only called when the
// figure is needed.
func (fw figureWriter) write(ctx context.Context, kind, surveyTag string, compose func() (*render.Figure, error)) error {
	path := FigurePath(fw.base, fw.src.ID, kind+surveyTag, fw.g.Config.Suffix)
	log := zerolog.Ctx(ctx).With().Str("figure", kind).Str("survey", surveyTag).Str("path", path).Logger()

	result := FigureResult{Kind: kind, Survey: surveyTag, Path: path}
	defer func() {
		fw.rep.Figures = append(fw.rep.Figures, result)
		fw.g.Metrics.ObserveFigure(kind, result.Outcome)
	}()

	fail := func(err error) error {
		result.Outcome, result.Err = FigureFailed, err
		fw.rep.Warnings = append(fw.rep.Warnings, fmt.Errorf("figure '%s': %w", path, err))
		log.Warn().Err(err).Msg("figure failed")
		return err
	}

	exists, err := fw.g.Store.Exists(ctx, path)
	if err != nil {
		return fail(err)
	} else if exists {
		result.Outcome = FigureExists
		log.Info().Msgf("%s already exists. Will not overwrite.", path)
		return nil
	}

	fig, err := compose()
	if errors.Is(err, ErrMissingInput) {
		result.Outcome, result.Err = FigureSkipped, err
		log.Warn().Err(err).Msg("no input for figure, skipping")
		return nil
	} else if err != nil {
		return fail(err)
	}

	var buf bytes.Buffer
	if err := fw.g.Renderer.Render(fig, &buf, fw.g.Config.Suffix); err != nil {
		return fail(fmt.Errorf("render: %w", err))
	}
	if err := fw.g.Store.Write(ctx, path, buf.Bytes()); err != nil {
		return fail(err)
	}

	result.Outcome = FigureWritten
	log.Info().Msg("figure written")
	return nil
}
