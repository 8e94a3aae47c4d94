package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// A Request is one source's worth of survey fetching.
type Request struct {
	Position       Position
	FieldOfView    float64  // arcmin
	HSTFieldOfView float64  // arcmin, used only for the hst survey
	Surveys        []string // in priority order
}

// Result is the outcome for one requested survey.
type Result struct {
	Survey    string
	Image     *Image
	Err       error // why the fetch failed; nil on success
	RenderErr error // what the OnImage callback returned
	Primary   bool
}

type Resolution struct {
	Primary *Image // nil if no survey produced an image
	Results []Result
}

// Succeeded lists the surveys that returned an image, in request order.
func (r Resolution) Succeeded() []string {
	ret := []string{}
	for _, res := range r.Results {
		if res.Err == nil {
			ret = append(ret, res.Survey)
		}
	}
	return ret
}

// OnImage is called straight after each successful fetch, so figures are
// drawn as images arrive rather than in a batch at the end.
type OnImage func(ctx context.Context, img *Image, primary bool) error

// A FetchObserver is told how every fetch went (e.g. for metrics).
type FetchObserver interface {
	ObserveFetch(survey, outcome string, elapsed time.Duration)
}

// Fetch outcomes, as reported to a FetchObserver.
const (
	OutcomeOK           = "ok"
	OutcomeNoCoverage   = "no_coverage"
	OutcomeTransport    = "transport_error"
	OutcomeUnrecognized = "unrecognized"
)

func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNoCoverage):
		return OutcomeNoCoverage
	case errors.Is(err, ErrUnrecognizedSurvey):
		return OutcomeUnrecognized
	default:
		return OutcomeTransport
	}
}

type Resolver struct {
	Lookup   Lookup
	Observer FetchObserver // optional
}

// Resolve walks the requested surveys in order, skipping repeats. Every
// kind of failure is logged and the walk moves on to the next survey.
// The primary image, which defines the registration grid, is the first
// image obtained in request order.
func (r *Resolver) Resolve(ctx context.Context, req Request, onImage OnImage) Resolution {
	log := zerolog.Ctx(ctx)
	res := Resolution{}
	primaryAssigned := false
	seen := map[string]bool{}

	for _, requested := range req.Surveys {
		key := FileTag(strings.TrimSpace(requested))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		result := r.fetchOne(ctx, req, requested)
		survLog := log.With().Str("survey", result.Survey).Logger()

		switch {
		case errors.Is(result.Err, ErrUnrecognizedSurvey):
			survLog.Error().Err(result.Err).Msg("survey not recognized, skipping")
		case errors.Is(result.Err, ErrNoCoverage):
			survLog.Warn().Err(result.Err).Msg("no image retrieved, no coverage at this position")
		case result.Err != nil:
			survLog.Warn().Err(result.Err).Msg("no image retrieved, server error? Try again later")
		default:
			survLog.Info().Str("image", result.Image.String()).Msg("image retrieved")
			if !primaryAssigned {
				primaryAssigned = true
				result.Primary = true
				res.Primary = result.Image
			}
			if onImage != nil {
				if result.RenderErr = onImage(ctx, result.Image, result.Primary); result.RenderErr != nil {
					survLog.Warn().Err(result.RenderErr).Msg("overlay figure failed")
				}
			}
		}

		res.Results = append(res.Results, result)
	}

	if !primaryAssigned {
		log.Warn().Strs("surveys", req.Surveys).Msg("no survey produced an image")
	}
	return res
}

func (r *Resolver) fetchOne(ctx context.Context, req Request, requested string) Result {
	tStart := time.Now()

	fetcher, name, err := r.Lookup.Lookup(requested)
	if err == nil {
		fov := req.FieldOfView
		if strings.EqualFold(name, NameHST) && req.HSTFieldOfView > 0 {
			fov = req.HSTFieldOfView
		}

		var img *Image
		img, err = fetcher.Fetch(ctx, req.Position, fov)
		if err == nil && img == nil {
			err = fmt.Errorf("%s returned no image: %w", name, ErrNoCoverage)
		}
		if err == nil {
			if img.Survey == "" {
				img.Survey = name
			}
			if img.FieldOfView == 0 {
				img.FieldOfView = fov
			}
			r.observe(name, err, time.Since(tStart))
			return Result{Survey: name, Image: img}
		}
	}

	r.observe(name, err, time.Since(tStart))
	return Result{Survey: name, Err: err}
}

func (r *Resolver) observe(survey string, err error, elapsed time.Duration) {
	if r.Observer != nil {
		r.Observer.ObserveFetch(survey, Outcome(err), elapsed)
	}
}
