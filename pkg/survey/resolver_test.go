package survey

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hi-gallery/pkg/product"
)

type fakeObserver struct {
	sync.Mutex
	outcomes map[string]string
}

func (o *fakeObserver) ObserveFetch(survey, outcome string, elapsed time.Duration) {
	o.Lock()
	defer o.Unlock()
	o.outcomes[survey] = outcome
}

func okFetcher(name string, calls *[]string, fovs map[string]float64) Fetcher {
	return FetcherFunc(func(ctx context.Context, pos Position, fov float64) (*Image, error) {
		*calls = append(*calls, name)
		fovs[name] = fov
		return &Image{Header: product.NewHeader(map[string]interface{}{"SURVEY": name})}, nil
	})
}

func failFetcher(name string, calls *[]string, err error) Fetcher {
	return FetcherFunc(func(ctx context.Context, pos Position, fov float64) (*Image, error) {
		*calls = append(*calls, name)
		return nil, fmt.Errorf("%s: %w", name, err)
	})
}

func TestPrimaryIsFirstSuccessInRequestOrder(t *testing.T) {
	calls := []string{}
	fovs := map[string]float64{}
	lookup := MapLookup{
		"hst":       failFetcher("hst", &calls, ErrNoCoverage),
		"panstarrs": okFetcher("panstarrs", &calls, fovs),
		"decals":    okFetcher("decals", &calls, fovs),
	}
	obs := &fakeObserver{outcomes: map[string]string{}}
	r := Resolver{Lookup: lookup, Observer: obs}

	rendered := []string{}
	primaries := []bool{}
	res := r.Resolve(context.Background(), Request{
		Position:    Position{150, 2},
		FieldOfView: 6,
		Surveys:     []string{"hst", "panstarrs", "decals"},
	}, func(ctx context.Context, img *Image, primary bool) error {
		rendered = append(rendered, img.Survey)
		primaries = append(primaries, primary)
		return nil
	})

	require.NotNil(t, res.Primary)
	assert.Equal(t, "panstarrs", res.Primary.Survey)
	assert.Equal(t, "panstarrs", res.Primary.Header.StrOr("SURVEY", ""))

	// Overlays drawn for successful surveys only, in order, as they arrived
	assert.Equal(t, []string{"panstarrs", "decals"}, rendered)
	assert.Equal(t, []bool{true, false}, primaries)
	assert.Equal(t, []string{"hst", "panstarrs", "decals"}, calls)
	assert.Equal(t, []string{"panstarrs", "decals"}, res.Succeeded())

	require.Len(t, res.Results, 3)
	assert.True(t, errors.Is(res.Results[0].Err, ErrNoCoverage))
	assert.False(t, res.Results[0].Primary)
	assert.True(t, res.Results[1].Primary)
	assert.Equal(t, 6.0, res.Results[2].Image.FieldOfView)

	assert.Equal(t, OutcomeNoCoverage, obs.outcomes["hst"])
	assert.Equal(t, OutcomeOK, obs.outcomes["panstarrs"])
}

func TestResolveSkipsUnrecognizedAndTransportErrors(t *testing.T) {
	calls := []string{}
	fovs := map[string]float64{}
	lookup := MapLookup{
		"dss2 blue": failFetcher("dss2 blue", &calls, ErrTransport),
		"wise 3.4":  okFetcher("wise 3.4", &calls, fovs),
	}
	r := Resolver{Lookup: lookup}

	res := r.Resolve(context.Background(), Request{
		FieldOfView: 6,
		Surveys:     []string{"nonsense", "DSS2 Blue", "dss2 blue", "WISE 3.4"},
	}, nil)

	require.Len(t, res.Results, 3, "duplicate request is dropped")
	assert.True(t, errors.Is(res.Results[0].Err, ErrUnrecognizedSurvey))
	assert.True(t, errors.Is(res.Results[1].Err, ErrTransport))
	require.NotNil(t, res.Primary)
	assert.Equal(t, "wise 3.4", res.Primary.Survey)
	assert.Equal(t, []string{"dss2 blue", "wise 3.4"}, calls)
}

func TestHSTUsesItsOwnFieldOfView(t *testing.T) {
	calls := []string{}
	fovs := map[string]float64{}
	r := Resolver{Lookup: MapLookup{
		"hst":       okFetcher("hst", &calls, fovs),
		"dss2 blue": okFetcher("dss2 blue", &calls, fovs),
	}}

	res := r.Resolve(context.Background(), Request{
		FieldOfView:    6,
		HSTFieldOfView: 40.0 / 60,
		Surveys:        []string{"HST", "DSS2 Blue"},
	}, nil)

	assert.InDelta(t, 40.0/60, fovs["hst"], 1e-12)
	assert.Equal(t, 6.0, fovs["dss2 blue"])
	assert.InDelta(t, 40.0/60, res.Primary.FieldOfView, 1e-12)
}

func TestNothingSucceeds(t *testing.T) {
	calls := []string{}
	r := Resolver{Lookup: MapLookup{"decals": failFetcher("decals", &calls, ErrNoCoverage)}}

	rendered := 0
	res := r.Resolve(context.Background(), Request{FieldOfView: 6, Surveys: []string{"decals"}},
		func(ctx context.Context, img *Image, primary bool) error { rendered++; return nil })

	assert.Nil(t, res.Primary)
	assert.Empty(t, res.Succeeded())
	assert.Equal(t, 0, rendered)
}

func TestFetcherWithNoImageIsNoCoverage(t *testing.T) {
	calls := []string{}
	fovs := map[string]float64{}
	obs := &fakeObserver{outcomes: map[string]string{}}
	r := Resolver{Lookup: MapLookup{
		"empty": FetcherFunc(func(ctx context.Context, pos Position, fov float64) (*Image, error) { return nil, nil }),
		"a":     okFetcher("a", &calls, fovs),
	}, Observer: obs}

	res := r.Resolve(context.Background(), Request{FieldOfView: 6, Surveys: []string{"empty", "a"}},
		func(ctx context.Context, img *Image, primary bool) error { return nil })

	require.Len(t, res.Results, 2)
	assert.True(t, errors.Is(res.Results[0].Err, ErrNoCoverage))
	assert.Nil(t, res.Results[0].Image)
	require.NotNil(t, res.Primary)
	assert.Equal(t, "a", res.Primary.Survey)
	assert.Equal(t, OutcomeNoCoverage, obs.outcomes["empty"])
}

func TestRenderErrorsAreRecordedButNotFatal(t *testing.T) {
	calls := []string{}
	fovs := map[string]float64{}
	r := Resolver{Lookup: MapLookup{
		"a": okFetcher("a", &calls, fovs),
		"b": okFetcher("b", &calls, fovs),
	}}

	res := r.Resolve(context.Background(), Request{FieldOfView: 6, Surveys: []string{"a", "b"}},
		func(ctx context.Context, img *Image, primary bool) error {
			if img.Survey == "a" {
				return errors.New("disk full")
			}
			return nil
		})

	assert.Error(t, res.Results[0].RenderErr)
	assert.NoError(t, res.Results[1].RenderErr)
	assert.Equal(t, "a", res.Primary.Survey)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeTransport, Outcome(errors.New("eh")))
	assert.Equal(t, OutcomeUnrecognized, Outcome(fmt.Errorf("x: %w", ErrUnrecognizedSurvey)))
}
