package survey

import (
	"fmt"
	"strings"
)

// Registry knows which fetcher serves which survey name.
type Registry struct {
	Client *Client
}

func NewRegistry(c *Client) *Registry { return &Registry{Client: c} }

// Lookup is case-insensitive, and ignores spaces in SkyView names, so
// "dss2blue" and "DSS2 Blue" are the same survey.
func (r *Registry) Lookup(name string) (Fetcher, string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameHST:
		return HST{Client: r.Client}, "HST", nil
	case NamePanSTARRS:
		return PanSTARRS{Client: r.Client}, "PanSTARRS", nil
	case NameDECaLS:
		return DECaLS{Client: r.Client}, "DECaLS", nil
	}

	if canonical, ok := lookupSkyView(name); ok {
		return SkyView{Client: r.Client, Survey: canonical}, canonical, nil
	}

	return nil, name, fmt.Errorf("'%s' is not a known survey (hst, panstarrs, decals, or a SkyView survey name): %w",
		name, ErrUnrecognizedSurvey)
}

// MapLookup is a fixed set of fetchers, keyed by lower-case survey name.
type MapLookup map[string]Fetcher

func (m MapLookup) Lookup(name string) (Fetcher, string, error) {
	for k, f := range m {
		if strings.EqualFold(k, strings.TrimSpace(name)) {
			return f, k, nil
		}
	}
	return nil, name, fmt.Errorf("'%s': %w", name, ErrUnrecognizedSurvey)
}
