package survey

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// SkyView fetches from NASA's SkyView service, which hosts many surveys
// behind one query interface.
type SkyView struct {
	Client *Client
	Survey string // canonical SkyView name, e.g. "DSS2 Blue"
}

// Fetch asks for two pixels per arcsec of field, so the grid is finer
// than the DSS plates (~1"/pix) and the contours stay smooth.
func (s SkyView) Fetch(ctx context.Context, pos Position, fov float64) (*Image, error) {
	q := url.Values{}
	q.Set("Position", fmt.Sprintf("%.6f,%.6f", pos.RA, pos.Dec))
	q.Set("Survey", s.Survey)
	q.Set("Coordinates", "ICRS")
	q.Set("Projection", "Tan")
	q.Set("Pixels", fmt.Sprintf("%d", int(fov*60*2)))
	q.Set("Size", fmt.Sprintf("%.6f", fov/60.0))
	q.Set("Return", "FITS")
	u := s.Client.Endpoints.SkyView + "?" + q.Encode()

	body, code, err := s.Client.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if !statusOK(code) {
		return nil, fmt.Errorf("SkyView %s: HTTP %d: %w", s.Survey, code, ErrTransport)
	}

	return decodeFITS(s.Survey, body, fov)
}

// skyViewSurveys are the SkyView survey names we accept, keyed by
// lower-cased name with the spaces removed.
var skyViewSurveys = map[string]string{}

func init() {
	for _, name := range []string{
		"DSS", "DSS1 Blue", "DSS1 Red", "DSS2 Blue", "DSS2 Red", "DSS2 IR",
		"SDSSu", "SDSSg", "SDSSr", "SDSSi", "SDSSz",
		"SDSSdr7u", "SDSSdr7g", "SDSSdr7r", "SDSSdr7i", "SDSSdr7z",
		"2MASS-J", "2MASS-H", "2MASS-K",
		"UKIDSS-Y", "UKIDSS-J", "UKIDSS-H", "UKIDSS-K",
		"WISE 3.4", "WISE 4.6", "WISE 12", "WISE 22",
		"GALEX Near UV", "GALEX Far UV",
		"Mellinger Red", "Mellinger Green", "Mellinger Blue",
		"H-Alpha Comp", "SHASSA H", "SHASSA CC", "SHASSA C", "SHASSA Sm",
		"NVSS", "FIRST", "SUMSS 843 MHz", "TGSS ADR1", "VLSSr", "WENSS",
		"GB6 (4850MHz)", "HI4PI", "EBHIS",
		"IRIS 12", "IRIS 25", "IRIS 60", "IRIS 100",
		"Planck 857", "Planck 545", "Planck 353",
	} {
		skyViewSurveys[FileTag(name)] = name
	}
}

func lookupSkyView(name string) (string, bool) {
	canonical, ok := skyViewSurveys[FileTag(strings.TrimSpace(name))]
	return canonical, ok
}
