package survey

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"

	"github.com/abworrall/hi-gallery/pkg/product"
)

// Endpoints are the base URLs of the image services. They are
// configurable so tests (and mirrors) can point elsewhere.
type Endpoints struct {
	SkyView            string `yaml:"skyview"`
	PanSTARRSFilenames string `yaml:"panstarrs_filenames"`
	PanSTARRSCutout    string `yaml:"panstarrs_cutout"`
	DECaLS             string `yaml:"decals"`
	HST                string `yaml:"hst"`
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		SkyView:            "https://skyview.gsfc.nasa.gov/current/cgi/runquery.pl",
		PanSTARRSFilenames: "https://ps1images.stsci.edu/cgi-bin/ps1filenames.py",
		PanSTARRSCutout:    "https://ps1images.stsci.edu/cgi-bin/fitscut.cgi",
		DECaLS:             "https://www.legacysurvey.org/viewer",
		HST:                "https://irsa.ipac.caltech.edu/cgi-bin/Cutouts/nph-cutouts",
	}
}

// WithDefaults fills in any empty endpoint.
func (e Endpoints) WithDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.SkyView == "" {
		e.SkyView = d.SkyView
	}
	if e.PanSTARRSFilenames == "" {
		e.PanSTARRSFilenames = d.PanSTARRSFilenames
	}
	if e.PanSTARRSCutout == "" {
		e.PanSTARRSCutout = d.PanSTARRSCutout
	}
	if e.DECaLS == "" {
		e.DECaLS = d.DECaLS
	}
	if e.HST == "" {
		e.HST = d.HST
	}
	return e
}

// A Client is shared by all the fetchers.
type Client struct {
	HTTP      *http.Client
	Endpoints Endpoints
}

func NewClient(e Endpoints, timeout time.Duration) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		Endpoints: e.WithDefaults(),
	}
}

// get returns the body and status code. Only failures to talk to the
// server at all are errors here; callers decide what a status means.
func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new request '%s': %v: %w", url, err, ErrTransport)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GET '%s': %v: %w", url, err, ErrTransport)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read '%s': %v: %w", url, err, ErrTransport)
	}

	return body, resp.StatusCode, nil
}

func statusOK(code int) bool { return code >= 200 && code < 300 }

func isFITS(body []byte) bool { return bytes.HasPrefix(body, []byte("SIMPLE")) }

// decodeFITS turns a FITS response body into an Image. A body that is
// not FITS at all (an HTML error page, say) means there was nothing to
// cut out at that position.
func decodeFITS(survey string, body []byte, fov float64) (*Image, error) {
	if !isFITS(body) {
		return nil, fmt.Errorf("%s: response is not FITS: %w", survey, ErrNoCoverage)
	}

	p, err := product.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: decode FITS: %v: %w", survey, err, ErrTransport)
	}

	return &Image{
		Survey:      survey,
		Header:      p.Header,
		Grid:        &p.Grid,
		FieldOfView: fov,
	}, nil
}

func decodeJPEG(survey string, body []byte) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: decode color image: %v: %w", survey, err, ErrTransport)
	}
	return img, nil
}
