package survey

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// HST fetches ACS F814W cutouts of the COSMOS field from the IRSA
// cutout service. Outside COSMOS there is no coverage.
type HST struct {
	Client *Client
}

func (h HST) Fetch(ctx context.Context, pos Position, fov float64) (*Image, error) {
	q := url.Values{}
	q.Set("mission", "COSMOS")
	q.Set("locstr", fmt.Sprintf("%.6f %.6f", pos.RA, pos.Dec))
	q.Set("sizeX", fmt.Sprintf("%d", int(fov*60+0.5)))
	q.Set("ntable_cutouts", "1")
	q.Set("cutouttbl1", "acs_mosaic_2.0")
	q.Set("mode", "PI")

	body, code, err := h.Client.get(ctx, h.Client.Endpoints.HST+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if !statusOK(code) {
		return nil, fmt.Errorf("HST cutout query: HTTP %d: %w", code, ErrTransport)
	}

	fitsURL, err := firstFITSLink(body)
	if err != nil {
		return nil, err
	}

	body, code, err = h.Client.get(ctx, fitsURL)
	if err != nil {
		return nil, err
	}
	if !statusOK(code) {
		return nil, fmt.Errorf("HST cutout '%s': HTTP %d: %w", fitsURL, code, ErrTransport)
	}

	return decodeFITS("HST", body, fov)
}

// firstFITSLink pulls the first <fits> element out of the cutout
// service's XML response.
func firstFITSLink(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", fmt.Errorf("HST cutout response: %v: %w", err, ErrTransport)
		}

		if se, ok := tok.(xml.StartElement); ok && strings.EqualFold(se.Name.Local, "fits") {
			var link string
			if err := dec.DecodeElement(&link, &se); err != nil {
				return "", fmt.Errorf("HST cutout response: %v: %w", err, ErrTransport)
			}
			if link = strings.TrimSpace(link); link != "" {
				return link, nil
			}
		}
	}

	return "", fmt.Errorf("HST: no COSMOS cutout: %w", ErrNoCoverage)
}
