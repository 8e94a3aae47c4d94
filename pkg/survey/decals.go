package survey

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const decalsPixelScale = 0.262 // arcsec/pix, the native Legacy Survey scale

// DECaLS fetches from the Legacy Survey viewer: a g-band FITS cutout for
// the grid, and the matching false-color JPEG.
type DECaLS struct {
	Client *Client
	Layer  string // defaults to ls-dr9
}

func (d DECaLS) Fetch(ctx context.Context, pos Position, fov float64) (*Image, error) {
	layer := d.Layer
	if layer == "" {
		layer = "ls-dr9"
	}
	dimen := int(fov * 60 / decalsPixelScale)

	q := url.Values{}
	q.Set("ra", fmt.Sprintf("%.6f", pos.RA))
	q.Set("dec", fmt.Sprintf("%.6f", pos.Dec))
	q.Set("layer", layer)
	q.Set("pixscale", fmt.Sprintf("%g", decalsPixelScale))
	q.Set("height", fmt.Sprintf("%d", dimen))
	q.Set("width", fmt.Sprintf("%d", dimen))

	colorURL := d.Client.Endpoints.DECaLS + "/cutout.jpg?" + q.Encode()
	q.Set("bands", "g")
	fitsURL := d.Client.Endpoints.DECaLS + "/cutout.fits?" + q.Encode()

	body, code, err := d.Client.get(ctx, fitsURL)
	if err != nil {
		return nil, err
	}
	if err := d.classify(code); err != nil {
		return nil, err
	}
	img, err := decodeFITS("DECaLS", body, fov)
	if err != nil {
		return nil, err
	}

	body, code, err = d.Client.get(ctx, colorURL)
	if err != nil {
		return nil, err
	}
	if err := d.classify(code); err != nil {
		return nil, err
	}
	if img.Color, err = decodeJPEG("DECaLS", body); err != nil {
		return nil, err
	}

	return img, nil
}

// The viewer answers 404 outside the survey footprint.
func (d DECaLS) classify(code int) error {
	switch {
	case statusOK(code):
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("DECaLS: HTTP %d: %w", code, ErrNoCoverage)
	default:
		return fmt.Errorf("DECaLS: HTTP %d: %w", code, ErrTransport)
	}
}
