package survey

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
)

const panstarrsPixelScale = 0.25 // arcsec/pix

// PanSTARRS fetches a g/r/i false-color cutout from the PS1 image
// server, plus the r-band FITS cutout that defines its pixel grid.
type PanSTARRS struct {
	Client *Client
}

func (p PanSTARRS) Fetch(ctx context.Context, pos Position, fov float64) (*Image, error) {
	size := int(fov * 60 / panstarrsPixelScale)

	files, err := p.filenames(ctx, pos)
	if err != nil {
		return nil, err
	}
	rband, ok := files["r"]
	if !ok {
		return nil, fmt.Errorf("PanSTARRS: no r-band image at %s: %w", pos, ErrNoCoverage)
	}

	cutout := func(format string, extra url.Values) string {
		q := url.Values{}
		q.Set("ra", fmt.Sprintf("%.6f", pos.RA))
		q.Set("dec", fmt.Sprintf("%.6f", pos.Dec))
		q.Set("size", fmt.Sprintf("%d", size))
		q.Set("format", format)
		for k, v := range extra {
			q[k] = v
		}
		return p.Client.Endpoints.PanSTARRSCutout + "?" + q.Encode()
	}

	body, code, err := p.Client.get(ctx, cutout("fits", url.Values{"red": {rband}}))
	if err != nil {
		return nil, err
	}
	if !statusOK(code) {
		return nil, fmt.Errorf("PanSTARRS FITS cutout: HTTP %d: %w", code, ErrTransport)
	}
	img, err := decodeFITS("PanSTARRS", body, fov)
	if err != nil {
		return nil, err
	}

	// Red, green, blue from i, r, g; fall back to r for any band that is missing
	band := func(b string) string {
		if f, ok := files[b]; ok {
			return f
		}
		return rband
	}
	colorURL := cutout("jpg", url.Values{"red": {band("i")}, "green": {band("r")}, "blue": {band("g")}})
	body, code, err = p.Client.get(ctx, colorURL)
	if err != nil {
		return nil, err
	}
	if !statusOK(code) {
		return nil, fmt.Errorf("PanSTARRS color cutout: HTTP %d: %w", code, ErrTransport)
	}
	if img.Color, err = decodeJPEG("PanSTARRS", body); err != nil {
		return nil, err
	}

	return img, nil
}

// filenames returns the stacked image filename per filter. The service
// answers with a whitespace separated table, header row first.
func (p PanSTARRS) filenames(ctx context.Context, pos Position) (map[string]string, error) {
	q := url.Values{}
	q.Set("ra", fmt.Sprintf("%.6f", pos.RA))
	q.Set("dec", fmt.Sprintf("%.6f", pos.Dec))
	q.Set("filters", "gri")
	q.Set("type", "stack")

	body, code, err := p.Client.get(ctx, p.Client.Endpoints.PanSTARRSFilenames+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if !statusOK(code) {
		return nil, fmt.Errorf("PanSTARRS filenames: HTTP %d: %w", code, ErrTransport)
	}

	return parseFilenameTable(body)
}

func parseFilenameTable(body []byte) (map[string]string, error) {
	files := map[string]string{}
	filterCol, fileCol := -1, -1

	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if filterCol < 0 {
			for i, f := range fields {
				switch f {
				case "filter":
					filterCol = i
				case "filename":
					fileCol = i
				}
			}
			if filterCol < 0 || fileCol < 0 {
				return nil, fmt.Errorf("PanSTARRS filenames: unexpected header %q: %w", scanner.Text(), ErrTransport)
			}
			continue
		}
		if len(fields) <= filterCol || len(fields) <= fileCol {
			continue
		}
		files[fields[filterCol]] = fields[fileCol]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("PanSTARRS filenames: %v: %w", err, ErrTransport)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("PanSTARRS: no images: %w", ErrNoCoverage)
	}
	return files, nil
}
