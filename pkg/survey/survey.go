// Package survey fetches ancillary optical/IR images of the sky around a
// source, from a handful of public image services, and picks the one
// that defines the common registration grid.
package survey

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/abworrall/hi-gallery/pkg/emath"
	"github.com/abworrall/hi-gallery/pkg/product"
)

// The three ways a fetch can come back empty. The resolver treats them
// all as non-fatal, but logs them differently.
var (
	ErrNoCoverage         = errors.New("no survey coverage at this position")
	ErrTransport          = errors.New("survey transport error")
	ErrUnrecognizedSurvey = errors.New("unrecognized survey")
)

// Survey identifiers with their own fetchers; anything else goes to SkyView.
const (
	NameHST       = "hst"
	NamePanSTARRS = "panstarrs"
	NameDECaLS    = "decals"
)

// Position is an ICRS sky position, degrees.
type Position struct {
	RA, Dec float64
}

func (p Position) String() string { return fmt.Sprintf("(%.6f,%.6f)", p.RA, p.Dec) }

// An Image is what a survey returns: a header defining the pixel grid,
// and either mono pixel values, a false-color rendering on that grid, or both.
type Image struct {
	Survey      string
	Header      product.Header
	Grid        *emath.FloatGrid
	Color       image.Image
	FieldOfView float64 // arcmin, as requested
}

// IsColor is true for the false-color surveys, which are drawn as-is.
func (img *Image) IsColor() bool { return img.Color != nil }

// FileTag is the survey name as it appears in figure filenames, e.g. "dss2blue".
func (img *Image) FileTag() string { return FileTag(img.Survey) }

func FileTag(survey string) string {
	return strings.ToLower(strings.ReplaceAll(survey, " ", ""))
}

func (img *Image) String() string {
	if img.Grid != nil {
		return fmt.Sprintf("%s[%s fov=%.2f']", img.Survey, img.Grid.Stats(), img.FieldOfView)
	}
	return fmt.Sprintf("%s[color fov=%.2f']", img.Survey, img.FieldOfView)
}

// A Fetcher gets an image of one survey, `fov` arcmin on a side, centered on `pos`.
type Fetcher interface {
	Fetch(ctx context.Context, pos Position, fov float64) (*Image, error)
}

// FetcherFunc lets a plain function act as a Fetcher.
type FetcherFunc func(ctx context.Context, pos Position, fov float64) (*Image, error)

func (f FetcherFunc) Fetch(ctx context.Context, pos Position, fov float64) (*Image, error) {
	return f(ctx, pos, fov)
}

// A Lookup turns a requested survey name into a fetcher, and the
// canonical name to use in logs and filenames.
type Lookup interface {
	Lookup(name string) (Fetcher, string, error)
}
