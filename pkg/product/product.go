// Package product reads the 2D data products (moment maps, SNR maps, PV
// slices) and cube headers that the source finder writes out as FITS.
package product

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/abworrall/hi-gallery/pkg/emath"
)

// ErrNotFound is returned when an expected data product file does not
// exist. Callers are expected to skip, not abort.
var ErrNotFound = errors.New("data product not found")

// A Product is one 2D image plane and the header describing it.
type Product struct {
	Path   string
	Header Header
	Grid   emath.FloatGrid
}

func (p Product) String() string { return fmt.Sprintf("product[%s %s]", p.Path, p.Grid.Stats()) }

// A Reader loads products; the orchestrator only talks to this, so tests can fake it.
type Reader interface {
	Read(path string) (*Product, error)
	ReadHeader(path string) (Header, error)
}

// FileReader reads FITS files from the local filesystem.
type FileReader struct{}

func (FileReader) Read(path string) (*Product, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode '%s': %w", path, err)
	}
	p.Path = path
	return p, nil
}

func (FileReader) ReadHeader(path string) (Header, error) {
	f, err := openFile(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	h, err := DecodeHeader(f)
	if err != nil {
		return Header{}, fmt.Errorf("decode header '%s': %w", path, err)
	}
	return h, nil
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open '%s': %w", path, ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("open '%s': %w", path, err)
	}
	return f, nil
}

// DecodeHeader returns the header of the primary HDU.
func DecodeHeader(r io.Reader) (Header, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	return convertHeader(f.HDU(0).Header()), nil
}

// Decode reads the primary HDU as a 2D image. For data with more than
// two axes, the first plane is returned. BSCALE and BZERO are applied,
// and integer BLANK values become NaN.
func Decode(r io.Reader) (*Product, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("primary HDU is not an image")
	}

	hdr := convertHeader(img.Header())
	axes := img.Header().Axes()
	if len(axes) < 2 {
		return nil, fmt.Errorf("need at least 2 axes, got %v", axes)
	}
	w, h := axes[0], axes[1]
	n := 1
	for _, a := range axes {
		n *= a
	}

	vals, err := readPixels(img, img.Header().Bitpix(), n)
	if err != nil {
		return nil, err
	}

	scale := hdr.FloatOr("BSCALE", 1.0)
	zero := hdr.FloatOr("BZERO", 0.0)
	blank, hasBlank := hdr.Float("BLANK")
	hasBlank = hasBlank && img.Header().Bitpix() > 0

	plane := make([]float64, w*h)
	for i := range plane {
		v := vals[i]
		if hasBlank && v == blank {
			plane[i] = math.NaN()
			continue
		}
		plane[i] = v*scale + zero
	}

	grid, err := emath.NewFloatGridFromValues(w, h, plane)
	if err != nil {
		return nil, err
	}

	return &Product{Header: hdr, Grid: grid}, nil
}

func readPixels(img fitsio.Image, bitpix, n int) ([]float64, error) {
	out := make([]float64, n)

	switch bitpix {
	case 8:
		data := make([]byte, n)
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = float64(v)
		}
	case 16:
		data := make([]int16, n)
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = float64(v)
		}
	case 32:
		data := make([]int32, n)
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = float64(v)
		}
	case 64:
		data := make([]int64, n)
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = float64(v)
		}
	case -32:
		data := make([]float32, n)
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = float64(v)
		}
	case -64:
		if err := img.Read(&out); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}

	return out, nil
}

func convertHeader(fh *fitsio.Header) Header {
	h := Header{}
	for _, k := range fh.Keys() {
		if c := fh.Get(k); c != nil {
			h.Set(c.Name, c.Value)
		}
	}
	// Make sure the structural keywords are present even if the library keeps them out of Keys()
	h.Set("BITPIX", fh.Bitpix())
	h.Set("NAXIS", len(fh.Axes()))
	for i, a := range fh.Axes() {
		h.Set(fmt.Sprintf("NAXIS%d", i+1), a)
	}
	return h
}
