// Package render draws annotated figures: a raster base layer, contour
// lines, markers and text, with axes, ticks and an optional colorbar.
//
// Positions are in data coordinates, which are the pixel coordinates of
// the base layer (x right, y up, pixel centres on integers), or in axes
// fractions where (0,0) is the bottom left of the plot area.
package render

import (
	"image"
	"image/color"

	"github.com/abworrall/hi-gallery/pkg/emath"
)

type Coords int

const (
	DataCoords Coords = iota
	AxesCoords
)

// Base is the bottom layer. Either Grid (colored via Cmap and Norm) or
// Image is set; Image is drawn top row uppermost.
type Base struct {
	Grid  *emath.FloatGrid
	Cmap  Colormap
	Norm  emath.Norm
	Image image.Image
}

func (b Base) Size() (int, int) {
	if b.Image != nil {
		return b.Image.Bounds().Dx(), b.Image.Bounds().Dy()
	}
	if b.Grid != nil {
		return b.Grid.Dx(), b.Grid.Dy()
	}
	return 0, 0
}

type ContourSet struct {
	Level    float64
	Segments []emath.Segment
	Color    color.Color
	Width    float64
	Dashed   bool
}

// Marker styles
const (
	MarkerCross = "x"
	MarkerPlus  = "+"
)

type Marker struct {
	X, Y  float64
	Style string
	Size  float64
	Color color.Color
	Width float64
}

type Line struct {
	Points []emath.Point
	Color  color.Color
	Width  float64
	Dashed bool
	Coords Coords
}

// Ellipse is in axes coordinates; Width and Height are fractions of the
// plot area, and Angle (degrees) rotates it counter-clockwise.
type Ellipse struct {
	X, Y          float64
	Width, Height float64
	Angle         float64
	Face, Edge    color.Color
}

// Text is anchored like gg.DrawStringAnchored: AX=0.5 centres horizontally.
type Text struct {
	S      string
	X, Y   float64
	Coords Coords
	Color  color.Color
	Size   float64
	AX, AY float64
}

type Tick struct {
	Pos   float64
	Label string
}

type Colorbar struct {
	Cmap  Colormap
	Norm  emath.Norm
	Label string
	Ticks []float64
}

// Axis describes one side of the plot frame.
type Axis struct {
	Label string
	Ticks []Tick
}

type Figure struct {
	Width, Height int

	Title     string
	TitleSize float64

	// EqualAspect keeps data pixels square; otherwise the base is
	// stretched to fill the plot area.
	EqualAspect bool

	Base     Base
	Contours []ContourSet
	Lines    []Line
	Markers  []Marker
	Ellipses []Ellipse
	Texts    []Text
	Colorbar *Colorbar

	Bottom, Left Axis
	Right        *Axis
}

// NewFigure is a square figure with equal-aspect data.
func NewFigure(title string) *Figure {
	return &Figure{
		Width:       800,
		Height:      760,
		Title:       title,
		TitleSize:   18,
		EqualAspect: true,
	}
}

// AddContours appends one ContourSet per level, tracing each across grid.
// xf, if not nil, moves each segment endpoint into data coordinates and
// may drop it by returning false.
func (f *Figure) AddContours(grid *emath.FloatGrid, levels []float64, colors []color.Color, width float64, xf func(emath.Point) (emath.Point, bool)) {
	for i, lvl := range levels {
		segs := emath.Contour(grid, lvl)
		if xf != nil {
			segs = transformSegments(segs, xf)
		}
		cs := ContourSet{Level: lvl, Segments: segs, Width: width, Dashed: lvl < 0, Color: color.Black}
		if i < len(colors) && colors[i] != nil {
			cs.Color = colors[i]
		}
		f.Contours = append(f.Contours, cs)
	}
}

func transformSegments(in []emath.Segment, xf func(emath.Point) (emath.Point, bool)) []emath.Segment {
	out := make([]emath.Segment, 0, len(in))
	for _, s := range in {
		a, okA := xf(s.A)
		b, okB := xf(s.B)
		if okA && okB {
			out = append(out, emath.Segment{A: a, B: b})
		}
	}
	return out
}
