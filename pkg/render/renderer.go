package render

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/abworrall/hi-gallery/pkg/emath"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	marginLeft   = 100.0
	marginRight  = 40.0
	marginTop    = 60.0
	marginBottom = 80.0
	colorbarW    = 18.0
	colorbarGap  = 20.0
	colorbarRoom = 110.0
	rightAxisW   = 90.0
	tickLen      = 6.0
)

var goFont *truetype.Font

func init() {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("parse embedded font: %v", err))
	}
	goFont = f
}

// Renderer draws Figures with gg and encodes them as PNG or JPEG. It
// holds no per-figure state, so one Renderer may be shared by workers.
type Renderer struct {
	JPEGQuality int
}

func NewRenderer() *Renderer {
	return &Renderer{JPEGQuality: 90}
}

// Render draws fig and writes it to w in the format named by suffix
// ("png", "jpg" or "jpeg").
func (r *Renderer) Render(fig *Figure, w io.Writer, suffix string) error {
	im, err := r.Draw(fig)
	if err != nil {
		return err
	}

	switch strings.ToLower(suffix) {
	case "png":
		return png.Encode(w, im)
	case "jpg", "jpeg":
		return jpeg.Encode(w, im, &jpeg.Options{Quality: r.JPEGQuality})
	default:
		return fmt.Errorf("render: output format '%s' not supported", suffix)
	}
}

// frame maps data and axes coordinates onto the canvas.
type frame struct {
	x0, y0, w, h float64 // plot area, canvas pixels, y down
	nx, ny       float64 // data extent, in base pixels
}

func (fr frame) data(x, y float64) (float64, float64) {
	return fr.x0 + (x+0.5)/fr.nx*fr.w, fr.y0 + fr.h - (y+0.5)/fr.ny*fr.h
}

func (fr frame) axes(fx, fy float64) (float64, float64) {
	return fr.x0 + fx*fr.w, fr.y0 + (1-fy)*fr.h
}

func (fr frame) at(c Coords, x, y float64) (float64, float64) {
	if c == AxesCoords {
		return fr.axes(x, y)
	}
	return fr.data(x, y)
}

func layout(fig *Figure) (frame, error) {
	nx, ny := fig.Base.Size()
	if nx == 0 || ny == 0 {
		return frame{}, fmt.Errorf("render: figure '%s' has no base layer", fig.Title)
	}

	right := marginRight
	if fig.Colorbar != nil {
		right += colorbarRoom
	}
	if fig.Right != nil {
		right += rightAxisW
	}

	fr := frame{
		x0: marginLeft,
		y0: marginTop,
		w:  float64(fig.Width) - marginLeft - right,
		h:  float64(fig.Height) - marginTop - marginBottom,
		nx: float64(nx),
		ny: float64(ny),
	}
	if fr.w < 10 || fr.h < 10 {
		return frame{}, fmt.Errorf("render: figure '%s' is too small (%dx%d)", fig.Title, fig.Width, fig.Height)
	}

	if fig.EqualAspect {
		scale := math.Min(fr.w/fr.nx, fr.h/fr.ny)
		fr.w, fr.h = fr.nx*scale, fr.ny*scale
	}
	return fr, nil
}

// Draw renders the figure into an image.
func (r *Renderer) Draw(fig *Figure) (*image.RGBA, error) {
	fr, err := layout(fig)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, fig.Width, fig.Height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	plotRect := image.Rect(int(fr.x0), int(fr.y0), int(fr.x0+fr.w), int(fr.y0+fr.h))
	drawBase(canvas, plotRect, fig.Base)

	dc := gg.NewContextForRGBA(canvas)

	dc.DrawRectangle(fr.x0, fr.y0, fr.w, fr.h)
	dc.Clip()
	drawContours(dc, fr, fig.Contours)
	drawLines(dc, fr, fig.Lines)
	drawMarkers(dc, fr, fig.Markers)
	drawEllipses(dc, fr, fig.Ellipses)
	dc.ResetClip()

	dc.SetColor(color.Black)
	dc.SetLineWidth(1)
	dc.DrawRectangle(fr.x0, fr.y0, fr.w, fr.h)
	dc.Stroke()

	r.drawAxes(dc, fr, fig)
	r.drawTexts(dc, fr, fig.Texts)
	if fig.Colorbar != nil {
		r.drawColorbar(dc, fr, fig)
	}

	if fig.Title != "" {
		dc.SetFontFace(face(fig.TitleSize))
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(fig.Title, fr.x0+fr.w/2, fr.y0-15, 0.5, 0)
	}

	return canvas, nil
}

func face(size float64) font.Face {
	if size <= 0 {
		size = 12
	}
	return truetype.NewFace(goFont, &truetype.Options{Size: size})
}

// drawBase colors the grid (row 0 at the bottom) or takes the image as
// is, and scales it onto the plot area.
func drawBase(dst *image.RGBA, rect image.Rectangle, b Base) {
	if b.Image != nil {
		draw.ApproxBiLinear.Scale(dst, rect, b.Image, b.Image.Bounds(), draw.Over, nil)
		return
	}

	g := b.Grid
	norm := b.Norm
	if norm == nil {
		lo, hi := g.MinMax()
		norm = emath.LinearNorm{Min: lo, Max: hi}
	}
	cmap := b.Cmap
	if cmap == nil {
		cmap = MustColormap("gray")
	}

	raster := image.NewRGBA(image.Rect(0, 0, g.Dx(), g.Dy()))
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			raster.Set(x, g.Dy()-1-y, cmap.At(norm.Scale(g.Get(x, y))))
		}
	}
	draw.NearestNeighbor.Scale(dst, rect, raster, raster.Bounds(), draw.Over, nil)
}

func setDash(dc *gg.Context, dashed bool, width float64) {
	if dashed {
		dc.SetDash(6*math.Max(width, 1), 4*math.Max(width, 1))
	} else {
		dc.SetDash()
	}
}

func drawContours(dc *gg.Context, fr frame, sets []ContourSet) {
	for _, cs := range sets {
		if len(cs.Segments) == 0 {
			continue
		}
		dc.SetColor(cs.Color)
		dc.SetLineWidth(cs.Width)
		setDash(dc, cs.Dashed, cs.Width)
		for _, s := range cs.Segments {
			ax, ay := fr.data(s.A.X, s.A.Y)
			bx, by := fr.data(s.B.X, s.B.Y)
			dc.MoveTo(ax, ay)
			dc.LineTo(bx, by)
		}
		dc.Stroke()
	}
	dc.SetDash()
}

func drawLines(dc *gg.Context, fr frame, lines []Line) {
	for _, l := range lines {
		if len(l.Points) < 2 {
			continue
		}
		dc.SetColor(l.Color)
		dc.SetLineWidth(l.Width)
		setDash(dc, l.Dashed, l.Width)
		for i, p := range l.Points {
			x, y := fr.at(l.Coords, p.X, p.Y)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.Stroke()
	}
	dc.SetDash()
}

func drawMarkers(dc *gg.Context, fr frame, markers []Marker) {
	for _, m := range markers {
		x, y := fr.data(m.X, m.Y)
		s := m.Size / 2
		dc.SetColor(m.Color)
		dc.SetLineWidth(math.Max(m.Width, 1))
		switch m.Style {
		case MarkerPlus:
			dc.DrawLine(x-s, y, x+s, y)
			dc.DrawLine(x, y-s, x, y+s)
		default:
			dc.DrawLine(x-s, y-s, x+s, y+s)
			dc.DrawLine(x-s, y+s, x+s, y-s)
		}
		dc.Stroke()
	}
}

func drawEllipses(dc *gg.Context, fr frame, ellipses []Ellipse) {
	for _, e := range ellipses {
		x, y := fr.axes(e.X, e.Y)
		dc.Push()
		dc.Translate(x, y)
		// canvas y points down, so counter-clockwise is a negative angle
		dc.Rotate(-gg.Radians(e.Angle))
		dc.DrawEllipse(0, 0, e.Width*fr.w/2, e.Height*fr.h/2)
		if e.Face != nil {
			dc.SetColor(e.Face)
			dc.FillPreserve()
		}
		if e.Edge != nil {
			dc.SetColor(e.Edge)
			dc.SetLineWidth(1.5)
			dc.Stroke()
		}
		dc.ClearPath()
		dc.Pop()
	}
}

func (r *Renderer) drawTexts(dc *gg.Context, fr frame, texts []Text) {
	for _, t := range texts {
		x, y := fr.at(t.Coords, t.X, t.Y)
		dc.SetFontFace(face(t.Size))
		col := t.Color
		if col == nil {
			col = color.Black
		}
		dc.SetColor(col)
		dc.DrawStringAnchored(t.S, x, y, t.AX, t.AY)
	}
}

func (r *Renderer) drawAxes(dc *gg.Context, fr frame, fig *Figure) {
	dc.SetFontFace(face(12))
	dc.SetColor(color.Black)
	dc.SetLineWidth(1)

	for _, t := range fig.Bottom.Ticks {
		x, _ := fr.data(t.Pos, 0)
		if x < fr.x0-0.5 || x > fr.x0+fr.w+0.5 {
			continue
		}
		dc.DrawLine(x, fr.y0+fr.h, x, fr.y0+fr.h-tickLen)
		dc.DrawLine(x, fr.y0, x, fr.y0+tickLen)
		dc.Stroke()
		dc.DrawStringAnchored(t.Label, x, fr.y0+fr.h+8, 0.5, 1)
	}
	for _, t := range fig.Left.Ticks {
		_, y := fr.data(0, t.Pos)
		if y < fr.y0-0.5 || y > fr.y0+fr.h+0.5 {
			continue
		}
		dc.DrawLine(fr.x0, y, fr.x0+tickLen, y)
		if fig.Right == nil {
			dc.DrawLine(fr.x0+fr.w, y, fr.x0+fr.w-tickLen, y)
		}
		dc.Stroke()
		dc.DrawStringAnchored(t.Label, fr.x0-8, y, 1, 0.5)
	}

	dc.SetFontFace(face(14))
	if fig.Bottom.Label != "" {
		dc.DrawStringAnchored(fig.Bottom.Label, fr.x0+fr.w/2, fr.y0+fr.h+45, 0.5, 1)
	}
	if fig.Left.Label != "" {
		drawVertical(dc, fig.Left.Label, 25, fr.y0+fr.h/2)
	}

	if fig.Right != nil {
		dc.SetFontFace(face(12))
		for _, t := range fig.Right.Ticks {
			_, y := fr.data(0, t.Pos)
			if y < fr.y0-0.5 || y > fr.y0+fr.h+0.5 {
				continue
			}
			dc.DrawLine(fr.x0+fr.w, y, fr.x0+fr.w-tickLen, y)
			dc.Stroke()
			dc.DrawStringAnchored(t.Label, fr.x0+fr.w+8, y, 0, 0.5)
		}
		if fig.Right.Label != "" {
			dc.SetFontFace(face(14))
			drawVertical(dc, fig.Right.Label, fr.x0+fr.w+rightAxisW-10, fr.y0+fr.h/2)
		}
	}
}

func drawVertical(dc *gg.Context, s string, x, y float64) {
	dc.Push()
	dc.RotateAbout(-math.Pi/2, x, y)
	dc.DrawStringAnchored(s, x, y, 0.5, 0.5)
	dc.Pop()
}

func (r *Renderer) drawColorbar(dc *gg.Context, fr frame, fig *Figure) {
	cb := fig.Colorbar
	x0 := fr.x0 + fr.w + colorbarGap
	if fig.Right != nil {
		x0 += rightAxisW
	}

	n := int(fr.h)
	for i := 0; i < n; i++ {
		t := 1 - (float64(i)+0.5)/float64(n)
		dc.SetColor(cb.Cmap.At(t))
		dc.DrawRectangle(x0, fr.y0+float64(i), colorbarW, 1)
		dc.Fill()
	}
	dc.SetColor(color.Black)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x0, fr.y0, colorbarW, fr.h)
	dc.Stroke()

	dc.SetFontFace(face(12))
	for _, v := range cb.Ticks {
		t := tickPosition(cb.Norm, v)
		if math.IsNaN(t) {
			continue
		}
		y := fr.y0 + (1-t)*fr.h
		dc.DrawLine(x0+colorbarW, y, x0+colorbarW-4, y)
		dc.Stroke()
		dc.DrawStringAnchored(FormatTick(v), x0+colorbarW+5, y, 0, 0.5)
	}
	if cb.Label != "" {
		dc.SetFontFace(face(14))
		drawVertical(dc, cb.Label, x0+colorbarRoom-25, fr.y0+fr.h/2)
	}
}

// tickPosition puts colorbar ticks on bin edges for boundary norms, and
// at the normalized value otherwise.
func tickPosition(norm emath.Norm, v float64) float64 {
	if bn, ok := norm.(emath.BoundaryNorm); ok {
		i := sort.SearchFloat64s(bn.Boundaries, v)
		if i >= len(bn.Boundaries) || bn.Boundaries[i] != v {
			return math.NaN()
		}
		return float64(i) / float64(bn.Bins())
	}
	if ln, ok := norm.(emath.LinearNorm); ok && (v < ln.Min || v > ln.Max) {
		return math.NaN()
	}
	return norm.Scale(v)
}

func FormatTick(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e6 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// NiceTicks picks about n round values spanning [lo,hi].
func NiceTicks(lo, hi float64, n int) []float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if n < 1 || !emath.IsFinite(lo) || !emath.IsFinite(hi) {
		return nil
	}
	if hi == lo {
		return []float64{lo}
	}

	raw := (hi - lo) / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag * 10
	for _, m := range []float64{1, 2, 5} {
		if raw <= m*mag {
			step = m * mag
			break
		}
	}

	ticks := []float64{}
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		t := math.Round(v/step) * step
		if t == 0 {
			t = 0 // no "-0" labels
		}
		ticks = append(ticks, t)
	}
	return ticks
}
