package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// A Colormap turns a normalized value in [0,1] into a color. NaN maps to
// the map's Bad color.
type Colormap interface {
	At(t float64) color.Color
	Bad() color.Color
}

// Gradient interpolates linearly in sRGB between evenly spaced anchors.
type Gradient struct {
	Name    string
	Anchors []colorful.Color
	BadCol  color.Color
}

func (g Gradient) At(t float64) color.Color {
	if math.IsNaN(t) {
		return g.Bad()
	}
	n := len(g.Anchors)
	if n == 1 {
		return g.Anchors[0]
	}
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(n-1)
	i := int(pos)
	if i >= n-1 {
		return g.Anchors[n-1]
	}
	return g.Anchors[i].BlendRgb(g.Anchors[i+1], pos-float64(i)).Clamped()
}

func (g Gradient) Bad() color.Color {
	if g.BadCol == nil {
		return color.Transparent
	}
	return g.BadCol
}

func (g Gradient) Reversed() Gradient {
	r := Gradient{Name: g.Name + "_r", BadCol: g.BadCol}
	for i := len(g.Anchors) - 1; i >= 0; i-- {
		r.Anchors = append(r.Anchors, g.Anchors[i])
	}
	return r
}

// Listed is a discrete colormap: [0,1] is split into len(Colors) equal bins.
type Listed struct {
	Colors []colorful.Color
	BadCol color.Color
}

func (l Listed) At(t float64) color.Color {
	if math.IsNaN(t) {
		return l.Bad()
	}
	i := int(t * float64(len(l.Colors)))
	if i < 0 {
		i = 0
	}
	if i >= len(l.Colors) {
		i = len(l.Colors) - 1
	}
	return l.Colors[i]
}

func (l Listed) Bad() color.Color {
	if l.BadCol == nil {
		return color.Transparent
	}
	return l.BadCol
}

// NewListed builds a Listed colormap from color names.
func NewListed(names ...string) (Listed, error) {
	l := Listed{}
	for _, n := range names {
		c, err := ParseColor(n)
		if err != nil {
			return l, err
		}
		l.Colors = append(l.Colors, c)
	}
	return l, nil
}

var gradientHex = map[string][]string{
	"viridis": {"#440154", "#472c7a", "#3b518b", "#2c718e", "#21908d", "#27ad81", "#5cc863", "#aadc32", "#fde725"},
	"greys":   {"#ffffff", "#f0f0f0", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525", "#000000"},
	"gray":    {"#000000", "#ffffff"},
	"oranges": {"#fff5eb", "#fee6ce", "#fdd0a2", "#fdae6b", "#fd8d3c", "#f16913", "#d94801", "#a63603", "#7f2704"},
	"rdbu":    {"#67001f", "#b2182b", "#d6604d", "#f4a582", "#fddbc7", "#f7f7f7", "#d1e5f0", "#92c5de", "#4393c3", "#2166ac", "#053061"},
}

// NamedColormap returns one of the built-in gradients; a "_r" suffix
// reverses it. Names are case-insensitive.
func NamedColormap(name string) (Gradient, error) {
	lname := strings.ToLower(name)
	reverse := strings.HasSuffix(lname, "_r")
	lname = strings.TrimSuffix(lname, "_r")

	hexes, exists := gradientHex[lname]
	if !exists {
		return Gradient{}, fmt.Errorf("colormap '%s' not known", name)
	}

	g := Gradient{Name: lname}
	for _, h := range hexes {
		c, _ := colorful.Hex(h)
		g.Anchors = append(g.Anchors, c)
	}
	if reverse {
		g = g.Reversed()
	}
	return g, nil
}

func MustColormap(name string) Gradient {
	g, err := NamedColormap(name)
	if err != nil {
		panic(err)
	}
	return g
}

var namedColors = map[string]string{
	"w":          "#ffffff",
	"white":      "#ffffff",
	"k":          "#000000",
	"black":      "#000000",
	"r":          "#ff0000",
	"red":        "#ff0000",
	"gray":       "#808080",
	"grey":       "#808080",
	"lightgray":  "#d3d3d3",
	"lightgrey":  "#d3d3d3",
	"orange":     "#ffa500",
	"darkorange": "#ff8c00",
	"darkred":    "#8b0000",
	"gold":       "#ffd700",
	"indigo":     "#4b0082",
	"royalblue":  "#4169e1",
	"limegreen":  "#32cd32",
	"yellow":     "#ffff00",
}

// ParseColor accepts a color name or a #rrggbb hex string.
func ParseColor(s string) (colorful.Color, error) {
	if h, exists := namedColors[strings.ToLower(s)]; exists {
		s = h
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("color '%s': %w", s, err)
	}
	return c, nil
}

func MustColor(s string) colorful.Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// LevelColors samples cmap once per contour level, placing each level
// linearly between the lowest and highest.
func LevelColors(cmap Colormap, levels []float64) []color.Color {
	out := make([]color.Color, len(levels))
	if len(levels) == 0 {
		return out
	}
	lo, hi := levels[0], levels[len(levels)-1]
	for i, l := range levels {
		t := 0.0
		if hi != lo {
			t = (l - lo) / (hi - lo)
		}
		out[i] = cmap.At(t)
	}
	return out
}
