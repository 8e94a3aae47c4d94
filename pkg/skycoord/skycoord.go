// Package skycoord normalizes celestial positions onto ICRS.
//
// Catalogs and cubes may declare FK5 or FK4 at some equinox. Positions
// are rotated as unit vectors with 3x3 matrices; FK4 additionally has
// the elliptic aberration (E-terms) removed before rotation.
package skycoord

import (
	"fmt"
	"math"
	"strings"

	"github.com/abworrall/hi-gallery/pkg/emath"
)

type FrameKind int

const (
	ICRS FrameKind = iota
	FK5
	FK4
)

func (k FrameKind) String() string {
	switch k {
	case FK5:
		return "FK5"
	case FK4:
		return "FK4"
	default:
		return "ICRS"
	}
}

// A Frame is a reference system plus, for FK4/FK5, its equinox (years,
// Besselian for FK4 and Julian for FK5).
type Frame struct {
	Kind    FrameKind
	Equinox float64
}

func (f Frame) String() string {
	switch f.Kind {
	case FK5:
		return fmt.Sprintf("FK5(J%.1f)", f.Equinox)
	case FK4:
		return fmt.Sprintf("FK4(B%.1f)", f.Equinox)
	}
	return "ICRS"
}

// ParseFrame works out the frame from FITS-style RADESYS and EQUINOX
// values. An empty radesys is inferred from the equinox: before 1984
// means FK4, otherwise FK5. A zero equinox with no radesys means ICRS.
func ParseFrame(radesys string, equinox float64) (Frame, error) {
	radesys = strings.ToUpper(strings.TrimSpace(radesys))
	if math.IsNaN(equinox) {
		equinox = 0
	}

	switch radesys {
	case "ICRS":
		return Frame{Kind: ICRS}, nil
	case "FK5":
		if equinox == 0 {
			equinox = 2000
		}
		return Frame{Kind: FK5, Equinox: equinox}, nil
	case "FK4", "FK4-NO-E":
		if equinox == 0 {
			equinox = 1950
		}
		return Frame{Kind: FK4, Equinox: equinox}, nil
	case "":
		switch {
		case equinox == 0:
			return Frame{Kind: ICRS}, nil
		case equinox < 1984:
			return Frame{Kind: FK4, Equinox: equinox}, nil
		default:
			return Frame{Kind: FK5, Equinox: equinox}, nil
		}
	}

	return Frame{}, fmt.Errorf("unsupported reference frame '%s'", radesys)
}

// A Coord is a position in degrees, in some frame.
type Coord struct {
	RA, Dec float64
	Frame   Frame
}

// ToICRS returns the same position, expressed in ICRS.
func (c Coord) ToICRS() Coord {
	v := emath.UnitVector(c.RA, c.Dec)

	switch c.Frame.Kind {
	case ICRS:
		return c
	case FK4:
		v = fk4ToFK5J2000(v, c.Frame.Equinox)
	case FK5:
		if c.Frame.Equinox != 2000 {
			v = PrecessFK5(c.Frame.Equinox, 2000).Apply(v)
		}
	}

	ra, dec := FrameBias.Transpose().Apply(v).LonLat()
	return Coord{RA: ra, Dec: dec, Frame: Frame{Kind: ICRS}}
}

// FromICRS expresses an ICRS position in frame `f`. For FK4 the
// E-terms are added back, so this inverts ToICRS to well under an
// arcsecond.
func FromICRS(ra, dec float64, f Frame) Coord {
	if f.Kind == ICRS {
		return Coord{RA: ra, Dec: dec, Frame: f}
	}

	v := FrameBias.Apply(emath.UnitVector(ra, dec))

	switch f.Kind {
	case FK5:
		if f.Equinox != 2000 {
			v = PrecessFK5(2000, f.Equinox).Apply(v)
		}
	case FK4:
		v = normalize(fk4ToFK5.Transpose().Apply(v))
		a := v.Dot(eTerms)
		v = normalize(emath.Vec3{
			v[0] + eTerms[0] - a*v[0],
			v[1] + eTerms[1] - a*v[1],
			v[2] + eTerms[2] - a*v[2],
		})
		if f.Equinox != 1950 && f.Equinox != 0 {
			v = PrecessFK5(1950, f.Equinox).Apply(v)
		}
	}

	lon, lat := v.LonLat()
	return Coord{RA: lon, Dec: lat, Frame: f}
}

// Convert moves a position between any two frames, via ICRS.
func (c Coord) Convert(to Frame) Coord {
	if c.Frame == to {
		return c
	}
	icrs := c.ToICRS()
	return FromICRS(icrs.RA, icrs.Dec, to)
}

// Separation is the angle between two positions in degrees, assumed to be in the same frame.
func Separation(a, b Coord) float64 {
	d := emath.UnitVector(a.RA, a.Dec).Dot(emath.UnitVector(b.RA, b.Dec))
	return emath.Rad2Deg(math.Acos(math.Max(-1, math.Min(1, d))))
}

// FrameBias rotates ICRS onto FK5 J2000 (IERS 2003).
var FrameBias = emath.Mat3{
	0.9999999999999942, 0.0000000707827974, -0.0000000805621715,
	-0.0000000707827948, 0.9999999999999969, 0.0000000330604145,
	0.0000000805621738, -0.0000000330604088, 0.9999999999999962,
}

// fk4ToFK5 is the B1950 -> J2000 rotation (Standish 1982), applied after E-term removal.
var fk4ToFK5 = emath.Mat3{
	0.9999256782, -0.0111820611, -0.0048579477,
	0.0111820610, 0.9999374784, -0.0000271765,
	0.0048579479, -0.0000271474, 0.9999881997,
}

// E-terms of aberration, at B1950
var eTerms = emath.Vec3{-1.62557e-6, -0.31919e-6, -0.13843e-6}

// fk4ToFK5J2000 first moves a position at some other Besselian equinox
// to B1950, using the FK5 precession model (close enough over a few
// decades), then removes the E-terms and rotates.
func fk4ToFK5J2000(v emath.Vec3, equinox float64) emath.Vec3 {
	if equinox != 1950 && equinox != 0 {
		v = PrecessFK5(equinox, 1950).Apply(v)
	}

	ra := v.Dot(eTerms)
	v = emath.Vec3{
		v[0] - eTerms[0] + ra*v[0],
		v[1] - eTerms[1] + ra*v[1],
		v[2] - eTerms[2] + ra*v[2],
	}
	v = normalize(v)

	return fk4ToFK5.Apply(v)
}

func normalize(v emath.Vec3) emath.Vec3 {
	r := math.Sqrt(v.Dot(v))
	return emath.Vec3{v[0] / r, v[1] / r, v[2] / r}
}

// PrecessFK5 returns the IAU 1976 precession matrix taking mean
// positions at epoch `from` to epoch `to` (both Julian years).
func PrecessFK5(from, to float64) emath.Mat3 {
	T := (from - 2000.0) / 100.0
	t := (to - from) / 100.0

	arcsec := func(x float64) float64 { return emath.Deg2Rad(x / 3600.0) }

	zeta := arcsec((2306.2181+1.39656*T-0.000139*T*T)*t + (0.30188-0.000344*T)*t*t + 0.017998*t*t*t)
	z := arcsec((2306.2181+1.39656*T-0.000139*T*T)*t + (1.09468+0.000066*T)*t*t + 0.018203*t*t*t)
	theta := arcsec((2004.3109-0.85330*T-0.000217*T*T)*t - (0.42665+0.000217*T)*t*t - 0.041833*t*t*t)

	return rotZ(-z).Mult(rotY(theta)).Mult(rotZ(-zeta))
}

// Passive rotations about the z and y axes.
func rotZ(a float64) emath.Mat3 {
	s, c := math.Sin(a), math.Cos(a)
	return emath.Mat3{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	}
}

func rotY(a float64) emath.Mat3 {
	s, c := math.Sin(a), math.Cos(a)
	return emath.Mat3{
		c, 0, -s,
		0, 1, 0,
		s, 0, c,
	}
}

// FormatRA renders right ascension as sexagesimal hours, e.g. "10h21m03.2s"
func FormatRA(deg float64) string {
	h := emath.WrapDegrees(deg) / 15.0
	hh := math.Floor(h)
	m := (h - hh) * 60
	mm := math.Floor(m)
	ss := (m - mm) * 60
	if ss >= 59.95 {
		ss = 0
		mm++
	}
	if mm >= 60 {
		mm -= 60
		hh++
	}
	if hh >= 24 {
		hh -= 24
	}
	return fmt.Sprintf("%02.0fh%02.0fm%04.1fs", hh, mm, ss)
}

// FormatDec renders declination as sexagesimal degrees, e.g. "-05d04m10s"
func FormatDec(deg float64) string {
	sign := "+"
	if deg < 0 {
		sign = "-"
		deg = -deg
	}
	dd := math.Floor(deg)
	m := (deg - dd) * 60
	mm := math.Floor(m)
	ss := math.Round((m - mm) * 60)
	if ss >= 60 {
		ss -= 60
		mm++
	}
	if mm >= 60 {
		mm -= 60
		dd++
	}
	return fmt.Sprintf("%s%02.0fd%02.0fm%02.0fs", sign, dd, mm, ss)
}
