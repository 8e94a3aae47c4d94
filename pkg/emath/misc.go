package emath

import "math"

// Some functions that only operate on basic types, that are useful

func Deg2Rad(d float64) float64 { return d * math.Pi / 180.0 }
func Rad2Deg(r float64) float64 { return r * 180.0 / math.Pi }

// WrapDegrees maps an angle into [0,360)
func WrapDegrees(d float64) float64 {
	d = math.Mod(d, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}

func IsFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func Clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
