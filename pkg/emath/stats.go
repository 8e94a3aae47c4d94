package emath

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FiniteValues returns a new slice with NaNs and Infs dropped.
func FiniteValues(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if IsFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

// Median of the finite values; the mean of the middle two if there is
// an even number of them. NaN if there are none.
func Median(vals []float64) float64 {
	v := FiniteValues(vals)
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)

	mid := len(v) / 2
	if len(v)%2 == 1 {
		return v[mid]
	}
	return (v[mid-1] + v[mid]) / 2.0
}

// Percentile of the finite values, with p in [0,100]. Linear
// interpolation between closest ranks, at rank (n-1)*p, which is what
// numpy.percentile does by default.
func Percentile(vals []float64, p float64) float64 {
	v := FiniteValues(vals)
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)

	rank := Clamp01(p/100.0) * float64(len(v)-1)
	lo := int(math.Floor(rank))
	if lo >= len(v)-1 {
		return v[len(v)-1]
	}
	frac := rank - float64(lo)
	return v[lo] + frac*(v[lo+1]-v[lo])
}

// NaNStdDev is the population standard deviation of the finite values.
func NaNStdDev(vals []float64) float64 {
	v := FiniteValues(vals)
	if len(v) == 0 {
		return math.NaN()
	}
	_, std := stat.PopMeanStdDev(v, nil)
	return std
}
