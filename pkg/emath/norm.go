package emath

import (
	"math"
	"sort"
)

// A Norm maps a data value into [0,1], ready for a colormap lookup.
// NaN in gives NaN out.
type Norm interface {
	Scale(v float64) float64
}

// LinearNorm clips to [Min,Max] and scales linearly.
type LinearNorm struct {
	Min, Max float64
}

func (n LinearNorm) Scale(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if n.Max <= n.Min {
		return 0.5
	}
	return Clamp01((v - n.Min) / (n.Max - n.Min))
}

// PercentileNorm is a LinearNorm between the lo'th and hi'th percentiles
// of the finite values.
func PercentileNorm(vals []float64, lo, hi float64) LinearNorm {
	return LinearNorm{Min: Percentile(vals, lo), Max: Percentile(vals, hi)}
}

// PowerNorm is a LinearNorm raised to Gamma; gammas below 1 lift the faint end.
type PowerNorm struct {
	Gamma    float64
	Min, Max float64
}

func (n PowerNorm) Scale(v float64) float64 {
	f := LinearNorm{n.Min, n.Max}.Scale(v)
	if math.IsNaN(f) {
		return f
	}
	return math.Pow(f, n.Gamma)
}

// BoundaryNorm puts values into the bins between consecutive Boundaries,
// and returns the middle of that bin's share of [0,1]. Values beyond
// either end land in the end bins.
type BoundaryNorm struct {
	Boundaries []float64
}

func (n BoundaryNorm) Bins() int { return len(n.Boundaries) - 1 }

func (n BoundaryNorm) Scale(v float64) float64 {
	if math.IsNaN(v) || n.Bins() < 1 {
		return math.NaN()
	}
	// index of the first boundary strictly above v, minus one
	i := sort.Search(len(n.Boundaries), func(i int) bool { return n.Boundaries[i] > v }) - 1
	if i < 0 {
		i = 0
	}
	if i >= n.Bins() {
		i = n.Bins() - 1
	}
	return (float64(i) + 0.5) / float64(n.Bins())
}
