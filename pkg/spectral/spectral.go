// Package spectral converts between frequency and velocity along the
// spectral axis, under the optical and radio Doppler conventions.
//
// The rest frequency and speed of light are injected, so nothing in
// here depends on process-wide state.
package spectral

import (
	"fmt"
	"strings"
)

const (
	HIRestFrequency = 1420405751.77 // Hz
	SpeedOfLight    = 299792458.0   // m/s
)

// A Converter holds the constants for one line; all velocities are m/s, frequencies Hz.
type Converter struct {
	RestFrequency float64
	C             float64
}

func NewHIConverter() Converter {
	return Converter{RestFrequency: HIRestFrequency, C: SpeedOfLight}
}

func (c Converter) Validate() error {
	if !(c.RestFrequency > 0) || !(c.C > 0) {
		return fmt.Errorf("spectral converter needs positive rest frequency and c, got %v", c)
	}
	return nil
}

// FreqToVelocity applies the Doppler relation for the given convention.
func (c Converter) FreqToVelocity(freq float64, conv Convention) float64 {
	switch conv {
	case Radio:
		return c.C * (1.0 - freq/c.RestFrequency)
	default:
		return c.C * (c.RestFrequency/freq - 1.0)
	}
}

// VelocityToFreq is the inverse of FreqToVelocity.
func (c Converter) VelocityToFreq(vel float64, conv Convention) float64 {
	switch conv {
	case Radio:
		return c.RestFrequency * (1.0 - vel/c.C)
	default:
		return c.RestFrequency / (1.0 + vel/c.C)
	}
}

// LineWidth turns a width on the spectral axis into a velocity width
// (m/s). For frequency-native data the width is in Hz and is scaled by
// c/f_sys; for velocity-native data it is in channels, scaled by the
// channel width (m/s).
func (c Converter) LineWidth(r Regime, width, freqSys, chanWidth float64) float64 {
	if r.Native == FrequencyNative {
		return c.C * width / freqSys
	}
	w := width * chanWidth
	if w < 0 {
		w = -w
	}
	return w
}

// SystemicVelocity gives v_sys in m/s from the catalog's spectral column.
func (c Converter) SystemicVelocity(r Regime, freqOrVel float64) float64 {
	if r.Native == FrequencyNative {
		return c.FreqToVelocity(freqOrVel, Optical)
	}
	return freqOrVel
}

// ToVelocity maps a value on the native spectral axis (Hz or m/s) to m/s.
func (c Converter) ToVelocity(r Regime, v float64) float64 {
	if r.Native == FrequencyNative {
		return c.FreqToVelocity(v, Optical)
	}
	return v
}

// Convention is the Doppler convention, which is also the cosmetic
// label used on velocity axes.
type Convention int

const (
	Optical Convention = iota
	Radio
)

func (c Convention) String() string {
	if c == Radio {
		return "Radio"
	}
	return "Optical"
}

// Native says which kind of values the catalog and moment-1 map carry.
type Native int

const (
	FrequencyNative Native = iota
	VelocityNative
)

func (n Native) String() string {
	if n == FrequencyNative {
		return "frequency"
	}
	return "velocity"
}

// A Regime is resolved once per source and passed to everything that
// labels or converts spectral values, so the moment and PV figures agree.
type Regime struct {
	Native     Native
	Convention Convention
}

// ResolveRegime picks the regime from whether the catalog carries a
// frequency column, and the cube's CTYPE3 (e.g. FREQ, VRAD, VOPT).
func ResolveRegime(hasFreq bool, specAxis string) Regime {
	if hasFreq {
		return Regime{Native: FrequencyNative, Convention: Optical}
	}
	if strings.HasPrefix(strings.ToUpper(specAxis), "VRAD") {
		return Regime{Native: VelocityNative, Convention: Radio}
	}
	return Regime{Native: VelocityNative, Convention: Optical}
}

func (r Regime) String() string { return fmt.Sprintf("%s-native/%s", r.Native, r.Convention) }

// VelocityLabel is e.g. "Barycentric Optical Velocity [km/s]"
func (r Regime) VelocityLabel(specSys, unit string) string {
	return fmt.Sprintf("%s %s Velocity [%s]", Capitalize(specSys), r.Convention, unit)
}

// Capitalize upper-cases the first letter and lower-cases the rest, like python's str.capitalize
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

// An Axis is a linear FITS spectral axis: value = CRVAL + CDELT*(chan+1-CRPIX),
// where chan is the 0-based channel index.
type Axis struct {
	CRPIX float64
	CRVAL float64
	CDELT float64
	Unit  string
}

func (a Axis) ChannelToValue(ch float64) float64 {
	return a.CDELT*(ch-(a.CRPIX-1)) + a.CRVAL
}

// VelocityBounds returns the velocity range (km/s) spanned by the
// channel range [zMin,zMax], widened by `buffer` km/s on each side.
func (c Converter) VelocityBounds(r Regime, a Axis, zMin, zMax, buffer float64) (float64, float64) {
	v1 := c.ToVelocity(r, a.ChannelToValue(zMin)) / 1000.0
	v2 := c.ToVelocity(r, a.ChannelToValue(zMax)) / 1000.0
	if v1 > v2 {
		v1, v2 = v2, v1
	}
	return v1 - buffer, v2 + buffer
}
