package gallery

import (
	"fmt"
	"math"

	"github.com/abworrall/hi-gallery/pkg/catalog"
	"github.com/abworrall/hi-gallery/pkg/skycoord"
	"github.com/abworrall/hi-gallery/pkg/survey"
)

// Source is one row of the catalog. Only the position changes after
// loading, when it is normalized to ICRS.
type Source struct {
	ID   int
	Name string

	RA, Dec float64 // deg; ICRS once normalized

	X, Y, Z    float64 // centroid, pixels
	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64

	KinPA float64 // deg

	// Exactly one of these is set, depending on the catalog's spectral column.
	HasFreq bool
	Freq    float64 // Hz
	VCol    float64 // m/s

	W20, W50 float64 // Hz if HasFreq, else channels

	normalized bool
}

// velocityColumns are the velocity-native spectral columns, in order of preference.
var velocityColumns = []string{"v_rad", "v_opt", "v_app"}

// NewSourceFromRow pulls the columns we need out of a catalog row.
func NewSourceFromRow(row catalog.Row) (*Source, error) {
	s := Source{Name: row["name"]}

	id, err := row.Float("id")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if id < 0 || id != math.Trunc(id) {
		return nil, fmt.Errorf("%w: source id '%v' is not a whole number", ErrValidation, id)
	}
	s.ID = int(id)

	fields := map[string]*float64{
		"ra": &s.RA, "dec": &s.Dec,
		"x": &s.X, "y": &s.Y, "z": &s.Z,
		"x_min": &s.XMin, "x_max": &s.XMax,
		"y_min": &s.YMin, "y_max": &s.YMax,
		"z_min": &s.ZMin, "z_max": &s.ZMax,
		"w20": &s.W20, "w50": &s.W50,
	}
	for col, dst := range fields {
		v, err := row.Float(col)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w: %v", s.ID, ErrValidation, err)
		}
		*dst = v
	}

	// Older catalogs have no kinematic fit
	if _, exists := row["kin_pa"]; exists {
		if s.KinPA, err = row.Float("kin_pa"); err != nil {
			return nil, fmt.Errorf("source %d: %w: %v", s.ID, ErrValidation, err)
		}
	}

	if _, exists := row["freq"]; exists {
		s.HasFreq = true
		if s.Freq, err = row.Float("freq"); err != nil {
			return nil, fmt.Errorf("source %d: %w: %v", s.ID, ErrValidation, err)
		}
	} else {
		found := false
		for _, col := range velocityColumns {
			if _, exists := row[col]; exists {
				if s.VCol, err = row.Float(col); err != nil {
					return nil, fmt.Errorf("source %d: %w: %v", s.ID, ErrValidation, err)
				}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("source %d: %w: no freq or velocity column", s.ID, ErrValidation)
		}
	}

	if s.Name == "" {
		s.Name = fmt.Sprintf("source %d", s.ID)
	}
	return &s, nil
}

// NormalizeToICRS converts the catalog position, given in frame f, to
// ICRS. It may only be called once per source.
func (s *Source) NormalizeToICRS(f skycoord.Frame) error {
	if s.normalized {
		return fmt.Errorf("source %d: %w", s.ID, ErrAlreadyNormalized)
	}
	c := skycoord.Coord{RA: s.RA, Dec: s.Dec, Frame: f}.ToICRS()
	s.RA, s.Dec = c.RA, c.Dec
	s.normalized = true
	return nil
}

func (s *Source) Normalized() bool { return s.normalized }

func (s *Source) Position() survey.Position { return survey.Position{RA: s.RA, Dec: s.Dec} }

// Spectral is the catalog's systemic value on the native axis: Hz or m/s.
func (s *Source) Spectral() float64 {
	if s.HasFreq {
		return s.Freq
	}
	return s.VCol
}

func (s *Source) String() string {
	return fmt.Sprintf("source[%d '%s' (%.5f,%.5f)]", s.ID, s.Name, s.RA, s.Dec)
}
