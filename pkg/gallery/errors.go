package gallery

import "errors"

var (
	// ErrMissingInput means a derived data product is absent. It skips
	// one figure, unless it is the significance/intensity pair needed for
	// the base contour, which stops the source.
	ErrMissingInput = errors.New("missing input product")

	// ErrValidation is malformed geometry or header content; fatal for the source.
	ErrValidation = errors.New("validation error")

	// ErrNoAncillaryCoverage is reported (not fatal) when no requested
	// survey returned an image, so no grid-dependent figures were made.
	ErrNoAncillaryCoverage = errors.New("no ancillary survey coverage")

	ErrAlreadyNormalized = errors.New("source position already normalized to ICRS")
)
