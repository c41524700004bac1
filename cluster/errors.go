package cluster

import "errors"

var (
	// ErrInvalidSideWidth is returned when the base cell side width is not positive.
	ErrInvalidSideWidth = errors.New("cluster: base side width must be positive")

	// ErrInvalidMinSidePixels is returned when the minimum on-screen cell size is negative.
	ErrInvalidMinSidePixels = errors.New("cluster: minimum side pixels must not be negative")

	// ErrInvalidResolution is returned for non-positive, NaN or infinite resolutions.
	ErrInvalidResolution = errors.New("cluster: resolution must be a positive finite number")
)

// ErrDatasetNotFound is returned when no saved point file matches an id.
var ErrDatasetNotFound = errors.New("cluster: dataset not found")
