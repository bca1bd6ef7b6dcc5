package spice

import "errors"

var (
	// ErrShapeMismatch is returned when paired pitch and uncertainty
	// sequences differ in length.
	ErrShapeMismatch = errors.New("pitch and uncertainty lengths differ")

	// ErrEmptySequence is returned when no frame has a confident pitch, so
	// the mean offset is undefined.
	ErrEmptySequence = errors.New("no confident frames")

	// ErrPitchOutOfRange is returned for non-finite normalized pitches, and
	// for values outside [0,1] when strict range checking is enabled.
	ErrPitchOutOfRange = errors.New("normalized pitch out of range")

	// ErrInvalidThreshold is returned for confidence thresholds outside [0,1].
	ErrInvalidThreshold = errors.New("confidence threshold must be within [0,1]")
)
