// Package spice turns the raw output of a SPICE-style pitch model into
// frequencies and a chromatic tuning offset.
//
// The model emits, per analysis frame, a normalized pitch in [0,1] and an
// uncertainty in [0,1]. Frames whose confidence (1 - uncertainty) falls below
// a threshold are zeroed, the survivors are mapped through the model's
// constant-Q calibration into Hz, and the voiced frames are compared with the
// equal-tempered grid anchored at C0 to estimate how far the singer sits from
// it on average.
package spice

// Calibration of the model's output space onto constant-Q bins. These are
// properties of the trained model, not tunables.
const (
	PTSlope       = 63.07
	PTOffset      = 25.58
	FMin          = 10.0
	BinsPerOctave = 12.0
)

// C0 is the frequency of C in octave 0, the tuning reference for offsets.
const C0 = 16.351597831287414

// DefaultConfidenceThreshold keeps frames the model is at least 90% sure of.
const DefaultConfidenceThreshold = 0.9
