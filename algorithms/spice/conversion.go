package spice

import (
	"fmt"
	"math"
)

// PitchToHz converts a normalized model pitch to Hz. Zero is the "no
// estimate" sentinel and maps to 0 Hz. Values outside [0,1] extrapolate the
// calibration curve.
func PitchToHz(v float64) float64 {
	if v == 0 {
		return 0
	}
	cqtBin := v*PTSlope + PTOffset
	return FMin * math.Pow(2, cqtBin/BinsPerOctave)
}

// HzToPitch is the inverse of PitchToHz. Non-positive frequencies map to the
// 0 sentinel.
func HzToPitch(hz float64) float64 {
	if hz <= 0 {
		return 0
	}
	cqtBin := BinsPerOctave * math.Log2(hz/FMin)
	return (cqtBin - PTOffset) / PTSlope
}

// PitchesToHz converts every frame, preserving order and length.
func PitchesToHz(pitches []float64) []float64 {
	hz := make([]float64, len(pitches))
	for i, v := range pitches {
		hz[i] = PitchToHz(v)
	}
	return hz
}

// ValidatePitches checks normalized pitches before conversion. NaN and
// infinities are always rejected; strict additionally rejects anything
// outside [0,1].
func ValidatePitches(pitches []float64, strict bool) error {
	for i, v := range pitches {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: frame %d is %v", ErrPitchOutOfRange, i, v)
		}
		if strict && (v < 0 || v > 1) {
			return fmt.Errorf("%w: frame %d is %v", ErrPitchOutOfRange, i, v)
		}
	}
	return nil
}
