package spice

import (
	"fmt"
	"math"
)

// ConfidenceFilter zeroes pitches whose confidence is below a threshold.
type ConfidenceFilter struct {
	threshold float64
}

// NewConfidenceFilter creates a filter keeping frames with 1-uncertainty >= threshold.
func NewConfidenceFilter(threshold float64) (*ConfidenceFilter, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return &ConfidenceFilter{threshold: threshold}, nil
}

// Threshold returns the confidence threshold.
func (cf *ConfidenceFilter) Threshold() float64 {
	return cf.threshold
}

// Keep reports whether a frame with the given uncertainty passes the filter.
func (cf *ConfidenceFilter) Keep(uncertainty float64) bool {
	return 1-uncertainty >= cf.threshold
}

// Filter returns a copy of pitch with low-confidence frames set to 0.
// filtered[i] depends only on pitch[i] and uncertainty[i].
func (cf *ConfidenceFilter) Filter(pitch, uncertainty []float64) ([]float64, error) {
	if len(pitch) != len(uncertainty) {
		return nil, fmt.Errorf("%w: %d pitch frames, %d uncertainty frames",
			ErrShapeMismatch, len(pitch), len(uncertainty))
	}

	filtered := make([]float64, len(pitch))
	for i := range pitch {
		if cf.Keep(uncertainty[i]) {
			filtered[i] = pitch[i]
		}
	}
	return filtered, nil
}
