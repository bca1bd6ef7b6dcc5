package spice

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// OffsetEstimate is the average deviation of voiced frames from the
// equal-tempered grid, in semitones.
type OffsetEstimate struct {
	Mean      float64   `json:"mean"`
	Frames    int       `json:"frames"`
	Residuals []float64 `json:"residuals"`
}

// Cents returns the mean offset in cents.
func (o *OffsetEstimate) Cents() float64 {
	return o.Mean * 100
}

// SemitonesFromC0 returns the fractional number of semitones between hz and C0.
// hz must be positive.
func SemitonesFromC0(hz float64) float64 {
	return 12 * math.Log2(hz/C0)
}

// nearestSemitone rounds half down so that residuals fall in (-0.5, 0.5].
func nearestSemitone(s float64) float64 {
	return math.Ceil(s - 0.5)
}

// HzToOffset returns the fractional deviation of hz from the nearest
// chromatic pitch. hz must be positive.
func HzToOffset(hz float64) float64 {
	s := SemitonesFromC0(hz)
	return s - nearestSemitone(s)
}

// EstimateOffset averages HzToOffset over the voiced (non-zero) frames, in
// index order. It returns ErrEmptySequence when there are none.
func EstimateOffset(hz []float64) (*OffsetEstimate, error) {
	residuals := make([]float64, 0, len(hz))
	for _, h := range hz {
		if h > 0 {
			residuals = append(residuals, HzToOffset(h))
		}
	}

	if len(residuals) == 0 {
		return nil, fmt.Errorf("%w: %d frames, none voiced", ErrEmptySequence, len(hz))
	}

	return &OffsetEstimate{
		Mean:      stat.Mean(residuals, nil),
		Frames:    len(residuals),
		Residuals: residuals,
	}, nil
}
