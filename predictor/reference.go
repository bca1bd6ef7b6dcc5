package predictor

import (
	"context"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/spice"
	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// ReferenceBackend is the backend name reported by the Reference predictor.
const ReferenceBackend = "reference"

// Reference is a model-free Predictor. It runs YIN on a window centred on
// each hop and expresses the result in the model's output space: the
// frequency through the inverse calibration, the YIN aperiodicity as
// uncertainty. It is meant for tests and for machines without the model.
type Reference struct {
	yin    *tonal.YIN
	logger logging.Logger
}

// NewReference creates a reference predictor for audio at SampleRate.
func NewReference(logger logging.Logger) (*Reference, error) {
	yin, err := tonal.NewYIN(tonal.DefaultYINParams(SampleRate))
	if err != nil {
		return nil, Wrap(ReferenceBackend, err)
	}
	return &Reference{
		yin:    yin,
		logger: logging.OrGlobal(logger, "reference_predictor"),
	}, nil
}

// Predict implements Predictor.
func (r *Reference) Predict(ctx context.Context, samples []float32) (*Output, error) {
	if len(samples) == 0 {
		return nil, Wrap(ReferenceBackend, ErrEmptyInput)
	}

	start := time.Now()
	frames := FrameCount(len(samples))
	window := r.yin.Params().WindowSize
	half := window / 2

	out := &Output{
		Pitch:       make([]float32, frames),
		Uncertainty: make([]float32, frames),
	}

	frame := make([]float64, window)
	for i := range frames {
		if err := ctx.Err(); err != nil {
			return nil, Wrap(ReferenceBackend, err)
		}

		centre := i * HopSize
		for j := range frame {
			idx := centre - half + j
			if idx >= 0 && idx < len(samples) {
				frame[j] = float64(samples[idx])
			} else {
				frame[j] = 0
			}
		}

		est, err := r.yin.Estimate(frame)
		if err != nil {
			return nil, Wrap(ReferenceBackend, err)
		}

		pitch := spice.HzToPitch(est.Frequency)
		out.Pitch[i] = float32(min(max(pitch, 0), 1))
		out.Uncertainty[i] = float32(est.Aperiodicity)
	}

	r.logger.Debug("Reference prediction completed", logging.Fields{
		"samples":    len(samples),
		"frames":     frames,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	return out, nil
}
