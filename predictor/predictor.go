// Package predictor defines the contract between the pitch post-processing
// pipeline and whatever runs the pitch model.
//
// A Predictor consumes one clip of mono samples and returns two sequences of
// FrameCount(len(samples)) values: normalized pitch and uncertainty, both in
// [0,1] and paired by index. How inference happens (runtime, threads,
// accelerators) is the backend's business.
package predictor

import (
	"context"
	"errors"
	"fmt"
)

const (
	// HopSize is the number of samples between consecutive model frames.
	HopSize = 512

	// ReferenceInputSize is the clip length (~2 s at 16 kHz) for which the
	// model produces exactly ceil(L/HopSize) frames.
	ReferenceInputSize = 32000

	// SampleRate is the rate the model expects its input at.
	SampleRate = 16000
)

var (
	// ErrPredictorFailure marks every error raised by inference. Match it
	// with errors.Is.
	ErrPredictorFailure = errors.New("pitch predictor failed")

	// ErrOutputShape is returned when a backend produced sequences whose
	// length differs from FrameCount.
	ErrOutputShape = errors.New("unexpected predictor output shape")

	// ErrEmptyInput is returned for clips with no samples.
	ErrEmptyInput = errors.New("no input samples")
)

// Output holds the raw model output for one clip
type Output struct {
	Pitch       []float32 `json:"pitch"`
	Uncertainty []float32 `json:"uncertainty"`
}

// Len returns the number of frames, or -1 when the sequences disagree.
func (o *Output) Len() int {
	if len(o.Pitch) != len(o.Uncertainty) {
		return -1
	}
	return len(o.Pitch)
}

// Float64 widens both sequences for the post-processing pipeline.
func (o *Output) Float64() (pitch, uncertainty []float64) {
	pitch = make([]float64, len(o.Pitch))
	for i, v := range o.Pitch {
		pitch[i] = float64(v)
	}
	uncertainty = make([]float64, len(o.Uncertainty))
	for i, v := range o.Uncertainty {
		uncertainty[i] = float64(v)
	}
	return pitch, uncertainty
}

// Predictor runs the pitch model over one clip.
type Predictor interface {
	Predict(ctx context.Context, samples []float32) (*Output, error)
}

// Func adapts a plain function to the Predictor interface.
type Func func(ctx context.Context, samples []float32) (*Output, error)

// Predict calls f.
func (f Func) Predict(ctx context.Context, samples []float32) (*Output, error) {
	return f(ctx, samples)
}

// FrameCount returns the number of frames the model emits for inputSize
// samples. The model pads by one frame for every length except
// ReferenceInputSize.
func FrameCount(inputSize int) int {
	if inputSize <= 0 {
		return 0
	}
	frames := (inputSize + HopSize - 1) / HopSize
	if inputSize != ReferenceInputSize {
		frames++
	}
	return frames
}

// Error wraps a backend failure. It matches ErrPredictorFailure under
// errors.Is and exposes the underlying cause through Unwrap.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s predictor: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrPredictorFailure
}

// Wrap tags err as a predictor failure of the named backend. A nil err stays
// nil and an existing *Error is returned unchanged.
func Wrap(backend string, err error) error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return err
	}
	return &Error{Backend: backend, Err: err}
}

// CheckOutput verifies that out has FrameCount(inputSize) frames in both
// sequences.
func CheckOutput(out *Output, inputSize int) error {
	if out == nil {
		return fmt.Errorf("%w: nil output", ErrOutputShape)
	}
	want := FrameCount(inputSize)
	if len(out.Pitch) != want || len(out.Uncertainty) != want {
		return fmt.Errorf("%w: got %d pitch and %d uncertainty frames, want %d",
			ErrOutputShape, len(out.Pitch), len(out.Uncertainty), want)
	}
	return nil
}
