// Package estimator estimates the pitch of a short monophonic clip: it runs
// a pitch model through a predictor.Predictor and post-processes the result
// into per-frame frequencies and the singer's average chromatic offset.
package estimator

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/chroma"
	"github.com/RyanBlaney/sonido-pitch/algorithms/spice"
	"github.com/RyanBlaney/sonido-pitch/estimator/config"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/predictor"
)

// Result is the pitch estimate for one clip
type Result struct {
	// Hz has predictor.FrameCount(len(samples)) entries; 0 marks frames
	// without a confident pitch. Offset is nil when no frame was confident
	// enough.
	spice.Result

	// Notes is set when Config.IncludeNotes is enabled.
	Notes []chroma.Note `json:"notes,omitempty"`

	Frames      int           `json:"frames"`
	PredictTime time.Duration `json:"predict_time"`
}

// IdealOffset returns the mean offset in semitones and whether one exists.
func (r *Result) IdealOffset() (float64, bool) {
	if r.Offset == nil {
		return 0, false
	}
	return r.Offset.Mean, true
}

// Estimator ties a predictor to the post-processing pipeline. It keeps no
// per-clip state; concurrent use is safe when the predictor allows it.
type Estimator struct {
	predictor predictor.Predictor
	pipeline  *spice.Pipeline
	config    *config.Config
	logger    logging.Logger
}

// New creates an estimator. A nil config uses DefaultConfig and a nil logger
// uses the global logger.
func New(p predictor.Predictor, cfg *config.Config, logger logging.Logger) (*Estimator, error) {
	if p == nil {
		return nil, fmt.Errorf("predictor is required")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger = logging.OrGlobal(logger, "estimator")

	pipeline, err := spice.NewPipeline(cfg.Pipeline, logger.WithFields(logging.Fields{
		"stage": "post_processing",
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return &Estimator{
		predictor: p,
		pipeline:  pipeline,
		config:    cfg,
		logger:    logger,
	}, nil
}

// Execute estimates the pitch of samples. Predictor failures are returned as
// errors matching predictor.ErrPredictorFailure and never turned into silent
// all-zero output.
func (e *Estimator) Execute(ctx context.Context, samples []float32) (*Result, error) {
	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Execute",
		"samples":  len(samples),
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := e.predictor.Predict(ctx, samples)
	predictTime := time.Since(start)
	if err != nil {
		err = predictor.Wrap("external", err)
		logger.Error(err, "Pitch prediction failed")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		logger.Debug("Context done after prediction", logging.Fields{"error": err.Error()})
		return nil, err
	}

	if out != nil && out.Len() < 0 {
		err := fmt.Errorf("%w: %d pitch frames, %d uncertainty frames",
			spice.ErrShapeMismatch, len(out.Pitch), len(out.Uncertainty))
		logger.Error(err, "Pitch prediction returned unpaired sequences")
		return nil, err
	}

	if e.config.ValidateOutputShape {
		if err := predictor.CheckOutput(out, len(samples)); err != nil {
			err = predictor.Wrap("external", err)
			logger.Error(err, "Pitch prediction returned malformed output")
			return nil, err
		}
	} else if out == nil {
		return nil, predictor.Wrap("external", fmt.Errorf("%w: nil output", predictor.ErrOutputShape))
	}

	logger.Debug("Pitch prediction completed", logging.Fields{
		"frames":     len(out.Pitch),
		"predict_ms": predictTime.Milliseconds(),
	})

	pitch, uncertainty := out.Float64()
	processed, err := e.pipeline.Execute(pitch, uncertainty)
	if err != nil {
		return nil, fmt.Errorf("post-processing failed: %w", err)
	}

	result := &Result{
		Result:      *processed,
		Frames:      len(processed.Hz),
		PredictTime: predictTime,
	}

	if e.config.IncludeNotes {
		offset, _ := result.IdealOffset()
		result.Notes = chroma.NoteSequence(result.Hz, offset)
	}

	fields := logging.Fields{
		"frames":        result.Frames,
		"voiced_frames": result.VoicedFrames(),
	}
	if offset, ok := result.IdealOffset(); ok {
		fields["ideal_offset"] = offset
		logger.Info("Pitch estimated", fields)
	} else {
		logger.Warn("Pitch estimated without confident frames", fields)
	}

	return result, nil
}
