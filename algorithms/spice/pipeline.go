package spice

import (
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-pitch/logging"
)

// Result is the output of one pipeline run.
type Result struct {
	// Hz has one entry per input frame; 0 marks frames without a confident
	// pitch.
	Hz []float64 `json:"hz"`

	// Offset is nil when no frame survived the confidence filter.
	Offset *OffsetEstimate `json:"offset"`
}

// HasOffset reports whether an offset could be estimated.
func (r *Result) HasOffset() bool {
	return r.Offset != nil
}

// VoicedFrames counts frames with a confident pitch.
func (r *Result) VoicedFrames() int {
	n := 0
	for _, h := range r.Hz {
		if h > 0 {
			n++
		}
	}
	return n
}

// Pipeline runs confidence filtering, Hz conversion and offset estimation.
// It holds no per-call state and is safe for concurrent use.
type Pipeline struct {
	config Config
	filter *ConfidenceFilter
	logger logging.Logger
}

// NewPipeline creates a pipeline. A nil logger falls back to the global one.
func NewPipeline(config Config, logger logging.Logger) (*Pipeline, error) {
	filter, err := NewConfidenceFilter(config.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		config: config,
		filter: filter,
		logger: logging.OrGlobal(logger, "spice_pipeline"),
	}, nil
}

// Execute post-processes one clip's model output. pitch and uncertainty are
// paired by index and must have equal length.
func (p *Pipeline) Execute(pitch, uncertainty []float64) (*Result, error) {
	start := time.Now()

	if len(pitch) != len(uncertainty) {
		return nil, fmt.Errorf("%w: %d pitch frames, %d uncertainty frames",
			ErrShapeMismatch, len(pitch), len(uncertainty))
	}

	filtered, err := p.filter.Filter(pitch, uncertainty)
	if err != nil {
		return nil, err
	}

	// Dropped frames are already 0, so only confident pitches are checked.
	if err := ValidatePitches(filtered, p.config.StrictRange); err != nil {
		return nil, err
	}

	result := &Result{Hz: PitchesToHz(filtered)}

	offset, err := EstimateOffset(result.Hz)
	switch {
	case err == nil:
		result.Offset = offset
	case errors.Is(err, ErrEmptySequence):
		p.logger.Debug("No confident frames, offset unavailable", logging.Fields{
			"frames": len(pitch),
		})
	default:
		return nil, err
	}

	fields := logging.Fields{
		"frames":        len(pitch),
		"voiced_frames": result.VoicedFrames(),
		"threshold":     p.filter.Threshold(),
		"elapsed_us":    time.Since(start).Microseconds(),
	}
	if result.Offset != nil {
		fields["ideal_offset"] = result.Offset.Mean
	}
	p.logger.Debug("Pitch post-processing completed", fields)

	return result, nil
}
