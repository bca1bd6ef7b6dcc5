package config

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/spice"
)

// Config configures pitch estimation for a clip
type Config struct {
	Pipeline spice.Config `json:"pipeline"`

	// IncludeNotes quantizes confident frames into note names using the
	// estimated offset.
	IncludeNotes bool `json:"include_notes"`

	// ValidateOutputShape rejects predictor output whose frame count differs
	// from predictor.FrameCount.
	ValidateOutputShape bool `json:"validate_output_shape"`
}

// DefaultConfig returns the settings of the stock SPICE model
func DefaultConfig() *Config {
	return &Config{
		Pipeline:            spice.DefaultConfig(),
		IncludeNotes:        false,
		ValidateOutputShape: true,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if t := c.Pipeline.ConfidenceThreshold; math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("confidence_threshold must be within [0,1], got %v", t)
	}
	return nil
}
