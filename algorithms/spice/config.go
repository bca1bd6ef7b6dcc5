package spice

// Config controls the post-processing pipeline.
type Config struct {
	// ConfidenceThreshold is the minimum 1-uncertainty a frame needs to keep
	// its pitch.
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	// StrictRange rejects normalized pitches outside [0,1] instead of
	// extrapolating the calibration curve.
	StrictRange bool `json:"strict_range"`
}

// DefaultConfig returns the settings the model was calibrated for.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		StrictRange:         false,
	}
}
