package config

import (
	"encoding/json"
	"math"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Pipeline.ConfidenceThreshold != 0.9 {
		t.Fatalf("ConfidenceThreshold = %v, want 0.9", cfg.Pipeline.ConfidenceThreshold)
	}
	if cfg.Pipeline.StrictRange {
		t.Fatal("StrictRange should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	for _, threshold := range []float64{-0.1, 1.01, math.NaN()} {
		cfg := DefaultConfig()
		cfg.Pipeline.ConfidenceThreshold = threshold
		if err := cfg.Validate(); err == nil {
			t.Fatalf("Validate() accepted threshold %v", threshold)
		}
	}
}

func TestConfigJSON(t *testing.T) {
	var cfg Config
	raw := `{"pipeline":{"confidence_threshold":0.8,"strict_range":true},"include_notes":true}`
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Pipeline.ConfidenceThreshold != 0.8 || !cfg.Pipeline.StrictRange || !cfg.IncludeNotes {
		t.Fatalf("decoded config = %+v", cfg)
	}
}
