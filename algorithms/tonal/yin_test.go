package tonal

import (
	"math"
	"testing"
)

func sineFrame(freq float64, sampleRate, n int) []float64 {
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return frame
}

func TestYINSine(t *testing.T) {
	tests := []struct {
		name       string
		freq       float64
		sampleRate int
	}{
		{name: "A4 at 16k", freq: 440, sampleRate: 16000},
		{name: "A3 at 16k", freq: 220, sampleRate: 16000},
		{name: "E5 at 16k", freq: 659.25, sampleRate: 16000},
		{name: "A3 at 44.1k", freq: 220, sampleRate: 44100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultYINParams(tt.sampleRate)
			params.WindowSize = 2048
			y, err := NewYIN(params)
			if err != nil {
				t.Fatalf("NewYIN() error = %v", err)
			}

			est, err := y.Estimate(sineFrame(tt.freq, tt.sampleRate, params.WindowSize))
			if err != nil {
				t.Fatalf("Estimate() error = %v", err)
			}
			if !est.Voiced {
				t.Fatalf("Estimate() unvoiced, aperiodicity = %v", est.Aperiodicity)
			}

			cents := 1200 * math.Log2(est.Frequency/tt.freq)
			if math.Abs(cents) > 10 {
				t.Fatalf("Frequency = %.3f Hz (%.2f cents off %v Hz)", est.Frequency, cents, tt.freq)
			}
		})
	}
}

func TestYINSilence(t *testing.T) {
	y, err := NewYIN(DefaultYINParams(16000))
	if err != nil {
		t.Fatalf("NewYIN() error = %v", err)
	}

	est, err := y.Estimate(make([]float64, 1024))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if est.Voiced || est.Frequency != 0 || est.Aperiodicity != 1 {
		t.Fatalf("Estimate(silence) = %+v, want unvoiced", est)
	}
}

func TestYINFrameSize(t *testing.T) {
	y, _ := NewYIN(DefaultYINParams(16000))
	if _, err := y.Estimate(make([]float64, 100)); err == nil {
		t.Fatal("expected error for wrong frame size")
	}
}

func TestNewYINValidates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*YINParams)
	}{
		{name: "zero sample rate", mutate: func(p *YINParams) { p.SampleRate = 0 }},
		{name: "tiny window", mutate: func(p *YINParams) { p.WindowSize = 2 }},
		{name: "inverted range", mutate: func(p *YINParams) { p.MinFreq, p.MaxFreq = 500, 100 }},
		{name: "window too short for range", mutate: func(p *YINParams) { p.WindowSize = 16 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultYINParams(16000)
			tt.mutate(&params)
			if _, err := NewYIN(params); err == nil {
				t.Fatalf("NewYIN(%+v) expected error", params)
			}
		})
	}
}

func TestParabolicVertex(t *testing.T) {
	// y = (x - 2.3)^2 sampled at integers
	data := make([]float64, 5)
	for i := range data {
		d := float64(i) - 2.3
		data[i] = d * d
	}
	if got := parabolicVertex(data, 2); math.Abs(got-2.3) > 1e-12 {
		t.Fatalf("parabolicVertex() = %v, want 2.3", got)
	}
	if got := parabolicVertex(data, 0); got != 0 {
		t.Fatalf("parabolicVertex at edge = %v, want 0", got)
	}
}
