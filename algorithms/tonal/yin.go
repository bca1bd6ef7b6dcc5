package tonal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
)

// YINParams configures the YIN estimator
type YINParams struct {
	SampleRate int `json:"sample_rate"`
	// WindowSize is the full frame length; half of it is the integration
	// window and the other half bounds the lag search.
	WindowSize int `json:"window_size"`

	// Threshold on the cumulative mean normalized difference (0.1-0.2 typical)
	Threshold float64 `json:"threshold"`

	MinFreq float64 `json:"min_freq"`
	MaxFreq float64 `json:"max_freq"`

	// SilenceEnergy is the mean squared amplitude below which a frame is
	// treated as unvoiced without running the search.
	SilenceEnergy float64 `json:"silence_energy"`
}

// DefaultYINParams returns parameters suited to sung melodies
func DefaultYINParams(sampleRate int) YINParams {
	return YINParams{
		SampleRate:    sampleRate,
		WindowSize:    1024,
		Threshold:     0.15,
		MinFreq:       50.0,
		MaxFreq:       1600.0,
		SilenceEnergy: 1e-8,
	}
}

// YINEstimate is the outcome for a single frame
type YINEstimate struct {
	Frequency float64 `json:"frequency"` // Hz, 0 when unvoiced
	// Aperiodicity is the normalized difference at the chosen lag, clamped to
	// [0,1]. Low values mean a strongly periodic frame.
	Aperiodicity float64 `json:"aperiodicity"`
	Voiced       bool    `json:"voiced"`
}

// YIN implements the YIN fundamental frequency estimator with an FFT-based
// difference function.
//
// References:
// - de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental frequency estimator for speech and music"
type YIN struct {
	params YINParams
	fft    *spectral.FFT

	tauMin int
	tauMax int
}

// NewYIN creates a YIN estimator
func NewYIN(params YINParams) (*YIN, error) {
	if params.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", params.SampleRate)
	}
	if params.WindowSize < 4 {
		return nil, fmt.Errorf("window size too small: %d", params.WindowSize)
	}
	if params.MinFreq <= 0 || params.MaxFreq <= params.MinFreq {
		return nil, fmt.Errorf("invalid frequency range [%v, %v]", params.MinFreq, params.MaxFreq)
	}

	half := params.WindowSize / 2
	tauMin := int(math.Floor(float64(params.SampleRate) / params.MaxFreq))
	tauMax := int(math.Ceil(float64(params.SampleRate) / params.MinFreq))
	if tauMin < 2 {
		tauMin = 2
	}
	if tauMax > half-2 {
		tauMax = half - 2
	}
	if tauMin >= tauMax {
		return nil, fmt.Errorf("window size %d too short for min frequency %v at %d Hz",
			params.WindowSize, params.MinFreq, params.SampleRate)
	}

	return &YIN{
		params: params,
		fft:    spectral.NewFFT(),
		tauMin: tauMin,
		tauMax: tauMax,
	}, nil
}

// Params returns the estimator parameters
func (y *YIN) Params() YINParams {
	return y.params
}

// Estimate runs YIN on one frame of WindowSize samples
func (y *YIN) Estimate(frame []float64) (YINEstimate, error) {
	if len(frame) != y.params.WindowSize {
		return YINEstimate{}, fmt.Errorf("frame size (%d) doesn't match window size (%d)",
			len(frame), y.params.WindowSize)
	}

	unvoiced := YINEstimate{Aperiodicity: 1}
	half := y.params.WindowSize / 2

	squares := make([]float64, len(frame))
	vecmath.MulBlock(squares, frame, frame)

	if floats.Sum(squares)/float64(len(frame)) < y.params.SilenceEnergy {
		return unvoiced, nil
	}

	cmndf := y.normalizedDifference(frame, squares, half)

	tau := y.pickLag(cmndf)
	if tau < 0 {
		return unvoiced, nil
	}

	period := parabolicVertex(cmndf, tau)
	aperiodicity := math.Min(math.Max(cmndf[tau], 0), 1)

	return YINEstimate{
		Frequency:    float64(y.params.SampleRate) / period,
		Aperiodicity: aperiodicity,
		Voiced:       aperiodicity < y.params.Threshold,
	}, nil
}

// normalizedDifference computes the cumulative mean normalized difference
// d'(tau) for tau in [0, half).
//
// d(tau) = E(0) + E(tau) - 2 r(tau), where E(tau) is the energy of the
// integration window starting at tau and r the cross-correlation between the
// first window and the frame.
func (y *YIN) normalizedDifference(frame, squares []float64, half int) []float64 {
	r := y.fft.CrossCorrelate(frame, frame[:half], half)

	cumulative := make([]float64, len(squares))
	floats.CumSum(cumulative, squares)

	energy := func(start int) float64 {
		e := cumulative[start+half-1]
		if start > 0 {
			e -= cumulative[start-1]
		}
		return e
	}

	e0 := energy(0)
	cmndf := make([]float64, half)
	cmndf[0] = 1

	runningSum := 0.0
	for tau := 1; tau < half; tau++ {
		d := e0 + energy(tau) - 2*r[tau]
		if d < 0 {
			d = 0
		}
		runningSum += d
		if runningSum == 0 {
			cmndf[tau] = 1
			continue
		}
		cmndf[tau] = d / (runningSum / float64(tau))
	}

	return cmndf
}

// pickLag returns the first local minimum under the threshold, or the global
// minimum in range when no dip crosses it.
func (y *YIN) pickLag(cmndf []float64) int {
	for tau := y.tauMin; tau <= y.tauMax; tau++ {
		if cmndf[tau] < y.params.Threshold {
			for tau+1 <= y.tauMax && cmndf[tau+1] < cmndf[tau] {
				tau++
			}
			return tau
		}
	}

	window := cmndf[y.tauMin : y.tauMax+1]
	if len(window) == 0 {
		return -1
	}
	return y.tauMin + floats.MinIdx(window)
}

// parabolicVertex refines an extremum index using its two neighbours
func parabolicVertex(data []float64, idx int) float64 {
	if idx <= 0 || idx >= len(data)-1 {
		return float64(idx)
	}

	y1 := data[idx-1]
	y2 := data[idx]
	y3 := data[idx+1]

	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2

	if a == 0 {
		return float64(idx)
	}

	return float64(idx) - b/(2*a)
}
