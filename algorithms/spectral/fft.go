package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality backed by mjibson/go-dsp
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// go-dsp handles non-power-of-2 sizes
	return fft.FFTReal(x)
}

// ComputeInverse computes inverse FFT
func (f *FFT) ComputeInverse(x []complex128) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.IFFT(x)
}

// ComputeInverseReal computes inverse FFT and returns real part only
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := f.ComputeInverse(x)
	realResult := make([]float64, len(result))

	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult
}

// CrossCorrelate returns r[tau] = sum_j template[j] * signal[j+tau] for
// tau in [0, maxLag). Samples past the end of signal count as zero.
func (f *FFT) CrossCorrelate(signal, template []float64, maxLag int) []float64 {
	if maxLag <= 0 || len(signal) == 0 || len(template) == 0 {
		return []float64{}
	}

	size := nextPowerOfTwo(len(signal) + len(template))

	a := make([]float64, size)
	copy(a, signal)
	b := make([]float64, size)
	copy(b, template)

	sa := f.Compute(a)
	sb := f.Compute(b)
	for i := range sa {
		sa[i] *= complex(real(sb[i]), -imag(sb[i]))
	}

	full := f.ComputeInverseReal(sa)
	if maxLag > len(full) {
		maxLag = len(full)
	}
	return full[:maxLag]
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
