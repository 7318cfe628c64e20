// SPDX-License-Identifier: MIT
package rppg

import (
	"math/cmplx"

	"pulse/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Spectrum finds the dominant frequency of a short real signal. It is used as a
// diagnostic next to the zero-crossing estimate, never as a replacement for it.
//
// Buffers and the FFT plan are reused between calls and only rebuilt when the padded
// size changes, which happens a handful of times while the sample window fills.
type Spectrum struct {
	fft    *fourier.FFT
	size   int
	input  []float64
	coeffs []complex128
}

// NewSpectrum returns an empty analyser; the plan is built on first use.
func NewSpectrum() *Spectrum {
	return &Spectrum{}
}

func (s *Spectrum) ensure(n int) {
	size := bitint.NextPowerOfTwo(n)
	if size == s.size {
		return
	}
	s.size = size
	s.fft = fourier.NewFFT(size)
	s.input = make([]float64, size)
	s.coeffs = make([]complex128, size/2+1)
}

// DominantFrequency returns the frequency in Hz with the largest Hann-windowed
// magnitude inside [lowHz, highHz], for a signal sampled at fs. The signal is
// zero-padded to the next power of two. Returns 0 when the band holds no bin or the
// input is empty.
func (s *Spectrum) DominantFrequency(signal []float64, fs, lowHz, highHz float64) float64 {
	n := len(signal)
	if n == 0 || fs <= 0 {
		return 0
	}
	s.ensure(n)

	copy(s.input, signal)
	clear(s.input[n:])
	window.Hann(s.input[:n])

	s.fft.Coefficients(s.coeffs, s.input)

	var (
		bestFreq float64
		bestMag  = -1.0
	)
	for i, c := range s.coeffs {
		freq := s.fft.Freq(i) * fs
		if freq < lowHz || freq > highHz {
			continue
		}
		if mag := cmplx.Abs(c); mag > bestMag {
			bestMag = mag
			bestFreq = freq
		}
	}
	return bestFreq
}
