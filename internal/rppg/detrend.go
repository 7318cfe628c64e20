// SPDX-License-Identifier: MIT
package rppg

import "math"

// minDetrendLength is the shortest signal the filter touches; shorter input is
// returned unchanged.
const minDetrendLength = 4

// Detrend removes slow baseline drift by subtracting a local moving average from
// each sample. For sample i the mean is taken over j in [max(0, i-w), min(n, i+w))
// with w = floor(2*fs), so the window is clamped at the edges instead of wrapped or
// padded. This is a crude high-pass, not a band-limited filter, and its output is
// what the zero-crossing estimator is calibrated against.
//
// The result is written into dst (grown if needed) and returned. dst must not alias
// signal. Each window is summed left to right so results are reproducible to the
// last bit regardless of buffer history.
func Detrend(dst, signal []float64, fs float64) []float64 {
	n := len(signal)
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]

	if n < minDetrendLength {
		copy(dst, signal)
		return dst
	}

	w := 0
	if fs > 0 && !math.IsInf(fs, 0) {
		w = int(math.Floor(fs * 2))
	}
	if w < 1 {
		w = 1 // an empty window has no mean
	}

	for i := 0; i < n; i++ {
		start := max(0, i-w)
		end := min(n, i+w)
		var sum float64
		for _, v := range signal[start:end] {
			sum += v
		}
		dst[i] = signal[i] - sum/float64(end-start)
	}
	return dst
}
