// SPDX-License-Identifier: MIT
package rppg

import (
	"math"
)

// Result is the output of one estimation pass. A zero HeartRate means the window was
// too short to estimate from; it is not a measurement.
type Result struct {
	HeartRate  int     // Beats per minute, clamped to the configured range; 0 if insufficient.
	Quality    float64 // 0-100 signal quality; 0 if insufficient.
	Frequency  float64 // Zero-crossing frequency (Hz) before conversion and clamping.
	Crossings  int     // Zero crossings counted in the detrended window.
	SampleRate float64 // Actual rate derived from the buffered timestamps (Hz).
	Duration   float64 // Seconds between the first and last buffered sample.
	Samples    int     // Window length used.

	// SpectralHeartRate is the FFT peak inside the heart-rate band in bpm. It is only
	// computed when the estimator was built WithSpectralCheck.
	SpectralHeartRate float64
}

// Sufficient reports whether the result carries an estimate.
func (r Result) Sufficient() bool {
	return r.HeartRate > 0
}

// EstimatorOption customises an Estimator.
type EstimatorOption func(*Estimator)

// WithSpectralCheck makes every estimate also report the dominant spectral frequency.
func WithSpectralCheck() EstimatorOption {
	return func(e *Estimator) {
		e.spectrum = NewSpectrum()
	}
}

// Estimator turns a sample window into a heart rate and a quality score.
// Scratch buffers are sized to the window capacity at construction so Estimate does
// not allocate.
type Estimator struct {
	cfg        Config
	spectrum   *Spectrum
	values     []float64
	timestamps []float64
	detrended  []float64
}

// NewEstimator validates cfg and pre-allocates scratch space for a full window.
func NewEstimator(cfg Config, opts ...EstimatorOption) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	capacity := cfg.Capacity()
	e := &Estimator{
		cfg:        cfg,
		values:     make([]float64, 0, capacity),
		timestamps: make([]float64, 0, capacity),
		detrended:  make([]float64, 0, capacity),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Estimate runs the estimator over the full current contents of buf.
func (e *Estimator) Estimate(buf *Buffer) Result {
	e.values = buf.Values(e.values)
	e.timestamps = buf.Timestamps(e.timestamps)
	return e.EstimateSeries(e.values, e.timestamps)
}

// EstimateSeries estimates from paired value and timestamp (ms) slices:
//
//  1. The actual rate is n / duration, so frame jitter does not skew the result.
//  2. The window is detrended at that rate.
//  3. Sign changes across zero are counted; two crossings make one cycle.
//  4. bpm = round(clamp(crossings / 2 / duration * 60, min, max)).
//
// Fewer than MinEstimateSamples samples, mismatched slices or a non-positive time
// span yield the zero Result.
func (e *Estimator) EstimateSeries(values, timestamps []float64) Result {
	n := len(values)
	if n < MinEstimateSamples || len(timestamps) != n {
		return Result{}
	}

	duration := (timestamps[n-1] - timestamps[0]) / 1000
	if !(duration > 0) {
		return Result{}
	}
	actualFs := float64(n) / duration

	e.detrended = Detrend(e.detrended, values, actualFs)

	crossings := ZeroCrossings(e.detrended)
	frequency := float64(crossings) / 2 / duration

	bpm := frequency * 60
	bpm = math.Max(float64(e.cfg.MinHeartRate), math.Min(float64(e.cfg.MaxHeartRate), bpm))

	res := Result{
		HeartRate:  int(math.Round(bpm)),
		Quality:    Quality(e.detrended),
		Frequency:  frequency,
		Crossings:  crossings,
		SampleRate: actualFs,
		Duration:   duration,
		Samples:    n,
	}

	if e.spectrum != nil {
		low := float64(e.cfg.MinHeartRate) / 60
		high := float64(e.cfg.MaxHeartRate) / 60
		res.SpectralHeartRate = e.spectrum.DominantFrequency(e.detrended, actualFs, low, high) * 60
	}

	return res
}

// ZeroCrossings counts adjacent pairs whose sign flips across zero. Zero counts as
// non-negative, so -1 -> 0 is a crossing and 0 -> 1 is not.
func ZeroCrossings(signal []float64) int {
	crossings := 0
	for i := 1; i < len(signal); i++ {
		prev, cur := signal[i-1], signal[i]
		if (prev < 0 && cur >= 0) || (prev >= 0 && cur < 0) {
			crossings++
		}
	}
	return crossings
}
