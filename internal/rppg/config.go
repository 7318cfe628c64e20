// SPDX-License-Identifier: MIT
/*
Package rppg implements the signal path of the remote photoplethysmography engine:

- ROI sampling with a coarse skin-tone gate (Extract)
- A capped, time-paired sliding window of samples (Buffer)
- Moving-average drift removal (Detrend)
- Zero-crossing heart-rate estimation and a variance-based quality score (Estimator)

Everything in this package is synchronous and allocation-free on the per-frame path;
ownership and scheduling belong to the session package.
*/
package rppg

import (
	"errors"
	"fmt"
	"math"
)

// Defaults for the engine configuration.
const (
	DefaultSampleRate   = 30.0 // Hz
	DefaultWindowSize   = 10.0 // seconds
	DefaultMinHeartRate = 40   // bpm
	DefaultMaxHeartRate = 180  // bpm

	// MinEstimateSamples is the smallest window the estimator will work on.
	MinEstimateSamples = 64

	// warmupSeconds of samples are collected before the first estimate is attempted.
	warmupSeconds = 3
)

var (
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrInvalidWindowSize = errors.New("window size must be positive")
	ErrInvalidHeartRange = errors.New("heart rate bounds must be positive with min < max")
	ErrEmptyWindow       = errors.New("sample rate x window size must hold at least one sample")
)

// Config holds the tunable engine parameters.
type Config struct {
	SampleRate   float64 // Nominal sampling rate (Hz).
	WindowSize   float64 // Sliding window length (seconds).
	MinHeartRate int     // Lower clamp for published heart rates (bpm).
	MaxHeartRate int     // Upper clamp for published heart rates (bpm).
}

// DefaultConfig returns the stock configuration: 30 Hz, 10 s window, 40-180 bpm.
func DefaultConfig() Config {
	return Config{
		SampleRate:   DefaultSampleRate,
		WindowSize:   DefaultWindowSize,
		MinHeartRate: DefaultMinHeartRate,
		MaxHeartRate: DefaultMaxHeartRate,
	}
}

// Validate checks that all parameters are positive and the heart-rate range is ordered.
func (c Config) Validate() error {
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("%w, got %v", ErrInvalidSampleRate, c.SampleRate)
	}
	if !(c.WindowSize > 0) || math.IsInf(c.WindowSize, 0) {
		return fmt.Errorf("%w, got %v", ErrInvalidWindowSize, c.WindowSize)
	}
	if c.MinHeartRate <= 0 || c.MaxHeartRate <= 0 || c.MinHeartRate >= c.MaxHeartRate {
		return fmt.Errorf("%w, got [%d, %d]", ErrInvalidHeartRange, c.MinHeartRate, c.MaxHeartRate)
	}
	if c.Capacity() < 1 {
		return ErrEmptyWindow
	}
	return nil
}

// Capacity is the maximum number of samples held by the sliding window.
func (c Config) Capacity() int {
	return int(math.Floor(c.SampleRate * c.WindowSize))
}

// FrameInterval is the minimum spacing between accepted samples in milliseconds.
func (c Config) FrameInterval() float64 {
	return 1000 / c.SampleRate
}

// WarmupSamples is the buffer length at which estimation starts: three seconds of
// samples at the nominal rate, never less than the estimator minimum.
func (c Config) WarmupSamples() int {
	n := int(math.Ceil(c.SampleRate * warmupSeconds))
	if n < MinEstimateSamples {
		n = MinEstimateSamples
	}
	return n
}
