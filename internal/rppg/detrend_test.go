// SPDX-License-Identifier: MIT
package rppg

import (
	"math"
	"testing"

	"pulse/pkg/utils"
)

func almostEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestDetrend(t *testing.T) {
	tests := []struct {
		name   string
		signal []float64
		fs     float64
		want   []float64
	}{
		{"Empty", []float64{}, 30, []float64{}},
		{"Too short is unchanged", []float64{5, 7, 9}, 30, []float64{5, 7, 9}},
		{"Constant detrends to zero", []float64{4, 4, 4, 4, 4, 4}, 1, []float64{0, 0, 0, 0, 0, 0}},
		// w = 2: windows [0,2) [0,3) [0,4) [1,5) [2,5)
		{"Ramp with clamped edges", []float64{1, 2, 3, 4, 5}, 1, []float64{-0.5, 0, 0.5, 0.5, 1}},
		// w = floor(2*0.7) = 1: windows [0,1) [0,2) [1,3) [2,4)
		{"Narrow window", []float64{2, 4, 6, 8}, 0.7, []float64{0, 1, 1, 1}},
		// fs <= 0 falls back to w = 1
		{"Zero rate", []float64{2, 4, 6, 8}, 0, []float64{0, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detrend(nil, tt.signal, tt.fs)
			if !almostEqual(got, tt.want, 1e-12) {
				t.Errorf("Detrend(%v, %v) = %v, want %v", tt.signal, tt.fs, got, tt.want)
			}
		})
	}
}

func TestDetrendWindowLongerThanSignal(t *testing.T) {
	// With w >= n every window is the whole prefix/suffix clamp; the middle sample of
	// an odd-length ramp sits on the mean of [0, n).
	signal := []float64{1, 2, 3, 4, 5, 6, 7}
	got := Detrend(nil, signal, 30)
	if math.Abs(got[3]) > 1e-12 {
		t.Errorf("centre sample = %v, want 0", got[3])
	}
}

func TestDetrendRemovesLinearDrift(t *testing.T) {
	values, _ := utils.GeneratePulseTrace(300, 30, utils.PulseWave{Base: 100, Drift: 2})
	got := Detrend(nil, values, 30)

	// Away from the edges the symmetric window leaves only the half-sample lag.
	w := 60
	for i := w; i < len(got)-w; i++ {
		if math.Abs(got[i]) > 2.0/30 {
			t.Fatalf("interior sample %d = %v, drift not removed", i, got[i])
		}
	}
}

func TestDetrendReusesDestination(t *testing.T) {
	signal := []float64{1, 3, 2, 5, 4, 6}
	dst := make([]float64, 0, 16)
	got := Detrend(dst, signal, 1)
	if &got[0] != &dst[:1][0] {
		t.Error("Detrend allocated although dst had capacity")
	}
	if signal[0] != 1 || signal[5] != 6 {
		t.Error("Detrend modified its input")
	}
}

func TestQuality(t *testing.T) {
	tests := []struct {
		name   string
		signal []float64
		want   float64
	}{
		{"Empty", nil, 0},
		{"Flat", []float64{0, 0, 0, 0}, 0},
		{"Unit square wave", []float64{1, -1, 1, -1}, 10},
		{"Saturates", []float64{20, -20, 20, -20}, 100},
		{"Offset is ignored", []float64{5.5, 4.5, 5.5, 4.5}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quality(tt.signal); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Quality(%v) = %v, want %v", tt.signal, got, tt.want)
			}
		})
	}
}

func TestLevelOf(t *testing.T) {
	tests := []struct {
		quality float64
		want    QualityLevel
	}{
		{0, QualityPoor},
		{39.9, QualityPoor},
		{40, QualityFair},
		{69.99, QualityFair},
		{70, QualityGood},
		{100, QualityGood},
	}

	for _, tt := range tests {
		if got := LevelOf(tt.quality); got != tt.want {
			t.Errorf("LevelOf(%v) = %q, want %q", tt.quality, got, tt.want)
		}
	}
}

func TestSpectrumDominantFrequency(t *testing.T) {
	tests := []struct {
		name string
		n    int
		fs   float64
		hz   float64
	}{
		{"1.2 Hz over 10 s", 300, 30, 1.2},
		{"2 Hz over 4 s", 120, 30, 2},
		{"1 Hz at 25 Hz sampling", 250, 25, 1},
	}

	sp := NewSpectrum()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := utils.GeneratePulseTrace(tt.n, tt.fs, utils.PulseWave{Amplitude: 1, BPM: tt.hz * 60})
			got := sp.DominantFrequency(values, tt.fs, 0.5, 3)
			resolution := tt.fs / float64(len(sp.input))
			if math.Abs(got-tt.hz) > resolution {
				t.Errorf("DominantFrequency = %v Hz, want %v ± %v", got, tt.hz, resolution)
			}
		})
	}

	if got := sp.DominantFrequency(nil, 30, 0.5, 3); got != 0 {
		t.Errorf("DominantFrequency(nil) = %v, want 0", got)
	}
	if got := sp.DominantFrequency([]float64{1, 2, 3, 4}, 30, 100, 200); got != 0 {
		t.Errorf("empty band returned %v, want 0", got)
	}
}
