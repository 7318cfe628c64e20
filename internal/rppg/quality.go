// SPDX-License-Identifier: MIT
package rppg

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Quality bounds and scaling.
const (
	MinQuality = 0.0
	MaxQuality = 100.0

	qualityScale = 10.0
)

// Quality scores pulsatile signal strength as clamp(10 * population stddev, 0, 100)
// of the detrended signal.
//
// This is a proxy, not a calibrated confidence: it saturates once the stddev reaches
// 10 intensity levels and has no illumination normalisation, so motion and lighting
// changes raise it as readily as a strong pulse does.
func Quality(detrended []float64) float64 {
	if len(detrended) == 0 {
		return MinQuality
	}
	_, variance := stat.PopMeanVariance(detrended, nil)
	q := math.Sqrt(variance) * qualityScale
	if math.IsNaN(q) || q < MinQuality {
		return MinQuality
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}

// QualityLevel is a coarse banding of the quality score for display.
type QualityLevel string

const (
	QualityPoor QualityLevel = "poor"
	QualityFair QualityLevel = "fair"
	QualityGood QualityLevel = "good"
)

// LevelOf bands a quality score: good from 70, fair from 40, poor below.
func LevelOf(quality float64) QualityLevel {
	switch {
	case quality >= 70:
		return QualityGood
	case quality >= 40:
		return QualityFair
	default:
		return QualityPoor
	}
}
