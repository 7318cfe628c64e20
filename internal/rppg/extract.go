// SPDX-License-Identifier: MIT
package rppg

import (
	"image"
)

// Region of interest as fractions of the frame. The box sits in the upper middle of
// the frame where a face usually is.
const (
	roiLeft   = 0.30
	roiTop    = 0.20
	roiWidth  = 0.40
	roiHeight = 0.40
)

// Skin-tone gate thresholds (8-bit channel values).
const (
	skinMinR      = 60
	skinMinG      = 40
	skinMinB      = 20
	skinMaxRMinus = 100 // R - G must stay below this
)

// Stats describes one extraction.
type Stats struct {
	Mean       float64 // Mean green over skin pixels, 0 when none matched.
	SkinPixels int     // Number of pixels that passed the skin gate.
	ROIPixels  int     // Number of pixels inspected.
}

// Coverage returns the skin fraction of the ROI in [0, 1].
func (s Stats) Coverage() float64 {
	if s.ROIPixels == 0 {
		return 0
	}
	return float64(s.SkinPixels) / float64(s.ROIPixels)
}

// ROI returns the analysed rectangle for bounds. Offsets and sizes are floored the
// same way the pixel reader addresses them, so the box never exceeds the frame.
func ROI(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	x0 := int(float64(w) * roiLeft)
	y0 := int(float64(h) * roiTop)
	rw := int(float64(w) * roiWidth)
	rh := int(float64(h) * roiHeight)
	return image.Rect(x0, y0, x0+rw, y0+rh).Add(bounds.Min)
}

// IsSkin reports whether an RGB triple passes the skin-tone gate.
func IsSkin(r, g, b uint8) bool {
	ri, gi, bi := int(r), int(g), int(b)
	return ri > skinMinR && gi > skinMinG && bi > skinMinB && ri > bi && ri-gi < skinMaxRMinus
}

// Extract reduces a frame to one scalar: the mean green intensity over skin-coloured
// pixels inside the ROI. It returns 0 when no pixel matched, which callers treat as
// "no usable signal" rather than a measurement.
func Extract(frame *image.RGBA) float64 {
	return ExtractStats(frame).Mean
}

// ExtractStats is Extract with pixel counts.
// Hot path: reads Pix directly, no allocations.
func ExtractStats(frame *image.RGBA) Stats {
	if frame == nil || frame.Rect.Empty() {
		return Stats{}
	}

	roi := ROI(frame.Rect).Intersect(frame.Rect)
	if roi.Empty() {
		return Stats{}
	}

	var (
		greenSum uint64
		count    int
	)
	rowBytes := roi.Dx() * 4
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		start := frame.PixOffset(roi.Min.X, y)
		end := start + rowBytes
		if start < 0 || end > len(frame.Pix) {
			break // truncated pixel buffer
		}
		row := frame.Pix[start:end:end]
		for i := 0; i+3 < len(row); i += 4 {
			r, g, b := row[i], row[i+1], row[i+2]
			if IsSkin(r, g, b) {
				greenSum += uint64(g)
				count++
			}
		}
	}

	stats := Stats{SkinPixels: count, ROIPixels: roi.Dx() * roi.Dy()}
	if count > 0 {
		stats.Mean = float64(greenSum) / float64(count)
	}
	return stats
}
