// SPDX-License-Identifier: MIT
package rppg

import (
	"image"
	"image/color"
	"math"
	"testing"

	"pulse/pkg/utils"
)

func TestIsSkin(t *testing.T) {
	tests := []struct {
		desc    string
		r, g, b uint8
		want    bool
	}{
		{"Typical skin", 180, 120, 110, true},
		{"Black", 0, 0, 0, false},
		{"Red at threshold", 60, 50, 30, false},
		{"Green at threshold", 100, 40, 30, false},
		{"Blue at threshold", 100, 60, 20, false},
		{"Blue above red", 100, 90, 120, false},
		{"Red minus green at 100", 200, 100, 50, false},
		{"Red minus green at 99", 200, 101, 50, true},
		{"Green above red", 100, 200, 50, true},
		{"White", 255, 255, 255, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := IsSkin(tt.r, tt.g, tt.b); got != tt.want {
				t.Errorf("IsSkin(%d, %d, %d) = %v, want %v", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestROI(t *testing.T) {
	tests := []struct {
		bounds image.Rectangle
		want   image.Rectangle
	}{
		{image.Rect(0, 0, 640, 480), image.Rect(192, 96, 448, 288)},
		{image.Rect(0, 0, 10, 10), image.Rect(3, 2, 7, 6)},
		{image.Rect(0, 0, 7, 3), image.Rect(2, 0, 4, 1)},
		{image.Rect(100, 50, 740, 530), image.Rect(292, 146, 548, 338)},
	}

	for _, tt := range tests {
		t.Run(tt.bounds.String(), func(t *testing.T) {
			if got := ROI(tt.bounds); got != tt.want {
				t.Errorf("ROI(%v) = %v, want %v", tt.bounds, got, tt.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	t.Run("Nil frame", func(t *testing.T) {
		if got := Extract(nil); got != 0 {
			t.Errorf("Extract(nil) = %v, want 0", got)
		}
	})

	t.Run("All black frame", func(t *testing.T) {
		frame := utils.SolidFrame(64, 48, color.RGBA{A: 255})
		if got := Extract(frame); got != 0 {
			t.Errorf("Extract(black) = %v, want 0", got)
		}
	})

	t.Run("Skin patch", func(t *testing.T) {
		frame := utils.SkinFrame(64, 48, 130)
		stats := ExtractStats(frame)
		if stats.Mean != 130 {
			t.Errorf("Mean = %v, want 130", stats.Mean)
		}
		if stats.SkinPixels != stats.ROIPixels {
			t.Errorf("SkinPixels = %d, ROIPixels = %d, want full coverage", stats.SkinPixels, stats.ROIPixels)
		}
		if stats.Coverage() != 1 {
			t.Errorf("Coverage = %v, want 1", stats.Coverage())
		}
	})

	t.Run("Skin outside ROI is ignored", func(t *testing.T) {
		frame := utils.SolidFrame(100, 100, color.RGBA{A: 255})
		// Top-left corner is outside x >= 30, y >= 20.
		for y := 0; y < 20; y++ {
			for x := 0; x < 30; x++ {
				frame.SetRGBA(x, y, color.RGBA{R: 180, G: 120, B: 110, A: 255})
			}
		}
		if got := Extract(frame); got != 0 {
			t.Errorf("Extract = %v, want 0", got)
		}
	})

	t.Run("Mean over matching pixels only", func(t *testing.T) {
		frame := utils.SolidFrame(10, 10, color.RGBA{A: 255})
		roi := ROI(frame.Rect) // 4x4 box at (3,2)
		frame.SetRGBA(roi.Min.X, roi.Min.Y, color.RGBA{R: 180, G: 100, B: 110, A: 255})
		frame.SetRGBA(roi.Min.X+1, roi.Min.Y, color.RGBA{R: 180, G: 150, B: 110, A: 255})
		stats := ExtractStats(frame)
		if stats.SkinPixels != 2 || stats.ROIPixels != 16 {
			t.Fatalf("counts = %d/%d, want 2/16", stats.SkinPixels, stats.ROIPixels)
		}
		if math.Abs(stats.Mean-125) > 1e-12 {
			t.Errorf("Mean = %v, want 125", stats.Mean)
		}
	})

	t.Run("Sub-image frame", func(t *testing.T) {
		parent := utils.SkinFrame(128, 96, 140)
		sub := parent.SubImage(image.Rect(32, 12, 96, 72)).(*image.RGBA)
		if got := Extract(sub); got != 140 {
			t.Errorf("Extract(sub) = %v, want 140", got)
		}
	})
}

func TestExtractHotPath(t *testing.T) {
	frame := utils.SkinFrame(640, 480, 120)

	allocs := testing.AllocsPerRun(50, func() {
		_ = Extract(frame)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Extract, got %.1f", allocs)
	}
}

func BenchmarkExtract(b *testing.B) {
	frame := utils.SkinFrame(640, 480, 120)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Extract(frame)
	}
}
