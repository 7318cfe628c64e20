// SPDX-License-Identifier: MIT
package utils

import (
	"image"
	"image/color"
	"math"
	"sync"
)

// MockTransport implements the Transport interface for testing by recording every
// payload it is handed.
type MockTransport struct {
	mu     sync.Mutex
	sent   []any
	closed bool
	Err    error // returned from Send when set
}

// Send stores the payload for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of everything sent so far.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.sent))
	copy(out, m.sent)
	return out
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// PulseWave describes a synthetic green-channel trace.
type PulseWave struct {
	Base      float64 // Mean green level.
	Amplitude float64 // Peak deviation of the cardiac component.
	BPM       float64 // Cardiac frequency in beats per minute.
	Drift     float64 // Linear baseline drift in levels per second.
	Sway      float64 // Amplitude of a slow 0.1 Hz baseline oscillation.
}

// At returns the trace value at t seconds.
func (w PulseWave) At(t float64) float64 {
	return w.Base +
		w.Amplitude*math.Sin(2*math.Pi*w.BPM/60*t) +
		w.Drift*t +
		w.Sway*math.Sin(2*math.Pi*0.1*t)
}

// GeneratePulseTrace samples w n times at fs Hz and returns the values with their
// timestamps in milliseconds, starting at 0.
func GeneratePulseTrace(n int, fs float64, w PulseWave) (values, timestamps []float64) {
	values = make([]float64, n)
	timestamps = make([]float64, n)
	for i := range values {
		t := float64(i) / fs
		values[i] = w.At(t)
		timestamps[i] = t * 1000
	}
	return values, timestamps
}

// SolidFrame returns a width x height frame filled with one colour.
func SolidFrame(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// SkinFrame returns a black frame with a skin-toned patch covering its central
// region, so the whole ROI is skin. Red and blue are fixed at 180 and 110, which
// keeps the patch inside the skin gate for any green level above 80.
func SkinFrame(width, height int, green uint8) *image.RGBA {
	img := SolidFrame(width, height, color.RGBA{A: 255})
	patch := image.Rect(width/4, height/8, width*3/4, height*3/4)
	skin := color.RGBA{R: 180, G: green, B: 110, A: 255}
	for y := patch.Min.Y; y < patch.Max.Y; y++ {
		for x := patch.Min.X; x < patch.Max.X; x++ {
			img.SetRGBA(x, y, skin)
		}
	}
	return img
}
