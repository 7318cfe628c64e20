// SPDX-License-Identifier: MIT
package utils

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

func TestMockTransport(t *testing.T) {
	tests := []struct {
		name    string
		payload []any
	}{
		{"Empty", nil},
		{"Single Value", []any{72}},
		{"Mixed Payloads", []any{"a", 1.5, map[string]int{"hr": 60}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := &MockTransport{}
			for _, p := range tt.payload {
				if err := mt.Send(p); err != nil {
					t.Fatalf("MockTransport.Send() error = %v", err)
				}
			}
			if got := len(mt.Sent()); got != len(tt.payload) {
				t.Errorf("MockTransport stored %d payloads, want %d", got, len(tt.payload))
			}
			if mt.Closed() {
				t.Error("MockTransport reported closed before Close()")
			}
			_ = mt.Close()
			if !mt.Closed() {
				t.Error("MockTransport not closed after Close()")
			}
		})
	}
}

func TestMockTransportError(t *testing.T) {
	wantErr := errors.New("link down")
	mt := &MockTransport{Err: wantErr}
	if err := mt.Send(1); !errors.Is(err, wantErr) {
		t.Errorf("Send() error = %v, want %v", err, wantErr)
	}
	if len(mt.Sent()) != 0 {
		t.Error("failed sends must not be recorded")
	}
}

func TestGeneratePulseTrace(t *testing.T) {
	const (
		n  = 300
		fs = 30.0
	)
	wave := PulseWave{Base: 120, Amplitude: 2, BPM: 72}
	values, timestamps := GeneratePulseTrace(n, fs, wave)

	if len(values) != n || len(timestamps) != n {
		t.Fatalf("lengths = (%d, %d), want %d", len(values), len(timestamps), n)
	}
	for i := 1; i < n; i++ {
		if timestamps[i] <= timestamps[i-1] {
			t.Fatalf("timestamps not strictly increasing at %d", i)
		}
	}
	if math.Abs(timestamps[n-1]-(n-1)*1000/fs) > 1e-9 {
		t.Errorf("last timestamp = %v", timestamps[n-1])
	}
	for i, v := range values {
		if v < wave.Base-wave.Amplitude-1e-9 || v > wave.Base+wave.Amplitude+1e-9 {
			t.Fatalf("value %d = %v outside base±amplitude", i, v)
		}
	}
}

func TestSkinFrame(t *testing.T) {
	img := SkinFrame(64, 48, 120)

	center := img.RGBAAt(32, 20)
	if center != (color.RGBA{R: 180, G: 120, B: 110, A: 255}) {
		t.Errorf("center pixel = %+v, want skin", center)
	}
	corner := img.RGBAAt(0, 0)
	if corner != (color.RGBA{A: 255}) {
		t.Errorf("corner pixel = %+v, want black", corner)
	}
}
