// SPDX-License-Identifier: MIT
package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"pulse/internal/rppg"
	"pulse/internal/session"
)

func TestObserverUpdatesCollectors(t *testing.T) {
	m := New()

	m.StateChanged(session.StateStreaming)
	m.FrameSampled(rppg.Stats{Mean: 121.5, SkinPixels: 30, ROIPixels: 120})
	m.SampleAccepted(121.5, 1)
	m.SampleAccepted(121.7, 2)
	m.FrameDropped(session.DropNoSkin)
	m.FrameDropped(session.DropNoSkin)
	m.FrameDropped(session.DropUnavailable)
	m.Estimated(rppg.Result{HeartRate: 72, Quality: 41.5})
	m.AcquisitionFailed(errors.New("denied"))

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"samples accepted", testutil.ToFloat64(m.samplesAccepted), 2},
		{"buffer samples", testutil.ToFloat64(m.bufferSamples), 2},
		{"skin coverage", testutil.ToFloat64(m.skinCoverage), 0.25},
		{"no-skin drops", testutil.ToFloat64(m.framesDropped.WithLabelValues("no_skin")), 2},
		{"unavailable drops", testutil.ToFloat64(m.framesDropped.WithLabelValues("unavailable")), 1},
		{"estimates", testutil.ToFloat64(m.estimates), 1},
		{"heart rate", testutil.ToFloat64(m.heartRate), 72},
		{"quality", testutil.ToFloat64(m.quality), 41.5},
		{"state", testutil.ToFloat64(m.sessionState), float64(session.StateStreaming)},
		{"acquisition failures", testutil.ToFloat64(m.acquisitionFailures), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	m.StateChanged(session.StateIdle)
	if got := testutil.ToFloat64(m.heartRate); got != 0 {
		t.Errorf("heart rate after stop = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.bufferSamples); got != 0 {
		t.Errorf("buffer samples after stop = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.skinCoverage); got != 0 {
		t.Errorf("skin coverage after stop = %v, want 0", got)
	}
}

func TestSkinCoverageFollowsLastFrame(t *testing.T) {
	m := New()
	m.StateChanged(session.StateStreaming)

	tests := []struct {
		stats rppg.Stats
		want  float64
	}{
		{rppg.Stats{Mean: 120, SkinPixels: 96, ROIPixels: 96}, 1},
		{rppg.Stats{ROIPixels: 96}, 0},
		{rppg.Stats{Mean: 118, SkinPixels: 48, ROIPixels: 96}, 0.5},
		{rppg.Stats{}, 0},
	}
	for _, tt := range tests {
		m.FrameSampled(tt.stats)
		if got := testutil.ToFloat64(m.skinCoverage); got != tt.want {
			t.Errorf("FrameSampled(%+v): coverage = %v, want %v", tt.stats, got, tt.want)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Estimated(rppg.Result{HeartRate: 64, Quality: 12})
	m.FrameSampled(rppg.Stats{Mean: 120, SkinPixels: 1, ROIPixels: 4})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{"pulse_heart_rate_bpm 64", "pulse_estimates_total 1", "pulse_skin_coverage 0.25", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
