// SPDX-License-Identifier: MIT
package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"sync/atomic"
	"time"
)

// Skin tone painted by the synthetic source. Only green is modulated.
const (
	syntheticRed  = 180
	syntheticBlue = 110

	// ditherSteps spreads fractional green levels over neighbouring pixels so the ROI
	// mean resolves sub-level amplitudes instead of stair-stepping.
	ditherSteps = 16
)

// SyntheticConfig describes the generated feed.
type SyntheticConfig struct {
	Width        int           // Frame width in pixels.
	Height       int           // Frame height in pixels.
	BPM          float64       // Simulated heart rate.
	Base         float64       // Mean green level of the skin patch.
	Amplitude    float64       // Peak green deviation of the pulse.
	Drift        float64       // Linear baseline drift in levels per second.
	Noise        float64       // Uniform per-frame noise amplitude in levels.
	AcquireDelay time.Duration // Simulated device start-up time.
	Fail         bool          // Refuse access on Acquire.
	Seed         int64         // Noise seed.
}

// DefaultSyntheticConfig is a 640x480 feed pulsing at 72 bpm.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Width:     640,
		Height:    480,
		BPM:       72,
		Base:      120,
		Amplitude: 3,
		Drift:     0.2,
		Seed:      1,
	}
}

// Synthetic generates frames with a skin-coloured patch whose green channel carries
// a sinusoidal pulse plus drift and noise.
type Synthetic struct {
	cfg   SyntheticConfig
	clock func() time.Time
}

// SyntheticOption customises a Synthetic source.
type SyntheticOption func(*Synthetic)

// WithClock replaces time.Now as the source of frame times.
func WithClock(clock func() time.Time) SyntheticOption {
	return func(s *Synthetic) {
		s.clock = clock
	}
}

// NewSynthetic returns a synthetic source. Non-positive dimensions fall back to the
// defaults.
func NewSynthetic(cfg SyntheticConfig, opts ...SyntheticOption) *Synthetic {
	def := DefaultSyntheticConfig()
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.Height <= 0 {
		cfg.Height = def.Height
	}
	s := &Synthetic{cfg: cfg, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire waits out the configured start-up delay and opens a stream.
func (s *Synthetic) Acquire(ctx context.Context) (Stream, error) {
	if s.cfg.AcquireDelay > 0 {
		timer := time.NewTimer(s.cfg.AcquireDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.cfg.Fail {
		return nil, fmt.Errorf("synthetic source: %w", ErrPermissionDenied)
	}

	return newSyntheticStream(s.cfg, s.clock), nil
}

type syntheticStream struct {
	cfg      SyntheticConfig
	clock    func() time.Time
	start    time.Time
	frame    *image.RGBA
	patch    image.Rectangle
	rng      *rand.Rand
	released atomic.Bool
}

func newSyntheticStream(cfg SyntheticConfig, clock func() time.Time) *syntheticStream {
	frame := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	for i := 3; i < len(frame.Pix); i += 4 {
		frame.Pix[i] = 0xff // opaque black background
	}

	patch := image.Rect(cfg.Width/4, cfg.Height/8, cfg.Width*3/4, cfg.Height*3/4)
	skin := color.RGBA{R: syntheticRed, B: syntheticBlue, A: 0xff}
	for y := patch.Min.Y; y < patch.Max.Y; y++ {
		for x := patch.Min.X; x < patch.Max.X; x++ {
			frame.SetRGBA(x, y, skin)
		}
	}

	return &syntheticStream{
		cfg:   cfg,
		clock: clock,
		start: clock(),
		frame: frame,
		patch: patch,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Green returns the noiseless green level at t seconds after acquisition.
func (c SyntheticConfig) Green(t float64) float64 {
	return c.Base + c.Amplitude*math.Sin(2*math.Pi*c.BPM/60*t) + c.Drift*t
}

func (s *syntheticStream) ReadFrame() (*image.RGBA, error) {
	if s.released.Load() {
		return nil, ErrReleased
	}

	t := s.clock().Sub(s.start).Seconds()
	level := s.cfg.Green(t)
	if s.cfg.Noise > 0 {
		level += s.cfg.Noise * (2*s.rng.Float64() - 1)
	}

	for y := s.patch.Min.Y; y < s.patch.Max.Y; y++ {
		off := s.frame.PixOffset(s.patch.Min.X, y)
		for x := 0; x < s.patch.Dx(); x++ {
			threshold := float64((x+y)%ditherSteps) / ditherSteps
			g := math.Floor(level + threshold)
			s.frame.Pix[off+x*4+1] = uint8(math.Max(0, math.Min(255, g)))
		}
	}
	return s.frame, nil
}

func (s *syntheticStream) Release() error {
	s.released.Store(true)
	return nil
}
