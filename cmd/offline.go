// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"pulse/internal/camera"
	"pulse/internal/config"
	"pulse/internal/rppg"
	"pulse/internal/session"
	"pulse/internal/transport"
)

const (
	acquireTimeout = 5 * time.Second

	// spectralAgreement is the largest gap in bpm reported as agreement.
	spectralAgreement = 10.0
)

// simClock is a manually advanced clock. Sources may read it from other goroutines.
type simClock struct {
	ns atomic.Int64
}

func newSimClock(t time.Time) *simClock {
	c := &simClock{}
	c.ns.Store(t.UnixNano())
	return c
}

func (c *simClock) Now() time.Time {
	return time.Unix(0, c.ns.Load())
}

func (c *simClock) Advance(d time.Duration) time.Time {
	return time.Unix(0, c.ns.Add(int64(d)))
}

// recorder counts samples and keeps the last sufficient result.
type recorder struct {
	session.NopObserver
	samples   int
	estimates int
	last      rppg.Result
}

func (r *recorder) SampleAccepted(float64, int) { r.samples++ }

func (r *recorder) Estimated(res rppg.Result) {
	r.estimates++
	r.last = res
}

// awaitStreaming ticks ctrl at the frozen simulated time until acquisition resolves.
// The resolving tick also takes the first sample.
func awaitStreaming(ctrl *session.Controller, clock *simClock) error {
	deadline := time.Now().Add(acquireTimeout)
	for {
		ctrl.Tick(clock.Now())
		switch ctrl.State() {
		case session.StateStreaming:
			return nil
		case session.StateError:
			return fmt.Errorf("acquisition failed: %s", ctrl.Snapshot().ErrorMessage())
		}
		if time.Now().After(deadline) {
			return errors.New("timed out waiting for the frame source")
		}
		time.Sleep(time.Millisecond)
	}
}

// frameStep is the simulated spacing that lets every tick through the throttle.
func frameStep(cfg rppg.Config) time.Duration {
	return time.Duration(math.Ceil(cfg.FrameInterval() * float64(time.Millisecond)))
}

func newReplayCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <dir>",
		Short: "Estimate the heart rate of a recorded image sequence",
		Long: "Replays the PNG/JPEG frames of a directory, in name order, at the configured\n" +
			"sample rate with a simulated clock and prints the final estimate.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return replay(cmd.Context(), cmd.OutOrStdout(), opts.cfg, args[0])
		},
	}
}

func replay(ctx context.Context, w io.Writer, cfg *config.Config, dir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	frames, err := camera.ListFrames(dir)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("%w in %s", camera.ErrNoFrames, dir)
	}

	engine := cfg.Engine.RPPG()
	rec := &recorder{}
	ctrl, err := session.NewController(engine, camera.NewSequence(dir, false),
		session.WithObserver(rec), session.WithSpectralCheck())
	if err != nil {
		return err
	}
	defer ctrl.Stop()

	clock := newSimClock(time.Unix(0, 0))
	step := frameStep(engine)

	ctrl.Start(ctx)
	if err := awaitStreaming(ctrl, clock); err != nil {
		return err
	}
	for i := 1; i < len(frames); i++ {
		ctrl.Tick(clock.Advance(step))
		if ctrl.State() == session.StateError {
			return fmt.Errorf("replay stopped at frame %d: %s", i, ctrl.Snapshot().ErrorMessage())
		}
	}

	fmt.Fprintf(w, "Frames:        %d (%.1f s at %g Hz)\n",
		len(frames), float64(len(frames))/engine.SampleRate, engine.SampleRate)
	fmt.Fprintf(w, "Samples:       %d\n", rec.samples)

	if rec.estimates == 0 {
		fmt.Fprintf(w, "Heart rate:    -- (need %d samples with skin)\n", engine.WarmupSamples())
		return nil
	}

	res := rec.last
	fmt.Fprintf(w, "Heart rate:    %d bpm\n", res.HeartRate)
	fmt.Fprintf(w, "Quality:       %.1f (%s)\n", res.Quality, rppg.LevelOf(res.Quality))
	fmt.Fprintf(w, "Sample rate:   %.2f Hz over %.1f s\n", res.SampleRate, res.Duration)
	if res.SpectralHeartRate > 0 {
		gap := math.Abs(res.SpectralHeartRate - float64(res.HeartRate))
		verdict := "agrees"
		if gap > spectralAgreement {
			verdict = fmt.Sprintf("diverges by %.1f bpm", gap)
		}
		fmt.Fprintf(w, "Spectral peak: %.1f bpm (%s)\n", res.SpectralHeartRate, verdict)
	}
	return nil
}

func newSimulateCommand(opts *options) *cobra.Command {
	var (
		bpm      float64
		duration time.Duration
		asJSON   bool
	)

	simCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the engine against a synthetic pulse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			syn := opts.cfg.Source.Synthetic
			if cmd.Flags().Changed("bpm") {
				syn.BPM = bpm
			}
			return simulate(cmd.Context(), cmd.OutOrStdout(), opts.cfg, syn, duration, asJSON)
		},
	}

	simCmd.Flags().Float64VarP(&bpm, "bpm", "b", camera.DefaultSyntheticConfig().BPM, "Simulated heart rate")
	simCmd.Flags().DurationVarP(&duration, "duration", "d", 20*time.Second, "Simulated run time")
	simCmd.Flags().BoolVar(&asJSON, "json", false, "Print estimates as JSON lines")
	return simCmd
}

func simulate(ctx context.Context, w io.Writer, cfg *config.Config, syn config.SyntheticConfig,
	duration time.Duration, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if duration <= 0 {
		return errors.New("duration must be positive")
	}

	clock := newSimClock(time.Unix(0, 0))
	camCfg := syn.Camera()
	camCfg.AcquireDelay = 0
	source := camera.NewSynthetic(camCfg, camera.WithClock(clock.Now))

	sessionOpts := []session.Option{}
	if cfg.Engine.SpectralCheck {
		sessionOpts = append(sessionOpts, session.WithSpectralCheck())
	}
	ctrl, err := session.NewController(cfg.Engine.RPPG(), source, sessionOpts...)
	if err != nil {
		return err
	}
	defer ctrl.Stop()

	start := clock.Now()
	var lastSeq uint64
	report := func() error {
		e := ctrl.Snapshot()
		if e.Seq == lastSeq {
			return nil
		}
		lastSeq = e.Seq
		if asJSON {
			return json.NewEncoder(w).Encode(transport.NewMessage(e))
		}
		hr := "--"
		if e.HeartRate != nil {
			hr = fmt.Sprintf("%d bpm", *e.HeartRate)
		}
		_, err := fmt.Fprintf(w, "t=%6.2fs  %-9s  hr=%-7s  quality=%5.1f (%s)\n",
			clock.Now().Sub(start).Seconds(), e.State, hr, e.SignalQuality, e.QualityLevel())
		return err
	}

	ctrl.Start(ctx)
	if err := report(); err != nil {
		return err
	}
	if err := awaitStreaming(ctrl, clock); err != nil {
		return err
	}

	for clock.Now().Sub(start) < duration {
		if err := report(); err != nil {
			return err
		}
		ctrl.Tick(clock.Advance(cfg.Engine.TickInterval))
	}
	return report()
}
