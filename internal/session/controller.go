// SPDX-License-Identifier: MIT
/*
Package session owns one measurement session: camera acquisition, frame sampling,
the sliding window and estimate publication.

The controller is a state machine advanced by Tick:

	Idle --Start--> Acquiring --acquired--> Streaming
	                    |                       |
	                    +--failed--> Error <----+ read failure
	any --Stop--> Idle

Start, Stop and Tick must be called from a single goroutine (see Driver). The only
concurrent work is Source.Acquire, whose result is picked up at the top of the next
Tick. Snapshot and State may be called from any goroutine.
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pulse/internal/camera"
	applog "pulse/internal/log"
	"pulse/internal/rppg"
)

// defaultAcquireError is published when an acquisition fails without a message.
const defaultAcquireError = "Failed to access camera"

// spectralDivergence is the bpm gap above which the spectral cross-check is logged.
const spectralDivergence = 10

type acquisition struct {
	stream camera.Stream
	err    error
}

// Controller runs the sampling and estimation pipeline for one camera source.
type Controller struct {
	cfg       rppg.Config
	source    camera.Source
	buffer    *rppg.Buffer
	estimator *rppg.Estimator
	observer  Observer
	warmup    int
	spectral  bool

	state    atomic.Int32
	snapshot atomic.Pointer[Estimate]
	seq      uint64

	// Tick goroutine only.
	sessionID    string
	stream       camera.Stream
	pending      chan acquisition
	cancel       context.CancelFunc
	epoch        time.Time
	lastAccepted float64
	hasAccepted  bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithObserver routes engine events to o.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithSpectralCheck cross-checks every estimate against the FFT peak.
func WithSpectralCheck() Option {
	return func(c *Controller) {
		c.spectral = true
	}
}

// NewController validates cfg and returns an Idle controller reading from source.
func NewController(cfg rppg.Config, source camera.Source, opts ...Option) (*Controller, error) {
	if source == nil {
		return nil, errors.New("session: frame source cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session: invalid engine config: %w", err)
	}

	c := &Controller{
		cfg:      cfg,
		source:   source,
		buffer:   rppg.NewBuffer(cfg.Capacity()),
		observer: NopObserver{},
		warmup:   cfg.WarmupSamples(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var estOpts []rppg.EstimatorOption
	if c.spectral {
		estOpts = append(estOpts, rppg.WithSpectralCheck())
	}
	est, err := rppg.NewEstimator(cfg, estOpts...)
	if err != nil {
		return nil, err
	}
	c.estimator = est

	c.snapshot.Store(&Estimate{State: StateIdle, UpdatedAt: time.Now()})
	applog.Debugf("Session: Controller ready (rate %.1f Hz, window %d samples, warm-up %d)",
		cfg.SampleRate, cfg.Capacity(), c.warmup)
	return c, nil
}

// Config returns the engine configuration.
func (c *Controller) Config() rppg.Config {
	return c.cfg
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Snapshot returns the most recently published estimate.
func (c *Controller) Snapshot() Estimate {
	return *c.snapshot.Load()
}

// BufferLen returns the number of buffered samples. Tick goroutine only.
func (c *Controller) BufferLen() int {
	return c.buffer.Len()
}

// Start begins a session: it clears the window, publishes a processing estimate and
// requests the camera asynchronously. It is a no-op while a session is already
// acquiring or streaming.
func (c *Controller) Start(ctx context.Context) {
	switch s := c.State(); s {
	case StateAcquiring, StateStreaming:
		applog.Debugf("Session: Start ignored, session %s already %s", c.sessionID, s)
		return
	}

	c.reset()
	c.sessionID = uuid.NewString()

	acqCtx, cancel := context.WithCancel(ctx)
	pending := make(chan acquisition, 1)
	c.cancel = cancel
	c.pending = pending

	c.setState(StateAcquiring)
	c.publish(time.Now(), nil, 0, true, nil)
	applog.Infof("Session: Starting session %s", c.sessionID)

	source := c.source
	go func() {
		stream, err := source.Acquire(acqCtx)
		pending <- acquisition{stream: stream, err: err}
	}()
}

// Stop ends the session from any state. An acquisition still in flight is cancelled
// and its stream, should one arrive anyway, is released in the background.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.pending != nil {
		go reap(c.pending)
		c.pending = nil
	}
	c.releaseStream()
	c.reset()

	prev := c.State()
	c.setState(StateIdle)
	c.publish(time.Now(), nil, 0, false, nil)
	if prev != StateIdle {
		applog.Infof("Session: Stopped session %s", c.sessionID)
	}
	c.sessionID = ""
}

// Tick advances the engine by one step at wall time now.
func (c *Controller) Tick(now time.Time) {
	if c.pending != nil {
		select {
		case res := <-c.pending:
			if !c.resolve(res, now) {
				return
			}
		default:
			return
		}
	}
	if c.State() != StateStreaming {
		return
	}

	ts := float64(now.Sub(c.epoch)) / float64(time.Millisecond)
	if c.hasAccepted && ts-c.lastAccepted < c.cfg.FrameInterval() {
		return
	}

	frame, err := c.stream.ReadFrame()
	if errors.Is(err, camera.ErrFrameUnavailable) {
		c.observer.FrameDropped(DropUnavailable)
		return
	}
	if err != nil {
		c.fail(now, fmt.Errorf("failed to read frame: %w", err))
		return
	}

	c.lastAccepted = ts
	c.hasAccepted = true

	stats := rppg.ExtractStats(frame)
	c.observer.FrameSampled(stats)
	value := stats.Mean
	if value <= 0 {
		c.observer.FrameDropped(DropNoSkin)
		return
	}
	c.buffer.Push(value, ts)
	c.observer.SampleAccepted(value, c.buffer.Len())

	if c.buffer.Len() < c.warmup {
		return
	}
	res := c.estimator.Estimate(c.buffer)
	if !res.Sufficient() {
		return
	}
	c.observer.Estimated(res)
	if c.spectral && res.SpectralHeartRate > 0 &&
		math.Abs(res.SpectralHeartRate-float64(res.HeartRate)) > spectralDivergence {
		applog.Debugf("Session: Zero-crossing %d bpm diverges from spectral peak %.1f bpm",
			res.HeartRate, res.SpectralHeartRate)
	}

	hr := res.HeartRate
	c.publish(now, &hr, res.Quality, true, nil)
}

// resolve applies a finished acquisition and reports whether the tick may go on.
func (c *Controller) resolve(res acquisition, now time.Time) bool {
	c.pending = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if res.err != nil {
		if res.stream != nil {
			_ = res.stream.Release()
		}
		c.observer.AcquisitionFailed(res.err)
		c.fail(now, res.err)
		return false
	}
	if res.stream == nil {
		c.fail(now, errors.New(defaultAcquireError))
		return false
	}

	c.stream = res.stream
	c.epoch = now
	c.setState(StateStreaming)
	c.publish(now, nil, 0, true, nil)
	applog.Infof("Session: Camera acquired for session %s", c.sessionID)
	return true
}

func (c *Controller) fail(now time.Time, err error) {
	c.releaseStream()
	c.reset()

	msg := err.Error()
	if msg == "" {
		msg = defaultAcquireError
	}
	c.setState(StateError)
	c.publish(now, nil, 0, false, &msg)
	applog.Errorf("Session: Session %s failed: %v", c.sessionID, err)
}

func (c *Controller) releaseStream() {
	if c.stream == nil {
		return
	}
	if err := c.stream.Release(); err != nil {
		applog.Warnf("Session: Error releasing stream: %v", err)
	}
	c.stream = nil
}

func (c *Controller) reset() {
	c.buffer.Reset()
	c.lastAccepted = 0
	c.hasAccepted = false
}

func (c *Controller) setState(s State) {
	if State(c.state.Swap(int32(s))) != s {
		c.observer.StateChanged(s)
	}
}

func (c *Controller) publish(now time.Time, hr *int, quality float64, processing bool, errMsg *string) {
	c.seq++
	c.snapshot.Store(&Estimate{
		SessionID:     c.sessionID,
		Seq:           c.seq,
		State:         c.State(),
		HeartRate:     hr,
		SignalQuality: quality,
		IsProcessing:  processing,
		Error:         errMsg,
		UpdatedAt:     now,
	})
}

// reap waits for an abandoned acquisition and releases whatever it produced.
func reap(pending <-chan acquisition) {
	res := <-pending
	if res.stream != nil {
		if err := res.stream.Release(); err != nil {
			applog.Warnf("Session: Error releasing late stream: %v", err)
			return
		}
		applog.Debugf("Session: Released stream acquired after stop")
	}
}
