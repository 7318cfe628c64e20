// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	applog "pulse/internal/log"
)

// DefaultPublishInterval polls at roughly display rate.
const DefaultPublishInterval = 100 * time.Millisecond

// Publisher periodically fetches the latest estimate and, when it changed since the
// last send, hands it to every transport. It runs in a separate goroutine managed
// by Start and Stop.
type Publisher struct {
	source     EstimateSource
	transports []Transport
	interval   time.Duration

	ticker   *time.Ticker   // Ticker that triggers polling.
	doneChan chan struct{}  // Signals the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan during Start/Stop.

	sendMu  sync.Mutex // Serialises PublishIfChanged; guards lastSeq and sent.
	lastSeq uint64
	sent    bool
}

// NewPublisher creates a publisher polling source. An invalid interval (<= 0)
// defaults to DefaultPublishInterval.
func NewPublisher(interval time.Duration, source EstimateSource, transports ...Transport) (*Publisher, error) {
	if source == nil {
		return nil, errors.New("Publisher: estimate source cannot be nil")
	}
	if len(transports) == 0 {
		return nil, errors.New("Publisher: at least one transport is required")
	}
	if interval <= 0 {
		interval = DefaultPublishInterval
		applog.Warnf("Publisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("Publisher: Initializing (Interval: %s, Transports: %d)", interval, len(transports))
	return &Publisher{
		source:     source,
		transports: transports,
		interval:   interval,
	}, nil
}

// Start launches the polling goroutine. Calling it while running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("Publisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("Publisher: Goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.PublishIfChanged()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Calling it when not running is
// a no-op.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("Publisher: Stop called but not running.")
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("Publisher: Goroutine finished.")
	return nil
}

// PublishIfChanged sends the current estimate to every transport unless it was
// already sent. It reports whether anything was sent. Calls from the polling
// goroutine and from other callers are serialised, so one estimate is sent once.
func (p *Publisher) PublishIfChanged() bool {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	snap := p.source.Snapshot()
	if p.sent && snap.Seq == p.lastSeq {
		return false
	}
	p.lastSeq = snap.Seq
	p.sent = true

	for _, t := range p.transports {
		if err := t.Send(snap); err != nil {
			applog.Warnf("Publisher: %T send failed for seq %d: %v", t, snap.Seq, err)
		}
	}
	return true
}

// Close stops the publisher and closes every transport.
func (p *Publisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	var errs []error
	for _, t := range p.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", t, err))
		}
	}
	return errors.Join(errs...)
}

var _ interface{ Close() error } = (*Publisher)(nil)
