// SPDX-License-Identifier: MIT
package session

import "pulse/internal/rppg"

// DropReason labels why a tick produced no sample.
type DropReason string

const (
	DropNoSkin      DropReason = "no_skin"     // No pixel in the ROI passed the skin gate.
	DropUnavailable DropReason = "unavailable" // The stream had no frame ready.
)

// Observer receives engine events on the tick goroutine. Implementations must not
// block.
type Observer interface {
	FrameSampled(stats rppg.Stats) // every frame read, skin or not
	SampleAccepted(value float64, bufferLen int)
	FrameDropped(reason DropReason)
	Estimated(res rppg.Result)
	StateChanged(state State)
	AcquisitionFailed(err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) FrameSampled(rppg.Stats)     {}
func (NopObserver) SampleAccepted(float64, int) {}
func (NopObserver) FrameDropped(DropReason)     {}
func (NopObserver) Estimated(rppg.Result)       {}
func (NopObserver) StateChanged(State)          {}
func (NopObserver) AcquisitionFailed(error)     {}

var _ Observer = NopObserver{}
