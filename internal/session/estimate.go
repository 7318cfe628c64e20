// SPDX-License-Identifier: MIT
package session

import (
	"fmt"
	"time"

	"pulse/internal/rppg"
)

// State is the lifecycle phase of a session.
type State int32

const (
	StateIdle State = iota
	StateAcquiring
	StateStreaming
	StateError
)

var stateNames = [...]string{
	StateIdle:      "idle",
	StateAcquiring: "acquiring",
	StateStreaming: "streaming",
	StateError:     "error",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Estimate is the published output of a session. A new value replaces the previous
// one wholesale; readers never see a partially updated estimate.
type Estimate struct {
	SessionID     string    `json:"sessionId,omitempty"`
	Seq           uint64    `json:"seq"`
	State         State     `json:"state"`
	HeartRate     *int      `json:"heartRate"`
	SignalQuality float64   `json:"signalQuality"`
	IsProcessing  bool      `json:"isProcessing"`
	Error         *string   `json:"error"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// QualityLevel bands SignalQuality for display.
func (e Estimate) QualityLevel() rppg.QualityLevel {
	return rppg.LevelOf(e.SignalQuality)
}

// BPM returns the heart rate, or 0 when there is none.
func (e Estimate) BPM() int {
	if e.HeartRate == nil {
		return 0
	}
	return *e.HeartRate
}

// ErrorMessage returns the error text, or "" when there is none.
func (e Estimate) ErrorMessage() string {
	if e.Error == nil {
		return ""
	}
	return *e.Error
}
