// SPDX-License-Identifier: MIT
// Package transport fans published estimates out to consumers: browsers over
// WebSocket, brokers (NATS, MQTT), UDP listeners and the log.
package transport

import (
	"encoding/json"
	"fmt"

	"pulse/internal/session"
)

// Transport defines a generic interface for sending published data.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// EstimateSource provides the latest published estimate.
type EstimateSource interface {
	Snapshot() session.Estimate
}

// Message is the JSON payload sent to consumers: the estimate plus its display band.
type Message struct {
	session.Estimate
	QualityLevel string `json:"qualityLevel"`
}

// NewMessage wraps e for the wire.
func NewMessage(e session.Estimate) Message {
	return Message{Estimate: e, QualityLevel: string(e.QualityLevel())}
}

// encodeJSON marshals data, wrapping a bare Estimate in a Message first.
func encodeJSON(data any) ([]byte, error) {
	if e, ok := data.(session.Estimate); ok {
		data = NewMessage(e)
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return b, nil
}
