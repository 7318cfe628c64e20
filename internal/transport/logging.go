// SPDX-License-Identifier: MIT
package transport

import (
	applog "pulse/internal/log"
	"pulse/internal/session"
)

// LoggingTransport implements the Transport interface by logging estimates.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the estimate at info level; other payloads are logged at debug level.
func (lt *LoggingTransport) Send(data any) error {
	e, ok := data.(session.Estimate)
	if !ok {
		applog.Debugf("LoggingTransport: %T %+v", data, data)
		return nil
	}

	switch {
	case e.Error != nil:
		applog.Infof("LoggingTransport: [%s] error: %s", e.State, *e.Error)
	case e.HeartRate != nil:
		applog.Infof("LoggingTransport: [%s] %d bpm, quality %.1f (%s)",
			e.State, *e.HeartRate, e.SignalQuality, e.QualityLevel())
	default:
		applog.Infof("LoggingTransport: [%s] processing=%t", e.State, e.IsProcessing)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LoggingTransport: Close called.")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
