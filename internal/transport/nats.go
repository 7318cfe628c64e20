// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	applog "pulse/internal/log"
)

// natsConn is the subset of *nats.Conn the transport uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSTransport publishes JSON estimates to a NATS subject.
type NATSTransport struct {
	conn    natsConn
	subject string
}

// DialNATS connects to url and returns a transport publishing on subject. The
// connection reconnects indefinitely.
func DialNATS(url, subject string) (*NATSTransport, error) {
	nc, err := nats.Connect(
		url,
		nats.Name("pulse"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				applog.Warnf("NATSTransport: Disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			applog.Infof("NATSTransport: Reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	applog.Infof("NATSTransport: Connected to %s, subject %q", nc.ConnectedUrl(), subject)
	return NewNATSTransport(nc, subject), nil
}

// NewNATSTransport publishes on an existing connection.
func NewNATSTransport(conn natsConn, subject string) *NATSTransport {
	return &NATSTransport{conn: conn, subject: subject}
}

func (t *NATSTransport) Send(data any) error {
	payload, err := encodeJSON(data)
	if err != nil {
		return err
	}
	if err := t.conn.Publish(t.subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", t.subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (t *NATSTransport) Close() error {
	return t.conn.Drain()
}

var _ Transport = (*NATSTransport)(nil)
