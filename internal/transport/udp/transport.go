// SPDX-License-Identifier: MIT
package udp

import (
	"fmt"
	"sync"

	applog "pulse/internal/log"
	"pulse/internal/session"
)

// datagramSender is satisfied by *Sender.
type datagramSender interface {
	Send(data []byte) error
	Close() error
}

// Transport encodes estimates as binary packets and sends them as datagrams.
type Transport struct {
	sender datagramSender
	mu     sync.Mutex
	buf    []byte
}

// Dial returns a transport sending to targetAddress.
func Dial(targetAddress string) (*Transport, error) {
	s, err := NewSender(targetAddress)
	if err != nil {
		return nil, err
	}
	return NewTransport(s), nil
}

// NewTransport sends through an existing sender.
func NewTransport(sender datagramSender) *Transport {
	return &Transport{sender: sender, buf: make([]byte, 0, PacketSize)}
}

// Send accepts session.Estimate values only.
func (t *Transport) Send(data any) error {
	e, ok := data.(session.Estimate)
	if !ok {
		return fmt.Errorf("udp transport: unsupported payload %T", data)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = PacketFrom(e).AppendBinary(t.buf[:0])
	if err := t.sender.Send(t.buf); err != nil {
		return err
	}
	applog.Debugf("UDPTransport: Sent packet %d (%d bytes)", e.Seq, len(t.buf))
	return nil
}

func (t *Transport) Close() error {
	return t.sender.Close()
}
