// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"math"

	"pulse/internal/session"
)

/*
Estimate packet (BigEndian), 20 bytes:

+--------------------------------------------------------------------------------+
| Field           | Data Type | Size | Description                               |
|-----------------|-----------|------|-------------------------------------------|
| Sequence Number | uint32    | 4    | Estimate sequence (low 32 bits)           |
| Timestamp       | int64     | 8    | Nanoseconds since epoch of the estimate   |
| Heart Rate      | uint16    | 2    | Beats per minute, 0 when none             |
| Quality         | float32   | 4    | Signal quality 0-100                      |
| State           | uint8     | 1    | 0 idle, 1 acquiring, 2 streaming, 3 error |
| Flags           | uint8     | 1    | bit0 processing, bit1 error               |
+--------------------------------------------------------------------------------+
*/

// PacketSize is the encoded length of an estimate packet.
const PacketSize = 4 + 8 + 2 + 4 + 1 + 1

const (
	FlagProcessing uint8 = 1 << iota
	FlagError
)

var ErrShortPacket = errors.New("udp: packet too short")

// Packet is the decoded form of an estimate datagram.
type Packet struct {
	Seq       uint32
	Timestamp int64
	HeartRate uint16
	Quality   float32
	State     uint8
	Flags     uint8
}

// PacketFrom converts an estimate.
func PacketFrom(e session.Estimate) Packet {
	p := Packet{
		Seq:     uint32(e.Seq),
		Quality: float32(e.SignalQuality),
		State:   uint8(e.State),
	}
	if !e.UpdatedAt.IsZero() {
		p.Timestamp = e.UpdatedAt.UnixNano()
	}
	if e.HeartRate != nil && *e.HeartRate > 0 {
		p.HeartRate = uint16(min(*e.HeartRate, math.MaxUint16))
	}
	if e.IsProcessing {
		p.Flags |= FlagProcessing
	}
	if e.Error != nil {
		p.Flags |= FlagError
	}
	return p
}

// AppendBinary appends the encoded packet to b.
func (p Packet) AppendBinary(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, p.Seq)
	b = binary.BigEndian.AppendUint64(b, uint64(p.Timestamp))
	b = binary.BigEndian.AppendUint16(b, p.HeartRate)
	b = binary.BigEndian.AppendUint32(b, math.Float32bits(p.Quality))
	return append(b, p.State, p.Flags)
}

// DecodePacket parses the first PacketSize bytes of b.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < PacketSize {
		return Packet{}, ErrShortPacket
	}
	return Packet{
		Seq:       binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
		HeartRate: binary.BigEndian.Uint16(b[12:14]),
		Quality:   math.Float32frombits(binary.BigEndian.Uint32(b[14:18])),
		State:     b[18],
		Flags:     b[19],
	}, nil
}
