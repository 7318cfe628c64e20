// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/session"
)

func TestPacketLayout(t *testing.T) {
	hr := 72
	msg := "lost"
	e := session.Estimate{
		Seq:           0x01020304,
		State:         session.StateError,
		HeartRate:     &hr,
		SignalQuality: 55.5,
		IsProcessing:  true,
		Error:         &msg,
		UpdatedAt:     time.Unix(0, 0x0A0B0C0D0E0F1011),
	}

	b := PacketFrom(e).AppendBinary(nil)
	require.Len(t, b, PacketSize)

	want := new(bytes.Buffer)
	binary.Write(want, binary.BigEndian, uint32(0x01020304))
	binary.Write(want, binary.BigEndian, int64(0x0A0B0C0D0E0F1011))
	binary.Write(want, binary.BigEndian, uint16(72))
	binary.Write(want, binary.BigEndian, float32(55.5))
	want.WriteByte(3)
	want.WriteByte(FlagProcessing | FlagError)
	assert.Equal(t, want.Bytes(), b)

	got, err := DecodePacket(b)
	require.NoError(t, err)
	assert.Equal(t, PacketFrom(e), got)
}

func TestPacketWithoutHeartRate(t *testing.T) {
	p := PacketFrom(session.Estimate{Seq: 1, State: session.StateAcquiring, IsProcessing: true})
	assert.Zero(t, p.HeartRate)
	assert.Zero(t, p.Timestamp)
	assert.Equal(t, FlagProcessing, p.Flags)
	assert.Equal(t, uint8(1), p.State)
	assert.Equal(t, float32(0), p.Quality)
}

func TestDecodeShortPacket(t *testing.T) {
	_, err := DecodePacket(make([]byte, PacketSize-1))
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestTransportOverLoopback(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer listener.Close()

	tr, err := Dial(listener.LocalAddr().String())
	require.NoError(t, err)

	hr := 64
	require.NoError(t, tr.Send(session.Estimate{Seq: 7, HeartRate: &hr, SignalQuality: 12, State: session.StateStreaming}))
	assert.Error(t, tr.Send("not an estimate"))

	require.NoError(t, listener.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64)
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, PacketSize, n)

	p, err := DecodePacket(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, uint32(7), p.Seq)
	assert.Equal(t, uint16(64), p.HeartRate)
	assert.Equal(t, uint8(session.StateStreaming), p.State)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.True(t, errors.Is(tr.Send(session.Estimate{}), ErrClosed))
}
