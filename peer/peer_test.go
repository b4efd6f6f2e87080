// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"encoding/binary"
	"testing"

	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/internal/spvtest"
	"github.com/EXCCoin/exccspv/wire"
)

// writeRawVerAck hand-crafts a verack envelope carrying a non-empty
// payload, something wire.WriteMessage can never produce for MsgVerAck,
// to exercise the handshake's rejection of it.
func writeRawVerAck(t *testing.T, w interface{ Write([]byte) (int, error) }, payload []byte) {
	t.Helper()

	var cmd [wire.CommandSize]byte
	copy(cmd[:], wire.CmdVerAck)

	checksum := chainhash.HashB(payload)

	buf := make([]byte, 0, wire.MessageHeaderSize+len(payload))
	buf = append(buf, wire.TestNet[:]...)
	buf = append(buf, cmd[:]...)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, checksum[:4]...)
	buf = append(buf, payload...)

	if _, err := w.Write(buf); err != nil {
		t.Fatalf("writing raw verack: %v", err)
	}
}

// TestOutboundHandshakeReady exercises the full outbound state machine
// against a scripted counterpart: send version, receive the
// counterpart's version and verack (in verack-then-version order, to
// confirm order independence), then send our own verack.
func TestOutboundHandshakeReady(t *testing.T) {
	a, b := spvtest.Pipe()
	defer b.Close()

	done := make(chan error, 1)
	go func() {
		p := &Peer{Conn: a, Addr: spvtest.StaticAddr("10.0.0.2:18333")}
		done <- p.outboundHandshake(0)
	}()

	// Read our own version message off the wire.
	if _, _, err := wire.ReadMessage(b, wire.ProtocolVersion); err != nil {
		t.Fatalf("reading our version: %v", err)
	}

	// Reply with verack first, then version, to confirm the handshake
	// doesn't care about arrival order.
	if err := wire.WriteMessage(b, &wire.MsgVerAck{}, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing verack: %v", err)
	}
	theirVersion := wire.NewMsgVersion(&wire.NetAddress{}, &wire.NetAddress{}, 42, 7)
	if err := wire.WriteMessage(b, theirVersion, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing version: %v", err)
	}

	// Our own verack is sent last; read it before waiting on done, since
	// the outbound side's Write blocks until it is drained.
	if _, _, err := wire.ReadMessage(b, wire.ProtocolVersion); err != nil {
		t.Fatalf("reading their verack: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("outboundHandshake: %v", err)
	}
}

// TestOutboundHandshakeRejectsDuplicateVersion verifies receiving two
// version messages (no verack at all) fails the handshake.
func TestOutboundHandshakeRejectsDuplicateVersion(t *testing.T) {
	a, b := spvtest.Pipe()
	defer b.Close()

	done := make(chan error, 1)
	go func() {
		p := &Peer{Conn: a, Addr: spvtest.StaticAddr("10.0.0.2:18333")}
		done <- p.outboundHandshake(0)
	}()

	if _, _, err := wire.ReadMessage(b, wire.ProtocolVersion); err != nil {
		t.Fatalf("reading our version: %v", err)
	}

	v := wire.NewMsgVersion(&wire.NetAddress{}, &wire.NetAddress{}, 1, 0)
	wire.WriteMessage(b, v, wire.ProtocolVersion)
	wire.WriteMessage(b, v, wire.ProtocolVersion)

	if err := <-done; err != ErrUnexpectedMessage {
		t.Fatalf("outboundHandshake = %v, want ErrUnexpectedMessage", err)
	}
}

// TestOutboundHandshakeRejectsNonEmptyVerAck verifies a verack carrying a
// payload fails the handshake with ErrVerAckPayload specifically, not the
// general ErrUnexpectedMessage, per spec.md §7's Protocol error kind.
func TestOutboundHandshakeRejectsNonEmptyVerAck(t *testing.T) {
	a, b := spvtest.Pipe()
	defer b.Close()

	done := make(chan error, 1)
	go func() {
		p := &Peer{Conn: a, Addr: spvtest.StaticAddr("10.0.0.2:18333")}
		done <- p.outboundHandshake(0)
	}()

	if _, _, err := wire.ReadMessage(b, wire.ProtocolVersion); err != nil {
		t.Fatalf("reading our version: %v", err)
	}

	writeRawVerAck(t, b, []byte{0x01})

	if err := <-done; err != ErrVerAckPayload {
		t.Fatalf("outboundHandshake = %v, want ErrVerAckPayload", err)
	}
}

// TestInboundHandshakeReady mirrors the outbound test with roles
// inverted: the remote peer sends version first, we reply version then
// verack, and the remote's closing verack completes the handshake.
func TestInboundHandshakeReady(t *testing.T) {
	a, b := spvtest.Pipe()
	defer b.Close()

	done := make(chan error, 1)
	go func() {
		p := &Peer{Conn: a, Addr: spvtest.StaticAddr("10.0.0.2:18333"), Inbound: true}
		done <- p.inboundHandshake(0)
	}()

	theirVersion := wire.NewMsgVersion(&wire.NetAddress{}, &wire.NetAddress{}, 99, 3)
	if err := wire.WriteMessage(b, theirVersion, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing version: %v", err)
	}

	if _, _, err := wire.ReadMessage(b, wire.ProtocolVersion); err != nil {
		t.Fatalf("reading their version reply: %v", err)
	}
	if _, _, err := wire.ReadMessage(b, wire.ProtocolVersion); err != nil {
		t.Fatalf("reading their verack reply: %v", err)
	}

	if err := wire.WriteMessage(b, &wire.MsgVerAck{}, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing verack: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("inboundHandshake: %v", err)
	}
}
