// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements the per-peer handshake state machine of
// spec.md §4.5 (C5) and the owned duplex stream each connected peer
// carries through the rest of the node's lifetime.
package peer

import (
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/EXCCoin/exccspv/wire"
)

// Timeout is the default connect/read/write deadline applied throughout
// the handshake and, by the dispatcher, throughout steady-state
// operation, per spec.md §5.
const Timeout = 15 * time.Second

// Errors the handshake can fail with.
var (
	// ErrHandshakeTimeout means a handshake read exceeded Timeout. Connect
	// and write timeouts are returned as the underlying net.Error.
	ErrHandshakeTimeout = errors.New("peer: handshake timed out")

	// ErrUnexpectedMessage means a message other than version/verack, or
	// a duplicate of one already seen, arrived during the handshake.
	ErrUnexpectedMessage = errors.New("peer: unexpected message during handshake")

	// ErrVerAckPayload means a verack carried a non-empty payload.
	ErrVerAckPayload = errors.New("peer: verack with non-empty payload")
)

// Peer wraps one owned net.Conn plus the negotiated version fields
// captured during the handshake, per spec.md §5's "each peer's
// byte-stream is owned by exactly one task" rule.
type Peer struct {
	Conn    net.Conn
	Addr    net.Addr
	Version *wire.MsgVersion

	// Inbound reports whether this peer connected to us, as opposed to
	// us dialing out.
	Inbound bool
}

// netAddrFrom adapts a net.Addr into the wire.NetAddress a version
// message carries, used for both our own advertised address and the
// peer's.
func netAddrFrom(addr net.Addr) *wire.NetAddress {
	na := &wire.NetAddress{Services: 0}
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		copy(na.IP[:], tcpAddr.IP.To4())
		na.Port = uint16(tcpAddr.Port)
	}
	return na
}

// Dial connects to addr, performs the outbound handshake of spec.md
// §4.5, and returns a ready Peer.
func Dial(addr string, lastBlock int32) (*Peer, error) {
	conn, err := net.DialTimeout("tcp", addr, Timeout)
	if err != nil {
		return nil, err
	}

	p := &Peer{Conn: conn, Addr: conn.RemoteAddr()}
	if err := p.outboundHandshake(lastBlock); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

// Accept performs the inbound handshake of spec.md §4.5 over an already
// accepted connection ("mirrors the above with roles inverted").
func Accept(conn net.Conn, lastBlock int32) (*Peer, error) {
	p := &Peer{Conn: conn, Addr: conn.RemoteAddr(), Inbound: true}
	if err := p.inboundHandshake(lastBlock); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *Peer) setDeadline() error {
	return p.Conn.SetDeadline(time.Now().Add(Timeout))
}

// outboundHandshake drives INIT -> SENT_V -> GOT_ONE -> BOTH -> READY:
// send version, receive two distinct messages (one version, one
// verack), then send our own verack.
func (p *Peer) outboundHandshake(lastBlock int32) error {
	if err := p.sendVersion(lastBlock); err != nil {
		return err
	}

	seenVersion, seenVerAck := false, false
	for i := 0; i < 2; i++ {
		msg, err := p.readHandshakeMessage()
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case *wire.MsgVersion:
			if seenVersion {
				return ErrUnexpectedMessage
			}
			seenVersion = true
			p.Version = m
		case *wire.MsgVerAck:
			if seenVerAck {
				return ErrUnexpectedMessage
			}
			seenVerAck = true
		default:
			return ErrUnexpectedMessage
		}
	}

	return p.sendVerAck()
}

// inboundHandshake mirrors outboundHandshake with the send/receive order
// of the opening messages swapped, per spec.md §4.5.
func (p *Peer) inboundHandshake(lastBlock int32) error {
	msg, err := p.readHandshakeMessage()
	if err != nil {
		return err
	}
	version, ok := msg.(*wire.MsgVersion)
	if !ok {
		return ErrUnexpectedMessage
	}
	p.Version = version

	if err := p.sendVersion(lastBlock); err != nil {
		return err
	}
	if err := p.sendVerAck(); err != nil {
		return err
	}

	msg, err = p.readHandshakeMessage()
	if err != nil {
		return err
	}
	if _, ok := msg.(*wire.MsgVerAck); !ok {
		return ErrUnexpectedMessage
	}
	return nil
}

func (p *Peer) sendVersion(lastBlock int32) error {
	if err := p.setDeadline(); err != nil {
		return err
	}
	vm := wire.NewMsgVersion(netAddrFrom(p.Conn.LocalAddr()), netAddrFrom(p.Addr), rand.Uint64(), lastBlock)
	vm.Timestamp = time.Now().Unix()
	return wire.WriteMessage(p.Conn, vm, wire.ProtocolVersion)
}

func (p *Peer) sendVerAck() error {
	if err := p.setDeadline(); err != nil {
		return err
	}
	return wire.WriteMessage(p.Conn, &wire.MsgVerAck{}, wire.ProtocolVersion)
}

// readHandshakeMessage reads one message, translating a framing timeout
// or an unknown command into the handshake's own error vocabulary; only
// version and verack are legal during the handshake (§4.5).
func (p *Peer) readHandshakeMessage() (wire.Message, error) {
	if err := p.setDeadline(); err != nil {
		return nil, err
	}
	msg, _, err := wire.ReadMessage(p.Conn, wire.ProtocolVersion)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ErrHandshakeTimeout
		}
		if wire.IsUnknownCommand(err) {
			return nil, ErrUnexpectedMessage
		}
		var me *wire.MessageError
		if errors.As(err, &me) {
			if ne, ok := me.Err.(net.Error); ok && ne.Timeout() {
				return nil, ErrHandshakeTimeout
			}
			if me.Func == "MsgVerAck.BtcDecode" {
				return nil, ErrVerAckPayload
			}
		}
		return nil, err
	}
	return msg, nil
}

// Close closes the underlying connection.
func (p *Peer) Close() error {
	return p.Conn.Close()
}
