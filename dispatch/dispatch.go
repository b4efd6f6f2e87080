// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package dispatch implements the per-peer message loop of spec.md
// §4.6 (C6): read one envelope, decode by command, invoke the matching
// handler, repeat until the peer's connection closes or a shared
// shutdown flag is observed.
package dispatch

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/EXCCoin/exccspv/chainstate"
	"github.com/EXCCoin/exccspv/internal/slogutil"
	"github.com/EXCCoin/exccspv/peer"
	"github.com/EXCCoin/exccspv/wire"
)

var log = slogutil.Logger(slogutil.TagDisp)

// ErrHandshakeMessage describes a version/verack arriving outside the
// handshake, per spec.md §4.6's steady-state table entry for those two
// commands.
var ErrHandshakeMessage = errors.New("dispatch: version/verack received outside handshake")

// Dispatcher drives one peer's steady-state message loop against a
// shared chain-state bundle.
type Dispatcher struct {
	Peer  *peer.Peer
	State *chainstate.State

	// Done is observed between messages; once it reports true the loop
	// exits cooperatively, per spec.md §5's shutdown model.
	Done *atomic.Bool
}

// New returns a Dispatcher for an already-handshaken peer.
func New(p *peer.Peer, state *chainstate.State, done *atomic.Bool) *Dispatcher {
	return &Dispatcher{Peer: p, State: state, Done: done}
}

// Run processes messages until the connection closes, a fatal framing
// error occurs, or Done is set. Unknown commands are logged and
// ignored, per spec.md §4.6.
func (d *Dispatcher) Run() error {
	for {
		if d.Done != nil && d.Done.Load() {
			return nil
		}

		if err := d.Peer.Conn.SetDeadline(time.Now().Add(peer.Timeout)); err != nil {
			return err
		}
		msg, _, err := wire.ReadMessage(d.Peer.Conn, wire.ProtocolVersion)
		if err != nil {
			if wire.IsUnknownCommand(err) {
				log.Debugf("ignoring unknown command from %s: %v", d.Peer.Addr, err)
				continue
			}
			// wire.MessageError.Unwrap always yields ErrFraming, never the
			// underlying cause, so a clean disconnect can't be told apart
			// from real framing corruption here. Either way the peer task
			// is over; the caller logs and reaps it.
			return err
		}

		if err := d.handle(msg); err != nil {
			return err
		}
	}
}

// Handle dispatches one already-decoded message through the same
// steady-state table Run uses. The IBD orchestrator (C8) calls this
// directly for non-headers traffic it receives while waiting on a
// getheaders reply, per spec.md §4.8's "non-headers traffic received
// meanwhile is dispatched normally" rule.
func (d *Dispatcher) Handle(msg wire.Message) error {
	return d.handle(msg)
}

// handle dispatches a single decoded message to its steady-state
// handler, per the table in spec.md §4.6.
func (d *Dispatcher) handle(msg wire.Message) error {
	switch m := msg.(type) {
	case *wire.MsgVersion, *wire.MsgVerAck:
		return ErrHandshakeMessage

	case *wire.MsgPing:
		return wire.WriteMessage(d.Peer.Conn, &wire.MsgPong{Nonce: m.Nonce}, wire.ProtocolVersion)

	case *wire.MsgHeaders:
		return d.handleHeaders(m)

	case *wire.MsgBlock:
		return d.handleBlock(m)

	case *wire.MsgInv:
		return d.handleInv(m)

	case *wire.MsgGetHeaders:
		return d.handleGetHeaders(m)

	case *wire.MsgGetData:
		return d.handleGetData(m)

	case *wire.MsgTx:
		d.State.InsertPendingTx(m)
		return nil

	default:
		log.Debugf("ignoring unexpected message type from %s", d.Peer.Addr)
		return nil
	}
}

func (d *Dispatcher) handleHeaders(m *wire.MsgHeaders) error {
	for _, h := range m.Headers {
		if _, err := d.State.AppendHeader(h); err != nil {
			log.Warnf("rejecting header from %s: %v", d.Peer.Addr, err)
		}
	}
	return nil
}

func (d *Dispatcher) handleBlock(m *wire.MsgBlock) error {
	if _, err := d.State.InsertBlock(m); err != nil {
		log.Warnf("rejecting block from %s: %v", d.Peer.Addr, err)
	}
	return nil
}

// handleInv replies with getdata for any advertised hash absent from
// both the chain state and the pending-transaction set, per spec.md
// §4.6.
func (d *Dispatcher) handleInv(m *wire.MsgInv) error {
	getData := wire.NewMsgGetData()
	for _, inv := range m.InvList {
		switch inv.Type {
		case wire.InvTypeBlock:
			if !d.State.HasBlock(inv.Hash) {
				getData.AddInvVect(inv)
			}
		case wire.InvTypeTx:
			if !d.State.HasPendingTx(inv.Hash) {
				getData.AddInvVect(inv)
			}
		}
	}
	if len(getData.InvList) == 0 {
		return nil
	}
	return wire.WriteMessage(d.Peer.Conn, getData, wire.ProtocolVersion)
}

// handleGetHeaders replies with up to 2000 headers following the first
// known hash in the sender's locator, per spec.md §4.6.
func (d *Dispatcher) handleGetHeaders(m *wire.MsgGetHeaders) error {
	headers := d.State.HeadersFromLocator(m.BlockLocatorHashes, m.HashStop)
	reply := &wire.MsgHeaders{Headers: headers}
	return wire.WriteMessage(d.Peer.Conn, reply, wire.ProtocolVersion)
}

// handleGetData replies with a block message for each known hash and a
// notfound message collecting the misses, per spec.md §4.6.
func (d *Dispatcher) handleGetData(m *wire.MsgGetData) error {
	notFound := wire.NewMsgNotFound()
	for _, inv := range m.InvList {
		if inv.Type != wire.InvTypeBlock {
			continue
		}
		blk, ok := d.State.Block(inv.Hash)
		if !ok {
			notFound.AddInvVect(inv)
			continue
		}
		if err := wire.WriteMessage(d.Peer.Conn, blk, wire.ProtocolVersion); err != nil {
			return err
		}
	}
	if len(notFound.InvList) > 0 {
		return wire.WriteMessage(d.Peer.Conn, notFound, wire.ProtocolVersion)
	}
	return nil
}
