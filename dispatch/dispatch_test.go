// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dispatch

import (
	"net"
	"sync/atomic"
	"testing"

	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/chainstate"
	"github.com/EXCCoin/exccspv/internal/spvtest"
	"github.com/EXCCoin/exccspv/peer"
	"github.com/EXCCoin/exccspv/pow"
	"github.com/EXCCoin/exccspv/wire"
)

const easyBits = 0x207fffff

func genesisHeader() wire.BlockHeader {
	return wire.BlockHeader{Version: 1, Bits: easyBits}
}

func mineHeader(t *testing.T, prev wire.BlockHeader, merkleRoot chainhash.Hash) *wire.BlockHeader {
	t.Helper()
	h := &wire.BlockHeader{Version: 1, PrevBlock: prev.BlockHash(), MerkleRoot: merkleRoot, Bits: easyBits}
	target := pow.CalcTarget(easyBits)
	for nonce := uint32(0); nonce < 1_000_000; nonce++ {
		h.Nonce = nonce
		if pow.HashToBig(h.BlockHash()).Cmp(target) <= 0 {
			return h
		}
	}
	t.Fatal("failed to mine test header")
	return nil
}

// newTestDispatcher wires a Dispatcher against one end of an in-memory
// pipe and returns the opposite end for the test to script against.
func newTestDispatcher(t *testing.T) (d *Dispatcher, remote net.Conn, done *atomic.Bool) {
	t.Helper()
	a, b := spvtest.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })

	genesis := genesisHeader()
	state := chainstate.New(&genesis)
	done = new(atomic.Bool)
	p := &peer.Peer{Conn: a, Addr: spvtest.StaticAddr("10.0.0.9:18333")}
	return New(p, state, done), b, done
}

// TestRunRepliesToPing pins spec.md §4.6's ping/pong rule.
func TestRunRepliesToPing(t *testing.T) {
	d, remote, done := newTestDispatcher(t)

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run() }()

	if err := wire.WriteMessage(remote, &wire.MsgPing{Nonce: 42}, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing ping: %v", err)
	}
	msg, _, err := wire.ReadMessage(remote, wire.ProtocolVersion)
	if err != nil {
		t.Fatalf("reading pong: %v", err)
	}
	pong, ok := msg.(*wire.MsgPong)
	if !ok {
		t.Fatalf("got %T, want *wire.MsgPong", msg)
	}
	if pong.Nonce != 42 {
		t.Fatalf("pong nonce = %d, want 42", pong.Nonce)
	}

	done.Store(true)
	remote.Close()
	<-runErr
}

// TestRunAppendsHeaders pins the headers-message handler's acceptance
// path against a live chainstate.State.
func TestRunAppendsHeaders(t *testing.T) {
	d, remote, done := newTestDispatcher(t)

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run() }()

	genesis := genesisHeader()
	h1 := mineHeader(t, genesis, chainhash.Hash{})
	msg := &wire.MsgHeaders{Headers: []*wire.BlockHeader{h1}}
	if err := wire.WriteMessage(remote, msg, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing headers: %v", err)
	}

	// Ping/pong as a synchronization point: once the pong round-trips,
	// the headers message has already been processed (the dispatcher
	// handles messages strictly in order on a single goroutine).
	if err := wire.WriteMessage(remote, &wire.MsgPing{Nonce: 7}, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing ping: %v", err)
	}
	if _, _, err := wire.ReadMessage(remote, wire.ProtocolVersion); err != nil {
		t.Fatalf("reading pong: %v", err)
	}

	if got := d.State.HeaderCount(); got != 2 {
		t.Fatalf("HeaderCount = %d, want 2", got)
	}
	if !d.State.HasHeader(h1.BlockHash()) {
		t.Fatal("expected appended header to be present")
	}

	done.Store(true)
	remote.Close()
	<-runErr
}

// TestRunAnswersGetHeaders pins the getheaders handler's reply against
// the locator already seeded into chainstate.State.
func TestRunAnswersGetHeaders(t *testing.T) {
	d, remote, done := newTestDispatcher(t)
	genesisHash := d.State.LastHeaderHash()

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run() }()

	req := wire.NewMsgGetHeaders([]chainhash.Hash{genesisHash}, chainhash.Hash{})
	if err := wire.WriteMessage(remote, req, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing getheaders: %v", err)
	}

	msg, _, err := wire.ReadMessage(remote, wire.ProtocolVersion)
	if err != nil {
		t.Fatalf("reading headers reply: %v", err)
	}
	reply, ok := msg.(*wire.MsgHeaders)
	if !ok {
		t.Fatalf("got %T, want *wire.MsgHeaders", msg)
	}
	if len(reply.Headers) != 0 {
		t.Fatalf("expected no headers past the genesis-only chain, got %d", len(reply.Headers))
	}

	done.Store(true)
	remote.Close()
	<-runErr
}

// TestRunAnswersGetDataWithNotFound pins the getdata handler's notfound
// path: a requested block the state doesn't have comes back listed in a
// notfound message rather than silently dropped.
func TestRunAnswersGetDataWithNotFound(t *testing.T) {
	d, remote, done := newTestDispatcher(t)

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run() }()

	missing := chainhash.Hash{0xaa}
	getData := wire.NewMsgGetData()
	if err := getData.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &missing)); err != nil {
		t.Fatalf("AddInvVect: %v", err)
	}
	if err := wire.WriteMessage(remote, getData, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing getdata: %v", err)
	}

	msg, _, err := wire.ReadMessage(remote, wire.ProtocolVersion)
	if err != nil {
		t.Fatalf("reading notfound: %v", err)
	}
	notFound, ok := msg.(*wire.MsgNotFound)
	if !ok {
		t.Fatalf("got %T, want *wire.MsgNotFound", msg)
	}
	if len(notFound.InvList) != 1 || notFound.InvList[0].Hash != missing {
		t.Fatalf("notfound list = %+v, want [%v]", notFound.InvList, missing)
	}

	done.Store(true)
	remote.Close()
	<-runErr
}

// TestRunInsertsPendingTx pins the tx-message handler: an unsolicited tx
// message lands in the pending-transaction set.
func TestRunInsertsPendingTx(t *testing.T) {
	d, remote, done := newTestDispatcher(t)

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run() }()

	tx := &wire.MsgTx{Version: 70015, LockTime: 5}
	if err := wire.WriteMessage(remote, tx, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing tx: %v", err)
	}
	if err := wire.WriteMessage(remote, &wire.MsgPing{Nonce: 1}, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing ping: %v", err)
	}
	if _, _, err := wire.ReadMessage(remote, wire.ProtocolVersion); err != nil {
		t.Fatalf("reading pong: %v", err)
	}

	if !d.State.HasPendingTx(tx.TxHash()) {
		t.Fatal("expected tx to be recorded as pending")
	}

	done.Store(true)
	remote.Close()
	<-runErr
}

// TestRunRejectsHandshakeMessage pins §4.6's rule that a version/verack
// arriving outside the handshake is a fatal dispatch error.
func TestRunRejectsHandshakeMessage(t *testing.T) {
	d, remote, _ := newTestDispatcher(t)

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run() }()

	v := wire.NewMsgVersion(&wire.NetAddress{}, &wire.NetAddress{}, 1, 0)
	if err := wire.WriteMessage(remote, v, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing version: %v", err)
	}

	if err := <-runErr; err != ErrHandshakeMessage {
		t.Fatalf("Run() = %v, want ErrHandshakeMessage", err)
	}
	remote.Close()
}

// TestRunExitsOnDoneFlag pins spec.md §5's cooperative shutdown: once
// Done is set, Run returns cleanly without waiting on another message.
func TestRunExitsOnDoneFlag(t *testing.T) {
	d, remote, done := newTestDispatcher(t)
	defer remote.Close()

	done.Store(true)
	if err := d.Run(); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
}

// TestRunExitsOnConnectionClose pins the documented "any read failure,
// clean or corrupt, ends the peer task without distinguishing the two"
// behavior: closing the remote half ends Run with a non-nil error rather
// than hanging or panicking.
func TestRunExitsOnConnectionClose(t *testing.T) {
	d, remote, _ := newTestDispatcher(t)

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run() }()

	remote.Close()

	if err := <-runErr; err == nil {
		t.Fatal("Run() = nil, want a non-nil error after connection close")
	}
}
