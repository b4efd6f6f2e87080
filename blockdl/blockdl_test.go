// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdl

import (
	"testing"

	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/chainstate"
	"github.com/EXCCoin/exccspv/internal/spvtest"
	"github.com/EXCCoin/exccspv/merkle"
	"github.com/EXCCoin/exccspv/peer"
	"github.com/EXCCoin/exccspv/pow"
	"github.com/EXCCoin/exccspv/wire"
)

const easyBits = 0x207fffff

func genesisHeader() wire.BlockHeader {
	return wire.BlockHeader{Version: 1, Bits: easyBits}
}

func mineBlock(t *testing.T, prev wire.BlockHeader) *wire.MsgBlock {
	t.Helper()
	txs := []*wire.MsgTx{{Version: 70015, LockTime: 1}}
	root := merkle.Root(txHashes(txs))

	h := &wire.BlockHeader{Version: 1, PrevBlock: prev.BlockHash(), MerkleRoot: root, Bits: easyBits}
	target := pow.CalcTarget(easyBits)
	for nonce := uint32(0); nonce < 1_000_000; nonce++ {
		h.Nonce = nonce
		if pow.HashToBig(h.BlockHash()).Cmp(target) <= 0 {
			return &wire.MsgBlock{Header: *h, Transactions: txs}
		}
	}
	t.Fatal("failed to mine test block")
	return nil
}

func txHashes(txs []*wire.MsgTx) []chainhash.Hash {
	out := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		out[i] = tx.TxHash()
	}
	return out
}

// TestFetchBundleInsertsBlocks pins the happy path of spec.md §4.7: one
// getdata round trip for the whole bundle, every returned block
// validated and inserted.
func TestFetchBundleInsertsBlocks(t *testing.T) {
	genesis := genesisHeader()
	blk1 := mineBlock(t, genesis)
	blk2 := mineBlock(t, blk1.Header)

	state := chainstate.New(&genesis)
	pool := NewPool(state, 4)

	a, b := spvtest.Pipe()
	defer a.Close()
	defer b.Close()
	p := &peer.Peer{Conn: a}

	bundle := Bundle{blk1.Header.BlockHash(), blk2.Header.BlockHash()}

	errCh := make(chan error, 1)
	go func() { errCh <- pool.fetchBundle(p, bundle) }()

	if _, _, err := wire.ReadMessage(b, wire.ProtocolVersion); err != nil {
		t.Fatalf("reading getdata: %v", err)
	}
	// Reply out of order to confirm the bitset tracks arrival by hash,
	// not by position.
	if err := wire.WriteMessage(b, blk2, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing blk2: %v", err)
	}
	if err := wire.WriteMessage(b, blk1, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing blk1: %v", err)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("fetchBundle: %v", err)
	}
	if !state.HasBlock(blk1.Header.BlockHash()) || !state.HasBlock(blk2.Header.BlockHash()) {
		t.Fatal("expected both blocks to be inserted")
	}
}

// TestFetchBundleNotFound pins the "peer cannot find one or more
// blocks" failure path.
func TestFetchBundleNotFound(t *testing.T) {
	genesis := genesisHeader()
	blk1 := mineBlock(t, genesis)

	state := chainstate.New(&genesis)
	pool := NewPool(state, 4)

	a, b := spvtest.Pipe()
	defer a.Close()
	defer b.Close()
	p := &peer.Peer{Conn: a}

	bundle := Bundle{blk1.Header.BlockHash()}

	errCh := make(chan error, 1)
	go func() { errCh <- pool.fetchBundle(p, bundle) }()

	if _, _, err := wire.ReadMessage(b, wire.ProtocolVersion); err != nil {
		t.Fatalf("reading getdata: %v", err)
	}
	notFound := wire.NewMsgNotFound()
	if err := notFound.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, bundlePtr(bundle[0]))); err != nil {
		t.Fatalf("AddInvVect: %v", err)
	}
	if err := wire.WriteMessage(b, notFound, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing notfound: %v", err)
	}

	if err := <-errCh; err != ErrBundleNotFound {
		t.Fatalf("fetchBundle = %v, want ErrBundleNotFound", err)
	}
}

func bundlePtr(h chainhash.Hash) *chainhash.Hash { return &h }

// TestStartWorkerReportsMissedBundleThenStops pins the worker loop: a
// notfound bundle is reported on Missed and the worker keeps running
// until it reads the shutdown sentinel.
func TestStartWorkerReportsMissedBundleThenStops(t *testing.T) {
	genesis := genesisHeader()
	state := chainstate.New(&genesis)
	pool := NewPool(state, 4)

	a, b := spvtest.Pipe()
	defer a.Close()
	defer b.Close()
	p := &peer.Peer{Conn: a}

	blk1 := mineBlock(t, genesis)
	bundle := Bundle{blk1.Header.BlockHash()}
	pool.Submit(bundle)
	pool.Shutdown(1)

	workerDone := make(chan struct{})
	go func() {
		pool.StartWorker(0, p)
		close(workerDone)
	}()

	if _, _, err := wire.ReadMessage(b, wire.ProtocolVersion); err != nil {
		t.Fatalf("reading getdata: %v", err)
	}
	notFound := wire.NewMsgNotFound()
	notFound.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, bundlePtr(bundle[0])))
	if err := wire.WriteMessage(b, notFound, wire.ProtocolVersion); err != nil {
		t.Fatalf("writing notfound: %v", err)
	}

	select {
	case missed := <-pool.Missed():
		if len(missed) != 1 || missed[0] != bundle[0] {
			t.Fatalf("missed bundle = %v, want %v", missed, bundle)
		}
	case <-workerDone:
		t.Fatal("worker exited before reporting the missed bundle")
	}

	<-workerDone
}
