// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"testing"

	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/merkle"
	"github.com/EXCCoin/exccspv/pow"
	"github.com/EXCCoin/exccspv/wire"
)

// easyBits is a target so easy that about half of all nonces satisfy it,
// keeping these tests fast without pretending to exercise mainnet
// difficulty.
const easyBits = 0x207fffff

func mineHeader(t *testing.T, prev wire.BlockHeader, merkleRoot chainhash.Hash) *wire.BlockHeader {
	t.Helper()
	prevHash := prev.BlockHash()
	h := &wire.BlockHeader{Version: 1, PrevBlock: prevHash, MerkleRoot: merkleRoot, Bits: easyBits}
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

func genesisHeader() wire.BlockHeader {
	return wire.BlockHeader{Version: 1, Bits: easyBits}
}

// TestAppendHeaderExtendsChain verifies append-if-new chain growth and
// rejection of a non-extending header.
func TestAppendHeaderExtendsChain(t *testing.T) {
	genesis := genesisHeader()
	s := New(&genesis)

	h1 := mineHeader(t, genesis, chainhash.Hash{})
	ok, err := s.AppendHeader(h1)
	if err != nil || !ok {
		t.Fatalf("AppendHeader: ok=%v err=%v", ok, err)
	}
	if s.HeaderCount() != 2 {
		t.Fatalf("expected 2 headers, got %d", s.HeaderCount())
	}

	// Re-appending the same header is a non-fatal duplicate.
	ok, err = s.AppendHeader(h1)
	if err != nil || ok {
		t.Fatalf("expected duplicate append to report ok=false err=nil, got ok=%v err=%v", ok, err)
	}

	orphan := &wire.BlockHeader{Version: 1, Bits: easyBits, Nonce: 999999}
	if _, err := s.AppendHeader(orphan); err == nil {
		t.Fatal("expected a non-extending header to be rejected")
	}
}

// TestHeadersFromLocatorTruncates pins spec.md §8's "getheaders reply is
// truncated to 2000 headers even when more are known" boundary.
func TestHeadersFromLocatorTruncates(t *testing.T) {
	genesis := genesisHeader()
	s := New(&genesis)

	prev := genesis
	genesisHash := genesis.BlockHash()
	for i := 0; i < wire.MaxHeadersPerMsg+50; i++ {
		h := mineHeader(t, prev, chainhash.Hash{})
		if _, err := s.AppendHeader(h); err != nil {
			t.Fatalf("AppendHeader #%d: %v", i, err)
		}
		prev = *h
	}

	got := s.HeadersFromLocator([]chainhash.Hash{genesisHash}, chainhash.Hash{})
	if len(got) != wire.MaxHeadersPerMsg {
		t.Fatalf("expected truncation to %d headers, got %d", wire.MaxHeadersPerMsg, len(got))
	}
}

// TestInsertBlockValidatesMerkleRoot pins spec.md §8 scenario 2 at the
// block-insertion boundary: a block whose merkle root does not match its
// header's declared root is rejected.
func TestInsertBlockValidatesMerkleRoot(t *testing.T) {
	genesis := genesisHeader()
	s := New(&genesis)

	txs := []*wire.MsgTx{
		{Version: 70015, LockTime: 0},
		{Version: 70015, LockTime: 1},
		{Version: 70015, LockTime: 2},
	}

	root := merkle.Root(txHashes(txs))
	h := mineHeader(t, genesis, root)
	blk := &wire.MsgBlock{Header: *h, Transactions: txs}

	inserted, err := s.InsertBlock(blk)
	if err != nil || !inserted {
		t.Fatalf("expected valid block to insert cleanly: inserted=%v err=%v", inserted, err)
	}

	// Now corrupt the merkle root and verify rejection.
	badHeader := mineHeader(t, *h, chainhash.Hash{0xff})
	badBlk := &wire.MsgBlock{Header: *badHeader, Transactions: txs}
	if _, err := s.InsertBlock(badBlk); err != ErrMerkleMismatch {
		t.Fatalf("expected ErrMerkleMismatch, got %v", err)
	}
}

func txHashes(txs []*wire.MsgTx) []chainhash.Hash {
	out := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		out[i] = tx.TxHash()
	}
	return out
}
