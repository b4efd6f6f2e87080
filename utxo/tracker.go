// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package utxo projects chain state into an unspent-transaction-output
// set and a wallet-specific balance/UTxO projection, per spec.md §4.10
// (C10).
package utxo

import (
	"sync"

	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/chainstate"
	"github.com/EXCCoin/exccspv/stdscript"
	"github.com/EXCCoin/exccspv/wire"
)

// Entry is a stored unspent output, keyed by its outpoint, per spec.md
// §3's Outpoint/UTxO entry.
type Entry struct {
	Output *wire.TxOut
	PKHash []byte
}

// WalletView is the subset of wallet state the tracker updates
// incrementally as blocks are processed: the wallet's own HASH160 and
// its projected {outpoint -> value} set, matching spec.md §3's Wallet
// entity.
type WalletView interface {
	// PubKeyHash returns the 20-byte HASH160 that identifies outputs
	// belonging to this wallet.
	PubKeyHash() []byte

	// AddUTxO records a newly-observed output belonging to this wallet.
	AddUTxO(op wire.OutPoint, value int64)

	// RemoveUTxO removes a spent output belonging to this wallet.
	RemoveUTxO(op wire.OutPoint)
}

// Tracker maintains the full recognized-P2PKH UTxO set plus an
// incremental cursor into chain state, per spec.md §4.10.
type Tracker struct {
	mu     sync.RWMutex
	utxos  map[wire.OutPoint]Entry
	cursor int // last_processed_block_index

	wallet WalletView
}

// New returns an empty Tracker for the given wallet view.
func New(wallet WalletView) *Tracker {
	return &Tracker{
		utxos:  make(map[wire.OutPoint]Entry),
		wallet: wallet,
	}
}

// SetWallet switches the wallet the tracker projects balances against.
// Per spec.md §3's Wallet lifecycle, a switch needs a full re-projection;
// SetWallet itself only swaps the view, so the caller must follow it with
// Rebuild using the full chain.
func (t *Tracker) SetWallet(wallet WalletView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.wallet = wallet
}

// Rebuild performs the full UTxO rebuild of spec.md §4.10: iterate
// blocks in chain order, remove every input's referenced outpoint, then
// insert every recognized P2PKH output. It resets the incremental
// cursor to the end of blocks.
func (t *Tracker) Rebuild(blocks []*wire.MsgBlock) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.utxos = make(map[wire.OutPoint]Entry)
	t.applyLocked(blocks)
	t.cursor = len(blocks)
}

// ApplyNewBlocks processes chain blocks found beyond the tracker's
// cursor, the incremental refresh path of spec.md §4.10.
func (t *Tracker) ApplyNewBlocks(all []*wire.MsgBlock) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cursor >= len(all) {
		return
	}
	t.applyLocked(all[t.cursor:])
	t.cursor = len(all)
}

// RefreshFrom re-derives the new-blocks slice from chainstate and applies
// it incrementally; a thin convenience wrapper used by the node's
// steady-state refresh loop.
func (t *Tracker) RefreshFrom(cs *chainstate.State) {
	t.ApplyNewBlocks(cs.AllBlocksInOrder())
}

func (t *Tracker) applyLocked(blocks []*wire.MsgBlock) {
	for _, b := range blocks {
		for _, tx := range b.Transactions {
			txid := tx.TxHash()
			for _, in := range tx.TxIn {
				t.removeLocked(in.PreviousOutPoint)
			}
			for i, out := range tx.TxOut {
				pkHash := stdscript.ExtractPubKeyHashV0(out.PkScript)
				if pkHash == nil {
					continue
				}
				op := wire.OutPoint{Hash: txid, Index: uint32(i)}
				t.utxos[op] = Entry{Output: out, PKHash: pkHash}
				if t.wallet != nil && hashEqual(pkHash, t.wallet.PubKeyHash()) {
					t.wallet.AddUTxO(op, out.Value)
				}
			}
		}
	}
}

func (t *Tracker) removeLocked(op wire.OutPoint) {
	entry, ok := t.utxos[op]
	if !ok {
		return
	}
	delete(t.utxos, op)
	if t.wallet != nil && hashEqual(entry.PKHash, t.wallet.PubKeyHash()) {
		t.wallet.RemoveUTxO(op)
	}
}

// Lookup returns the stored entry for an outpoint, used by the
// transaction builder (C11) to recover the pk_script of a UTxO it is
// about to spend.
func (t *Tracker) Lookup(op wire.OutPoint) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.utxos[op]
	return e, ok
}

// Cursor returns the current last_processed_block_index.
func (t *Tracker) Cursor() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor
}

// PendingProjection sums a set of pending transactions' effect on the
// given wallet hash, per spec.md §4.10's pending-transaction projection:
// positive for a net receive, negative for a net send.
func PendingProjection(pending []*wire.MsgTx, tracker *Tracker, pkHash []byte) map[chainhash.Hash]int64 {
	out := make(map[chainhash.Hash]int64, len(pending))
	for _, tx := range pending {
		var net int64
		for _, o := range tx.TxOut {
			if hashEqual(stdscript.ExtractPubKeyHashV0(o.PkScript), pkHash) {
				net += o.Value
			}
		}
		for _, in := range tx.TxIn {
			if entry, ok := tracker.Lookup(in.PreviousOutPoint); ok && hashEqual(entry.PKHash, pkHash) {
				net -= entry.Output.Value
			}
		}
		out[tx.TxHash()] = net
	}
	return out
}

func hashEqual(a, b []byte) bool {
	if len(a) != len(b) || a == nil || b == nil {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
