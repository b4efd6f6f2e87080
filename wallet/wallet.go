// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet implements the Wallet entity of spec.md §3: a key
// pair, its observed UTxO projection, and the transaction builder of
// §4.11 (C11).
package wallet

import (
	"sort"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/EXCCoin/exccspv/address"
	"github.com/EXCCoin/exccspv/wire"
)

// Wallet holds a single key pair, its projected UTxOs, and running
// balances, per spec.md §3.
type Wallet struct {
	mu sync.RWMutex

	priv *secp256k1.PrivateKey
	pub  *secp256k1.PublicKey

	pkHash []byte

	utxos   map[wire.OutPoint]int64
	balance int64
}

// New constructs a Wallet from a secp256k1 private key.
func New(priv *secp256k1.PrivateKey) *Wallet {
	pub := priv.PubKey()
	return &Wallet{
		priv:   priv,
		pub:    pub,
		pkHash: address.Hash160(pub.SerializeCompressed()),
		utxos:  make(map[wire.OutPoint]int64),
	}
}

// FromWIF decodes a Base58Check WIF string into a Wallet, per spec.md
// §3's "created from a Base58Check-encoded private key" lifecycle.
func FromWIF(wif string) (*Wallet, error) {
	priv, err := address.DecodeWIF(wif)
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PubKeyHash returns the wallet's 20-byte HASH160, satisfying
// utxo.WalletView.
func (w *Wallet) PubKeyHash() []byte {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pkHash
}

// PublicKey returns the wallet's compressed public key.
func (w *Wallet) PublicKey() *secp256k1.PublicKey {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pub
}

// PrivateKey returns the wallet's private key, used by the transaction
// builder to sign inputs.
func (w *Wallet) PrivateKey() *secp256k1.PrivateKey {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.priv
}

// AddUTxO records a newly-observed output belonging to this wallet,
// satisfying utxo.WalletView.
func (w *Wallet) AddUTxO(op wire.OutPoint, value int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.utxos[op]; exists {
		return
	}
	w.utxos[op] = value
	w.balance += value
}

// RemoveUTxO removes a spent output belonging to this wallet, satisfying
// utxo.WalletView.
func (w *Wallet) RemoveUTxO(op wire.OutPoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	value, exists := w.utxos[op]
	if !exists {
		return
	}
	delete(w.utxos, op)
	w.balance -= value
}

// Balance returns the wallet's confirmed balance: the sum of values of
// outpoints currently in its projection, per spec.md §8's invariant.
func (w *Wallet) Balance() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balance
}

// UTxOEntry pairs an outpoint with its value, used for deterministic
// selection.
type UTxOEntry struct {
	OutPoint wire.OutPoint
	Value    int64
}

// lookupUTxO reports whether op is currently part of the wallet's
// projection, used by tests to confirm post-spend cleanup.
func (w *Wallet) lookupUTxO(op wire.OutPoint) (int64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.utxos[op]
	return v, ok
}

// UTxOs returns a snapshot of the wallet's current {outpoint -> value}
// projection.
func (w *Wallet) UTxOs() []UTxOEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]UTxOEntry, 0, len(w.utxos))
	for op, v := range w.utxos {
		out = append(out, UTxOEntry{OutPoint: op, Value: v})
	}
	return out
}

// selectUTxOs picks outpoints accumulating value until it exceeds
// target, per spec.md §9's Open Question resolution: deterministic,
// largest-value-first selection (chosen over the source's hash-map
// iteration order for testability).
func selectUTxOs(entries []UTxOEntry, target int64) ([]UTxOEntry, int64, bool) {
	sorted := make([]UTxOEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value > sorted[j].Value
		}
		return lessOutPoint(sorted[i].OutPoint, sorted[j].OutPoint)
	})

	var sum int64
	var picked []UTxOEntry
	for _, e := range sorted {
		picked = append(picked, e)
		sum += e.Value
		if sum > target {
			return picked, sum, true
		}
	}
	return nil, 0, false
}

func lessOutPoint(a, b wire.OutPoint) bool {
	for i := range a.Hash {
		if a.Hash[i] != b.Hash[i] {
			return a.Hash[i] < b.Hash[i]
		}
	}
	return a.Index < b.Index
}

// consumeSelected removes the selected outpoints from the wallet's
// projection immediately after a successful broadcast, per spec.md
// §4.11 step 6.
func (w *Wallet) consumeSelected(selected []UTxOEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range selected {
		if v, ok := w.utxos[e.OutPoint]; ok {
			w.balance -= v
			delete(w.utxos, e.OutPoint)
		}
	}
}
