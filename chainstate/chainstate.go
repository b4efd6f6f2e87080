// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainstate holds the process-wide, shared chain state of
// spec.md §3/§4.9 (C9): the header vector, its hash index, the sparse
// block map, and the pending-transaction map. It is an explicit bundle
// passed to every handler, never a singleton (see spec.md §9's "Global
// mutable state" design note).
package chainstate

import (
	"sync"

	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/merkle"
	"github.com/EXCCoin/exccspv/pow"
	"github.com/EXCCoin/exccspv/wire"
)

// State bundles the four shared containers of spec.md §3. Every mutation
// passes through the per-field mutex for that container; handlers must
// acquire locks in the fixed order headers -> headersIndex -> blocks ->
// pendingTx and never hold one across network or disk I/O (§4.9).
type State struct {
	headersMu sync.RWMutex
	headers   []*wire.BlockHeader

	indexMu sync.RWMutex
	index   map[chainhash.Hash]int

	blocksMu sync.RWMutex
	blocks   map[chainhash.Hash]*wire.MsgBlock

	pendingMu sync.RWMutex
	pending   map[chainhash.Hash]*wire.MsgTx
}

// New returns an empty State seeded with the given genesis header at
// index 0.
func New(genesis *wire.BlockHeader) *State {
	s := &State{
		index:   make(map[chainhash.Hash]int),
		blocks:  make(map[chainhash.Hash]*wire.MsgBlock),
		pending: make(map[chainhash.Hash]*wire.MsgTx),
	}
	s.headers = append(s.headers, genesis)
	s.index[genesis.BlockHash()] = 0
	return s
}

// LastHeaderHash returns the hash of the most recently appended header.
func (s *State) LastHeaderHash() chainhash.Hash {
	s.headersMu.RLock()
	defer s.headersMu.RUnlock()
	return s.headers[len(s.headers)-1].BlockHash()
}

// HeaderCount returns the number of headers currently held.
func (s *State) HeaderCount() int {
	s.headersMu.RLock()
	defer s.headersMu.RUnlock()
	return len(s.headers)
}

// HeaderAt returns the header at the given chain index.
func (s *State) HeaderAt(i int) (*wire.BlockHeader, bool) {
	s.headersMu.RLock()
	defer s.headersMu.RUnlock()
	if i < 0 || i >= len(s.headers) {
		return nil, false
	}
	return s.headers[i], true
}

// IndexOf returns the chain position of the header with the given hash.
func (s *State) IndexOf(hash chainhash.Hash) (int, bool) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	i, ok := s.index[hash]
	return i, ok
}

// HasHeader reports whether a header with the given hash is already
// known.
func (s *State) HasHeader(hash chainhash.Hash) bool {
	_, ok := s.IndexOf(hash)
	return ok
}

// AppendHeader appends a new header if it isn't already known and its
// PrevBlock extends the current tip, per the chain-order invariant of
// spec.md §3. It returns false (a non-fatal, logged "duplicate data"
// condition per §7) if the header was already present.
func (s *State) AppendHeader(h *wire.BlockHeader) (appended bool, err error) {
	hash := h.BlockHash()
	if s.HasHeader(hash) {
		return false, nil
	}

	if !pow.ValidatePoW(h) {
		return false, ErrInvalidPoW
	}

	s.headersMu.Lock()
	tip := s.headers[len(s.headers)-1].BlockHash()
	if h.PrevBlock != tip {
		s.headersMu.Unlock()
		return false, ErrMissingPrevHeader
	}
	s.headers = append(s.headers, h)
	newIndex := len(s.headers) - 1
	s.headersMu.Unlock()

	s.indexMu.Lock()
	s.index[hash] = newIndex
	s.indexMu.Unlock()

	return true, nil
}

// HeadersFromLocator returns up to MaxHeadersPerMsg headers following the
// first hash in locator that is known locally, stopping at stopHash if
// it is non-zero, per spec.md §4.6's getheaders reply rule.
func (s *State) HeadersFromLocator(locator []chainhash.Hash, stopHash chainhash.Hash) []*wire.BlockHeader {
	var start int
	found := false
	for _, h := range locator {
		if idx, ok := s.IndexOf(h); ok {
			start = idx + 1
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	s.headersMu.RLock()
	defer s.headersMu.RUnlock()

	var zero chainhash.Hash
	out := make([]*wire.BlockHeader, 0, wire.MaxHeadersPerMsg)
	for i := start; i < len(s.headers) && len(out) < wire.MaxHeadersPerMsg; i++ {
		out = append(out, s.headers[i])
		if stopHash != zero && s.headers[i].BlockHash() == stopHash {
			break
		}
	}
	return out
}

// Block returns the block stored for hash, if any.
func (s *State) Block(hash chainhash.Hash) (*wire.MsgBlock, bool) {
	s.blocksMu.RLock()
	defer s.blocksMu.RUnlock()
	b, ok := s.blocks[hash]
	return b, ok
}

// HasBlock reports whether a block with the given hash is already known.
func (s *State) HasBlock(hash chainhash.Hash) bool {
	_, ok := s.Block(hash)
	return ok
}

// InsertBlock validates a block's proof of work and merkle root (§3, §8)
// and inserts it if new. Per spec.md §9's reorg resolution, a block
// whose header does not extend the current tip is still inserted into
// the sparse block map without touching header ordering.
func (s *State) InsertBlock(b *wire.MsgBlock) (inserted bool, err error) {
	if !pow.ValidatePoW(&b.Header) {
		return false, ErrInvalidPoW
	}

	txids := b.TxHashes()
	if merkle.Root(txids) != b.Header.MerkleRoot {
		return false, ErrMerkleMismatch
	}

	hash := b.Header.BlockHash()
	if s.HasBlock(hash) {
		return false, nil
	}

	s.blocksMu.Lock()
	s.blocks[hash] = b
	s.blocksMu.Unlock()

	// Confirmed transactions are no longer pending.
	s.pendingMu.Lock()
	for _, txid := range txids {
		delete(s.pending, txid)
	}
	s.pendingMu.Unlock()

	return true, nil
}

// PendingTx returns the pending transaction for txid, if any.
func (s *State) PendingTx(txid chainhash.Hash) (*wire.MsgTx, bool) {
	s.pendingMu.RLock()
	defer s.pendingMu.RUnlock()
	tx, ok := s.pending[txid]
	return tx, ok
}

// HasPendingTx reports whether txid is in the pending-transaction map.
func (s *State) HasPendingTx(txid chainhash.Hash) bool {
	_, ok := s.PendingTx(txid)
	return ok
}

// InsertPendingTx adds tx to the pending-transaction map.
func (s *State) InsertPendingTx(tx *wire.MsgTx) {
	txid := tx.TxHash()
	s.pendingMu.Lock()
	s.pending[txid] = tx
	s.pendingMu.Unlock()
}

// RemovePendingTx removes txid from the pending-transaction map, used by
// C11 once a broadcast transaction has been locally confirmed.
func (s *State) RemovePendingTx(txid chainhash.Hash) {
	s.pendingMu.Lock()
	delete(s.pending, txid)
	s.pendingMu.Unlock()
}

// PendingTxs returns a snapshot slice of all currently pending
// transactions.
func (s *State) PendingTxs() []*wire.MsgTx {
	s.pendingMu.RLock()
	defer s.pendingMu.RUnlock()
	out := make([]*wire.MsgTx, 0, len(s.pending))
	for _, tx := range s.pending {
		out = append(out, tx)
	}
	return out
}

// BlocksFrom returns a snapshot of every block known at or after chain
// index cursor, in chain order, skipping any index for which no block is
// stored (the sparse region older than begin_time per §3). AllBlocksInOrder
// calls it with cursor 0.
func (s *State) BlocksFrom(cursor int) []*wire.MsgBlock {
	s.headersMu.RLock()
	headers := make([]*wire.BlockHeader, len(s.headers))
	copy(headers, s.headers)
	s.headersMu.RUnlock()

	out := make([]*wire.MsgBlock, 0, len(headers)-cursor)
	for i := cursor; i < len(headers); i++ {
		if b, ok := s.Block(headers[i].BlockHash()); ok {
			out = append(out, b)
		}
	}
	return out
}

// AllBlocksInOrder returns every known block in chain order, for a full
// UTxO rebuild (§4.10).
func (s *State) AllBlocksInOrder() []*wire.MsgBlock {
	return s.BlocksFrom(0)
}
