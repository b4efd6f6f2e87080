// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package merkle builds the transaction merkle tree, computes the root,
// and produces/verifies inclusion proofs, per spec.md §4.3 (C3).
package merkle

import (
	"errors"

	"github.com/EXCCoin/exccspv/chainhash"
)

// ErrTxNotFound is returned by BuildProof when the requested txid is not
// among the block's leaves.
var ErrTxNotFound = errors.New("merkle: transaction id not found among leaves")

// hashPair returns H(left || right).
func hashPair(left, right chainhash.Hash) chainhash.Hash {
	buf := make([]byte, 0, 64)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return chainhash.HashH(buf)
}

// Root computes the merkle root over the given ordered transaction ids,
// duplicating the last leaf at any level with an odd count, per spec.md
// §4.3. It returns the zero hash for an empty input.
func Root(txids []chainhash.Hash) chainhash.Hash {
	if len(txids) == 0 {
		return chainhash.Hash{}
	}

	level := make([]chainhash.Hash, len(txids))
	copy(level, txids)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

// ProofStep is one step of an inclusion path: the sibling hash at that
// level, and whether the caller's running hash was the left or right
// child when combined with it.
type ProofStep struct {
	Sibling       chainhash.Hash
	RunningIsLeft bool
}

// Proof is an inclusion path for one transaction id within a block's
// merkle tree, plus the root it should recompute to.
type Proof struct {
	TxID  chainhash.Hash
	Steps []ProofStep
	Root  chainhash.Hash
}

// BuildProof locates txid among txids and returns its inclusion proof,
// per spec.md §4.3.
func BuildProof(txids []chainhash.Hash, txid chainhash.Hash) (*Proof, error) {
	idx := -1
	for i, h := range txids {
		if h == txid {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrTxNotFound
	}

	level := make([]chainhash.Hash, len(txids))
	copy(level, txids)

	var steps []ProofStep
	pos := idx
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		var sibling chainhash.Hash
		isLeft := pos%2 == 0
		if isLeft {
			sibling = level[pos+1]
		} else {
			sibling = level[pos-1]
		}
		steps = append(steps, ProofStep{Sibling: sibling, RunningIsLeft: isLeft})

		next := make([]chainhash.Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
		pos /= 2
	}

	return &Proof{TxID: txid, Steps: steps, Root: level[0]}, nil
}

// Verify recomputes the root implied by p and reports whether it equals
// p.Root.
func Verify(p *Proof) bool {
	running := p.TxID
	for _, step := range p.Steps {
		if step.RunningIsLeft {
			running = hashPair(running, step.Sibling)
		} else {
			running = hashPair(step.Sibling, running)
		}
	}
	return running == p.Root
}
