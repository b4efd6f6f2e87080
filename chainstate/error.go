// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import "errors"

// Consistency/crypto errors chainstate mutators can return, per the
// error taxonomy of spec.md §7.
var (
	// ErrMissingPrevHeader describes a header whose PrevBlock does not
	// match the current tip.
	ErrMissingPrevHeader = errors.New("chainstate: header does not extend current tip")

	// ErrInvalidPoW describes a header or block whose proof of work does
	// not satisfy its own declared target.
	ErrInvalidPoW = errors.New("chainstate: proof of work invalid")

	// ErrMerkleMismatch describes a block whose computed merkle root
	// does not match its header's declared root.
	ErrMerkleMismatch = errors.New("chainstate: merkle root mismatch")
)
