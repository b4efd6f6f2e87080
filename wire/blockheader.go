// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/EXCCoin/exccspv/chainhash"
)

// BlockHeaderLen is the number of bytes in a serialized block header, per
// spec.md §3's 80-byte BlockHeader.
const BlockHeaderLen = 80

// BlockHeader defines information about a block and is used in the
// bitcoin block (MsgBlock) and headers (MsgHeaders) messages.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// BlockHash computes the block identifier hash for the given header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf bytes.Buffer
	buf.Grow(BlockHeaderLen)
	_ = h.Serialize(&buf)
	return chainhash.HashH(buf.Bytes())
}

// Serialize encodes a block header to w in the reference 80-byte format.
// n_bits is stored little-endian on the wire, like every other uint32
// field; only the decompressed target (see package pow) is big-endian.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeElements(w, h.Version, &h.PrevBlock, &h.MerkleRoot,
		h.Timestamp, h.Bits, h.Nonce)
}

// Deserialize decodes a block header from r in the reference 80-byte
// format.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readElements(r, &h.Version, &h.PrevBlock, &h.MerkleRoot,
		&h.Timestamp, &h.Bits, &h.Nonce)
}

// NewBlockHeader returns a new BlockHeader using the provided version,
// previous block hash, merkle root hash, difficulty bits, and nonce used
// to generate the block with defaults for the remaining fields.
func NewBlockHeader(version int32, prevHash, merkleRootHash *chainhash.Hash,
	bits uint32, nonce uint32) *BlockHeader {

	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevHash,
		MerkleRoot: *merkleRootHash,
		Bits:       bits,
		Nonce:      nonce,
	}
}
