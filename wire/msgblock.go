// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/EXCCoin/exccspv/chainhash"
)

// maxTxPerBlock bounds how many transactions a single decode will
// allocate for.
const maxTxPerBlock = 1000000

// MsgBlock implements the Message interface and represents a bitcoin
// block message. It is used to deliver block and transaction information
// in response to a getdata message (MsgGetData) for a given block hash,
// or unsolicited to announce a newly-connected block (§4.6).
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// Command returns the protocol command string for the message.
func (msg *MsgBlock) Command() string { return CmdBlock }

// AddTransaction adds a transaction to the message.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.Transactions = append(msg.Transactions, tx)
}

// TxHashes returns the transaction ids of every transaction in the
// block, in block order, as used when computing the merkle root.
func (msg *MsgBlock) TxHashes() []chainhash.Hash {
	hashes := make([]chainhash.Hash, len(msg.Transactions))
	for i, tx := range msg.Transactions {
		hashes[i] = tx.TxHash()
	}
	return hashes
}

// BtcEncode encodes the receiver to w using the bitcoin protocol
// encoding. This is part of the Message interface implementation.
func (msg *MsgBlock) BtcEncode(w io.Writer, pver uint32) error {
	if err := msg.Header.Serialize(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.Transactions))); err != nil {
		return err
	}
	for _, tx := range msg.Transactions {
		if err := tx.BtcEncode(w, pver); err != nil {
			return err
		}
	}
	return nil
}

// BtcDecode decodes r using the bitcoin protocol encoding into the
// receiver. This is part of the Message interface implementation.
func (msg *MsgBlock) BtcDecode(r io.Reader, pver uint32) error {
	if err := msg.Header.Deserialize(r); err != nil {
		return newFramingError("MsgBlock.BtcDecode", "failed to read header", err)
	}

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxTxPerBlock {
		return newFramingError("MsgBlock.BtcDecode", "too many transactions in block", nil)
	}

	msg.Transactions = make([]*MsgTx, count)
	for i := uint64(0); i < count; i++ {
		tx := &MsgTx{}
		if err := tx.BtcDecode(r, pver); err != nil {
			return newFramingError("MsgBlock.BtcDecode", "failed to read transaction", err)
		}
		msg.Transactions[i] = tx
	}
	return nil
}
