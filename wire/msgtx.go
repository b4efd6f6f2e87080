// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/EXCCoin/exccspv/chainhash"
)

// maxTxInPerMessage and maxTxOutPerMessage bound how many inputs/outputs
// ReadVarInt will let a single decode allocate for, defending against a
// truncated-but-adversarial length prefix.
const (
	maxTxInPerMessage  = 1000000
	maxTxOutPerMessage = 1000000
	maxScriptSize      = 10000
)

// OutPoint defines a bitcoin data type that is used to track previous
// transaction outputs, per spec.md §3's Outpoint entity.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new bitcoin transaction outpoint point with the
// provided hash and index.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

func (o OutPoint) serialize(w io.Writer) error {
	return writeElements(w, &o.Hash, o.Index)
}

func (o *OutPoint) deserialize(r io.Reader) error {
	return readElements(r, &o.Hash, &o.Index)
}

// TxIn defines a bitcoin transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// NewTxIn returns a new bitcoin transaction input with the provided
// previous outpoint point and signature script with a default sequence
// of MaxTxInSequenceNum.
func NewTxIn(prevOut *OutPoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  signatureScript,
		Sequence:         MaxTxInSequenceNum,
	}
}

// MaxTxInSequenceNum is the default, final sequence number a non-locktime
// spending input carries.
const MaxTxInSequenceNum uint32 = 0xffffffff

func (t *TxIn) serialize(w io.Writer) error {
	if err := t.PreviousOutPoint.serialize(w); err != nil {
		return err
	}
	if err := WriteVarBytes(w, t.SignatureScript); err != nil {
		return err
	}
	return writeElement(w, t.Sequence)
}

func (t *TxIn) deserialize(r io.Reader) error {
	if err := t.PreviousOutPoint.deserialize(r); err != nil {
		return err
	}
	script, err := ReadVarBytes(r, maxScriptSize, "signature script")
	if err != nil {
		return err
	}
	t.SignatureScript = script
	return readElement(r, &t.Sequence)
}

// TxOut defines a bitcoin transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// NewTxOut returns a new bitcoin transaction output with the provided
// transaction value and public key script.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{Value: value, PkScript: pkScript}
}

func (t *TxOut) serialize(w io.Writer) error {
	if err := writeElement(w, t.Value); err != nil {
		return err
	}
	return WriteVarBytes(w, t.PkScript)
}

func (t *TxOut) deserialize(r io.Reader) error {
	if err := readElement(r, &t.Value); err != nil {
		return err
	}
	script, err := ReadVarBytes(r, maxScriptSize, "pk script")
	if err != nil {
		return err
	}
	t.PkScript = script
	return nil
}

// MsgTx implements the Message interface and represents a bitcoin tx
// message. It is used to deliver transaction information in response to
// a getdata message (MsgGetData) for a given transaction, or to relay a
// transaction the node has constructed itself.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// Command returns the protocol command string for the message.
func (msg *MsgTx) Command() string { return CmdTx }

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) { msg.TxIn = append(msg.TxIn, ti) }

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) { msg.TxOut = append(msg.TxOut, to) }

// TxHash generates the Hash for the transaction, per spec.md §3's "txid"
// identity: double-SHA-256 of the full serialization.
func (msg *MsgTx) TxHash() chainhash.Hash {
	var buf bytes.Buffer
	_ = msg.BtcEncode(&buf, ProtocolVersion)
	return chainhash.HashH(buf.Bytes())
}

// SerializeSize returns the number of bytes it would take to serialize
// the transaction.
func (msg *MsgTx) SerializeSize() int {
	var buf bytes.Buffer
	_ = msg.BtcEncode(&buf, ProtocolVersion)
	return buf.Len()
}

// BtcEncode encodes the receiver to w using the bitcoin protocol
// encoding. This is part of the Message interface implementation.
func (msg *MsgTx) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeElement(w, msg.Version); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := ti.serialize(w); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := to.serialize(w); err != nil {
			return err
		}
	}
	return writeElement(w, msg.LockTime)
}

// BtcDecode decodes r using the bitcoin protocol encoding into the
// receiver. This is part of the Message interface implementation.
func (msg *MsgTx) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.Version); err != nil {
		return newFramingError("MsgTx.BtcDecode", "failed to read version", err)
	}

	inCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if inCount > maxTxInPerMessage {
		return newFramingError("MsgTx.BtcDecode", "too many transaction inputs", nil)
	}
	msg.TxIn = make([]*TxIn, inCount)
	for i := uint64(0); i < inCount; i++ {
		ti := &TxIn{}
		if err := ti.deserialize(r); err != nil {
			return newFramingError("MsgTx.BtcDecode", "failed to read tx input", err)
		}
		msg.TxIn[i] = ti
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if outCount > maxTxOutPerMessage {
		return newFramingError("MsgTx.BtcDecode", "too many transaction outputs", nil)
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := uint64(0); i < outCount; i++ {
		to := &TxOut{}
		if err := to.deserialize(r); err != nil {
			return newFramingError("MsgTx.BtcDecode", "failed to read tx output", err)
		}
		msg.TxOut[i] = to
	}

	return readElement(r, &msg.LockTime)
}
