// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/EXCCoin/exccspv/chainhash"
)

// InvType represents the type of inventory vector.
type InvType uint32

// Inventory vector types, per the reference protocol.
const (
	InvTypeError InvType = 0
	InvTypeTx    InvType = 1
	InvTypeBlock InvType = 2
)

// maxInvPerMsg is the maximum number of inventory vectors allowed in a
// single inv/getdata/notfound message.
const maxInvPerMsg = 50000

// InvVect defines a bitcoin inventory vector, used to describe data, as
// specified by the Type field, that a peer has or wants.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

// NewInvVect returns a new InvVect using the provided type and hash.
func NewInvVect(typ InvType, hash *chainhash.Hash) *InvVect {
	return &InvVect{Type: typ, Hash: *hash}
}

func (iv *InvVect) serialize(w io.Writer) error {
	return writeElements(w, uint32(iv.Type), &iv.Hash)
}

func (iv *InvVect) deserialize(r io.Reader) error {
	var typ uint32
	if err := readElements(r, &typ, &iv.Hash); err != nil {
		return err
	}
	iv.Type = InvType(typ)
	return nil
}

// invList is the shared representation behind MsgInv, MsgGetData, and
// MsgNotFound: all three are "a VarInt count followed by that many
// InvVects" on the wire.
type invList struct {
	InvList []*InvVect
}

// AddInvVect adds an inventory vector to the message.
func (m *invList) AddInvVect(iv *InvVect) error {
	if len(m.InvList)+1 > maxInvPerMsg {
		return messageError("AddInvVect", "too many inv vectors for message")
	}
	m.InvList = append(m.InvList, iv)
	return nil
}

func (m *invList) encode(w io.Writer) error {
	if err := WriteVarInt(w, uint64(len(m.InvList))); err != nil {
		return err
	}
	for _, iv := range m.InvList {
		if err := iv.serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *invList) decode(op string, r io.Reader) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxInvPerMsg {
		return newFramingError(op, "too many inv vectors in message", nil)
	}
	m.InvList = make([]*InvVect, count)
	for i := uint64(0); i < count; i++ {
		iv := &InvVect{}
		if err := iv.deserialize(r); err != nil {
			return newFramingError(op, "failed to read inv vector", err)
		}
		m.InvList[i] = iv
	}
	return nil
}

// MsgInv implements the Message interface and represents a bitcoin inv
// message. It is used to advertise data the sender has available, and
// for each hash absent from the receiver's local chain/pending sets, the
// receiver replies with getdata (§4.6).
type MsgInv struct{ invList }

// Command returns the protocol command string for the message.
func (msg *MsgInv) Command() string { return CmdInv }

// BtcEncode encodes the receiver to w using the bitcoin protocol
// encoding. This is part of the Message interface implementation.
func (msg *MsgInv) BtcEncode(w io.Writer, pver uint32) error { return msg.invList.encode(w) }

// BtcDecode decodes r using the bitcoin protocol encoding into the
// receiver. This is part of the Message interface implementation.
func (msg *MsgInv) BtcDecode(r io.Reader, pver uint32) error {
	return msg.invList.decode("MsgInv.BtcDecode", r)
}

// NewMsgInv returns a new bitcoin inv message that conforms to the
// Message interface.
func NewMsgInv() *MsgInv { return &MsgInv{} }

// MsgGetData implements the Message interface and represents a bitcoin
// getdata message. It is used to request data such as a block or
// transaction identified by one or more inventory vectors.
type MsgGetData struct{ invList }

// Command returns the protocol command string for the message.
func (msg *MsgGetData) Command() string { return CmdGetData }

// BtcEncode encodes the receiver to w using the bitcoin protocol
// encoding. This is part of the Message interface implementation.
func (msg *MsgGetData) BtcEncode(w io.Writer, pver uint32) error { return msg.invList.encode(w) }

// BtcDecode decodes r using the bitcoin protocol encoding into the
// receiver. This is part of the Message interface implementation.
func (msg *MsgGetData) BtcDecode(r io.Reader, pver uint32) error {
	return msg.invList.decode("MsgGetData.BtcDecode", r)
}

// NewMsgGetData returns a new bitcoin getdata message that conforms to
// the Message interface.
func NewMsgGetData() *MsgGetData { return &MsgGetData{} }

// MsgNotFound implements the Message interface and represents a bitcoin
// notfound message. It is returned for any hashes in a getdata request
// that the sending peer does not have (§4.6).
type MsgNotFound struct{ invList }

// Command returns the protocol command string for the message.
func (msg *MsgNotFound) Command() string { return CmdNotFound }

// BtcEncode encodes the receiver to w using the bitcoin protocol
// encoding. This is part of the Message interface implementation.
func (msg *MsgNotFound) BtcEncode(w io.Writer, pver uint32) error { return msg.invList.encode(w) }

// BtcDecode decodes r using the bitcoin protocol encoding into the
// receiver. This is part of the Message interface implementation.
func (msg *MsgNotFound) BtcDecode(r io.Reader, pver uint32) error {
	return msg.invList.decode("MsgNotFound.BtcDecode", r)
}

// NewMsgNotFound returns a new bitcoin notfound message that conforms to
// the Message interface.
func NewMsgNotFound() *MsgNotFound { return &MsgNotFound{} }
