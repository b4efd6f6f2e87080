// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/EXCCoin/exccspv/chainhash"
)

// MaxBlockLocatorHashes is the maximum number of block locator hashes
// allowed per getheaders message.
const MaxBlockLocatorHashes = 500

// MaxHeadersPerMsg is the maximum number of headers returned in a single
// headers message, per spec.md §4.6's "reply with up to 2 000 following
// headers" rule.
const MaxHeadersPerMsg = 2000

// MsgGetHeaders implements the Message interface and represents a
// bitcoin getheaders message. It is used to request a list of block
// headers starting from the caller's locator, stopping at HashStop or
// after MaxHeadersPerMsg headers, whichever comes first (§4.6).
type MsgGetHeaders struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []chainhash.Hash
	HashStop           chainhash.Hash
}

// Command returns the protocol command string for the message.
func (msg *MsgGetHeaders) Command() string { return CmdGetHeaders }

// AddBlockLocatorHash adds a new block locator hash to the message.
func (msg *MsgGetHeaders) AddBlockLocatorHash(hash *chainhash.Hash) error {
	if len(msg.BlockLocatorHashes)+1 > MaxBlockLocatorHashes {
		return messageError("MsgGetHeaders.AddBlockLocatorHash",
			"too many block locator hashes for message")
	}
	msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, *hash)
	return nil
}

// NewMsgGetHeaders returns a new getheaders message with the given
// locator and stopping hash (an all-zero hash means "no stop").
func NewMsgGetHeaders(locator []chainhash.Hash, stop chainhash.Hash) *MsgGetHeaders {
	return &MsgGetHeaders{
		ProtocolVersion:    ProtocolVersion,
		BlockLocatorHashes: locator,
		HashStop:           stop,
	}
}

// BtcEncode encodes the receiver to w using the bitcoin protocol
// encoding. This is part of the Message interface implementation.
func (msg *MsgGetHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeElement(w, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.BlockLocatorHashes))); err != nil {
		return err
	}
	for i := range msg.BlockLocatorHashes {
		if err := writeElement(w, &msg.BlockLocatorHashes[i]); err != nil {
			return err
		}
	}
	return writeElement(w, &msg.HashStop)
}

// BtcDecode decodes r using the bitcoin protocol encoding into the
// receiver. This is part of the Message interface implementation.
func (msg *MsgGetHeaders) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.ProtocolVersion); err != nil {
		return newFramingError("MsgGetHeaders.BtcDecode", "failed to read version", err)
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxBlockLocatorHashes {
		return newFramingError("MsgGetHeaders.BtcDecode", "too many block locator hashes", nil)
	}
	msg.BlockLocatorHashes = make([]chainhash.Hash, count)
	for i := uint64(0); i < count; i++ {
		if err := readElement(r, &msg.BlockLocatorHashes[i]); err != nil {
			return newFramingError("MsgGetHeaders.BtcDecode", "failed to read locator hash", err)
		}
	}
	if err := readElement(r, &msg.HashStop); err != nil {
		return newFramingError("MsgGetHeaders.BtcDecode", "failed to read stop hash", err)
	}
	return nil
}

// MsgHeaders implements the Message interface and represents a bitcoin
// headers message. It is used in response to a getheaders message during
// IBD (§4.8); unsolicited headers messages are also tolerated the same
// way.
type MsgHeaders struct {
	Headers []*BlockHeader
}

// Command returns the protocol command string for the message.
func (msg *MsgHeaders) Command() string { return CmdHeaders }

// AddBlockHeader adds a new block header to the message.
func (msg *MsgHeaders) AddBlockHeader(bh *BlockHeader) error {
	if len(msg.Headers)+1 > MaxHeadersPerMsg {
		return messageError("MsgHeaders.AddBlockHeader",
			"too many block headers for message")
	}
	msg.Headers = append(msg.Headers, bh)
	return nil
}

// BtcEncode encodes the receiver to w using the bitcoin protocol
// encoding. This is part of the Message interface implementation.
func (msg *MsgHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarInt(w, uint64(len(msg.Headers))); err != nil {
		return err
	}
	for _, bh := range msg.Headers {
		if err := bh.Serialize(w); err != nil {
			return err
		}
		// A headers message includes a transaction-count VarInt after
		// each header on the wire (always zero, since headers carry
		// no transactions); it is round-tripped here for bit-exact
		// compatibility with the reference protocol.
		if err := WriteVarInt(w, 0); err != nil {
			return err
		}
	}
	return nil
}

// BtcDecode decodes r using the bitcoin protocol encoding into the
// receiver. This is part of the Message interface implementation.
func (msg *MsgHeaders) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxHeadersPerMsg {
		return newFramingError("MsgHeaders.BtcDecode", "too many headers in message", nil)
	}
	msg.Headers = make([]*BlockHeader, count)
	for i := uint64(0); i < count; i++ {
		bh := &BlockHeader{}
		if err := bh.Deserialize(r); err != nil {
			return newFramingError("MsgHeaders.BtcDecode", "failed to read header", err)
		}
		txCount, err := ReadVarInt(r)
		if err != nil {
			return err
		}
		if txCount != 0 {
			return newFramingError("MsgHeaders.BtcDecode", "header carries a nonzero tx count", nil)
		}
		msg.Headers[i] = bh
	}
	return nil
}
