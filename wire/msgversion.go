// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
)

// maxUserAgentLen is the maximum allowed length for the user agent field
// in a version message.
const maxUserAgentLen = 256

// NetAddress is the minimal network address representation carried
// inside a version message: 4-byte IPv4, port, and the services bit
// field (unused beyond being round-tripped).
type NetAddress struct {
	Services uint64
	IP       [4]byte
	Port     uint16
}

func (na *NetAddress) serialize(w io.Writer) error {
	return writeElements(w, na.Services, na.IP, na.Port)
}

func (na *NetAddress) deserialize(r io.Reader) error {
	return readElements(r, &na.Services, &na.IP, &na.Port)
}

// MsgVersion implements the Message interface and represents a bitcoin
// version message. It is exchanged during the handshake state machine of
// §4.5 and must not appear again during steady state.
type MsgVersion struct {
	ProtocolVersion int32
	Services        uint64
	Timestamp       int64
	AddrRecv        NetAddress
	AddrFrom        NetAddress
	Nonce           uint64
	UserAgent       string
	LastBlock       int32
	Relay           bool
}

// Command returns the protocol command string for the message.
func (msg *MsgVersion) Command() string { return CmdVersion }

// NewMsgVersion returns a new version message populated with the given
// advertised address, receiving address, nonce, and last known block.
func NewMsgVersion(me, you *NetAddress, nonce uint64, lastBlock int32) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: int32(ProtocolVersion),
		Timestamp:       0, // stamped by the caller at send time
		AddrRecv:        *you,
		AddrFrom:        *me,
		Nonce:           nonce,
		UserAgent:       "/exccspv:0.1.0/",
		LastBlock:       lastBlock,
		Relay:           true,
	}
}

// BtcEncode encodes the receiver to w using the bitcoin protocol
// encoding. This is part of the Message interface implementation.
func (msg *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeElements(w, msg.ProtocolVersion, msg.Services, msg.Timestamp); err != nil {
		return err
	}
	if err := msg.AddrRecv.serialize(w); err != nil {
		return err
	}
	if err := msg.AddrFrom.serialize(w); err != nil {
		return err
	}
	if err := writeElement(w, msg.Nonce); err != nil {
		return err
	}
	if err := WriteVarBytes(w, []byte(msg.UserAgent)); err != nil {
		return err
	}
	return writeElements(w, msg.LastBlock, msg.Relay)
}

// BtcDecode decodes r using the bitcoin protocol encoding into the
// receiver. This is part of the Message interface implementation.
func (msg *MsgVersion) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElements(r, &msg.ProtocolVersion, &msg.Services, &msg.Timestamp); err != nil {
		return newFramingError("MsgVersion.BtcDecode", "failed to read fixed fields", err)
	}
	if err := msg.AddrRecv.deserialize(r); err != nil {
		return newFramingError("MsgVersion.BtcDecode", "failed to read AddrRecv", err)
	}
	if err := msg.AddrFrom.deserialize(r); err != nil {
		return newFramingError("MsgVersion.BtcDecode", "failed to read AddrFrom", err)
	}
	if err := readElement(r, &msg.Nonce); err != nil {
		return newFramingError("MsgVersion.BtcDecode", "failed to read nonce", err)
	}
	ua, err := ReadVarBytes(r, maxUserAgentLen, "user agent")
	if err != nil {
		return err
	}
	msg.UserAgent = string(ua)
	if err := readElement(r, &msg.LastBlock); err != nil {
		return newFramingError("MsgVersion.BtcDecode", "failed to read last block", err)
	}
	// Relay is absent on some legacy peers; its absence is not a
	// framing error, it just defaults to true.
	if err := readElement(r, &msg.Relay); err != nil {
		msg.Relay = true
	}
	return nil
}
