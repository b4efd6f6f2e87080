// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgVerAck implements the Message interface and represents a bitcoin
// verack message. It has no payload: per §4.5, a verack carrying a
// non-empty payload fails the handshake.
type MsgVerAck struct{}

// Command returns the protocol command string for the message.
func (msg *MsgVerAck) Command() string { return CmdVerAck }

// BtcEncode encodes the receiver to w using the bitcoin protocol
// encoding. This is part of the Message interface implementation.
func (msg *MsgVerAck) BtcEncode(w io.Writer, pver uint32) error { return nil }

// BtcDecode decodes r using the bitcoin protocol encoding into the
// receiver. This is part of the Message interface implementation.
func (msg *MsgVerAck) BtcDecode(r io.Reader, pver uint32) error {
	var probe [1]byte
	n, err := r.Read(probe[:])
	if n > 0 {
		return newFramingError("MsgVerAck.BtcDecode", "verack must not carry a payload", nil)
	}
	if err != nil && err != io.EOF {
		return newFramingError("MsgVerAck.BtcDecode", "failed to probe for payload", err)
	}
	return nil
}
