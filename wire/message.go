// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/EXCCoin/exccspv/chainhash"
)

// TestNet is the magic number identifying the Bitcoin testnet, per §6.1.
var TestNet = [4]byte{0x0b, 0x11, 0x09, 0x07}

// Message is the interface every wire message implements: it can encode
// itself to a stream and decode itself from one, and it knows its own
// command name for the envelope.
type Message interface {
	BtcDecode(r io.Reader, pver uint32) error
	BtcEncode(w io.Writer, pver uint32) error
	Command() string
}

// makeEmptyMessage creates a message of the appropriate concrete type
// based on the command.
func makeEmptyMessage(command string) (Message, error) {
	switch command {
	case CmdVersion:
		return &MsgVersion{}, nil
	case CmdVerAck:
		return &MsgVerAck{}, nil
	case CmdPing:
		return &MsgPing{}, nil
	case CmdPong:
		return &MsgPong{}, nil
	case CmdGetHeaders:
		return &MsgGetHeaders{}, nil
	case CmdHeaders:
		return &MsgHeaders{}, nil
	case CmdInv:
		return &MsgInv{}, nil
	case CmdGetData:
		return &MsgGetData{}, nil
	case CmdNotFound:
		return &MsgNotFound{}, nil
	case CmdTx:
		return &MsgTx{}, nil
	case CmdBlock:
		return &MsgBlock{}, nil
	default:
		return nil, messageError("makeEmptyMessage",
			fmt.Sprintf("unhandled command [%s]", command))
	}
}

// commandBytes returns the fixed CommandSize byte, NUL-padded encoding of
// command. It returns an error if command is too long to fit.
func commandBytes(command string) ([CommandSize]byte, error) {
	var buf [CommandSize]byte
	if len(command) > CommandSize {
		return buf, messageError("commandBytes",
			fmt.Sprintf("command %q is too long", command))
	}
	copy(buf[:], command)
	return buf, nil
}

// WriteMessage writes a bitcoin Message to w including the necessary
// header information, as a single Write of header and payload, and
// returns any error from encoding or writing.
func WriteMessage(w io.Writer, msg Message, pver uint32) error {
	cmdBytes, err := commandBytes(msg.Command())
	if err != nil {
		return err
	}

	var payload bytes.Buffer
	if err := msg.BtcEncode(&payload, pver); err != nil {
		return err
	}
	payloadLen := payload.Len()
	if payloadLen > MaxMessagePayload {
		return messageError("WriteMessage",
			fmt.Sprintf("message payload is too large - encoded "+
				"size (%d) is larger than max allowed (%d)", payloadLen, MaxMessagePayload))
	}

	checksum := chainhash.HashB(payload.Bytes())

	header := make([]byte, 0, MessageHeaderSize)
	header = append(header, TestNet[:]...)
	header = append(header, cmdBytes[:]...)
	var lenBuf [4]byte
	littleEndian.PutUint32(lenBuf[:], uint32(payloadLen))
	header = append(header, lenBuf[:]...)
	header = append(header, checksum[:4]...)

	_, err = w.Write(append(header, payload.Bytes()...))
	return err
}

// ReadMessage reads, validates, and parses the next bitcoin Message from
// r for the provided protocol version. A MessageError wrapping
// ErrFraming is returned if the envelope magic, length, or checksum do
// not check out.
func ReadMessage(r io.Reader, pver uint32) (Message, []byte, error) {
	var header [MessageHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, nil, newFramingError("ReadMessage", "failed to read message header", err)
	}

	var magic [4]byte
	copy(magic[:], header[:4])
	if magic != TestNet {
		return nil, nil, newFramingError("ReadMessage",
			fmt.Sprintf("unexpected network magic %x", magic), nil)
	}

	command := commandString(header[4 : 4+CommandSize])
	payloadLen := littleEndian.Uint32(header[4+CommandSize : 4+CommandSize+4])
	var wantChecksum [4]byte
	copy(wantChecksum[:], header[4+CommandSize+4:])

	if payloadLen > MaxMessagePayload {
		return nil, nil, newFramingError("ReadMessage",
			fmt.Sprintf("payload length %d exceeds max %d", payloadLen, MaxMessagePayload), nil)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, newFramingError("ReadMessage", "failed to read payload", err)
	}

	checksum := chainhash.HashB(payload)
	var gotChecksum [4]byte
	copy(gotChecksum[:], checksum[:4])
	if gotChecksum != wantChecksum {
		return nil, nil, newFramingError("ReadMessage",
			fmt.Sprintf("checksum mismatch for command %q", command), nil)
	}

	msg, err := makeEmptyMessage(command)
	if err != nil {
		// Unknown commands are logged and ignored by the dispatcher,
		// not treated as a framing error; the caller distinguishes
		// this case via IsUnknownCommand.
		return nil, payload, &unknownCommandError{command: command}
	}

	pr := bytes.NewReader(payload)
	if err := msg.BtcDecode(pr, pver); err != nil {
		return nil, nil, err
	}
	return msg, payload, nil
}

// unknownCommandError is returned by ReadMessage when the envelope
// decodes fine but names a command this package does not implement.
type unknownCommandError struct {
	command string
}

func (e *unknownCommandError) Error() string {
	return fmt.Sprintf("unhandled command [%s]", e.command)
}

// IsUnknownCommand reports whether err was returned because ReadMessage
// encountered a well-formed envelope for a command outside §6.1's
// supported set.
func IsUnknownCommand(err error) bool {
	_, ok := err.(*unknownCommandError)
	return ok
}

// commandString trims the trailing NUL padding from a fixed-size command
// field.
func commandString(b []byte) string {
	n := bytes.IndexByte(b, 0)
	if n == -1 {
		n = len(b)
	}
	return string(b[:n])
}
