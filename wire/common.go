// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"

	"github.com/EXCCoin/exccspv/chainhash"
)

// ProtocolVersion is the latest protocol version this package supports
// and uses in outbound version messages by default.
const ProtocolVersion uint32 = 70015

// CommandSize is the fixed size of all message commands.
const CommandSize = 12

// MessageHeaderSize is the number of bytes in a message header: 4 byte
// magic, CommandSize byte command, 4 byte payload length, and 4 byte
// checksum.
const MessageHeaderSize = 4 + CommandSize + 4 + 4

// MaxMessagePayload is the maximum bytes a message payload can be.
const MaxMessagePayload = 32 * 1024 * 1024

// Command names, matching the Bitcoin reference implementation exactly.
const (
	CmdVersion    = "version"
	CmdVerAck     = "verack"
	CmdPing       = "ping"
	CmdPong       = "pong"
	CmdGetHeaders = "getheaders"
	CmdHeaders    = "headers"
	CmdInv        = "inv"
	CmdGetData    = "getdata"
	CmdNotFound   = "notfound"
	CmdTx         = "tx"
	CmdBlock      = "block"
)

func binaryFreeList(order binary.ByteOrder) binary.ByteOrder { return order }

var littleEndian = binaryFreeList(binary.LittleEndian)

// writeElement writes the little endian representation of element to w.
func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case uint8:
		return writeBytes(w, []byte{e})
	case uint16:
		var buf [2]byte
		littleEndian.PutUint16(buf[:], e)
		return writeBytes(w, buf[:])
	case uint32:
		var buf [4]byte
		littleEndian.PutUint32(buf[:], e)
		return writeBytes(w, buf[:])
	case int32:
		var buf [4]byte
		littleEndian.PutUint32(buf[:], uint32(e))
		return writeBytes(w, buf[:])
	case uint64:
		var buf [8]byte
		littleEndian.PutUint64(buf[:], e)
		return writeBytes(w, buf[:])
	case int64:
		var buf [8]byte
		littleEndian.PutUint64(buf[:], uint64(e))
		return writeBytes(w, buf[:])
	case bool:
		var b byte
		if e {
			b = 1
		}
		return writeBytes(w, []byte{b})
	case [4]byte:
		return writeBytes(w, e[:])
	case chainhash.Hash:
		return writeBytes(w, e[:])
	case *chainhash.Hash:
		return writeBytes(w, e[:])
	default:
		return binary.Write(w, littleEndian, element)
	}
}

func writeBytes(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}

// readElement reads the little endian representation of element from r.
func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *uint8:
		var buf [1]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = buf[0]
		return nil
	case *uint16:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = littleEndian.Uint16(buf[:])
		return nil
	case *uint32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = littleEndian.Uint32(buf[:])
		return nil
	case *int32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = int32(littleEndian.Uint32(buf[:]))
		return nil
	case *uint64:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = littleEndian.Uint64(buf[:])
		return nil
	case *int64:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = int64(littleEndian.Uint64(buf[:]))
		return nil
	case *bool:
		var buf [1]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = buf[0] != 0
		return nil
	case *[4]byte:
		_, err := io.ReadFull(r, e[:])
		return err
	case *chainhash.Hash:
		_, err := io.ReadFull(r, e[:])
		return err
	default:
		return binary.Read(r, littleEndian, element)
	}
}

// readElements reads multiple elements from r in order, short-circuiting
// on the first error.
func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		if err := readElement(r, element); err != nil {
			return err
		}
	}
	return nil
}

// writeElements writes multiple elements to w in order, short-circuiting
// on the first error.
func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		if err := writeElement(w, element); err != nil {
			return err
		}
	}
	return nil
}
