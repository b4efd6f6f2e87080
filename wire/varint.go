// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

const (
	// varIntMarker8 is the marker byte preceding a 2-byte VarInt.
	varIntMarker8 = 0xfd

	// varIntMarker16 is the marker byte preceding a 4-byte VarInt.
	varIntMarker16 = 0xfe

	// varIntMarker32 is the marker byte preceding an 8-byte VarInt.
	varIntMarker32 = 0xff
)

// VarIntSerializeSize returns the number of bytes it would take to
// serialize val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// WriteVarInt serializes val to w as a variable length integer.
func WriteVarInt(w io.Writer, val uint64) error {
	switch {
	case val < 0xfd:
		return writeElement(w, uint8(val))
	case val <= 0xffff:
		if err := writeElement(w, uint8(varIntMarker8)); err != nil {
			return err
		}
		return writeElement(w, uint16(val))
	case val <= 0xffffffff:
		if err := writeElement(w, uint8(varIntMarker16)); err != nil {
			return err
		}
		return writeElement(w, uint32(val))
	default:
		if err := writeElement(w, uint8(varIntMarker32)); err != nil {
			return err
		}
		return writeElement(w, val)
	}
}

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64. A framing error is returned if the marker byte's continuation
// bytes cannot be read in full.
func ReadVarInt(r io.Reader) (uint64, error) {
	var marker [1]byte
	if _, err := io.ReadFull(r, marker[:]); err != nil {
		return 0, newFramingError("ReadVarInt", "failed to read discriminant", err)
	}

	switch marker[0] {
	case varIntMarker8:
		var v uint16
		if err := readElement(r, &v); err != nil {
			return 0, newFramingError("ReadVarInt", "failed to read uint16", err)
		}
		if uint64(v) < 0xfd {
			return 0, newFramingError("ReadVarInt", "non-canonical VarInt", nil)
		}
		return uint64(v), nil
	case varIntMarker16:
		var v uint32
		if err := readElement(r, &v); err != nil {
			return 0, newFramingError("ReadVarInt", "failed to read uint32", err)
		}
		if uint64(v) <= 0xffff {
			return 0, newFramingError("ReadVarInt", "non-canonical VarInt", nil)
		}
		return uint64(v), nil
	case varIntMarker32:
		var v uint64
		if err := readElement(r, &v); err != nil {
			return 0, newFramingError("ReadVarInt", "failed to read uint64", err)
		}
		if v <= 0xffffffff {
			return 0, newFramingError("ReadVarInt", "non-canonical VarInt", nil)
		}
		return v, nil
	default:
		return uint64(marker[0]), nil
	}
}

// ReadVarBytes reads a variable length byte array, prefixed by a VarInt
// giving its length, and bounded by maxAllowed to avoid over-allocating
// from an adversarial length prefix.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		str := fmt.Sprintf("%s is larger than the max allowed size [count %d, max %d]",
			fieldName, count, maxAllowed)
		return nil, newFramingError("ReadVarBytes", str, nil)
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, newFramingError("ReadVarBytes", "failed to read "+fieldName, err)
	}
	return b, nil
}

// WriteVarBytes serializes a variable length byte array to w, prefixed by
// its VarInt-encoded length.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
