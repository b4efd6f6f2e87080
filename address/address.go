// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package address implements Base58Check encoding/decoding and the
// HASH160 digest used to derive Bitcoin addresses and WIF private keys,
// per spec.md §4.2.
package address

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"hash"

	"github.com/EXCCoin/base58"
	"golang.org/x/crypto/ripemd160"

	"github.com/EXCCoin/exccspv/chainhash"
)

// ErrChecksumMismatch describes an error where Base58Check decoding
// failed due to a bad checksum, per the error taxonomy's Crypto kind.
var ErrChecksumMismatch = errors.New("address: checksum mismatch")

// ErrMalformed describes an error where a Base58Check-encoded payload
// cannot be decoded because it is too short to contain a version byte
// and checksum.
var ErrMalformed = errors.New("address: malformed base58check payload")

// checksumLen is the number of checksum bytes appended to a Base58Check
// payload.
const checksumLen = 4

func calcHash(buf []byte, hasher hash.Hash) []byte {
	hasher.Write(buf)
	return hasher.Sum(nil)
}

// Hash160 calculates ripemd160(sha256(b)), the HASH160 used to key a
// P2PKH output, per spec.md §4.2. This is a single round of SHA-256
// unlike the double round used for the Base58Check checksum below.
func Hash160(buf []byte) []byte {
	single := sha256.Sum256(buf)
	return calcHash(single[:], ripemd160.New())
}

// checksum returns the first 4 bytes of H(payload), where payload
// already includes the version byte, per spec.md §4.2.
func checksum(payload []byte) [checksumLen]byte {
	var cksum [checksumLen]byte
	h := chainhash.HashB(payload)
	copy(cksum[:], h[:checksumLen])
	return cksum
}

// EncodeCheck prepends version to payload, appends a 4-byte double-SHA256
// checksum, and Base58-encodes the result.
func EncodeCheck(version byte, payload []byte) string {
	b := make([]byte, 0, 1+len(payload)+checksumLen)
	b = append(b, version)
	b = append(b, payload...)
	cksum := checksum(b)
	b = append(b, cksum[:]...)
	return base58.Encode(b)
}

// DecodeCheck decodes a Base58Check string, returning the version byte
// and payload. It returns ErrChecksumMismatch if the checksum does not
// match, and ErrMalformed if the decoded bytes are too short to contain
// a version byte and checksum.
func DecodeCheck(encoded string) (version byte, payload []byte, err error) {
	decoded := base58.Decode(encoded)
	if len(decoded) < 1+checksumLen {
		return 0, nil, ErrMalformed
	}

	body := decoded[:len(decoded)-checksumLen]
	want := decoded[len(decoded)-checksumLen:]
	got := checksum(body)
	if !bytes.Equal(got[:], want) {
		return 0, nil, ErrChecksumMismatch
	}

	return body[0], body[1:], nil
}

// EncodeP2PKH encodes a 20-byte HASH160 as a Base58Check P2PKH address
// using the given network version byte, matching the 25-byte address
// layout of spec.md §4.11 (version + HASH160 + checksum).
func EncodeP2PKH(version byte, pkHash []byte) (string, error) {
	if len(pkHash) != 20 {
		return "", errors.New("address: pubkey hash must be 20 bytes")
	}
	return EncodeCheck(version, pkHash), nil
}

// DecodeP2PKH decodes a Base58Check P2PKH address, returning its
// 20-byte HASH160. The version byte is returned too so callers can
// confirm it matches the expected network.
func DecodeP2PKH(encoded string) (version byte, pkHash []byte, err error) {
	version, payload, err := DecodeCheck(encoded)
	if err != nil {
		return 0, nil, err
	}
	if len(payload) != 20 {
		return 0, nil, errors.New("address: decoded payload is not a 20-byte hash")
	}
	return version, payload, nil
}
