// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pow implements proof-of-work target decompression and header
// validation, per spec.md §4.4 (C4).
package pow

import (
	"math/big"

	"github.com/EXCCoin/exccspv/wire"
)

// CompactToBig converts a compact representation of a whole number N to
// an unsigned 256-bit integer. The representation is similar to IEEE754
// floating point numbers: one byte exponent, three byte mantissa
// ("significand"), as specified by spec.md §4.4.
//
// Bit 23 of the compact value (0x00800000, the top bit of the
// significand) is a sign bit in the reference protocol, but since every
// target encountered here is positive, that bit is simply masked off.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}
	return bn
}

// BigToCompact converts a whole number N to a compact representation
// using an unsigned 32-bit integer, the inverse of CompactToBig.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	exponent := uint(len(n.Bytes()))
	var mantissa uint32
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	return uint32(exponent<<24) | mantissa
}

// CalcTarget decomposes a header's compact nBits field into the 32-byte
// big-endian target threshold described in spec.md §4.4.
func CalcTarget(bits uint32) *big.Int {
	return CompactToBig(bits)
}

// HashToBig converts the given wire-order (little-endian) hash into a
// big.Int usable for PoW comparisons by reversing its byte order, since
// the reference protocol treats a hash's numerical value as big-endian.
func HashToBig(hash [32]byte) *big.Int {
	var reversed [32]byte
	for i := range hash {
		reversed[i] = hash[len(hash)-1-i]
	}
	return new(big.Int).SetBytes(reversed[:])
}

// ValidatePoW reports whether header's double-SHA-256, interpreted as a
// big-endian integer, is less than or equal to the target derived from
// its own Bits field, i.e. the invariant of spec.md §3's BlockHeader
// entity and §4.4's validation rule.
func ValidatePoW(header *wire.BlockHeader) bool {
	target := CalcTarget(header.Bits)
	if target.Sign() <= 0 {
		return false
	}

	hash := header.BlockHash()
	hashNum := HashToBig(hash)
	return hashNum.Cmp(target) <= 0
}
