// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stdscript recognizes and builds the single standard script
// template this node understands: pay-to-public-key-hash, per spec.md
// §4.10's P2PKH recognition rule. Script execution itself, and every
// other standard template, is an explicit Non-goal (§1).
package stdscript

const (
	opDup         = 0x76
	opHash160     = 0xa9
	opData20      = 0x14
	opEqualVerify = 0x88
	opCheckSig    = 0xac
)

// P2PKHScriptLen is the fixed length of a standard version 0
// pay-to-pubkey-hash script.
const P2PKHScriptLen = 25

// ExtractPubKeyHashV0 extracts the 20-byte HASH160 from the passed
// script if it is a standard pay-to-pubkey-hash script. It returns nil
// otherwise.
//
// A pay-to-pubkey-hash script is of the form:
//
//	OP_DUP OP_HASH160 OP_DATA_20 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG
func ExtractPubKeyHashV0(script []byte) []byte {
	if len(script) == P2PKHScriptLen &&
		script[0] == opDup &&
		script[1] == opHash160 &&
		script[2] == opData20 &&
		script[23] == opEqualVerify &&
		script[24] == opCheckSig {

		return script[3:23]
	}
	return nil
}

// IsPubKeyHashScriptV0 reports whether the passed script is a standard
// pay-to-pubkey-hash script.
func IsPubKeyHashScriptV0(script []byte) bool {
	return ExtractPubKeyHashV0(script) != nil
}

// PayToPubKeyHashV0Script builds a standard pay-to-pubkey-hash script
// paying the given 20-byte HASH160.
func PayToPubKeyHashV0Script(pkHash []byte) ([]byte, error) {
	if len(pkHash) != 20 {
		return nil, errInvalidHashLen(len(pkHash))
	}

	script := make([]byte, 0, P2PKHScriptLen)
	script = append(script, opDup, opHash160, opData20)
	script = append(script, pkHash...)
	script = append(script, opEqualVerify, opCheckSig)
	return script, nil
}
