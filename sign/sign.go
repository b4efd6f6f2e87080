// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sign wraps ECDSA over secp256k1 for transaction signing and
// verification, per spec.md §4.2 and §4.11.
package sign

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SigHashAll is the one-byte signature hash flag appended to every DER
// signature this node produces, per spec.md §4.2.
const SigHashAll = 0x01

// ErrInvalidSignature describes a signature that fails to verify against
// its attached public key, per the error taxonomy's Crypto kind.
var ErrInvalidSignature = errors.New("sign: signature does not verify")

// Sign produces a DER-encoded ECDSA signature over hash with the
// SigHashAll flag appended, per spec.md §4.11 step 5.
func Sign(priv *secp256k1.PrivateKey, hash [32]byte) []byte {
	sig := ecdsa.Sign(priv, hash[:])
	der := sig.Serialize()
	return append(der, SigHashAll)
}

// Verify checks that sig (a DER signature with the trailing SigHashAll
// byte) was produced by the private key matching pubKey over hash.
func Verify(pubKey *secp256k1.PublicKey, hash [32]byte, sig []byte) error {
	if len(sig) == 0 || sig[len(sig)-1] != SigHashAll {
		return ErrInvalidSignature
	}
	der := sig[:len(sig)-1]

	parsed, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return err
	}
	if !parsed.Verify(hash[:], pubKey) {
		return ErrInvalidSignature
	}
	return nil
}

// ParsePublicKey parses a 33-byte compressed secp256k1 public key.
func ParsePublicKey(compressed []byte) (*secp256k1.PublicKey, error) {
	return secp256k1.ParsePubKey(compressed)
}
