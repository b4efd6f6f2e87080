// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package address

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// compressedPubKeyFlag is appended to a WIF payload to indicate the
// associated public key should be serialized in compressed form; this is
// the only form spec.md's Wallet entity uses (§3).
const compressedPubKeyFlag = 0x01

// ErrMalformedPrivateKey describes an error where a WIF-encoded private
// key cannot be decoded due to being improperly formatted, matching
// dcrutil/wif.go's sentinel of the same name.
var ErrMalformedPrivateKey = errors.New("address: malformed private key")

// EncodeWIF encodes a secp256k1 private key as a Base58Check
// compressed-public-key WIF string.
func EncodeWIF(version byte, priv *secp256k1.PrivateKey) string {
	payload := make([]byte, 0, 33)
	payload = append(payload, priv.Serialize()...)
	payload = append(payload, compressedPubKeyFlag)
	return EncodeCheck(version, payload)
}

// DecodeWIF decodes a Base58Check WIF string into a secp256k1 private
// key. Only the compressed-public-key form is accepted.
func DecodeWIF(encoded string) (*secp256k1.PrivateKey, error) {
	_, payload, err := DecodeCheck(encoded)
	if err != nil {
		return nil, err
	}
	if len(payload) != 33 || payload[32] != compressedPubKeyFlag {
		return nil, ErrMalformedPrivateKey
	}
	return secp256k1.PrivKeyFromBytes(payload[:32]), nil
}
