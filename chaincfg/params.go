// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network parameters for the Bitcoin testnet
// the node speaks, in the style of exccd's chaincfg package.
package chaincfg

import (
	"math/big"

	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/wire"
)

// Params defines a Bitcoin network by its genesis block, seed hosts, and
// consensus constants relevant to an SPV node.
type Params struct {
	// Net is the magic number identifying this network.
	Net [4]byte

	// DefaultPort is the default peer-to-peer port for the network.
	DefaultPort string

	// DNSSeeds is the list of DNS seed hosts C5 resolves for peer
	// discovery.
	DNSSeeds []string

	// GenesisBlock defines the first block of the chain.
	GenesisBlock wire.BlockHeader

	// GenesisHash is the hash of the genesis block, used by C8 as the
	// locator when no headers are yet known.
	GenesisHash chainhash.Hash

	// PowLimit defines the highest allowed proof of work value for a
	// block as a uint256.
	PowLimit *big.Int

	// PowLimitBits is the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// AddressVersion is the one-byte Base58Check version prefix for
	// P2PKH addresses on this network.
	AddressVersion byte

	// PrivateKeyVersion is the one-byte Base58Check version prefix for
	// WIF-encoded private keys on this network.
	PrivateKeyVersion byte
}

// TestNet3Params returns the network parameters for the Bitcoin test
// network (the third public iteration of testnet), per spec.md §6.1.
func TestNet3Params() *Params {
	genesis := wire.BlockHeader{
		Version: 1,
		MerkleRoot: chainhash.Hash{
			0x3b, 0xa3, 0xed, 0xfd, 0x7a, 0x7b, 0x12, 0xb2,
			0x7a, 0xc7, 0x2c, 0x3e, 0x67, 0x76, 0x8f, 0x61,
			0x7f, 0xc8, 0x1b, 0xc3, 0x88, 0x8a, 0x51, 0x32,
			0x3a, 0x9f, 0xb8, 0xaa, 0x4b, 0x1e, 0x5e, 0x4a,
		},
		Timestamp: 1296688602,
		Bits:      0x1d00ffff,
		Nonce:     414098458,
	}
	genesisHash := genesis.BlockHash()

	// powLimit is the highest proof of work value a testnet3 block can
	// have, i.e. 2^224 - 1.
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 224), big.NewInt(1))

	return &Params{
		Net:         wire.TestNet,
		DefaultPort: "18333",
		DNSSeeds: []string{
			"testnet-seed.bitcoin.jonasschnelli.ch",
			"seed.tbtc.petertodd.org",
			"seed.testnet.bitcoin.sprovoost.nl",
		},
		GenesisBlock:      genesis,
		GenesisHash:       genesisHash,
		PowLimit:          powLimit,
		PowLimitBits:      0x1d00ffff,
		AddressVersion:    0x6f,
		PrivateKeyVersion: 0xef,
	}
}
