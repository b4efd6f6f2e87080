// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/EXCCoin/exccspv/address"
	"github.com/EXCCoin/exccspv/chaincfg"
	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/chainstate"
	"github.com/EXCCoin/exccspv/internal/cfg"
	"github.com/EXCCoin/exccspv/merkle"
	"github.com/EXCCoin/exccspv/peer"
	"github.com/EXCCoin/exccspv/pow"
	"github.com/EXCCoin/exccspv/stdscript"
	"github.com/EXCCoin/exccspv/store"
	"github.com/EXCCoin/exccspv/utxo"
	"github.com/EXCCoin/exccspv/wallet"
	"github.com/EXCCoin/exccspv/wire"
)

const easyBits = 0x207fffff

func genesisHeader() wire.BlockHeader {
	return wire.BlockHeader{Version: 1, Bits: easyBits}
}

// mineBlock mines a block extending prev whose sole output pays payTo
// (a 25-byte script, or nil for an empty coinbase-only placeholder).
func mineBlock(t *testing.T, prev wire.BlockHeader, payTo []byte, value int64) *wire.MsgBlock {
	t.Helper()

	tx := &wire.MsgTx{Version: 70015}
	if payTo != nil {
		tx.AddTxOut(wire.NewTxOut(value, payTo))
	}
	txs := []*wire.MsgTx{tx}
	root := merkle.Root(txHashes(txs))

	h := &wire.BlockHeader{Version: 1, PrevBlock: prev.BlockHash(), MerkleRoot: root, Bits: easyBits}
	target := pow.CalcTarget(easyBits)
	for nonce := uint32(0); nonce < 1_000_000; nonce++ {
		h.Nonce = nonce
		if pow.HashToBig(h.BlockHash()).Cmp(target) <= 0 {
			return &wire.MsgBlock{Header: *h, Transactions: txs}
		}
	}
	t.Fatal("failed to mine test block")
	return nil
}

func txHashes(txs []*wire.MsgTx) []chainhash.Hash {
	out := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		out[i] = tx.TxHash()
	}
	return out
}

// newTestNode builds a Node with real persistence (backed by a scratch
// directory) and chain state, but no listener or live peers, enough to
// exercise the UI request handlers in isolation.
func newTestNode(t *testing.T) *Node {
	t.Helper()

	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "h.headers"), filepath.Join(dir, "b.blocks"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	genesis := genesisHeader()
	state := chainstate.New(&genesis)
	tracker := utxo.New(nil)

	return &Node{
		cfg:     &cfg.Config{},
		params:  chaincfg.TestNet3Params(),
		state:   state,
		store:   st,
		tracker: tracker,
		peers:   make(map[int]*peer.Peer),
		UI:      NewUI(),
	}
}

func newTestWallet(t *testing.T) (*wallet.Wallet, string) {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	w := wallet.New(priv)
	wif := address.EncodeWIF(0xef, priv)
	return w, wif
}

// TestHandleChangeWalletProjectsExistingUTxOs pins ChangeWallet's
// re-projection step of spec.md §6.4: switching wallets rebuilds the
// UTxO projection from the full chain under the new key.
func TestHandleChangeWalletProjectsExistingUTxOs(t *testing.T) {
	n := newTestNode(t)
	w, wif := newTestWallet(t)

	script, err := stdscript.PayToPubKeyHashV0Script(w.PubKeyHash())
	if err != nil {
		t.Fatalf("PayToPubKeyHashV0Script: %v", err)
	}

	genesis := genesisHeader()
	blk := mineBlock(t, genesis, script, 5000)
	if _, err := n.state.AppendHeader(&blk.Header); err != nil {
		t.Fatalf("AppendHeader: %v", err)
	}
	if _, err := n.state.InsertBlock(blk); err != nil {
		t.Fatalf("InsertBlock: %v", err)
	}

	n.handleChangeWallet(ChangeWalletRequest{WIF: wif})

	resp := <-n.UI.Responses
	info, ok := resp.(WalletInfoResponse)
	if !ok {
		t.Fatalf("response = %T, want WalletInfoResponse", resp)
	}
	if info.AvailableBalance != 5000 {
		t.Fatalf("AvailableBalance = %d, want 5000", info.AvailableBalance)
	}
	if len(info.UTxOs) != 1 || info.UTxOs[0].Amount != 5000 {
		t.Fatalf("UTxOs = %+v, want one entry of 5000", info.UTxOs)
	}
}

// TestHandleChangeWalletBadWIFReturnsError pins the BadPrivateKey error
// path.
func TestHandleChangeWalletBadWIFReturnsError(t *testing.T) {
	n := newTestNode(t)
	n.handleChangeWallet(ChangeWalletRequest{WIF: "not a wif"})

	resp := <-n.UI.Responses
	werr, ok := resp.(WalletErrorResponse)
	if !ok || werr.Kind != BadPrivateKey {
		t.Fatalf("response = %+v, want WalletErrorResponse{BadPrivateKey}", resp)
	}
}

// TestBlockCursorNavigation pins the Last/Next/Prev cursor-clamping
// behavior of spec.md §6.4.
func TestBlockCursorNavigation(t *testing.T) {
	n := newTestNode(t)
	genesis := genesisHeader()
	blk1 := mineBlock(t, genesis, nil, 0)
	if _, err := n.state.AppendHeader(&blk1.Header); err != nil {
		t.Fatalf("AppendHeader: %v", err)
	}

	n.handleLastBlockInfo()
	resp := (<-n.UI.Responses).(BlockInfoResponse)
	if resp.BlockNumber != 1 {
		t.Fatalf("LastBlockInfo BlockNumber = %d, want 1", resp.BlockNumber)
	}

	n.handleMoveBlockCursor(1)
	resp = (<-n.UI.Responses).(BlockInfoResponse)
	if resp.BlockNumber != 1 {
		t.Fatalf("NextBlockInfo past tip should clamp at 1, got %d", resp.BlockNumber)
	}

	n.handleMoveBlockCursor(-1)
	resp = (<-n.UI.Responses).(BlockInfoResponse)
	if resp.BlockNumber != 0 {
		t.Fatalf("PrevBlockInfo BlockNumber = %d, want 0", resp.BlockNumber)
	}

	n.handleMoveBlockCursor(-1)
	resp = (<-n.UI.Responses).(BlockInfoResponse)
	if resp.BlockNumber != 0 {
		t.Fatalf("PrevBlockInfo below genesis should clamp at 0, got %d", resp.BlockNumber)
	}
}

// TestHandleObtainTxProofRoundTrips pins the merkle-proof UI path: a
// proof built for a known transaction must verify against the block's
// recomputed root.
func TestHandleObtainTxProofRoundTrips(t *testing.T) {
	n := newTestNode(t)
	genesis := genesisHeader()
	blk := mineBlock(t, genesis, nil, 0)
	if _, err := n.state.AppendHeader(&blk.Header); err != nil {
		t.Fatalf("AppendHeader: %v", err)
	}
	if _, err := n.state.InsertBlock(blk); err != nil {
		t.Fatalf("InsertBlock: %v", err)
	}

	txid := blk.Transactions[0].TxHash()
	n.handleObtainTxProof(ObtainTxProofRequest{TxID: txid, BlockIndex: 1})

	resp := (<-n.UI.Responses).(ResultOfTxProofResponse)
	if resp.Root != blk.Header.MerkleRoot {
		t.Fatalf("proof root = %v, want block merkle root %v", resp.Root, blk.Header.MerkleRoot)
	}
}

// TestHandleObtainTxProofUnknownBlock pins the UnknownBlock error path
// for a block index with no stored block.
func TestHandleObtainTxProofUnknownBlock(t *testing.T) {
	n := newTestNode(t)
	n.handleObtainTxProof(ObtainTxProofRequest{TxID: chainhash.Hash{}, BlockIndex: 9})

	resp := <-n.UI.Responses
	werr, ok := resp.(WalletErrorResponse)
	if !ok || werr.Kind != UnknownBlock {
		t.Fatalf("response = %+v, want WalletErrorResponse{UnknownBlock}", resp)
	}
}

// TestHandleEndOfProgramSetsDoneAndRepliesFinished pins the shutdown
// path of spec.md §5: the shared flag is set so peer dispatch loops
// observe it between messages, and the listener and persistence files
// are closed before WalletFinishedResponse is sent.
func TestHandleEndOfProgramSetsDoneAndRepliesFinished(t *testing.T) {
	n := newTestNode(t)

	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	n.listener = listener

	if n.done.Load() {
		t.Fatal("done flag should start false")
	}

	n.handleEndOfProgram()

	if !n.done.Load() {
		t.Fatal("expected done flag to be set")
	}
	resp := <-n.UI.Responses
	if _, ok := resp.(WalletFinishedResponse); !ok {
		t.Fatalf("response = %T, want WalletFinishedResponse", resp)
	}
}
