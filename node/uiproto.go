// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/wire"
)

// TxPageLength and BlockPageLength bound how much of a wallet's pending
// transaction list or the chain's block range the UI renders in one
// page, per spec.md §6.4.
const (
	TxPageLength    = 30
	BlockPageLength = 10
)

// WalletErrorKind enumerates the ways a UI request can fail, per
// spec.md §7's Resource error kind surfaced to the UI rather than
// retried automatically.
type WalletErrorKind int

const (
	InsufficientFunds WalletErrorKind = iota
	BadAddress
	BadPrivateKey
	UnknownBlock
	ProofUnavailable
)

func (k WalletErrorKind) String() string {
	switch k {
	case InsufficientFunds:
		return "insufficient funds"
	case BadAddress:
		return "malformed destination address"
	case BadPrivateKey:
		return "malformed private key"
	case UnknownBlock:
		return "unknown block index"
	case ProofUnavailable:
		return "transaction not found in the requested block"
	default:
		return "unknown wallet error"
	}
}

// Request is implemented by every UI -> core command of spec.md §6.4.
type Request interface {
	isRequest()
}

// ChangeWalletRequest re-projects UTxOs against a new Base58Check WIF
// private key and returns the resulting wallet info.
type ChangeWalletRequest struct {
	WIF string
}

// CreateTxRequest builds, signs, and broadcasts a transaction paying
// amount satoshis to a Base58Check destination address, consuming fee
// satoshis in addition.
type CreateTxRequest struct {
	Amount      int64
	Fee         int64
	Destination string
}

// UpdateWalletRequest asks for the current wallet info to be pushed
// back without otherwise changing anything.
type UpdateWalletRequest struct{}

// LastBlockInfoRequest moves the UI's block cursor to the chain tip.
type LastBlockInfoRequest struct{}

// NextBlockInfoRequest advances the UI's block cursor by one, clamped at
// the tip.
type NextBlockInfoRequest struct{}

// PrevBlockInfoRequest retreats the UI's block cursor by one, clamped at
// the genesis block.
type PrevBlockInfoRequest struct{}

// ObtainTxProofRequest asks for a merkle inclusion proof of txid within
// the block at the given chain index.
type ObtainTxProofRequest struct {
	TxID       chainhash.Hash
	BlockIndex int
}

// EndOfProgramRequest requests cooperative shutdown of the node.
type EndOfProgramRequest struct{}

func (ChangeWalletRequest) isRequest()  {}
func (CreateTxRequest) isRequest()      {}
func (UpdateWalletRequest) isRequest()  {}
func (LastBlockInfoRequest) isRequest() {}
func (NextBlockInfoRequest) isRequest() {}
func (PrevBlockInfoRequest) isRequest() {}
func (ObtainTxProofRequest) isRequest() {}
func (EndOfProgramRequest) isRequest()  {}

// Response is implemented by every core -> UI reply of spec.md §6.4.
type Response interface {
	isResponse()
}

// UTxOInfo describes one of the wallet's observed unspent outputs.
type UTxOInfo struct {
	OutPoint wire.OutPoint
	Amount   int64
}

// TxInfo describes one pending transaction's net effect on the wallet's
// balance: positive for a net receive, negative for a net send.
type TxInfo struct {
	Hash   chainhash.Hash
	Amount int64
}

// WalletInfoResponse answers ChangeWalletRequest and UpdateWalletRequest.
type WalletInfoResponse struct {
	AvailableBalance        int64
	ReceivingPendingBalance int64
	SendingPendingBalance   int64
	UTxOs                   []UTxOInfo
	PendingTx               []TxInfo
}

// BlockInfoResponse answers LastBlockInfoRequest, NextBlockInfoRequest,
// and PrevBlockInfoRequest.
type BlockInfoResponse struct {
	BlockNumber int
	Header      *wire.BlockHeader
	TxHashes    []chainhash.Hash
}

// TxSentResponse answers a successful CreateTxRequest.
type TxSentResponse struct {
	TxID chainhash.Hash
}

// ProofStep is one step of a merkle inclusion path, matching the
// sibling/side shape of the original's HashPair: the sibling hash and
// whether it sits to the caller's left.
type ProofStep struct {
	Sibling       chainhash.Hash
	IsLeftSibling bool
}

// ResultOfTxProofResponse answers ObtainTxProofRequest.
type ResultOfTxProofResponse struct {
	Steps []ProofStep
	Root  chainhash.Hash
}

// LoadingScreenUpdateResponse is the IBD progress payload of the UI
// protocol. Nothing in the node sends it; IBD progress is not reported
// to the UI.
type LoadingScreenUpdateResponse struct {
	HeadersSynced int
	HeadersTotal  int
	BlocksSynced  int
	BlocksTotal   int
}

// WalletErrorResponse answers any request that failed in a way the UI
// should surface rather than have retried automatically.
type WalletErrorResponse struct {
	Kind WalletErrorKind
}

// WalletFinishedResponse confirms EndOfProgramRequest has been honored.
type WalletFinishedResponse struct{}

// FinishedInitializingNodeResponse is sent once after New/Run has
// brought up chain state, IBD, and the peer supervisor successfully.
type FinishedInitializingNodeResponse struct{}

// ErrorInitializingNodeResponse is sent instead of
// FinishedInitializingNodeResponse when startup failed.
type ErrorInitializingNodeResponse struct {
	Err error
}

func (WalletInfoResponse) isResponse()              {}
func (BlockInfoResponse) isResponse()                {}
func (TxSentResponse) isResponse()                   {}
func (ResultOfTxProofResponse) isResponse()          {}
func (LoadingScreenUpdateResponse) isResponse()      {}
func (WalletErrorResponse) isResponse()              {}
func (WalletFinishedResponse) isResponse()           {}
func (FinishedInitializingNodeResponse) isResponse() {}
func (ErrorInitializingNodeResponse) isResponse()    {}

// UI is the pair of channels forming the core <-> UI boundary of
// spec.md §6.4.
type UI struct {
	Requests  chan Request
	Responses chan Response
}

// NewUI returns a UI with reasonably buffered channels so a burst of UI
// requests or progress updates doesn't block either side.
func NewUI() UI {
	return UI{
		Requests:  make(chan Request, 8),
		Responses: make(chan Response, 32),
	}
}
