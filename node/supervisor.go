// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node implements the top-level supervisor of spec.md §4.13
// (C13) and the core <-> UI boundary of §6.4: it owns chain state,
// persistence, the wallet, and the set of connected peers, runs IBD to
// bring the chain current, then accepts inbound peers and services UI
// requests until asked to shut down.
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EXCCoin/exccspv/address"
	"github.com/EXCCoin/exccspv/addrseed"
	"github.com/EXCCoin/exccspv/blockdl"
	"github.com/EXCCoin/exccspv/chaincfg"
	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/chainstate"
	"github.com/EXCCoin/exccspv/dispatch"
	"github.com/EXCCoin/exccspv/ibd"
	"github.com/EXCCoin/exccspv/internal/cfg"
	"github.com/EXCCoin/exccspv/internal/slogutil"
	"github.com/EXCCoin/exccspv/merkle"
	"github.com/EXCCoin/exccspv/peer"
	"github.com/EXCCoin/exccspv/stdscript"
	"github.com/EXCCoin/exccspv/store"
	"github.com/EXCCoin/exccspv/utxo"
	"github.com/EXCCoin/exccspv/wallet"
	"github.com/EXCCoin/exccspv/wire"
)

var log = slogutil.Logger(slogutil.TagNode)

// acceptPollInterval bounds how long the inbound accept loop blocks
// before re-checking the shutdown flag, the Go analogue of the
// original's nonblocking-listener-plus-sleep poll.
const acceptPollInterval = 500 * time.Millisecond

// ErrNoPeers means peer discovery and handshakes produced zero usable
// connections, per the original's "empty tcp_streams is a startup
// failure" rule.
var ErrNoPeers = errors.New("node: no peers connected")

// Node bundles every shared subsystem of spec.md §3/§9: chain state,
// persistence, the UTxO tracker and active wallet, the block downloader
// pool, and the set of live peer connections.
type Node struct {
	cfg    *cfg.Config
	params *chaincfg.Params

	state   *chainstate.State
	store   *store.Store
	tracker *utxo.Tracker

	walletMu sync.RWMutex
	wallet   *wallet.Wallet

	cursorMu sync.Mutex
	cursor   int

	pool     *blockdl.Pool
	listener *net.TCPListener

	peersMu sync.Mutex
	peers   map[int]*peer.Peer
	nextID  int

	done atomic.Bool

	UI UI
}

// New opens persistence, replays it into a fresh chain state, and binds
// the inbound listener, per spec.md §4.13's startup sequence. It does
// not yet dial any peer or run IBD; call Run for that.
func New(c *cfg.Config) (*Node, error) {
	params := chaincfg.TestNet3Params()

	st, err := store.Open(c.AbsHeadersPath(), c.AbsBlocksPath())
	if err != nil {
		return nil, err
	}

	headers, err := st.LoadHeaders()
	if err != nil {
		st.Close()
		return nil, err
	}
	blocks, err := st.LoadBlocks()
	if err != nil {
		st.Close()
		return nil, err
	}

	genesis := params.GenesisBlock
	state := chainstate.New(&genesis)
	for _, h := range headers {
		if _, err := state.AppendHeader(h); err != nil {
			st.Close()
			return nil, fmt.Errorf("node: replaying persisted header: %w", err)
		}
	}
	for _, b := range blocks {
		if _, err := state.InsertBlock(b); err != nil {
			st.Close()
			return nil, fmt.Errorf("node: replaying persisted block: %w", err)
		}
	}

	tracker := utxo.New(nil)
	tracker.Rebuild(state.AllBlocksInOrder())

	tcpAddr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf(":%d", c.LocalPort))
	if err != nil {
		st.Close()
		return nil, err
	}
	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &Node{
		cfg:      c,
		params:   params,
		state:    state,
		store:    st,
		tracker:  tracker,
		pool:     blockdl.NewPool(state, 64),
		listener: listener,
		peers:    make(map[int]*peer.Peer),
		UI:       NewUI(),
	}, nil
}

// Run connects to every DNS-discovered peer, drives IBD to the chain
// tip, then spawns the inbound accept loop and services UI requests
// until EndOfProgramRequest or an unrecoverable startup error. It
// returns once shutdown is complete.
func (n *Node) Run() error {
	peers, err := n.connectPeers()
	if err != nil {
		n.UI.Responses <- ErrorInitializingNodeResponse{Err: err}
		return err
	}

	for i, p := range peers {
		n.pool.Go(i, p)
	}

	orch := ibd.New(peers, n.state, n.pool, n.cfg.BeginTime)
	if err := orch.Run(); err != nil {
		n.UI.Responses <- ErrorInitializingNodeResponse{Err: err}
		return err
	}

	if err := n.persistNewChainState(); err != nil {
		log.Warnf("failed to persist post-IBD chain state: %v", err)
	}
	n.tracker.RefreshFrom(n.state)

	for i, p := range peers {
		n.spawnPeerWithID(i, p)
	}
	n.nextID = len(peers)

	go n.acceptLoop()

	n.UI.Responses <- FinishedInitializingNodeResponse{}
	n.serveUI()
	return nil
}

// connectPeers resolves every configured DNS seed and performs an
// outbound handshake with each resulting address, per spec.md §4.13 and
// the original's "reverse the address list, fastest nodes first" note.
// Per-address handshake failures are logged and skipped; only a wholly
// empty result is fatal.
func (n *Node) connectPeers() ([]*peer.Peer, error) {
	var addrs []string
	for _, seed := range n.params.DNSSeeds {
		resolved, err := addrseed.Lookup(context.Background(), nil, seed, n.cfg.DNSPort, n.cfg.IPv6Enabled)
		if err != nil {
			log.Warnf("dns lookup of %s failed: %v", seed, err)
			continue
		}
		addrs = append(addrs, resolved...)
	}

	for i, j := 0, len(addrs)-1; i < j; i, j = i+1, j-1 {
		addrs[i], addrs[j] = addrs[j], addrs[i]
	}

	lastBlock := int32(n.state.HeaderCount() - 1)
	var peers []*peer.Peer
	for _, addr := range addrs {
		p, err := peer.Dial(addr, lastBlock)
		if err != nil {
			log.Debugf("handshake with %s failed: %v", addr, err)
			continue
		}
		peers = append(peers, p)
	}

	log.Infof("connected to %d peers", len(peers))
	if len(peers) == 0 {
		return nil, ErrNoPeers
	}
	return peers, nil
}

// persistNewChainState flushes every header beyond the store's
// headers-in-disk cursor, and the stored block of each such header, per
// spec.md §4.12.
func (n *Node) persistNewChainState() error {
	inDisk := n.store.HeadersInDisk()
	count := n.state.HeaderCount()
	headers := make([]*wire.BlockHeader, 0, count)
	for i := 0; i < count; i++ {
		h, _ := n.state.HeaderAt(i)
		headers = append(headers, h)
	}
	if err := n.store.AppendHeaders(headers); err != nil {
		return err
	}
	for i := inDisk; i < len(headers); i++ {
		b, ok := n.state.Block(headers[i].BlockHash())
		if !ok {
			continue
		}
		if err := n.store.AppendBlock(b); err != nil {
			return err
		}
	}
	return nil
}

// spawnPeerWithID registers a peer under an explicit id and starts its
// steady-state dispatcher, used for the peers IBD already handshaked.
func (n *Node) spawnPeerWithID(id int, p *peer.Peer) {
	n.peersMu.Lock()
	n.peers[id] = p
	n.peersMu.Unlock()
	n.runDispatcher(id, p)
}

// spawnPeer registers a newly accepted peer under a fresh id and starts
// its steady-state dispatcher.
func (n *Node) spawnPeer(p *peer.Peer) {
	n.peersMu.Lock()
	id := n.nextID
	n.nextID++
	n.peers[id] = p
	n.peersMu.Unlock()
	n.runDispatcher(id, p)
}

// runDispatcher runs one peer's dispatch loop in its own goroutine,
// reaping the peer from the live set once the loop exits, per spec.md
// §5's "each peer's byte-stream is owned by exactly one task" rule and
// §4.13's "reaps peer tasks that have exited" responsibility. No
// automatic reseeding happens if the peer count drops, matching §4.13's
// explicit "no automatic reseeding required".
func (n *Node) runDispatcher(id int, p *peer.Peer) {
	go func() {
		disp := dispatch.New(p, n.state, &n.done)
		if err := disp.Run(); err != nil {
			log.Debugf("peer %s dispatcher exited: %v", p.Addr, err)
		}
		p.Close()
		n.peersMu.Lock()
		delete(n.peers, id)
		n.peersMu.Unlock()
	}()
}

// acceptLoop accepts inbound connections, performs the inbound
// handshake, and spawns a peer task on success, per spec.md §4.13. The
// listener's own deadline stands in for the original's nonblocking
// accept-plus-sleep poll, checking the shutdown flag between attempts.
func (n *Node) acceptLoop() {
	for {
		if n.done.Load() {
			return
		}
		n.listener.SetDeadline(time.Now().Add(acceptPollInterval))
		conn, err := n.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if n.done.Load() {
				return
			}
			log.Warnf("accept failed: %v", err)
			continue
		}

		lastBlock := int32(n.state.HeaderCount() - 1)
		p, err := peer.Accept(conn, lastBlock)
		if err != nil {
			log.Debugf("inbound handshake failed: %v", err)
			continue
		}
		n.spawnPeer(p)
	}
}

// BroadcastTx sends tx to every currently connected peer, satisfying
// wallet.Broadcaster. A peer write failure is logged and does not count
// toward the accepted total, per spec.md §4.11's "successful" defined
// as at least one peer accepting the transaction.
func (n *Node) BroadcastTx(tx *wire.MsgTx) (int, error) {
	n.peersMu.Lock()
	peers := make([]*peer.Peer, 0, len(n.peers))
	for _, p := range n.peers {
		peers = append(peers, p)
	}
	n.peersMu.Unlock()

	accepted := 0
	for _, p := range peers {
		p.Conn.SetDeadline(time.Now().Add(peer.Timeout))
		if err := wire.WriteMessage(p.Conn, tx, wire.ProtocolVersion); err != nil {
			log.Warnf("broadcast to %s failed: %v", p.Addr, err)
			continue
		}
		accepted++
	}
	n.state.InsertPendingTx(tx)
	return accepted, nil
}

// serveUI services UI.Requests until EndOfProgramRequest, per spec.md
// §6.4.
func (n *Node) serveUI() {
	for req := range n.UI.Requests {
		if n.handleUIRequest(req) {
			return
		}
	}
}

// handleUIRequest dispatches one request to its handler and reports
// whether shutdown was requested.
func (n *Node) handleUIRequest(req Request) (shutdown bool) {
	switch r := req.(type) {
	case ChangeWalletRequest:
		n.handleChangeWallet(r)
	case CreateTxRequest:
		n.handleCreateTx(r)
	case UpdateWalletRequest:
		n.handleUpdateWallet()
	case LastBlockInfoRequest:
		n.handleLastBlockInfo()
	case NextBlockInfoRequest:
		n.handleMoveBlockCursor(1)
	case PrevBlockInfoRequest:
		n.handleMoveBlockCursor(-1)
	case ObtainTxProofRequest:
		n.handleObtainTxProof(r)
	case EndOfProgramRequest:
		n.handleEndOfProgram()
		return true
	default:
		log.Warnf("ignoring unrecognized UI request %T", req)
	}
	return false
}

func (n *Node) handleChangeWallet(r ChangeWalletRequest) {
	w, err := wallet.FromWIF(r.WIF)
	if err != nil {
		n.UI.Responses <- WalletErrorResponse{Kind: BadPrivateKey}
		return
	}

	n.walletMu.Lock()
	n.wallet = w
	n.walletMu.Unlock()

	n.tracker.SetWallet(w)
	n.tracker.Rebuild(n.state.AllBlocksInOrder())

	n.UI.Responses <- n.walletInfo()
}

func (n *Node) handleCreateTx(r CreateTxRequest) {
	n.walletMu.RLock()
	w := n.wallet
	n.walletMu.RUnlock()
	if w == nil {
		n.UI.Responses <- WalletErrorResponse{Kind: BadPrivateKey}
		return
	}

	_, pkHash, err := address.DecodeP2PKH(r.Destination)
	if err != nil {
		n.UI.Responses <- WalletErrorResponse{Kind: BadAddress}
		return
	}
	script, err := stdscript.PayToPubKeyHashV0Script(pkHash)
	if err != nil {
		n.UI.Responses <- WalletErrorResponse{Kind: BadAddress}
		return
	}

	tx, err := w.CreateTransaction(n, r.Amount, r.Fee, script)
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			n.UI.Responses <- WalletErrorResponse{Kind: InsufficientFunds}
			return
		}
		n.UI.Responses <- ErrorInitializingNodeResponse{Err: err}
		return
	}

	n.UI.Responses <- TxSentResponse{TxID: tx.TxHash()}
}

func (n *Node) handleUpdateWallet() {
	n.UI.Responses <- n.walletInfo()
}

func (n *Node) walletInfo() Response {
	n.walletMu.RLock()
	w := n.wallet
	n.walletMu.RUnlock()
	if w == nil {
		return WalletErrorResponse{Kind: BadPrivateKey}
	}

	entries := w.UTxOs()
	utxos := make([]UTxOInfo, len(entries))
	for i, e := range entries {
		utxos[i] = UTxOInfo{OutPoint: e.OutPoint, Amount: e.Value}
	}

	pending := n.state.PendingTxs()
	projection := utxo.PendingProjection(pending, n.tracker, w.PubKeyHash())
	var receiving, sending int64
	txInfos := make([]TxInfo, 0, len(pending))
	for _, tx := range pending {
		effect := projection[tx.TxHash()]
		if effect > 0 {
			receiving += effect
		} else {
			sending += -effect
		}
		txInfos = append(txInfos, TxInfo{Hash: tx.TxHash(), Amount: effect})
	}
	if len(txInfos) > TxPageLength {
		txInfos = txInfos[:TxPageLength]
	}

	return WalletInfoResponse{
		AvailableBalance:        w.Balance(),
		ReceivingPendingBalance: receiving,
		SendingPendingBalance:   sending,
		UTxOs:                   utxos,
		PendingTx:               txInfos,
	}
}

func (n *Node) handleLastBlockInfo() {
	n.cursorMu.Lock()
	n.cursor = n.state.HeaderCount() - 1
	cursor := n.cursor
	n.cursorMu.Unlock()
	n.UI.Responses <- n.blockInfo(cursor)
}

func (n *Node) handleMoveBlockCursor(delta int) {
	n.cursorMu.Lock()
	next := n.cursor + delta
	if next < 0 {
		next = 0
	}
	if max := n.state.HeaderCount() - 1; next > max {
		next = max
	}
	n.cursor = next
	n.cursorMu.Unlock()
	n.UI.Responses <- n.blockInfo(next)
}

func (n *Node) blockInfo(index int) Response {
	header, ok := n.state.HeaderAt(index)
	if !ok {
		return WalletErrorResponse{Kind: UnknownBlock}
	}

	var txHashes []chainhash.Hash
	if b, ok := n.state.Block(header.BlockHash()); ok {
		txHashes = b.TxHashes()
	}

	return BlockInfoResponse{BlockNumber: index, Header: header, TxHashes: txHashes}
}

func (n *Node) handleObtainTxProof(r ObtainTxProofRequest) {
	header, ok := n.state.HeaderAt(r.BlockIndex)
	if !ok {
		n.UI.Responses <- WalletErrorResponse{Kind: UnknownBlock}
		return
	}
	block, ok := n.state.Block(header.BlockHash())
	if !ok {
		n.UI.Responses <- WalletErrorResponse{Kind: UnknownBlock}
		return
	}

	proof, err := merkle.BuildProof(block.TxHashes(), r.TxID)
	if err != nil {
		n.UI.Responses <- WalletErrorResponse{Kind: ProofUnavailable}
		return
	}

	steps := make([]ProofStep, len(proof.Steps))
	for i, s := range proof.Steps {
		steps[i] = ProofStep{Sibling: s.Sibling, IsLeftSibling: !s.RunningIsLeft}
	}
	n.UI.Responses <- ResultOfTxProofResponse{Steps: steps, Root: proof.Root}
}

func (n *Node) handleEndOfProgram() {
	n.done.Store(true)
	n.listener.Close()
	if err := n.persistNewChainState(); err != nil {
		log.Warnf("failed to persist chain state at shutdown: %v", err)
	}
	if err := n.store.Close(); err != nil {
		log.Warnf("failed to close persistence files at shutdown: %v", err)
	}
	n.UI.Responses <- WalletFinishedResponse{}
}
