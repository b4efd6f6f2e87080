// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ibd drives the Initial Block Download of spec.md §4.8 (C8):
// walk the header chain forward from the last known header using
// getheaders against a cycling set of peers, enqueue block hashes newer
// than begin_time into bundles for the C7 downloader, and retry with an
// escalating per-peer timeout when a peer stalls.
package ibd

import (
	"errors"
	"time"

	"github.com/EXCCoin/exccspv/blockdl"
	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/chainstate"
	"github.com/EXCCoin/exccspv/dispatch"
	"github.com/EXCCoin/exccspv/internal/slogutil"
	"github.com/EXCCoin/exccspv/peer"
	"github.com/EXCCoin/exccspv/wire"
)

var log = slogutil.Logger(slogutil.TagIBD)

// initialPeerTimeout and maxPeerTimeout bound the escalating retry
// policy of spec.md §4.8: start at 1s, add 1s after every peer in the
// cycle has failed, give up once the budget would exceed 10s.
const (
	initialPeerTimeout = 1 * time.Second
	maxPeerTimeout     = 10 * time.Second
	timeoutStep        = 1 * time.Second
)

// ErrIBDFailed means every peer failed at the maximum retry budget.
var ErrIBDFailed = errors.New("ibd: every peer exhausted the retry budget")

// Orchestrator drives IBD against a fixed set of peers sharing a block
// downloader pool.
type Orchestrator struct {
	Peers     []*peer.Peer
	State     *chainstate.State
	Pool      *blockdl.Pool
	BeginTime int64
}

// New returns an Orchestrator ready to run, per spec.md §4.8.
func New(peers []*peer.Peer, state *chainstate.State, pool *blockdl.Pool, beginTime int64) *Orchestrator {
	return &Orchestrator{Peers: peers, State: state, Pool: pool, BeginTime: beginTime}
}

// Run executes the header-walk/block-bundle loop until a peer reports
// no new headers past the current tip, then drains the downloader pool.
func (o *Orchestrator) Run() error {
	budget := initialPeerTimeout
	peerIdx := 0
	var bundle blockdl.Bundle

	for {
		last := o.State.LastHeaderHash()
		p := o.Peers[peerIdx]

		headers, err := o.requestHeaders(p, last, budget)
		if err != nil {
			log.Warnf("peer %d timed out at %s budget during IBD: %v", peerIdx, budget, err)
			peerIdx++
			if peerIdx >= len(o.Peers) {
				peerIdx = 0
				budget += timeoutStep
				if budget > maxPeerTimeout {
					return ErrIBDFailed
				}
				log.Infof("raising IBD peer timeout to %s", budget)
			}
			continue
		}

		if len(headers) == 0 {
			break
		}

		for _, h := range headers {
			appended, aerr := o.State.AppendHeader(h)
			if aerr != nil {
				log.Warnf("rejecting header during IBD: %v", aerr)
				continue
			}
			if !appended {
				continue
			}
			if int64(h.Timestamp) <= o.BeginTime {
				continue
			}
			bundle = append(bundle, h.BlockHash())
			if len(bundle) == blockdl.MaxBundleSize {
				o.Pool.Submit(bundle)
				bundle = nil
			}
		}
	}

	if len(bundle) > 0 {
		o.Pool.Submit(bundle)
	}

	o.Pool.Shutdown(len(o.Peers))
	o.Pool.Wait()
	return nil
}

// requestHeaders sends one getheaders with locator [last] and waits up
// to timeout for the reply, dispatching any non-headers traffic that
// arrives meanwhile through the normal steady-state table (§4.8,
// §4.6). An empty Headers slice in the reply is a legitimate "caught
// up" signal, not an error.
func (o *Orchestrator) requestHeaders(p *peer.Peer, last chainhash.Hash, timeout time.Duration) ([]*wire.BlockHeader, error) {
	req := wire.NewMsgGetHeaders([]chainhash.Hash{last}, chainhash.Hash{})
	if err := wire.WriteMessage(p.Conn, req, wire.ProtocolVersion); err != nil {
		return nil, err
	}

	disp := dispatch.New(p, o.State, nil)
	deadline := time.Now().Add(timeout)
	for {
		p.Conn.SetDeadline(deadline)
		msg, _, err := wire.ReadMessage(p.Conn, wire.ProtocolVersion)
		if err != nil {
			return nil, err
		}
		if h, ok := msg.(*wire.MsgHeaders); ok {
			return h.Headers, nil
		}
		if err := disp.Handle(msg); err != nil {
			return nil, err
		}
	}
}
