// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockdl implements the block downloader of spec.md §4.7 (C7):
// a work-stealing pool of worker goroutines, each owning one peer's
// duplex stream, pulling bundles of up to MaxBundleSize block hashes off
// a shared job channel and returning misses on a dedicated channel,
// Missed. The ibd orchestrator does not read Missed, so a missed bundle
// is not requested again.
package blockdl

import (
	"errors"
	"sync"
	"time"

	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/chainstate"
	"github.com/EXCCoin/exccspv/internal/slogutil"
	"github.com/EXCCoin/exccspv/peer"
	"github.com/EXCCoin/exccspv/wire"
	"github.com/jrick/bitset"
)

var log = slogutil.Logger(slogutil.TagDldr)

// MaxBundleSize is the largest number of hashes submitted in one job,
// per spec.md §4.7.
const MaxBundleSize = 16

// ErrBundleNotFound means the peer answered with a notfound for at
// least one hash in the bundle; the worker stays alive and the bundle is
// reported missed.
var ErrBundleNotFound = errors.New("blockdl: peer reported notfound for bundle")

// Bundle is a batch of block hashes requested together in a single
// getdata round trip.
type Bundle []chainhash.Hash

// empty reports whether b is the sentinel shutdown bundle.
func (b Bundle) empty() bool { return len(b) == 0 }

// Pool is the shared job/missed-bundle channel pair backing the
// downloader's worker goroutines.
type Pool struct {
	jobs   chan Bundle
	missed chan Bundle
	state  *chainstate.State
	wg     sync.WaitGroup
}

// NewPool returns a Pool with the given job-queue depth, ready to have
// workers started against it with StartWorker.
func NewPool(state *chainstate.State, queueDepth int) *Pool {
	return &Pool{
		jobs:   make(chan Bundle, queueDepth),
		missed: make(chan Bundle, queueDepth),
		state:  state,
	}
}

// Submit enqueues a bundle of hashes for some worker to fetch.
func (p *Pool) Submit(b Bundle) {
	p.jobs <- b
}

// Missed returns the channel of bundles no worker was able to complete.
func (p *Pool) Missed() <-chan Bundle {
	return p.missed
}

// Jobs returns the submitted-bundle channel workers pull from, exposed
// read-only so orchestration code and tests can observe what was
// queued.
func (p *Pool) Jobs() <-chan Bundle {
	return p.jobs
}

// Shutdown sends one sentinel empty bundle per active worker, per
// spec.md §4.7's "shutdown is a sentinel empty bundle on the job
// channel" rule.
func (p *Pool) Shutdown(workers int) {
	for i := 0; i < workers; i++ {
		p.jobs <- nil
	}
}

// Go starts one worker in its own goroutine, tracked by the pool's
// internal WaitGroup so Wait can block until every started worker has
// returned, mirroring the thread-per-worker pool of spec.md §9.
func (p *Pool) Go(id int, peerConn *peer.Peer) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.StartWorker(id, peerConn)
	}()
}

// Wait blocks until every worker started with Go has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// StartWorker runs one worker's job loop against peer p, fetching
// bundles until it receives the shutdown sentinel or its stream dies.
// Most callers should use Go instead; StartWorker is exposed directly
// for tests that want to block on a single worker's iteration.
func (p *Pool) StartWorker(id int, peerConn *peer.Peer) {
	for {
		bundle, ok := <-p.jobs
		if !ok || bundle.empty() {
			log.Debugf("worker %d finished gracefully", id)
			return
		}

		if err := p.fetchBundle(peerConn, bundle); err != nil {
			p.missed <- bundle
			if errors.Is(err, ErrBundleNotFound) {
				log.Warnf("worker %d: %v", id, err)
				continue
			}
			log.Warnf("worker %d finished ungracefully: %v", id, err)
			return
		}
	}
}

// fetchBundle sends one getdata for the whole bundle and reads exactly
// len(bundle) block messages, validating and inserting each as it
// arrives. A bitset tracks which requested hashes have been satisfied so
// out-of-order or duplicate block messages are handled without
// double-counting.
func (p *Pool) fetchBundle(pr *peer.Peer, bundle Bundle) error {
	getData := wire.NewMsgGetData()
	index := make(map[chainhash.Hash]int, len(bundle))
	for i, h := range bundle {
		index[h] = i
		hh := h
		if err := getData.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &hh)); err != nil {
			return err
		}
	}

	pr.Conn.SetDeadline(time.Now().Add(peer.Timeout))
	if err := wire.WriteMessage(pr.Conn, getData, wire.ProtocolVersion); err != nil {
		return err
	}

	arrived := bitset.NewBytes(len(bundle))
	remaining := len(bundle)
	for remaining > 0 {
		pr.Conn.SetDeadline(time.Now().Add(peer.Timeout))
		msg, _, err := wire.ReadMessage(pr.Conn, wire.ProtocolVersion)
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case *wire.MsgBlock:
			hash := m.Header.BlockHash()
			idx, ok := index[hash]
			if !ok || arrived.Get(idx) {
				continue
			}
			if _, err := p.state.InsertBlock(m); err != nil {
				log.Warnf("rejecting block %s from bundle: %v", hash, err)
				continue
			}
			arrived.Set(idx)
			remaining--

		case *wire.MsgNotFound:
			return ErrBundleNotFound

		default:
			// Traffic other than the bundle's blocks (pings, inv, etc.)
			// is ignored while a worker owns the stream; spec.md §9 has
			// each peer owned by exactly one task at a time.
			continue
		}
	}
	return nil
}

