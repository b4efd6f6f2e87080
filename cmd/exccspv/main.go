// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command exccspv runs the Bitcoin testnet SPV node: it loads
// configuration, opens the log and persistence files, connects to
// peers, catches the header/block chain up via initial block download,
// and then services the UI boundary of spec.md §6.4 until asked to
// shut down.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/EXCCoin/exccspv/internal/cfg"
	"github.com/EXCCoin/exccspv/internal/slogutil"
	"github.com/EXCCoin/exccspv/node"
)

var log = slogutil.Logger(slogutil.TagNode)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	c, err := cfg.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("exccspv: loading configuration: %w", err)
	}

	if err := slogutil.InitLogRotator(c.LogPath); err != nil {
		return fmt.Errorf("exccspv: initializing log rotator: %w", err)
	}

	n, err := node.New(c)
	if err != nil {
		return fmt.Errorf("exccspv: initializing node: %w", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		log.Info("received interrupt, shutting down")
		n.UI.Requests <- node.EndOfProgramRequest{}
	}()

	go logUIResponses(n)

	return n.Run()
}

// logUIResponses drains the node's response channel to a log line per
// event, standing in for a real UI front end. A future UI replaces this
// goroutine with its own consumer of n.UI.Responses.
func logUIResponses(n *node.Node) {
	for resp := range n.UI.Responses {
		switch r := resp.(type) {
		case node.ErrorInitializingNodeResponse:
			log.Errorf("startup failed: %v", r.Err)
		case node.FinishedInitializingNodeResponse:
			log.Info("node initialized, serving UI requests")
		case node.WalletErrorResponse:
			log.Warnf("wallet error: %s", r.Kind)
		case node.WalletFinishedResponse:
			log.Info("shutdown complete")
			return
		default:
			log.Debugf("UI response: %+v", resp)
		}
	}
}
