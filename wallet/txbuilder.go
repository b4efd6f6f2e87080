// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/EXCCoin/exccspv/chainhash"
	"github.com/EXCCoin/exccspv/sign"
	"github.com/EXCCoin/exccspv/stdscript"
	"github.com/EXCCoin/exccspv/wire"
)

// Errors returned by the transaction builder, per the error taxonomy of
// spec.md §7's Wallet-facing WalletErrorKind.
var (
	// ErrInsufficientFunds means no combination of the wallet's observed
	// UTxOs covers the requested amount plus fee.
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")

	// ErrBroadcastFailed means every connected peer rejected or failed to
	// receive the transaction, per spec.md §4.11's broadcast-success
	// definition.
	ErrBroadcastFailed = errors.New("wallet: transaction rejected by every peer")
)

// Broadcaster abstracts the dispatch of a built transaction to connected
// peers. A broadcast is successful when at least one peer accepts the
// transaction, per DESIGN.md's Open Question resolution for spec.md
// §4.11.
type Broadcaster interface {
	BroadcastTx(tx *wire.MsgTx) (accepted int, err error)
}

// CreateTransaction builds, signs, and broadcasts a transaction paying
// amount to destination (a 25-byte P2PKH script), consuming fee from the
// wallet's own confirmed UTxOs, per spec.md §4.11 (C11).
//
// UTxO selection is deterministic and largest-value-first (DESIGN.md's
// resolution of the source's Open Question on ordering), stopping as
// soon as the accumulated value exceeds amount+fee. Any excess is
// returned to the wallet itself as a change output.
func (w *Wallet) CreateTransaction(b Broadcaster, amount, fee int64, destination []byte) (*wire.MsgTx, error) {
	target := amount + fee

	selected, total, ok := selectUTxOs(w.UTxOs(), target)
	if !ok {
		return nil, ErrInsufficientFunds
	}

	tx := &wire.MsgTx{Version: wire.ProtocolVersion, LockTime: 0}

	prevScripts := make([][]byte, len(selected))
	for i, e := range selected {
		tx.AddTxIn(wire.NewTxIn(&e.OutPoint, nil))
		prevScripts[i] = payToWalletScript(w)
	}

	tx.AddTxOut(wire.NewTxOut(amount, destination))
	if change := total - target; change > 0 {
		tx.AddTxOut(wire.NewTxOut(change, payToWalletScript(w)))
	}

	if err := w.signInputs(tx, prevScripts); err != nil {
		return nil, err
	}

	accepted, err := b.BroadcastTx(tx)
	if err != nil {
		return nil, err
	}
	if accepted < 1 {
		return nil, ErrBroadcastFailed
	}

	w.consumeSelected(selected)
	return tx, nil
}

// payToWalletScript returns the P2PKH script paying the wallet's own
// HASH160, used both for the change output and as the temporary
// previous-output script substituted during signing.
func payToWalletScript(w *Wallet) []byte {
	script, err := stdscript.PayToPubKeyHashV0Script(w.PubKeyHash())
	if err != nil {
		// w.pkHash is always exactly 20 bytes; this cannot fail.
		panic(err)
	}
	return script
}

// signInputs computes, for each input, the double-SHA-256 digest of the
// transaction with that input's script temporarily substituted for
// prevScripts[i] and every other input's script cleared, signs the
// digest with the wallet's private key, and assembles the scriptSig as
// the two canonical pushes VarBytes(sig) || VarBytes(compressed pubkey),
// per spec.md §4.11 step 5.
func (w *Wallet) signInputs(tx *wire.MsgTx, prevScripts [][]byte) error {
	priv := w.PrivateKey()
	pubKey := w.PublicKey().SerializeCompressed()

	for i, in := range tx.TxIn {
		digest, err := sigHash(tx, i, prevScripts[i])
		if err != nil {
			return err
		}
		sig := sign.Sign(priv, [32]byte(digest))

		var buf bytes.Buffer
		if err := wire.WriteVarBytes(&buf, sig); err != nil {
			return err
		}
		if err := wire.WriteVarBytes(&buf, pubKey); err != nil {
			return err
		}
		in.SignatureScript = buf.Bytes()
	}
	return nil
}

// sigHash reconstructs the legacy Bitcoin signature digest for input
// index, per spec.md §4.11: substitute prevScript into that input alone,
// clear every other input's script, serialize, append the SIGHASH_ALL
// suffix, and double-SHA-256 the result.
func sigHash(tx *wire.MsgTx, index int, prevScript []byte) (chainhash.Hash, error) {
	shallow := &wire.MsgTx{
		Version:  tx.Version,
		TxOut:    tx.TxOut,
		LockTime: tx.LockTime,
	}
	shallow.TxIn = make([]*wire.TxIn, len(tx.TxIn))
	for i, in := range tx.TxIn {
		script := in.SignatureScript
		if i == index {
			script = prevScript
		} else {
			script = nil
		}
		shallow.TxIn[i] = wire.NewTxIn(&in.PreviousOutPoint, script)
		shallow.TxIn[i].Sequence = in.Sequence
	}

	var buf bytes.Buffer
	buf.Grow(shallow.SerializeSize() + 4)
	if err := shallow.BtcEncode(&buf, wire.ProtocolVersion); err != nil {
		return chainhash.Hash{}, err
	}

	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(sign.SigHashAll))
	buf.Write(scratch[:])

	return chainhash.HashH(buf.Bytes()), nil
}
