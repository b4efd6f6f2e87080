// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store implements the append-only header and block persistence
// of spec.md §4.12 (C12): fixed 80-byte header records and
// self-delimiting variable-length block records, each file flushed
// after every write.
package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/EXCCoin/exccspv/wire"
)

// ErrCorruptTail describes a file whose final record could not be fully
// parsed, per spec.md §4.12's "corrupt tail records cause a load
// failure, not a silent truncation" rule.
var ErrCorruptTail = errors.New("store: corrupt trailing record")

// Store owns the node's two append-only data files: one single writer
// per file, per spec.md §5's "persistence files are single-writer" rule.
type Store struct {
	headersMu sync.Mutex
	headers   *os.File

	blocksMu sync.Mutex
	blocks   *os.File

	// headersInDisk is the count of headers already persisted, so a
	// later flush only appends records beyond this cursor.
	headersInDisk int
}

// Open opens (creating if necessary) the header and block files at the
// given paths for appending, per spec.md §6.2's headers_path/blocks_path
// config fields.
func Open(headersPath, blocksPath string) (*Store, error) {
	headers, err := os.OpenFile(headersPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: opening headers file: %w", err)
	}
	blocks, err := os.OpenFile(blocksPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		headers.Close()
		return nil, fmt.Errorf("store: opening blocks file: %w", err)
	}
	return &Store{headers: headers, blocks: blocks}, nil
}

// Close closes both underlying files.
func (s *Store) Close() error {
	herr := s.headers.Close()
	berr := s.blocks.Close()
	if herr != nil {
		return herr
	}
	return berr
}

// LoadHeaders performs the whole-file startup read of spec.md §4.12: the
// headers file is parsed sequentially as a run of fixed 80-byte records.
// A final partial record is a load failure.
func (s *Store) LoadHeaders() ([]*wire.BlockHeader, error) {
	s.headersMu.Lock()
	defer s.headersMu.Unlock()

	if _, err := s.headers.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	r := bufio.NewReader(s.headers)

	var out []*wire.BlockHeader
	buf := make([]byte, wire.BlockHeaderLen)
	for {
		n, err := io.ReadFull(r, buf)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: headers file ended mid-record (%d of %d bytes)", ErrCorruptTail, n, wire.BlockHeaderLen)
		}
		if err != nil {
			return nil, err
		}

		h := new(wire.BlockHeader)
		if err := h.Deserialize(bytes.NewReader(buf)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptTail, err)
		}
		out = append(out, h)
	}

	s.headersInDisk = len(out)
	if _, err := s.headers.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadBlocks performs the whole-file startup read of the blocks file: a
// length-walk of self-delimiting block records (header, tx-count VarInt,
// tx bytes). A partial trailing record is a load failure.
func (s *Store) LoadBlocks() ([]*wire.MsgBlock, error) {
	s.blocksMu.Lock()
	defer s.blocksMu.Unlock()

	if _, err := s.blocks.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	r := bufio.NewReader(s.blocks)

	var out []*wire.MsgBlock
	for {
		// Peek rather than decode directly: BtcDecode wraps every
		// failure, including a clean end-of-file, in a MessageError, so
		// a plain end-of-stream must be detected before handing the
		// reader to it.
		if _, err := r.Peek(1); err == io.EOF {
			break
		}

		b := new(wire.MsgBlock)
		if err := b.BtcDecode(r, wire.ProtocolVersion); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptTail, err)
		}
		out = append(out, b)
	}

	if _, err := s.blocks.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendHeaders writes every header beyond the headersInDisk cursor,
// flushing after each record, per spec.md §4.12.
func (s *Store) AppendHeaders(all []*wire.BlockHeader) error {
	s.headersMu.Lock()
	defer s.headersMu.Unlock()

	for i := s.headersInDisk; i < len(all); i++ {
		if err := all[i].Serialize(s.headers); err != nil {
			return fmt.Errorf("store: writing header %d: %w", i, err)
		}
		if err := s.headers.Sync(); err != nil {
			return fmt.Errorf("store: flushing headers file: %w", err)
		}
	}
	s.headersInDisk = len(all)
	return nil
}

// AppendBlock writes a single block record and flushes, per spec.md
// §4.12's per-record flush discipline.
func (s *Store) AppendBlock(b *wire.MsgBlock) error {
	s.blocksMu.Lock()
	defer s.blocksMu.Unlock()

	if err := b.BtcEncode(s.blocks, wire.ProtocolVersion); err != nil {
		return fmt.Errorf("store: writing block: %w", err)
	}
	if err := s.blocks.Sync(); err != nil {
		return fmt.Errorf("store: flushing blocks file: %w", err)
	}
	return nil
}

// HeadersInDisk reports how many headers have been persisted so far.
func (s *Store) HeadersInDisk() int {
	s.headersMu.Lock()
	defer s.headersMu.Unlock()
	return s.headersInDisk
}
