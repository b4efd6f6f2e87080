// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stdscript

import "fmt"

func errInvalidHashLen(n int) error {
	return fmt.Errorf("stdscript: pubkey hash must be 20 bytes, got %d", n)
}
