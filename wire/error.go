// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"errors"
	"fmt"
)

// ErrFraming is the sentinel error all envelope and payload framing
// failures wrap, per the error taxonomy's "Framing/decoding" kind.
var ErrFraming = errors.New("wire: framing error")

// MessageError describes an error resulting from a call to an
// encode/decode function on a message. It either indicates a problem
// with the result of the call, or indicates a problem in the processing
// of the call, such as an invalid argument.
type MessageError struct {
	Func        string // Function name
	Description string // Human readable description of the issue
	Err         error  // Underlying error, if any
}

// Error satisfies the error interface.
func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%s: %s", e.Func, e.Description)
	}
	return e.Description
}

// Unwrap returns the underlying framing error so errors.Is(err,
// wire.ErrFraming) reports true for every decode failure.
func (e *MessageError) Unwrap() error {
	return ErrFraming
}

// newFramingError returns a MessageError for a framing/decoding failure
// in the named function.
func newFramingError(op, description string, err error) error {
	if err != nil {
		description = fmt.Sprintf("%s: %v", description, err)
	}
	return &MessageError{Func: op, Description: description, Err: err}
}

// messageError creates an error for the given function and description.
func messageError(op, str string) error {
	return &MessageError{Func: op, Description: str}
}
