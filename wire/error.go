// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVersion is returned when a message envelope carries a major
// protocol version this implementation does not speak.  The exchange is
// connection-local and must not be retried with the same version.
var ErrUnsupportedVersion = errors.New("unsupported protocol version")

// MessageError describes an issue with a message such as a malformed
// envelope, an unknown message type, or a field exceeding its maximum
// allowed size.
//
// The caller can use type assertions to determine a failure was specifically
// due to a malformed message as opposed to an underlying I/O error.
type MessageError struct {
	Func        string // Function name
	Description string // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%v: %v", e.Func, e.Description)
	}
	return e.Description
}

// messageError creates a MessageError given a set of arguments.
func messageError(f string, desc string) *MessageError {
	return &MessageError{Func: f, Description: desc}
}
