// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// Error codes carried in an error reply.  They mirror the typed outcomes the
// sync engine distinguishes between, so a client can map a remote failure
// back onto the local error taxonomy.
const (
	// ErrCodeUnsupportedVersion means the request envelope carried a major
	// protocol version the server does not speak.
	ErrCodeUnsupportedVersion = "unsupported-version"

	// ErrCodeRangeUnavailable means part of a requested block range has
	// been pruned from the server's chain store or is beyond its tip.
	// The client must re-request a narrower range.
	ErrCodeRangeUnavailable = "range-unavailable"

	// ErrCodeBadRequest means the request payload was malformed or
	// violated a protocol bound.
	ErrCodeBadRequest = "bad-request"

	// ErrCodeInternal means the server failed to answer for a reason
	// local to the server.
	ErrCodeInternal = "internal"
)

// MsgError is returned by a server in place of the ordinary response when a
// request cannot be answered.
type MsgError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgError) Command() string {
	return CmdError
}

// NewMsgError returns a new error reply with the given code and description.
func NewMsgError(code, message string) *MsgError {
	return &MsgError{Code: code, Message: message}
}
