// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gossip

import (
	"errors"
	"fmt"

	"github.com/rustchain-network/rustsyncd/wire"
)

// ErrRangeUnavailable indicates a peer could not serve part of a requested
// block range, typically because it reaches below the peer's stored base or
// above its tip.  The caller narrows the request rather than retrying it
// verbatim.
var ErrRangeUnavailable = errors.New("requested block range unavailable")

// NetworkError wraps any transport-level failure talking to a peer: dial
// failures, timeouts, connection resets, and garbled replies all surface the
// same way.  Callers use it for liveness bookkeeping only and never
// distinguish the underlying cause.
type NetworkError struct {
	// Op is the logical operation that failed, e.g. "fetchsummary".
	Op string

	// Addr is the peer the operation was directed at.
	Addr string

	// Err is the underlying error.
	Err error
}

// Error satisfies the error interface and prints human-readable errors.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// networkError creates a NetworkError given a set of arguments.
func networkError(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// RemoteError is a typed error envelope returned by a peer in reply to a
// well-formed request.  Unlike a NetworkError the round trip itself
// succeeded; the peer refused or failed the operation.
type RemoteError struct {
	// Code is the machine-readable reason from the envelope.
	Code string

	// Message is the peer-supplied description.
	Message string
}

// Error satisfies the error interface and prints human-readable errors.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("peer error %s: %s", e.Code, e.Message)
}

// Unwrap maps well-known envelope codes onto their exported sentinel errors
// so callers can match with errors.Is.
func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case wire.ErrCodeUnsupportedVersion:
		return wire.ErrUnsupportedVersion
	case wire.ErrCodeRangeUnavailable:
		return ErrRangeUnavailable
	}
	return nil
}

// IsUnsupportedVersion reports whether the error means the peer speaks an
// incompatible protocol version, whether detected locally while decoding its
// reply or reported by the peer in an error envelope.  Retrying the same
// request with the same version cannot succeed.
func IsUnsupportedVersion(err error) bool {
	return errors.Is(err, wire.ErrUnsupportedVersion)
}
