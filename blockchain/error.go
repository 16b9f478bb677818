// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
)

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error, such as
// chain store corruption.  Callers must surface it loudly and abort syncing
// rather than attempt silent recovery.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// HashError identifies an error that indicates a hash was specified that does
// not exist in the canonical chain.
type HashError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e HashError) Error() string {
	return fmt.Sprintf("block %v is not in the canonical chain", string(e))
}

// RangeError identifies an error where a requested block height range cannot
// be served because part of it has been pruned from the store or lies beyond
// the canonical tip.  The caller must re-request a narrower range.
type RangeError struct {
	FromHeight  int64
	ToHeight    int64
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RangeError) Error() string {
	return fmt.Sprintf("range [%d, %d] unavailable: %s", e.FromHeight,
		e.ToHeight, e.Description)
}

// rangeError creates a RangeError given a set of arguments.
func rangeError(fromHeight, toHeight int64, desc string) RangeError {
	return RangeError{
		FromHeight:  fromHeight,
		ToHeight:    toHeight,
		Description: desc,
	}
}

// ErrorCode identifies a kind of rule error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrBadDigest indicates a block's declared hash does not match the
	// recomputed digest of its contents.
	ErrBadDigest ErrorCode = iota

	// ErrBadSignature indicates a block's producer signature does not
	// verify over its payload with the declared producer key.
	ErrBadSignature

	// ErrHeightMismatch indicates a block's height is not monotonic
	// relative to its claimed parent.
	ErrHeightMismatch

	// ErrUnknownParent indicates a fork segment does not attach to any
	// block in the canonical chain.
	ErrUnknownParent

	// ErrInvalidSegment indicates a fork segment is not an unbroken
	// parent-linked sequence.
	ErrInvalidSegment

	// ErrWorseChain indicates a fork segment does not beat the current
	// canonical chain under the reconciliation ordering.
	ErrWorseChain

	// ErrForkTooDeep indicates a fork segment attaches below the maximum
	// allowed reorganization depth or below the pruned base of the store.
	ErrForkTooDeep

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrBadDigest:      "ErrBadDigest",
	ErrBadSignature:   "ErrBadSignature",
	ErrHeightMismatch: "ErrHeightMismatch",
	ErrUnknownParent:  "ErrUnknownParent",
	ErrInvalidSegment: "ErrInvalidSegment",
	ErrWorseChain:     "ErrWorseChain",
	ErrForkTooDeep:    "ErrForkTooDeep",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a block failed due to one of the block validity rules.  A
// rule error is permanent for the offending block; the block is discarded
// and the peer that relayed it is not penalized beyond normal liveness
// tracking.  The caller can use type assertions to determine if a failure
// was specifically due to a rule violation and access the ErrorCode field to
// ascertain the specific reason.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsRuleError reports whether err is a RuleError.
func IsRuleError(err error) bool {
	_, ok := err.(RuleError)
	return ok
}
