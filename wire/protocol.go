// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

const (
	// ProtocolVersion is the major version of the gossip wire protocol.  A
	// received envelope whose version does not match causes the exchange
	// to fail with ErrUnsupportedVersion.  Backwards-compatible additions
	// are made by adding new payload fields, which receivers ignore when
	// unknown, rather than by bumping this value.
	ProtocolVersion uint32 = 1

	// MaxBlocksPerMsg is the maximum number of blocks allowed in a single
	// blocks response.  Servers enforce the limit by truncating the
	// response rather than erroring so a client asking for too wide a
	// range still makes progress.
	MaxBlocksPerMsg = 500

	// MaxBlockPayload is the maximum number of payload bytes a block may
	// carry.
	MaxBlockPayload = 1024 * 1024

	// MaxMessagePayload is the maximum number of bytes a single message
	// envelope may occupy on the wire.  Blocks responses are truncated by
	// encoded size as well as block count so a reply built against
	// MaxBlocksEncodedSize always fits.
	MaxMessagePayload = (32 * 1024 * 1024) + (1024 * 1024)

	// MaxBlocksEncodedSize is the budget, in Block.EncodedSize terms, for
	// the blocks carried by a single blocks response.  The slack below
	// MaxMessagePayload leaves room for the envelope and the remaining
	// reply fields.
	MaxBlocksEncodedSize = MaxMessagePayload - (64 * 1024)
)
