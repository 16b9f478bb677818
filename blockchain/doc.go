// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package blockchain implements the rustchain chain store and reconciliation
rules.

The package maintains exactly one canonical chain in a transactional
key/value engine together with a bounded in-memory pool of orphaned fork
blocks awaiting reconciliation.  The canonical tip is available through an
O(1) best-state snapshot which always reflects a fully applied mutation,
never a half-applied reorganization.

Blocks are admitted through TryAppend, which enforces the block invariants
(digest, producer signature, height continuity) and classifies every block as
accepted, orphaned, known, or rejected.  Competing chain histories are
resolved by the pure selection rule in BestCandidate together with
ReorganizeTo, which atomically replaces the canonical suffix with a winning
fork segment.

This package is safe for concurrent access: tip mutation is serialized by a
single mutation section while reads proceed concurrently against consistent
snapshots.
*/
package blockchain
