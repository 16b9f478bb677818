// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package netsync implements a concurrency safe block syncing protocol.  The
SyncManager periodically polls active peers for their tip summaries, pulls
any block ranges it is behind on, feeds candidates through the chain store,
and triggers fork reconciliation when an orphaned segment catches up with the
canonical tip.  Newly accepted blocks are pushed to a bounded fan-out of
peers independently of the pull cycle.
*/
package netsync
