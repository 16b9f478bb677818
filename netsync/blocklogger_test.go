// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"testing"
	"time"

	"github.com/rustchain-network/rustsyncd/chaincfg"
)

// TestBlockProgressWindowReset tests the 10 second reporting window: heights
// inside the window only accumulate, and rewinding the window start with
// SetLastLogTime makes the next height flush the running total.  Start uses
// that reset so idle time between runs is never reported as sync time.
func TestBlockProgressWindowReset(t *testing.T) {
	gen := newBlockGen(t)
	block := gen.makeBlock(*chaincfg.SimNetParams.GenesisHash, 1, "progress")

	logger := newBlockProgressLogger("Processed", log)
	logger.LogBlockHeight(block)
	if got := logger.receivedLogBlocks; got != 1 {
		t.Fatalf("blocks inside window: got %d, want 1 accumulated", got)
	}

	logger.SetLastLogTime(time.Now().Add(-11 * time.Second))
	logger.LogBlockHeight(block)
	if got := logger.receivedLogBlocks; got != 0 {
		t.Fatalf("blocks after flush: got %d, want counter reset to 0",
			got)
	}
	if since := time.Since(logger.lastBlockLogTime); since > time.Second {
		t.Fatalf("window start not advanced at flush, %v old", since)
	}
}
