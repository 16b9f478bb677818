// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// MsgAnnounce pushes a newly produced or relayed block to a remote peer.
// From optionally carries the announcing node's own listen address so the
// receiver can register it and pull from it directly when the announced
// block turns out to be an orphan.
type MsgAnnounce struct {
	Block *Block `json:"block"`
	From  string `json:"from,omitempty"`
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgAnnounce) Command() string {
	return CmdAnnounce
}

// NewMsgAnnounce returns a new announce message for the given block.
func NewMsgAnnounce(block *Block, from string) *MsgAnnounce {
	return &MsgAnnounce{Block: block, From: from}
}

// MsgAnnounceAck acknowledges an announce.  Accepted reports whether the
// receiver admitted the block into its chain store (including as an orphan
// or an already known block).  It is advisory only: announces are best
// effort and never retried by the transport.
type MsgAnnounceAck struct {
	Accepted bool `json:"accepted"`
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgAnnounceAck) Command() string {
	return CmdAnnounceAck
}

// NewMsgAnnounceAck returns a new announce acknowledgement.
func NewMsgAnnounceAck(accepted bool) *MsgAnnounceAck {
	return &MsgAnnounceAck{Accepted: accepted}
}
