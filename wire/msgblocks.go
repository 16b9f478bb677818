// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/json"
	"fmt"
)

// MsgGetBlocks requests an inclusive range of canonical blocks from a remote
// peer.  The requested span is expected to be at most MaxBlocksPerMsg blocks;
// servers enforce the cap by truncating the response.
type MsgGetBlocks struct {
	FromHeight int64 `json:"from_height"`
	ToHeight   int64 `json:"to_height"`
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgGetBlocks) Command() string {
	return CmdGetBlocks
}

// NewMsgGetBlocks returns a new getblocks message for the given inclusive
// height range.
func NewMsgGetBlocks(fromHeight, toHeight int64) *MsgGetBlocks {
	return &MsgGetBlocks{FromHeight: fromHeight, ToHeight: toHeight}
}

// MsgBlocks is the response to a getblocks request.  Blocks are ordered by
// strictly ascending height.  Truncated indicates the server capped the
// response below the requested range and the client should re-request the
// remainder.
type MsgBlocks struct {
	Blocks    []*Block `json:"blocks"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgBlocks) Command() string {
	return CmdBlocks
}

// AddBlock adds a block to the message.  An error is returned when adding
// the block would exceed the maximum number of blocks per message.
func (msg *MsgBlocks) AddBlock(block *Block) error {
	if len(msg.Blocks)+1 > MaxBlocksPerMsg {
		return messageError("MsgBlocks.AddBlock",
			fmt.Sprintf("too many blocks in message [max %d]",
				MaxBlocksPerMsg))
	}
	msg.Blocks = append(msg.Blocks, block)
	return nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.  It rejects
// responses carrying more blocks than MaxBlocksPerMsg.
func (msg *MsgBlocks) UnmarshalJSON(data []byte) error {
	type msgBlocksAlias MsgBlocks
	var aux msgBlocksAlias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Blocks) > MaxBlocksPerMsg {
		return messageError("MsgBlocks.UnmarshalJSON",
			fmt.Sprintf("too many blocks in message [count %d, "+
				"max %d]", len(aux.Blocks), MaxBlocksPerMsg))
	}
	*msg = MsgBlocks(aux)
	return nil
}

// NewMsgBlocks returns a new, empty blocks message.
func NewMsgBlocks() *MsgBlocks {
	return &MsgBlocks{Blocks: make([]*Block, 0, MaxBlocksPerMsg)}
}
