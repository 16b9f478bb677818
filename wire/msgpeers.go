// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/json"
	"fmt"
)

// MaxAddressesPerMsg is the maximum number of peer addresses allowed in a
// single peers response.
const MaxAddressesPerMsg = 100

// MsgGetPeers announces the sender's own listen address and requests a list
// of known peer addresses in exchange.  Self may be empty when the sender is
// not listening.
type MsgGetPeers struct {
	Self string `json:"self,omitempty"`
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgGetPeers) Command() string {
	return CmdGetPeers
}

// NewMsgGetPeers returns a new getpeers message announcing the given listen
// address.
func NewMsgGetPeers(self string) *MsgGetPeers {
	return &MsgGetPeers{Self: self}
}

// MsgPeers is the response to a getpeers request and carries a bounded list
// of peer addresses known to the sender.
type MsgPeers struct {
	Addresses []string `json:"addresses"`
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgPeers) Command() string {
	return CmdPeers
}

// UnmarshalJSON implements the json.Unmarshaler interface.  It rejects
// responses carrying more addresses than MaxAddressesPerMsg.
func (msg *MsgPeers) UnmarshalJSON(data []byte) error {
	type msgPeersAlias MsgPeers
	var aux msgPeersAlias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Addresses) > MaxAddressesPerMsg {
		return messageError("MsgPeers.UnmarshalJSON",
			fmt.Sprintf("too many addresses in message [count %d, "+
				"max %d]", len(aux.Addresses),
				MaxAddressesPerMsg))
	}
	*msg = MsgPeers(aux)
	return nil
}

// NewMsgPeers returns a new peers message with the given addresses.
func NewMsgPeers(addresses []string) *MsgPeers {
	return &MsgPeers{Addresses: addresses}
}
