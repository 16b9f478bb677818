// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/json"
	"fmt"
	"io"
)

// MessageHeaderSize is not fixed for the JSON envelope, however the envelope
// type tag is bounded to keep decoding cheap.
const maxCommandSize = 16

// Commands used in message envelopes which describe the message type.
const (
	CmdSummaryReq  = "summaryreq"
	CmdSummary     = "summary"
	CmdGetBlocks   = "getblocks"
	CmdBlocks      = "blocks"
	CmdAnnounce    = "announce"
	CmdAnnounceAck = "announceack"
	CmdGetPeers    = "getpeers"
	CmdPeers       = "peers"
	CmdError       = "error"
)

// Message is an interface that describes a rustchain gossip message.  A type
// that implements Message has complete control over the representation of its
// payload and may therefore contain additional or fewer fields than those
// which appear on the wire.
type Message interface {
	Command() string
}

// envelope is the outer wire structure every message is wrapped in.  The
// version applies to the envelope and the payload alike.
type envelope struct {
	Version uint32          `json:"version"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// makeEmptyMessage creates a message of the appropriate concrete type based
// on the command.
func makeEmptyMessage(command string) (Message, error) {
	var msg Message
	switch command {
	case CmdSummaryReq:
		msg = &MsgSummaryReq{}

	case CmdSummary:
		msg = &MsgSummary{}

	case CmdGetBlocks:
		msg = &MsgGetBlocks{}

	case CmdBlocks:
		msg = &MsgBlocks{}

	case CmdAnnounce:
		msg = &MsgAnnounce{}

	case CmdAnnounceAck:
		msg = &MsgAnnounceAck{}

	case CmdGetPeers:
		msg = &MsgGetPeers{}

	case CmdPeers:
		msg = &MsgPeers{}

	case CmdError:
		msg = &MsgError{}

	default:
		return nil, messageError("makeEmptyMessage",
			fmt.Sprintf("unhandled command [%s]", command))
	}
	return msg, nil
}

// WriteMessage writes a Message to w wrapped in a version 1 envelope.
func WriteMessage(w io.Writer, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	env := envelope{
		Version: ProtocolVersion,
		Type:    msg.Command(),
		Payload: payload,
	}
	return json.NewEncoder(w).Encode(&env)
}

// ReadMessage reads, validates, and parses the next Message from r.
//
// The envelope version is checked before the payload is parsed: a mismatched
// major version returns ErrUnsupportedVersion (wrapped with the offending
// version) rather than attempting a best-effort parse.  Unknown payload
// fields are ignored to allow forward-compatible minor additions.
func ReadMessage(r io.Reader) (Message, error) {
	var env envelope
	dec := json.NewDecoder(io.LimitReader(r, MaxMessagePayload))
	if err := dec.Decode(&env); err != nil {
		return nil, messageError("ReadMessage",
			fmt.Sprintf("malformed envelope: %v", err))
	}

	if env.Version != ProtocolVersion {
		return nil, fmt.Errorf("%w: got %d, want %d",
			ErrUnsupportedVersion, env.Version, ProtocolVersion)
	}
	if len(env.Type) == 0 || len(env.Type) > maxCommandSize {
		return nil, messageError("ReadMessage",
			fmt.Sprintf("invalid message type [%.16q]", env.Type))
	}

	msg, err := makeEmptyMessage(env.Type)
	if err != nil {
		return nil, err
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, msg); err != nil {
			if _, ok := err.(*MessageError); ok {
				return nil, err
			}
			return nil, messageError("ReadMessage",
				fmt.Sprintf("malformed %s payload: %v",
					env.Type, err))
		}
	}
	return msg, nil
}
