// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gossip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/btcsuite/go-socks/socks"

	"github.com/rustchain-network/rustsyncd/wire"
)

const (
	// DefaultTimeout bounds a single request/response round trip when the
	// caller's context carries no earlier deadline.
	DefaultTimeout = 5 * time.Second

	// rpcPath is the single HTTP path every gossip message is POSTed to.
	// The message envelope, not the path, selects the operation.
	rpcPath = "/gossip"
)

// ClientConfig holds the gossip client tunables.
type ClientConfig struct {
	// Timeout bounds each round trip.  Zero selects DefaultTimeout.
	Timeout time.Duration

	// Proxy optionally routes all outbound connections through a SOCKS5
	// proxy.
	Proxy *socks.Proxy
}

// Client performs outbound gossip exchanges with peers.  Every exchange is
// one HTTP POST of a versioned envelope and one enveloped reply; the client
// holds no per-peer connection state beyond the transport's keep-alive pool.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient returns a gossip client with the given configuration.
func NewClient(cfg *ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var dial func(ctx context.Context, network, addr string) (net.Conn, error)
	if cfg.Proxy != nil {
		proxy := cfg.Proxy
		dial = func(_ context.Context, network, addr string) (net.Conn, error) {
			return proxy.Dial(network, addr)
		}
	} else {
		dialer := net.Dialer{Timeout: timeout}
		dial = dialer.DialContext
	}

	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:     dial,
				MaxIdleConns:    32,
				IdleConnTimeout: 2 * time.Minute,
			},
		},
		timeout: timeout,
	}
}

// Close releases the client's pooled idle connections.  The client must not
// be used afterwards.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// roundTrip sends one enveloped message to the peer and decodes the
// enveloped reply.  Transport failures of any kind come back as a
// *NetworkError; a decoded error envelope comes back as a *RemoteError.
func (c *Client) roundTrip(ctx context.Context, op, peer string,
	msg wire.Message) (wire.Message, error) {

	var body bytes.Buffer
	if err := wire.WriteMessage(&body, msg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s%s", peer, rpcPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, networkError(op, peer, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(op, peer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected HTTP status %s", resp.Status)
		return nil, networkError(op, peer, err)
	}

	reply, err := wire.ReadMessage(resp.Body)
	if err != nil {
		// A version-gated refusal is a protocol outcome, not a
		// transport failure.
		if errors.Is(err, wire.ErrUnsupportedVersion) {
			return nil, err
		}
		return nil, networkError(op, peer, err)
	}

	if errMsg, ok := reply.(*wire.MsgError); ok {
		return nil, &RemoteError{
			Code:    errMsg.Code,
			Message: errMsg.Message,
		}
	}
	return reply, nil
}

// FetchSummary asks the peer for its current tip summary in one round trip.
func (c *Client) FetchSummary(ctx context.Context, peer string) (*wire.MsgSummary, error) {
	const op = "fetchsummary"

	reply, err := c.roundTrip(ctx, op, peer, wire.NewMsgSummaryReq())
	if err != nil {
		return nil, err
	}
	summary, ok := reply.(*wire.MsgSummary)
	if !ok {
		err := fmt.Errorf("unexpected reply command %q", reply.Command())
		return nil, networkError(op, peer, err)
	}
	return summary, nil
}

// FetchBlocks asks the peer for the canonical blocks in the inclusive height
// range [fromHeight, toHeight].  The returned bool reports whether the peer
// truncated the reply at its message cap, in which case the caller continues
// from the last returned height.
func (c *Client) FetchBlocks(ctx context.Context, peer string, fromHeight,
	toHeight int64) ([]*wire.Block, bool, error) {

	const op = "fetchblocks"

	req := wire.NewMsgGetBlocks(fromHeight, toHeight)
	reply, err := c.roundTrip(ctx, op, peer, req)
	if err != nil {
		return nil, false, err
	}
	blocks, ok := reply.(*wire.MsgBlocks)
	if !ok {
		err := fmt.Errorf("unexpected reply command %q", reply.Command())
		return nil, false, networkError(op, peer, err)
	}
	return blocks.Blocks, blocks.Truncated, nil
}

// Announce pushes a block to the peer best-effort and reports whether the
// peer accepted it.  The client never retries; a failed announce is only
// logged by the caller.
func (c *Client) Announce(ctx context.Context, peer string, block *wire.Block,
	from string) (bool, error) {

	const op = "announce"

	reply, err := c.roundTrip(ctx, op, peer, wire.NewMsgAnnounce(block, from))
	if err != nil {
		return false, err
	}
	ack, ok := reply.(*wire.MsgAnnounceAck)
	if !ok {
		err := fmt.Errorf("unexpected reply command %q", reply.Command())
		return false, networkError(op, peer, err)
	}
	return ack.Accepted, nil
}

// ExchangePeers announces our own listen address to the peer and returns the
// bounded list of peer addresses it shared back.  An empty selfAddr omits
// the announcement, for nodes that do not accept inbound connections.
func (c *Client) ExchangePeers(ctx context.Context, peer, selfAddr string) ([]string, error) {
	const op = "exchangepeers"

	reply, err := c.roundTrip(ctx, op, peer, wire.NewMsgGetPeers(selfAddr))
	if err != nil {
		return nil, err
	}
	peers, ok := reply.(*wire.MsgPeers)
	if !ok {
		err := fmt.Errorf("unexpected reply command %q", reply.Command())
		return nil, networkError(op, peer, err)
	}
	return peers.Addresses, nil
}
