// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gossip

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/rustchain-network/rustsyncd/wire"
)

// Handler is the application-side receiver of inbound gossip requests.  The
// server decodes and version-gates each request, then dispatches it
// synchronously; net/http already serves each connection on its own
// goroutine so handlers only need to be safe for concurrent use.
type Handler interface {
	// OnSummary returns the node's current tip summary.
	OnSummary() *wire.MsgSummary

	// OnGetBlocks returns the canonical blocks in the inclusive height
	// range.  An error wrapping ErrRangeUnavailable refuses ranges the
	// node cannot serve.
	OnGetBlocks(fromHeight, toHeight int64) (*wire.MsgBlocks, error)

	// OnAnnounce submits an announced block and reports whether it was
	// accepted into the canonical chain.
	OnAnnounce(block *wire.Block, from string) (bool, error)

	// OnGetPeers records the requester's listen address, when one was
	// shared, and returns addresses for a peer-exchange reply.
	OnGetPeers(self string) []string
}

// Server answers inbound gossip requests over HTTP.  Each request carries
// one versioned envelope POSTed to a single path and receives exactly one
// enveloped reply; protocol failures are answered with a typed error
// envelope rather than a bare HTTP error.
type Server struct {
	started  int32
	shutdown int32

	handler    Handler
	httpServer *http.Server
	wg         sync.WaitGroup
}

// NewServer returns a gossip server dispatching to the given handler.
func NewServer(handler Handler) *Server {
	s := Server{handler: handler}
	s.httpServer = &http.Server{
		Handler: &s,

		// Timeouts to prevent a slow client from holding a
		// connection open indefinitely.
		ReadTimeout:  DefaultTimeout,
		WriteTimeout: DefaultTimeout,
	}
	return &s
}

// Start begins serving on the given listeners.  It has no effect on a
// server that is already started.
func (s *Server) Start(listeners []net.Listener) {
	if atomic.AddInt32(&s.started, 1) != 1 {
		return
	}

	for _, listener := range listeners {
		s.wg.Add(1)
		go func(listener net.Listener) {
			log.Infof("Gossip server listening on %s",
				listener.Addr())
			err := s.httpServer.Serve(listener)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Serve error on %s: %v",
					listener.Addr(), err)
			}
			s.wg.Done()
		}(listener)
	}
}

// Stop closes all listeners and waits for the serving goroutines to finish.
// In-flight requests are dropped; gossip exchanges are cheap to retry.
func (s *Server) Stop() error {
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		log.Warnf("Gossip server is already in the process of shutting down")
		return nil
	}

	log.Warnf("Gossip server shutting down")
	err := s.httpServer.Close()
	s.wg.Wait()
	log.Infof("Gossip server shutdown complete")
	return err
}

// ServeHTTP decodes, version-gates, and dispatches one gossip request.  It
// implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// A panic in the handler must not take down the whole server; it is
	// answered like any other internal failure.
	defer func() {
		if err := recover(); err != nil {
			log.Criticalf("Panic handling gossip request from %s: "+
				"%v", r.RemoteAddr, err)
			s.writeError(w, wire.ErrCodeInternal,
				"internal server error")
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "405 method not allowed",
			http.StatusMethodNotAllowed)
		return
	}

	body := http.MaxBytesReader(w, r.Body, wire.MaxMessagePayload)
	msg, err := wire.ReadMessage(body)
	if err != nil {
		if errors.Is(err, wire.ErrUnsupportedVersion) {
			s.writeError(w, wire.ErrCodeUnsupportedVersion,
				err.Error())
			return
		}
		log.Debugf("Malformed gossip request from %s: %v",
			r.RemoteAddr, err)
		s.writeError(w, wire.ErrCodeBadRequest, err.Error())
		return
	}

	reply := s.dispatch(msg, r)
	if err := wire.WriteMessage(w, reply); err != nil {
		log.Debugf("Failed to write gossip reply to %s: %v",
			r.RemoteAddr, err)
	}
}

// dispatch routes a decoded request message to the handler and builds the
// reply envelope.
func (s *Server) dispatch(msg wire.Message, r *http.Request) wire.Message {
	switch msg := msg.(type) {
	case *wire.MsgSummaryReq:
		return s.handler.OnSummary()

	case *wire.MsgGetBlocks:
		reply, err := s.handler.OnGetBlocks(msg.FromHeight, msg.ToHeight)
		if err != nil {
			if errors.Is(err, ErrRangeUnavailable) {
				return wire.NewMsgError(
					wire.ErrCodeRangeUnavailable,
					err.Error())
			}
			log.Errorf("Failed to serve block range [%d, %d] to "+
				"%s: %v", msg.FromHeight, msg.ToHeight,
				r.RemoteAddr, err)
			return wire.NewMsgError(wire.ErrCodeInternal,
				"failed to read block range")
		}
		return reply

	case *wire.MsgAnnounce:
		accepted, err := s.handler.OnAnnounce(msg.Block, msg.From)
		if err != nil {
			log.Errorf("Failed to process announce from %s: %v",
				r.RemoteAddr, err)
			return wire.NewMsgError(wire.ErrCodeInternal,
				"failed to process announce")
		}
		return wire.NewMsgAnnounceAck(accepted)

	case *wire.MsgGetPeers:
		return wire.NewMsgPeers(s.handler.OnGetPeers(msg.Self))
	}

	return wire.NewMsgError(wire.ErrCodeBadRequest,
		"command is not a request: "+msg.Command())
}

// writeError answers the request with a typed error envelope.
func (s *Server) writeError(w http.ResponseWriter, code, message string) {
	err := wire.WriteMessage(w, wire.NewMsgError(code, message))
	if err != nil {
		log.Debugf("Failed to write gossip error reply: %v", err)
	}
}
