// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire implements the rustchain gossip protocol messages.

Every exchange on the wire is a single request/response pair carried in a
versioned envelope.  The envelope payload is a tagged message which is decoded
into a strongly-typed record before it reaches any sync logic.  Unknown fields
in a payload are ignored by receivers so minor protocol additions remain
forward compatible, while a mismatched major protocol version fails the
exchange outright rather than attempting a best-effort parse.

This package also defines the Block record itself along with its deterministic
serialization, which is shared by the digest computation, the chain store, and
the gossip transport.
*/
package wire
