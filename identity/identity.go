// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package identity provides signature verification over block payloads.
//
// The sync core only ever verifies: key generation and signing exist for
// block producers and tests, and key lifecycle management is explicitly out
// of scope.
package identity

import (
	"crypto/rand"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
)

// Verifier verifies a producer signature over a block payload.  The sync
// core is written against this interface so deployments can substitute
// their own identity provider.
type Verifier interface {
	// Verify reports whether signature is a valid signature over payload
	// by the producer identified by pubKey.  Malformed keys and
	// signatures report false rather than erroring.
	Verify(payload, signature, pubKey []byte) bool
}

// Ed25519Verifier verifies ed25519 signatures, the signature scheme
// rustchain blocks are produced with.
//
// The zero value is ready for use.
type Ed25519Verifier struct{}

// Verify reports whether signature is a valid ed25519 signature over payload
// by pubKey.  This is part of the Verifier interface implementation.
func (Ed25519Verifier) Verify(payload, signature, pubKey []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize {
		return false
	}
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), payload, signature)
}

// GenerateKey generates a fresh ed25519 producer key pair.
func GenerateKey() (pub, priv []byte, err error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return pubKey, privKey, nil
}

// Sign signs payload with the given ed25519 private key.  It exists for
// block producers and tests; the sync core never signs.
func Sign(priv, payload []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv), payload)
}
