// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package identity

import (
	"testing"
)

// TestEd25519Verifier tests signature verification against valid and
// corrupted inputs.
func TestEd25519Verifier(t *testing.T) {
	pub, priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: unexpected error %v", err)
	}

	payload := []byte("rustchain block payload")
	sig := Sign(priv, payload)

	var verifier Ed25519Verifier
	if !verifier.Verify(payload, sig, pub) {
		t.Fatal("Verify: valid signature rejected")
	}

	// Corrupt each input in turn.
	badPayload := append([]byte(nil), payload...)
	badPayload[0] ^= 0x01
	if verifier.Verify(badPayload, sig, pub) {
		t.Error("Verify: accepted signature over modified payload")
	}

	badSig := append([]byte(nil), sig...)
	badSig[0] ^= 0x01
	if verifier.Verify(payload, badSig, pub) {
		t.Error("Verify: accepted corrupted signature")
	}

	otherPub, _, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: unexpected error %v", err)
	}
	if verifier.Verify(payload, sig, otherPub) {
		t.Error("Verify: accepted signature against wrong key")
	}

	// Malformed keys and signatures must report false, not panic.
	if verifier.Verify(payload, sig, pub[:16]) {
		t.Error("Verify: accepted truncated public key")
	}
	if verifier.Verify(payload, sig[:16], pub) {
		t.Error("Verify: accepted truncated signature")
	}
	if verifier.Verify(payload, nil, nil) {
		t.Error("Verify: accepted empty inputs")
	}
}
