// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// maxProducerKeySize is the maximum number of bytes a producer public
	// key may occupy.
	maxProducerKeySize = 64

	// maxSignatureSize is the maximum number of bytes a producer signature
	// may occupy.
	maxSignatureSize = 128

	// maxHardwareClassSize is the maximum number of bytes a declared
	// hardware class string may occupy.
	maxHardwareClassSize = 256
)

// ProducerInfo describes the participant that produced a block.  The sync
// core treats it as an opaque attribute bag: the hardware class and weight
// are declared by the producer and interpreted only by scoring layers above
// the sync core.  Only the public key is consumed here, to verify the block
// signature.
type ProducerInfo struct {
	// PubKey is the producer's public key used to verify the block
	// signature.
	PubKey []byte

	// HardwareClass is the producer's declared hardware family and tier.
	HardwareClass string

	// Weight is the producer's time-decayed weighting factor.
	Weight float64
}

// Block is a single rustchain block as exchanged over the gossip protocol and
// stored in the chain store.  A block is immutable once constructed.
//
// Hash must equal the recomputed digest of all other fields and Signature
// must verify over Payload with the producer public key.  Both invariants are
// enforced before a block is accepted into the chain store rather than here
// so that malformed blocks can still be decoded and reported.
type Block struct {
	// Hash is the double-SHA256 digest of every other field of the block.
	Hash chainhash.Hash

	// PrevHash is the hash of the previous block in the chain.
	PrevHash chainhash.Hash

	// Height is the position of the block in the chain.  The genesis
	// block is at height 0.
	Height int64

	// Payload is the opaque block content.
	Payload []byte

	// Producer identifies the participant that produced the block.
	Producer ProducerInfo

	// Signature is the producer's signature over Payload.
	Signature []byte
}

// serializeDigestFields writes every field of the block except the hash
// itself to w using a deterministic length-prefixed encoding.  This is the
// exact byte sequence the block digest commits to.
func (b *Block) serializeDigestFields(w io.Writer) error {
	if _, err := w.Write(b.PrevHash[:]); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(b.Height)); err != nil {
		return err
	}
	if err := writeVarBytes(w, b.Payload); err != nil {
		return err
	}
	if err := writeVarBytes(w, b.Producer.PubKey); err != nil {
		return err
	}
	if err := writeVarBytes(w, []byte(b.Producer.HardwareClass)); err != nil {
		return err
	}
	if err := writeUint64(w, math.Float64bits(b.Producer.Weight)); err != nil {
		return err
	}
	return writeVarBytes(w, b.Signature)
}

// BlockHash computes the digest the Hash field of a well-formed block must
// carry: the double-SHA256 of the deterministic serialization of all other
// fields.
func (b *Block) BlockHash() chainhash.Hash {
	// Ignore the error returns since writing to a bytes.Buffer cannot
	// fail.
	var buf bytes.Buffer
	_ = b.serializeDigestFields(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Serialize encodes the block to w, including the declared hash, using the
// stable format used by the chain store.
func (b *Block) Serialize(w io.Writer) error {
	if _, err := w.Write(b.Hash[:]); err != nil {
		return err
	}
	return b.serializeDigestFields(w)
}

// Deserialize decodes a block from r.  No digest or signature validation is
// performed.
func (b *Block) Deserialize(r io.Reader) error {
	if _, err := io.ReadFull(r, b.Hash[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, b.PrevHash[:]); err != nil {
		return err
	}
	height, err := readUint64(r)
	if err != nil {
		return err
	}
	b.Height = int64(height)

	b.Payload, err = readVarBytes(r, MaxBlockPayload, "block payload")
	if err != nil {
		return err
	}
	b.Producer.PubKey, err = readVarBytes(r, maxProducerKeySize,
		"producer public key")
	if err != nil {
		return err
	}
	hwClass, err := readVarBytes(r, maxHardwareClassSize, "hardware class")
	if err != nil {
		return err
	}
	b.Producer.HardwareClass = string(hwClass)

	weightBits, err := readUint64(r)
	if err != nil {
		return err
	}
	b.Producer.Weight = math.Float64frombits(weightBits)

	b.Signature, err = readVarBytes(r, maxSignatureSize, "block signature")
	return err
}

// EncodedSize returns a conservative upper bound on the number of bytes the
// block occupies once encoded inside a message payload.  Byte fields expand
// under base64 and strings may expand under JSON escaping, so the bound
// overestimates rather than mirroring the encoder exactly.  Servers use it
// to truncate blocks responses against MaxBlocksEncodedSize.
func (b *Block) EncodedSize() int {
	size := 2 * (chainhash.MaxHashStringSize + 16)
	size += 96 // height and weight digits, field names, object braces
	size += base64Size(len(b.Payload)) + 16
	size += base64Size(len(b.Producer.PubKey)) + 16
	size += 6*len(b.Producer.HardwareClass) + 24
	size += base64Size(len(b.Signature)) + 16
	return size
}

// base64Size returns the number of bytes n raw bytes occupy under base64.
func base64Size(n int) int {
	return (n + 2) / 3 * 4
}

// blockJSON is the wire representation of a block inside a message payload.
// Hashes are hex strings in the canonical display order and byte fields are
// base64 per encoding/json convention.
type blockJSON struct {
	Hash      string       `json:"hash"`
	PrevHash  string       `json:"prev_hash"`
	Height    int64        `json:"height"`
	Payload   []byte       `json:"payload,omitempty"`
	Producer  producerJSON `json:"producer"`
	Signature []byte       `json:"signature,omitempty"`
}

type producerJSON struct {
	PubKey        []byte  `json:"pubkey,omitempty"`
	HardwareClass string  `json:"hardware_class,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface.
func (b Block) MarshalJSON() ([]byte, error) {
	return json.Marshal(blockJSON{
		Hash:     b.Hash.String(),
		PrevHash: b.PrevHash.String(),
		Height:   b.Height,
		Payload:  b.Payload,
		Producer: producerJSON{
			PubKey:        b.Producer.PubKey,
			HardwareClass: b.Producer.HardwareClass,
			Weight:        b.Producer.Weight,
		},
		Signature: b.Signature,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (b *Block) UnmarshalJSON(data []byte) error {
	var bj blockJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return err
	}

	hash, err := chainhash.NewHashFromStr(bj.Hash)
	if err != nil {
		return messageError("Block.UnmarshalJSON",
			fmt.Sprintf("invalid block hash %q: %v", bj.Hash, err))
	}
	prevHash, err := chainhash.NewHashFromStr(bj.PrevHash)
	if err != nil {
		return messageError("Block.UnmarshalJSON",
			fmt.Sprintf("invalid prev hash %q: %v", bj.PrevHash, err))
	}
	if bj.Height < 0 {
		return messageError("Block.UnmarshalJSON",
			fmt.Sprintf("negative block height %d", bj.Height))
	}
	if len(bj.Payload) > MaxBlockPayload {
		return messageError("Block.UnmarshalJSON",
			fmt.Sprintf("payload of %d bytes exceeds max %d",
				len(bj.Payload), MaxBlockPayload))
	}
	if len(bj.Producer.PubKey) > maxProducerKeySize {
		return messageError("Block.UnmarshalJSON",
			fmt.Sprintf("producer key of %d bytes exceeds max %d",
				len(bj.Producer.PubKey), maxProducerKeySize))
	}
	if len(bj.Producer.HardwareClass) > maxHardwareClassSize {
		return messageError("Block.UnmarshalJSON",
			fmt.Sprintf("hardware class of %d bytes exceeds max %d",
				len(bj.Producer.HardwareClass),
				maxHardwareClassSize))
	}
	if len(bj.Signature) > maxSignatureSize {
		return messageError("Block.UnmarshalJSON",
			fmt.Sprintf("signature of %d bytes exceeds max %d",
				len(bj.Signature), maxSignatureSize))
	}

	b.Hash = *hash
	b.PrevHash = *prevHash
	b.Height = bj.Height
	b.Payload = bj.Payload
	b.Producer = ProducerInfo{
		PubKey:        bj.Producer.PubKey,
		HardwareClass: bj.Producer.HardwareClass,
		Weight:        bj.Producer.Weight,
	}
	b.Signature = bj.Signature
	return nil
}

// String returns a short human-readable description of the block for logging.
func (b *Block) String() string {
	return fmt.Sprintf("block %v (height %d, prev %v, producer %s)",
		b.Hash, b.Height, b.PrevHash,
		shortKey(b.Producer.PubKey))
}

// shortKey renders an abbreviated hex form of a producer key for logs.
func shortKey(key []byte) string {
	if len(key) == 0 {
		return "none"
	}
	if len(key) > 4 {
		key = key[:4]
	}
	return hex.EncodeToString(key) + "..."
}
