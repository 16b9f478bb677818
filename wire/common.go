// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// writeUint64 serializes the provided value to w using big-endian byte order.
func writeUint64(w io.Writer, val uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

// readUint64 deserializes a big-endian uint64 from r.
func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// writeVarBytes serializes a variable length byte array to w as a big-endian
// length followed by the raw bytes.
func writeVarBytes(w io.Writer, bytes []byte) error {
	if err := writeUint64(w, uint64(len(bytes))); err != nil {
		return err
	}
	_, err := w.Write(bytes)
	return err
}

// readVarBytes reads a variable length byte array from r.  An error is
// returned if the length is greater than the passed maxAllowed parameter
// which helps protect against memory exhaustion attacks and forced panics
// through malformed messages.  The fieldName parameter is only used for the
// error message so it provides more context in the error.
func readVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := readUint64(r)
	if err != nil {
		return nil, err
	}

	if count > maxAllowed {
		str := fmt.Sprintf("%s is larger than the max allowed size "+
			"[count %d, max %d]", fieldName, count, maxAllowed)
		return nil, messageError("readVarBytes", str)
	}

	if count == 0 {
		return nil, nil
	}
	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
