// Package varint implements the Bitcoin CompactSize encoding.
//
// Values up to 0xFC are encoded as a single byte; larger values use a
// 0xFD/0xFE/0xFF prefix followed by 2/4/8 little-endian bytes.
package varint

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encode returns the CompactSize serialization of i.
func Encode(i uint64) []byte {
	switch {
	case i <= 0xFC:
		return []byte{byte(i)}
	case i <= 0xFFFF:
		b := make([]byte, 3)
		b[0] = 0xFD
		binary.LittleEndian.PutUint16(b[1:], uint16(i))
		return b
	case i <= 0xFFFFFFFF:
		b := make([]byte, 5)
		b[0] = 0xFE
		binary.LittleEndian.PutUint32(b[1:], uint32(i))
		return b
	default:
		b := make([]byte, 9)
		b[0] = 0xFF
		binary.LittleEndian.PutUint64(b[1:], i)
		return b
	}
}

// Decode reads a CompactSize integer from r.
func Decode(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, fmt.Errorf("varint: %w", err)
	}
	var width int
	switch prefix[0] {
	case 0xFD:
		width = 2
	case 0xFE:
		width = 4
	case 0xFF:
		width = 8
	default:
		return uint64(prefix[0]), nil
	}
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf[:width]); err != nil {
		return 0, fmt.Errorf("varint: %w", err)
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// EncodedLen returns the number of bytes Encode(i) produces.
func EncodedLen(i uint64) int {
	switch {
	case i <= 0xFC:
		return 1
	case i <= 0xFFFF:
		return 3
	case i <= 0xFFFFFFFF:
		return 5
	default:
		return 9
	}
}

// EncodeBytes returns the length-prefixed serialization of b:
// CompactSize(len(b)) followed by b itself.
func EncodeBytes(b []byte) []byte {
	out := Encode(uint64(len(b)))
	return append(out, b...)
}

// DecodeBytes reads a length-prefixed byte string from r. A zero
// length yields nil so parsed structures compare equal to ones built
// without the field.
func DecodeBytes(r io.Reader) ([]byte, error) {
	n, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	// arbitrary sanity cap: nothing in a bitcoin wire structure is this large
	if n > 1<<26 {
		return nil, fmt.Errorf("varint: unreasonable length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("varint: not enough binary data: %w", err)
	}
	return buf, nil
}
