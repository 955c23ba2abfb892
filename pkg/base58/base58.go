// Package base58 implements base58 and base58check encoding as used by
// legacy bitcoin addresses, WIF keys, and serialized extended keys.
package base58

import (
	"bytes"
	"fmt"
	"math/big"

	"btckit/pkg/hashes"
)

const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var decodeMap [256]int8

func init() {
	for i := range decodeMap {
		decodeMap[i] = -1
	}
	for i, c := range alphabet {
		decodeMap[c] = int8(i)
	}
}

var bigRadix = big.NewInt(58)

// Encode returns the base58 encoding of b.
func Encode(b []byte) string {
	x := new(big.Int).SetBytes(b)
	mod := new(big.Int)

	out := make([]byte, 0, len(b)*137/100+1)
	for x.Sign() > 0 {
		x.DivMod(x, bigRadix, mod)
		out = append(out, alphabet[mod.Int64()])
	}
	// leading zero bytes become leading '1's
	for _, c := range b {
		if c != 0 {
			break
		}
		out = append(out, alphabet[0])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// Decode returns the bytes encoded by the base58 string s.
func Decode(s string) ([]byte, error) {
	x := new(big.Int)
	for i := 0; i < len(s); i++ {
		v := decodeMap[s[i]]
		if v < 0 {
			return nil, fmt.Errorf("base58: invalid character %q", s[i])
		}
		x.Mul(x, bigRadix)
		x.Add(x, big.NewInt(int64(v)))
	}
	decoded := x.Bytes()

	// restore leading zero bytes
	zeros := 0
	for zeros < len(s) && s[zeros] == alphabet[0] {
		zeros++
	}
	out := make([]byte, zeros+len(decoded))
	copy(out[zeros:], decoded)
	return out, nil
}

// CheckEncode appends the 4-byte hash256 checksum and base58 encodes.
func CheckEncode(payload []byte) string {
	checksum := hashes.Hash256(payload)[:4]
	return Encode(append(append([]byte{}, payload...), checksum...))
}

// CheckDecode base58 decodes s and verifies its trailing checksum.
// If size is non-zero the decoded payload must be exactly size bytes.
func CheckDecode(s string, size int) ([]byte, error) {
	decoded, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if len(decoded) < 5 {
		return nil, fmt.Errorf("base58: decoded data too short: %d bytes", len(decoded))
	}
	payload, checksum := decoded[:len(decoded)-4], decoded[len(decoded)-4:]
	if !bytes.Equal(hashes.Hash256(payload)[:4], checksum) {
		return nil, fmt.Errorf("base58: invalid checksum")
	}
	if size != 0 && len(payload) != size {
		return nil, fmt.Errorf("base58: invalid decoded length: %d instead of %d", len(payload), size)
	}
	return payload, nil
}
