// Package hashes collects the hash constructions used across the library.
package hashes

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required by the protocol
)

// Sha256 returns the single SHA256 digest of data.
func Sha256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// Hash256 returns SHA256(SHA256(data)), the digest used for txids,
// block hashes, and base58check checksums.
func Hash256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// Hash160 returns RIPEMD160(SHA256(data)), the digest behind p2pkh and
// p2wpkh payloads and BIP32 fingerprints.
func Hash160(data []byte) []byte {
	first := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(first[:])
	return r.Sum(nil)
}

// MerkleRoot computes the merkle root of the given leaf hashes
// (internal byte order). Odd levels duplicate the last node.
func MerkleRoot(leaves [][]byte) []byte {
	if len(leaves) == 0 {
		return make([]byte, 32)
	}
	level := make([][]byte, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			pair := make([]byte, 0, 64)
			pair = append(pair, level[i]...)
			pair = append(pair, level[i+1]...)
			next = append(next, Hash256(pair))
		}
		level = next
	}
	return level[0]
}
