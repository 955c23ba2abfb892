package ec

import (
	"crypto/hmac"
	"crypto/sha256"
	"math/big"
)

// RFC6979 returns the deterministic ephemeral key for the given
// challenge and private key, per RFC 6979 section 3.2 with SHA256.
//
// The candidate is produced by bits2int truncation without a final
// reduction modulo n: for secp256k1 with SHA256 the retry-loop bias
// is on the order of 2^-128 and a modular shortcut would reintroduce
// an observable one on other parameter choices.
func RFC6979(c, q *big.Int) *big.Int {
	bprv := q.FillBytes(make([]byte, NSize))
	bc := new(big.Int).Mod(c, N).FillBytes(make([]byte, NSize))
	seed := append(bprv, bc...)

	hsize := sha256.Size
	v := make([]byte, hsize)
	k := make([]byte, hsize)
	for i := range v {
		v[i] = 0x01
	}

	k = hmacSHA256(k, v, []byte{0x00}, seed)
	v = hmacSHA256(k, v)
	k = hmacSHA256(k, v, []byte{0x01}, seed)
	v = hmacSHA256(k, v)

	for {
		t := make([]byte, 0, NSize)
		for len(t) < NSize {
			v = hmacSHA256(k, v)
			t = append(t, v...)
		}
		nonce := intFromBits(t[:NSize])
		if nonce.Sign() > 0 && nonce.Cmp(N) < 0 {
			return nonce
		}
		k = hmacSHA256(k, v, []byte{0x00})
		v = hmacSHA256(k, v)
	}
}

func hmacSHA256(key []byte, chunks ...[]byte) []byte {
	mac := hmac.New(sha256.New, key)
	for _, c := range chunks {
		mac.Write(c)
	}
	return mac.Sum(nil)
}

// intFromBits interprets the leftmost NLen bits of b as an integer.
func intFromBits(b []byte) *big.Int {
	i := new(big.Int).SetBytes(b)
	if excess := len(b)*8 - NLen; excess > 0 {
		i.Rsh(i, uint(excess))
	}
	return i
}
