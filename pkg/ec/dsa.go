package ec

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
)

// Signature is an ECDSA (r, s) pair with both scalars in [1, n-1].
type Signature struct {
	R, S *big.Int
}

// DER returns the strict DER encoding of sig.
func (sig Signature) DER() ([]byte, error) { return SerializeDER(sig.R, sig.S) }

// GenKeyPair returns a fresh private scalar and its public point.
func GenKeyPair() (*big.Int, Point, error) {
	for {
		b := make([]byte, NSize)
		if _, err := rand.Read(b); err != nil {
			return nil, Point{}, fmt.Errorf("ec: reading randomness: %w", err)
		}
		q := new(big.Int).SetBytes(b)
		if q.Sign() > 0 && q.Cmp(N) < 0 {
			return q, MultG(q), nil
		}
	}
}

// Challenge reduces a message digest to a scalar challenge: the
// leftmost NLen bits of m, modulo n.
func Challenge(m []byte) (*big.Int, error) {
	if len(m) != sha256.Size {
		return nil, fmt.Errorf("ec: invalid digest length: %d instead of %d", len(m), sha256.Size)
	}
	c := intFromBits(m)
	return c.Mod(c, N), nil
}

// ChallengeMessage hashes msg with SHA256 and reduces it.
func ChallengeMessage(msg []byte) *big.Int {
	m := sha256.Sum256(msg)
	c, _ := Challenge(m[:])
	return c
}

// signWithNonce performs the core signing steps of SEC 1 v.2 section
// 4.1.3 for challenge c, key q, and nonce k, all reduced already.
func signWithNonce(c, q, k *big.Int, lowS bool) (Signature, error) {
	K := MultG(k)
	if K.IsInfinity() {
		return Signature{}, fmt.Errorf("ec: failed to sign: k*G at infinity")
	}
	r := new(big.Int).Mod(K.X, N)
	if r.Sign() == 0 {
		return Signature{}, fmt.Errorf("ec: failed to sign: r = 0")
	}
	s := new(big.Int).ModInverse(k, N)
	rq := new(big.Int).Mul(r, q)
	rq.Add(rq, c)
	s.Mul(s, rq)
	s.Mod(s, N)
	if s.Sign() == 0 {
		return Signature{}, fmt.Errorf("ec: failed to sign: s = 0")
	}
	// low-s canonical form removes signature malleability
	if lowS && s.Cmp(halfN) > 0 {
		s.Sub(N, s)
	}
	return Signature{R: r, S: s}, nil
}

// SignDigest signs a 32-byte digest with the RFC6979 deterministic
// nonce and low-s preference.
func SignDigest(m []byte, prvKey *big.Int) (Signature, error) {
	if prvKey.Sign() <= 0 || prvKey.Cmp(N) >= 0 {
		return Signature{}, fmt.Errorf("ec: private key not in 1..n-1")
	}
	c, err := Challenge(m)
	if err != nil {
		return Signature{}, err
	}
	k := RFC6979(c, prvKey)
	return signWithNonce(c, prvKey, k, true)
}

// SignDigestWithNonce signs a 32-byte digest with a caller-provided
// nonce. Reusing a nonce across messages reveals the private key.
func SignDigestWithNonce(m []byte, prvKey, nonce *big.Int, lowS bool) (Signature, error) {
	if prvKey.Sign() <= 0 || prvKey.Cmp(N) >= 0 {
		return Signature{}, fmt.Errorf("ec: private key not in 1..n-1")
	}
	if nonce.Sign() <= 0 || nonce.Cmp(N) >= 0 {
		return Signature{}, fmt.Errorf("ec: nonce not in 1..n-1")
	}
	c, err := Challenge(m)
	if err != nil {
		return Signature{}, err
	}
	return signWithNonce(c, prvKey, nonce, lowS)
}

// Sign hashes msg with SHA256 and signs the digest.
func Sign(msg []byte, prvKey *big.Int) (Signature, error) {
	m := sha256.Sum256(msg)
	return SignDigest(m[:], prvKey)
}

// VerifyDigest reports whether sig is a valid signature of the
// 32-byte digest m under the public key Q.
func VerifyDigest(m []byte, Q Point, sig Signature) bool {
	if err := validateSig(sig.R, sig.S); err != nil {
		return false
	}
	if !Q.OnCurve() {
		return false
	}
	c, err := Challenge(m)
	if err != nil {
		return false
	}
	w := new(big.Int).ModInverse(sig.S, N)
	u := new(big.Int).Mul(c, w)
	u.Mod(u, N)
	v := new(big.Int).Mul(sig.R, w)
	v.Mod(v, N)
	K := DoubleMult(u, v, Q)
	if K.IsInfinity() {
		return false
	}
	return new(big.Int).Mod(K.X, N).Cmp(sig.R) == 0
}

// Verify hashes msg with SHA256 and verifies the digest signature.
func Verify(msg []byte, Q Point, sig Signature) bool {
	m := sha256.Sum256(msg)
	return VerifyDigest(m[:], Q, sig)
}

// RecoverDigest returns the candidate public keys that verify sig
// over the 32-byte digest m (SEC 1 v.2 section 4.1.6).
func RecoverDigest(m []byte, sig Signature) ([]Point, error) {
	if err := validateSig(sig.R, sig.S); err != nil {
		return nil, err
	}
	c, err := Challenge(m)
	if err != nil {
		return nil, err
	}
	rInv := new(big.Int).ModInverse(sig.R, N)

	var keys []Point
	for j := 0; j < 2; j++ {
		x := new(big.Int).Add(sig.R, new(big.Int).Mul(big.NewInt(int64(j)), N))
		if x.Cmp(P) >= 0 {
			break
		}
		for _, odd := range []bool{false, true} {
			y, err := YFromX(x, odd)
			if err != nil {
				continue
			}
			K := Point{X: x, Y: y}
			// Q = r^-1 * (s*K - c*G)
			sK := Mult(sig.S, K)
			cG := MultG(new(big.Int).Sub(N, c))
			Q := Mult(rInv, Add(sK, cG))
			if VerifyDigest(m, Q, sig) {
				keys = append(keys, Q)
			}
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("ec: no public key recovered")
	}
	return keys, nil
}
