package ec

import (
	"crypto/sha256"
	"math/big"
)

// Sign-to-contract: commit to a value inside an ECDSA signature by
// tweaking the nonce with hash(R || commitment), where R is the
// untweaked nonce point. The verifier, given R, can both verify the
// signature and open the commitment.

// commitTweak returns the hash(R||c) tweak, retrying the hash chain
// until the candidate lands in [1, n-1].
func commitTweak(commit []byte, R Point) (*big.Int, error) {
	rb, err := SerializePoint(R, true)
	if err != nil {
		return nil, err
	}
	t := append(rb, commit...)
	for {
		h := sha256.Sum256(t)
		t = h[:]
		tweak := intFromBits(t)
		if tweak.Sign() > 0 && tweak.Cmp(N) < 0 {
			return tweak, nil
		}
	}
}

// CommitSign signs the 32-byte digest m while committing to commit.
// It returns the signature and the untweaked nonce point R needed to
// open the commitment.
func CommitSign(commit, m []byte, prvKey *big.Int) (Signature, Point, error) {
	c, err := Challenge(m)
	if err != nil {
		return Signature{}, Point{}, err
	}
	nonce := RFC6979(c, prvKey)
	R := MultG(nonce)

	tweak, err := commitTweak(commit, R)
	if err != nil {
		return Signature{}, Point{}, err
	}
	tweaked := new(big.Int).Add(nonce, tweak)
	tweaked.Mod(tweaked, N)

	sig, err := SignDigestWithNonce(m, prvKey, tweaked, true)
	if err != nil {
		return Signature{}, Point{}, err
	}
	return sig, R, nil
}

// VerifyCommit reports whether sig both verifies the 32-byte digest m
// under Q and commits to commit through the nonce point R.
func VerifyCommit(commit []byte, R Point, m []byte, Q Point, sig Signature) bool {
	tweak, err := commitTweak(commit, R)
	if err != nil {
		return false
	}
	W := Add(R, MultG(tweak))
	if W.IsInfinity() {
		return false
	}
	// the tweaked nonce point must match the signature's r,
	// up to the low-s normalization of the x coordinate
	if new(big.Int).Mod(W.X, N).Cmp(sig.R) != 0 {
		return false
	}
	return VerifyDigest(m, Q, sig)
}
