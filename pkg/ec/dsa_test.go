package ec

import (
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// deterministic signature vectors for secp256k1 with SHA256,
// widely reproduced across RFC6979 implementations
var rfc6979Vectors = []struct {
	prvKey string
	msg    string
	k      string
	r      string
	s      string
}{
	{
		"0000000000000000000000000000000000000000000000000000000000000001",
		"Satoshi Nakamoto",
		"8f8a276c19f4149656b280621e358cce24f5f52542772691ee69063b74f15d15",
		"934b1ea10a4b3c1757e2b0c017d0b6143ce3c9a7e6a4a49860d7a6ab210ee3d8",
		"2442ce9d2b916064108014783e923ec36b49743e2ffa1c4496f01a512aafd9e5",
	},
	{
		"0000000000000000000000000000000000000000000000000000000000000001",
		"All those moments will be lost in time, like tears in rain. Time to die...",
		"38aa22d72376b4dbc472e06c3ba403ee0a394da63fc58d88686c611aba98d6b3",
		"8600dbd41e348fe5c9465ab92d23e3db8b98b873beecd930736488696438cb6b",
		"547fe64427496db33bf66019dacbf0039c04199abb0122918601db38a72cfc21",
	},
}

func hexInt(t *testing.T, s string) *big.Int {
	t.Helper()
	i, ok := new(big.Int).SetString(s, 16)
	require.True(t, ok)
	return i
}

func TestRFC6979Vectors(t *testing.T) {
	for _, v := range rfc6979Vectors {
		q := hexInt(t, v.prvKey)
		m := sha256.Sum256([]byte(v.msg))
		c, err := Challenge(m[:])
		require.NoError(t, err)

		require.Equal(t, hexInt(t, v.k), RFC6979(c, q), v.msg)

		sig, err := SignDigest(m[:], q)
		require.NoError(t, err)
		require.Equal(t, hexInt(t, v.r), sig.R)
		require.Equal(t, hexInt(t, v.s), sig.S)
	}
}

func TestSignVerify(t *testing.T) {
	q := hexInt(t, "c9afa9d845ba75166b5c215767b1d6934e50c3db36e89b127b8a622b120f6721")
	Q := MultG(q)
	msg := []byte("a message to sign")

	sig, err := Sign(msg, q)
	require.NoError(t, err)
	require.True(t, Verify(msg, Q, sig))
	require.False(t, Verify([]byte("a different message"), Q, sig))

	// low-s: s never exceeds n/2
	require.LessOrEqual(t, sig.S.Cmp(halfN), 0)

	// the high-s counterpart must not verify differently
	highS := Signature{R: sig.R, S: new(big.Int).Sub(N, sig.S)}
	require.True(t, Verify(msg, Q, highS))
}

func TestSignInvalidKey(t *testing.T) {
	m := sha256.Sum256([]byte("msg"))
	_, err := SignDigest(m[:], big.NewInt(0))
	require.Error(t, err)
	_, err = SignDigest(m[:], N)
	require.Error(t, err)
	_, err = SignDigest([]byte("short"), big.NewInt(1))
	require.Error(t, err)
}

func TestRecoverDigest(t *testing.T) {
	q := hexInt(t, "0b432b2677937381aef05bb02a66ecd012773062cf3fa2549e44f58ed2401710")
	Q := MultG(q)
	m := sha256.Sum256([]byte("recover me"))

	sig, err := SignDigest(m[:], q)
	require.NoError(t, err)

	keys, err := RecoverDigest(m[:], sig)
	require.NoError(t, err)

	found := false
	for _, k := range keys {
		if k.Equal(Q) {
			found = true
		}
		require.True(t, VerifyDigest(m[:], k, sig))
	}
	require.True(t, found, "signing key not among recovered keys")
}

func TestGenKeyPair(t *testing.T) {
	q, Q, err := GenKeyPair()
	require.NoError(t, err)
	require.True(t, Q.OnCurve())
	require.True(t, MultG(q).Equal(Q))
}

func TestCommitSignRoundTrip(t *testing.T) {
	q := hexInt(t, "c9afa9d845ba75166b5c215767b1d6934e50c3db36e89b127b8a622b120f6721")
	Q := MultG(q)
	m := sha256.Sum256([]byte("pay to bob"))
	commit := []byte("timestamped document digest")

	sig, R, err := CommitSign(commit, m[:], q)
	require.NoError(t, err)

	// the commitment opens and the signature stands on its own
	require.True(t, VerifyCommit(commit, R, m[:], Q, sig))
	require.True(t, VerifyDigest(m[:], Q, sig))

	// wrong commitment or wrong nonce point must not open
	require.False(t, VerifyCommit([]byte("another document"), R, m[:], Q, sig))
	require.False(t, VerifyCommit(commit, MultG(big.NewInt(7)), m[:], Q, sig))
}
