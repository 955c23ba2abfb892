package ec

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratorOnCurve(t *testing.T) {
	require.True(t, G().OnCurve())
}

func TestGroupLaws(t *testing.T) {
	g := G()
	twoG := Add(g, g)
	require.True(t, twoG.OnCurve())
	require.Equal(t, twoG, Mult(big.NewInt(2), g))

	threeG := Add(twoG, g)
	require.Equal(t, threeG, Mult(big.NewInt(3), g))
	require.Equal(t, threeG, Add(g, twoG))

	// commutativity on distinct points
	require.Equal(t, Add(twoG, threeG), Add(threeG, twoG))
}

func TestIdentity(t *testing.T) {
	g := G()
	require.Equal(t, g, Add(g, Infinity()))
	require.Equal(t, g, Add(Infinity(), g))
	require.True(t, Add(g, g.Neg()).IsInfinity())
	require.True(t, Mult(N, g).IsInfinity())
	require.Equal(t, g, Mult(new(big.Int).Add(N, big.NewInt(1)), g))
}

func TestYFromXParity(t *testing.T) {
	g := G()
	yEven, err := YFromX(g.X, false)
	require.NoError(t, err)
	yOdd, err := YFromX(g.X, true)
	require.NoError(t, err)
	require.Equal(t, uint(0), yEven.Bit(0))
	require.Equal(t, uint(1), yOdd.Bit(0))
	require.Equal(t, P, new(big.Int).Add(yEven, yOdd))
}

func TestSECPointRoundTrip(t *testing.T) {
	q := big.NewInt(0xdeadbeef)
	Q := MultG(q)

	for _, compressed := range []bool{true, false} {
		b, err := SerializePoint(Q, compressed)
		require.NoError(t, err)
		if compressed {
			require.Len(t, b, 33)
		} else {
			require.Len(t, b, 65)
		}
		got, err := ParsePoint(b)
		require.NoError(t, err)
		require.True(t, Q.Equal(got))
	}
}

func TestParsePointRejects(t *testing.T) {
	_, err := ParsePoint([]byte{0x02, 0x01})
	require.Error(t, err)

	_, err = ParsePoint(make([]byte, 65)) // prefix 0x00
	require.Error(t, err)

	// off-curve uncompressed point
	bad := make([]byte, 65)
	bad[0] = 0x04
	bad[32] = 1
	bad[64] = 1
	_, err = ParsePoint(bad)
	require.Error(t, err)
}

func TestParsePrivateKey(t *testing.T) {
	q, err := ParsePrivateKey(big.NewInt(1).FillBytes(make([]byte, 32)))
	require.NoError(t, err)
	require.Equal(t, int64(1), q.Int64())

	_, err = ParsePrivateKey(make([]byte, 32)) // zero
	require.Error(t, err)

	_, err = ParsePrivateKey(N.FillBytes(make([]byte, 32))) // == n
	require.Error(t, err)

	_, err = ParsePrivateKey(make([]byte, 31))
	require.Error(t, err)
}
