package scriptpubkey

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"btckit/pkg/network"
)

func TestP2PKHAddress(t *testing.T) {
	addr, err := P2PKHAddress(pubKey(t), network.Mainnet)
	require.NoError(t, err)
	require.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", addr)

	spk, net, err := FromAddress(addr)
	require.NoError(t, err)
	require.Equal(t, "mainnet", net.Name)
	require.Equal(t,
		"76a914751e76e8199196d454941c45d1b3a323f1433bd688ac",
		hex.EncodeToString(spk))
}

func TestP2PKHAddressTestnet(t *testing.T) {
	key, err := hex.DecodeString("0250863ad64a87ae8a2fe83c1af1a8403cb53f53e486d8511dad8a04887e5b2352")
	require.NoError(t, err)

	addr, err := P2PKHAddress(key, network.Testnet)
	require.NoError(t, err)
	require.Equal(t, "n3svudhm7bt6j3nTT9uu1A57Cs9pKK3iXW", addr)

	addr, err = P2PKHAddress(key, network.Mainnet)
	require.NoError(t, err)
	require.Equal(t, "1PMycacnJaSqwwJqjawXBErnLsZ7RkXUAs", addr)
}

func TestP2WPKHAddress(t *testing.T) {
	addr, err := P2WPKHAddress(pubKey(t), network.Mainnet)
	require.NoError(t, err)
	require.Equal(t, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", addr)

	spk, net, err := FromAddress(addr)
	require.NoError(t, err)
	require.Equal(t, "mainnet", net.Name)
	require.Equal(t, "0014751e76e8199196d454941c45d1b3a323f1433bd6", hex.EncodeToString(spk))
}

func TestP2SHAddress(t *testing.T) {
	addr, err := P2SHAddress([]byte{0x51}, network.Mainnet)
	require.NoError(t, err)
	require.Equal(t, "3MaB7QVq3k4pQx3BhsvEADgzQonLSBwMdj", addr)

	spk, net, err := FromAddress(addr)
	require.NoError(t, err)
	require.Equal(t, "mainnet", net.Name)
	scriptType, _ := Classify(spk)
	require.Equal(t, TypeP2SH, scriptType)
}

func TestP2WPKHP2SHAddress(t *testing.T) {
	addr, err := P2WPKHP2SHAddress(pubKey(t), network.Mainnet)
	require.NoError(t, err)
	require.Equal(t, "3JvL6Ymt8MVWiCNHC7oWU6nLeHNJKLZGLN", addr)
}

func TestP2WSHAddressRoundTrip(t *testing.T) {
	addr, err := P2WSHAddress([]byte{0x51}, network.Regtest)
	require.NoError(t, err)

	spk, net, err := FromAddress(addr)
	require.NoError(t, err)
	require.Equal(t, "regtest", net.Name)
	require.Equal(t,
		"00204ae81572f06e1b88fd5ced7a1a000945432e83e1551e6f721ee9c00b8cc33260",
		hex.EncodeToString(spk))
}

func TestAddressErrors(t *testing.T) {
	// p2pk and nulldata scripts have no address form
	spk, err := P2PK(pubKey(t))
	require.NoError(t, err)
	_, err = Address(spk, network.Mainnet)
	require.Error(t, err)

	spk, err = NullData([]byte("hi"))
	require.NoError(t, err)
	_, err = Address(spk, network.Mainnet)
	require.Error(t, err)
}

func TestFromAddressErrors(t *testing.T) {
	for _, addr := range []string{
		"",
		"not an address",
		"1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMh",          // bad checksum
		"bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t5",   // bad bech32 checksum
		"bc1pw508d6qejxtdg4y5r3zarvary0c5xw7kw508d6qejxtdg4y5r3zarvary0c5xw7k7grplx", // v1 program
	} {
		_, _, err := FromAddress(addr)
		require.Error(t, err, addr)
	}
}
