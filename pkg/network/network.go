// Package network holds the per-chain constants: address prefixes, the
// bech32 human readable part, and the BIP32/SLIP132 extended key versions.
package network

import (
	"bytes"
	"fmt"
)

// Network describes one chain's serialization constants.
type Network struct {
	Name         string
	MagicBytes   []byte
	GenesisBlock []byte // block hash, internal byte order

	WIF   byte
	P2PKH byte
	P2SH  byte
	HRP   string

	BIP32Prv []byte
	BIP32Pub []byte

	SLIP132P2WPKHPrv     []byte
	SLIP132P2WPKHPub     []byte
	SLIP132P2WPKHP2SHPrv []byte
	SLIP132P2WPKHP2SHPub []byte
	SLIP132P2WSHPrv      []byte
	SLIP132P2WSHPub      []byte
	SLIP132P2WSHP2SHPrv  []byte
	SLIP132P2WSHP2SHPub  []byte
}

func h(s string) []byte {
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		_, err := fmt.Sscanf(s[2*i:2*i+2], "%02x", &out[i])
		if err != nil {
			panic(err)
		}
	}
	return out
}

// Mainnet, Testnet, Signet and Regtest are the supported chains.
var (
	Mainnet = Network{
		Name:         "mainnet",
		MagicBytes:   h("f9beb4d9"),
		GenesisBlock: h("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"),
		WIF:          0x80,
		P2PKH:        0x00,
		P2SH:         0x05,
		HRP:          "bc",
		BIP32Prv:     h("0488ade4"),
		BIP32Pub:     h("0488b21e"),

		SLIP132P2WPKHPrv:     h("04b2430c"),
		SLIP132P2WPKHPub:     h("04b24746"),
		SLIP132P2WPKHP2SHPrv: h("049d7878"),
		SLIP132P2WPKHP2SHPub: h("049d7cb2"),
		SLIP132P2WSHPrv:      h("02aa7a99"),
		SLIP132P2WSHPub:      h("02aa7ed3"),
		SLIP132P2WSHP2SHPrv:  h("0295b005"),
		SLIP132P2WSHP2SHPub:  h("0295b43f"),
	}

	Testnet = Network{
		Name:         "testnet",
		MagicBytes:   h("0b110907"),
		GenesisBlock: h("000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943"),
		WIF:          0xef,
		P2PKH:        0x6f,
		P2SH:         0xc4,
		HRP:          "tb",
		BIP32Prv:     h("04358394"),
		BIP32Pub:     h("043587cf"),

		SLIP132P2WPKHPrv:     h("045f18bc"),
		SLIP132P2WPKHPub:     h("045f1cf6"),
		SLIP132P2WPKHP2SHPrv: h("044a4e28"),
		SLIP132P2WPKHP2SHPub: h("044a5262"),
		SLIP132P2WSHPrv:      h("02575048"),
		SLIP132P2WSHPub:      h("02575483"),
		SLIP132P2WSHP2SHPrv:  h("024285b5"),
		SLIP132P2WSHP2SHPub:  h("024289ef"),
	}

	Signet = Network{
		Name:         "signet",
		MagicBytes:   h("0a03cf40"),
		GenesisBlock: h("00000008819873e925422c1ff0f99f7cc9bbb232af63a077a480a3633bee1ef6"),
		WIF:          0xef,
		P2PKH:        0x6f,
		P2SH:         0xc4,
		HRP:          "tb",
		BIP32Prv:     h("04358394"),
		BIP32Pub:     h("043587cf"),

		SLIP132P2WPKHPrv:     h("045f18bc"),
		SLIP132P2WPKHPub:     h("045f1cf6"),
		SLIP132P2WPKHP2SHPrv: h("044a4e28"),
		SLIP132P2WPKHP2SHPub: h("044a5262"),
		SLIP132P2WSHPrv:      h("02575048"),
		SLIP132P2WSHPub:      h("02575483"),
		SLIP132P2WSHP2SHPrv:  h("024285b5"),
		SLIP132P2WSHP2SHPub:  h("024289ef"),
	}

	Regtest = Network{
		Name:         "regtest",
		MagicBytes:   h("fabfb5da"),
		GenesisBlock: h("0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206"),
		WIF:          0xef,
		P2PKH:        0x6f,
		P2SH:         0xc4,
		HRP:          "bcrt",
		BIP32Prv:     h("04358394"),
		BIP32Pub:     h("043587cf"),

		SLIP132P2WPKHPrv:     h("045f18bc"),
		SLIP132P2WPKHPub:     h("045f1cf6"),
		SLIP132P2WPKHP2SHPrv: h("044a4e28"),
		SLIP132P2WPKHP2SHPub: h("044a5262"),
		SLIP132P2WSHPrv:      h("02575048"),
		SLIP132P2WSHPub:      h("02575483"),
		SLIP132P2WSHP2SHPrv:  h("024285b5"),
		SLIP132P2WSHP2SHPub:  h("024289ef"),
	}
)

// All lists the supported networks; lookup order matters because regtest
// shares every version byte with testnet.
var All = []Network{Mainnet, Testnet, Signet, Regtest}

// ByName returns the network with the given name.
func ByName(name string) (Network, error) {
	for _, n := range All {
		if n.Name == name {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("network: unknown network %q", name)
}

// XPrvVersions returns every extended private key version of n.
func (n Network) XPrvVersions() [][]byte {
	return [][]byte{
		n.BIP32Prv,
		n.SLIP132P2WSHP2SHPrv,
		n.SLIP132P2WPKHP2SHPrv,
		n.SLIP132P2WPKHPrv,
		n.SLIP132P2WSHPrv,
	}
}

// XPubVersions returns every extended public key version of n.
func (n Network) XPubVersions() [][]byte {
	return [][]byte{
		n.BIP32Pub,
		n.SLIP132P2WSHP2SHPub,
		n.SLIP132P2WPKHP2SHPub,
		n.SLIP132P2WPKHPub,
		n.SLIP132P2WSHPub,
	}
}

// FromXKeyVersion returns the network a 4-byte extended key version
// belongs to. Testnet is returned for the versions it shares with
// signet and regtest.
func FromXKeyVersion(version []byte) (Network, error) {
	for _, n := range All {
		for _, v := range append(n.XPrvVersions(), n.XPubVersions()...) {
			if bytes.Equal(v, version) {
				return n, nil
			}
		}
	}
	return Network{}, fmt.Errorf("network: unknown extended key version %x", version)
}

// IsXPrvVersion reports whether version is an extended private key
// version on any supported network.
func IsXPrvVersion(version []byte) bool {
	for _, n := range All {
		for _, v := range n.XPrvVersions() {
			if bytes.Equal(v, version) {
				return true
			}
		}
	}
	return false
}

// IsXPubVersion reports whether version is an extended public key
// version on any supported network.
func IsXPubVersion(version []byte) bool {
	for _, n := range All {
		for _, v := range n.XPubVersions() {
			if bytes.Equal(v, version) {
				return true
			}
		}
	}
	return false
}

// FromP2PKHPrefix returns the first network using the given p2pkh
// version byte.
func FromP2PKHPrefix(prefix byte) (Network, error) {
	for _, n := range All {
		if n.P2PKH == prefix {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("network: unknown p2pkh prefix %#02x", prefix)
}

// FromP2SHPrefix returns the first network using the given p2sh
// version byte.
func FromP2SHPrefix(prefix byte) (Network, error) {
	for _, n := range All {
		if n.P2SH == prefix {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("network: unknown p2sh prefix %#02x", prefix)
}

// FromWIFPrefix returns the first network using the given WIF
// version byte.
func FromWIFPrefix(prefix byte) (Network, error) {
	for _, n := range All {
		if n.WIF == prefix {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("network: unknown wif prefix %#02x", prefix)
}

// FromHRP returns the first network using the given bech32 hrp.
func FromHRP(hrp string) (Network, error) {
	for _, n := range All {
		if n.HRP == hrp {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("network: unknown hrp %q", hrp)
}
