package bip32

import (
	"bytes"
	"fmt"

	"btckit/pkg/network"
	"btckit/pkg/scriptpubkey"
)

// AddressFromXPub returns the SLIP132 address of an extended public
// key: the version bytes select the script form, so an xpub maps to a
// legacy p2pkh address, a zpub to p2wpkh, and a ypub to p2wpkh-p2sh.
// The address is always derived from the compressed public key.
func AddressFromXPub(xpub *KeyData) (string, error) {
	if xpub.IsPrivate() {
		return "", fmt.Errorf("bip32: not a public key: %s", xpub.Encode())
	}
	net, err := network.FromXKeyVersion(xpub.Version)
	if err != nil {
		return "", err
	}

	switch {
	case bytes.Equal(xpub.Version, net.BIP32Pub):
		return scriptpubkey.P2PKHAddress(xpub.Key[:], net)
	case bytes.Equal(xpub.Version, net.SLIP132P2WPKHPub):
		return scriptpubkey.P2WPKHAddress(xpub.Key[:], net)
	case bytes.Equal(xpub.Version, net.SLIP132P2WPKHP2SHPub):
		return scriptpubkey.P2WPKHP2SHAddress(xpub.Key[:], net)
	}
	return "", fmt.Errorf("bip32: unsupported xpub version for an address: 0x%x", xpub.Version)
}

// AddressFromXKey returns the SLIP132 address of an extended key,
// neutering it first when private.
func AddressFromXKey(xkey *KeyData) (string, error) {
	if xkey.IsPrivate() {
		xpub, err := xkey.Neuter()
		if err != nil {
			return "", err
		}
		return AddressFromXPub(xpub)
	}
	return AddressFromXPub(xkey)
}
