package scriptpubkey

import (
	"fmt"

	"btckit/pkg/base58"
	"btckit/pkg/bech32"
	"btckit/pkg/hashes"
	"btckit/pkg/network"
)

// Address returns the address form of a standard scriptPubKey on the
// given network. p2pk, p2ms, and nulldata scripts have no address.
func Address(spk []byte, net network.Network) (string, error) {
	scriptType, payload := Classify(spk)
	switch scriptType {
	case TypeP2PKH:
		return base58.CheckEncode(append([]byte{net.P2PKH}, payload...)), nil
	case TypeP2SH:
		return base58.CheckEncode(append([]byte{net.P2SH}, payload...)), nil
	case TypeP2WPKH, TypeP2WSH:
		return bech32.SegwitEncode(net.HRP, 0, payload)
	default:
		return "", fmt.Errorf("scriptpubkey: no address for %s script", scriptType)
	}
}

// FromAddress parses a base58 or bech32 address and returns its
// scriptPubKey and network.
func FromAddress(addr string) ([]byte, network.Network, error) {
	// base58 first: a bech32 address never check-decodes
	if payload, err := base58.CheckDecode(addr, 21); err == nil {
		if net, err := network.FromP2PKHPrefix(payload[0]); err == nil {
			spk, err := FromPayload(TypeP2PKH, payload[1:])
			return spk, net, err
		}
		if net, err := network.FromP2SHPrefix(payload[0]); err == nil {
			spk, err := FromPayload(TypeP2SH, payload[1:])
			return spk, net, err
		}
		return nil, network.Network{}, fmt.Errorf("scriptpubkey: invalid base58 address prefix %#02x", payload[0])
	}

	for _, net := range network.All {
		witVer, witProg, err := bech32.SegwitDecode(net.HRP, addr)
		if err != nil {
			continue
		}
		if witVer != 0 {
			return nil, network.Network{}, fmt.Errorf("scriptpubkey: unmanaged witness version %d", witVer)
		}
		scriptType := TypeP2WPKH
		if len(witProg) == 32 {
			scriptType = TypeP2WSH
		}
		spk, err := FromPayload(scriptType, witProg)
		return spk, net, err
	}
	return nil, network.Network{}, fmt.Errorf("scriptpubkey: invalid address %q", addr)
}

// P2PKHAddress returns the base58 address of a SEC encoded key.
func P2PKHAddress(pubKey []byte, net network.Network) (string, error) {
	spk, err := P2PKH(pubKey)
	if err != nil {
		return "", err
	}
	return Address(spk, net)
}

// P2SHAddress returns the base58 address of a redeem script.
func P2SHAddress(redeemScript []byte, net network.Network) (string, error) {
	spk, err := P2SH(redeemScript)
	if err != nil {
		return "", err
	}
	return Address(spk, net)
}

// P2WPKHAddress returns the native segwit address of a compressed key.
func P2WPKHAddress(pubKey []byte, net network.Network) (string, error) {
	spk, err := P2WPKH(pubKey)
	if err != nil {
		return "", err
	}
	return Address(spk, net)
}

// P2WSHAddress returns the native segwit address of a witness script.
func P2WSHAddress(witnessScript []byte, net network.Network) (string, error) {
	spk, err := P2WSH(witnessScript)
	if err != nil {
		return "", err
	}
	return Address(spk, net)
}

// P2WPKHP2SHAddress returns the p2sh-wrapped segwit address of a
// compressed key: the p2wpkh script becomes the redeem script.
func P2WPKHP2SHAddress(pubKey []byte, net network.Network) (string, error) {
	redeem, err := P2WPKH(pubKey)
	if err != nil {
		return "", err
	}
	return P2SHAddress(redeem, net)
}

// P2WSHP2SHAddress returns the p2sh-wrapped segwit address of a
// witness script.
func P2WSHP2SHAddress(witnessScript []byte, net network.Network) (string, error) {
	redeem, err := FromPayload(TypeP2WSH, hashes.Sha256(witnessScript))
	if err != nil {
		return "", err
	}
	return P2SHAddress(redeem, net)
}
