// Package scriptpubkey builds and classifies the standard transaction
// output scripts and maps them to and from addresses.
package scriptpubkey

import (
	"bytes"
	"fmt"
	"sort"

	"btckit/pkg/ec"
	"btckit/pkg/hashes"
	"btckit/pkg/script"
	"btckit/pkg/varint"
)

// Standard script types.
const (
	TypeP2PK     = "p2pk"
	TypeP2PKH    = "p2pkh"
	TypeP2SH     = "p2sh"
	TypeP2MS     = "p2ms"
	TypeNullData = "nulldata"
	TypeP2WPKH   = "p2wpkh"
	TypeP2WSH    = "p2wsh"
	TypeUnknown  = "unknown"
)

// FromPayload assembles a scriptPubKey of the given type around its
// payload: a key, a hash, a witness program, or raw data.
func FromPayload(scriptType string, payload []byte) ([]byte, error) {
	switch scriptType {
	case TypeP2PK:
		if len(payload) != 33 && len(payload) != 65 {
			return nil, fmt.Errorf("scriptpubkey: invalid p2pk payload length: %d", len(payload))
		}
		return script.Serialize([]script.Command{
			script.Data(payload), script.Op("OP_CHECKSIG"),
		})
	case TypeP2PKH:
		if len(payload) != 20 {
			return nil, fmt.Errorf("scriptpubkey: invalid p2pkh payload length: %d", len(payload))
		}
		return script.Serialize([]script.Command{
			script.Op("OP_DUP"), script.Op("OP_HASH160"), script.Data(payload),
			script.Op("OP_EQUALVERIFY"), script.Op("OP_CHECKSIG"),
		})
	case TypeP2SH:
		if len(payload) != 20 {
			return nil, fmt.Errorf("scriptpubkey: invalid p2sh payload length: %d", len(payload))
		}
		return script.Serialize([]script.Command{
			script.Op("OP_HASH160"), script.Data(payload), script.Op("OP_EQUAL"),
		})
	case TypeNullData:
		if len(payload) > 80 {
			return nil, fmt.Errorf("scriptpubkey: invalid nulldata script length: %d bytes", len(payload))
		}
		return script.Serialize([]script.Command{
			script.Op("OP_RETURN"), script.Data(payload),
		})
	case TypeP2WPKH:
		if len(payload) != 20 {
			return nil, fmt.Errorf("scriptpubkey: invalid p2wpkh payload length: %d", len(payload))
		}
		return script.Serialize([]script.Command{
			script.Op("OP_0"), script.Data(payload),
		})
	case TypeP2WSH:
		if len(payload) != 32 {
			return nil, fmt.Errorf("scriptpubkey: invalid p2wsh payload length: %d", len(payload))
		}
		return script.Serialize([]script.Command{
			script.Op("OP_0"), script.Data(payload),
		})
	case TypeP2MS:
		spk := append(append([]byte{}, payload...), 0xae)
		if !isP2MS(spk) {
			return nil, fmt.Errorf("scriptpubkey: invalid p2ms payload")
		}
		return spk, nil
	default:
		return nil, fmt.Errorf("scriptpubkey: unknown script type %q", scriptType)
	}
}

func isP2PK(spk []byte) bool {
	// 0x41{65-byte key}AC or 0x21{33-byte key}AC
	return len(spk) > 34 &&
		len(spk) == int(spk[0])+2 &&
		(spk[0] == 0x41 || spk[0] == 0x21) &&
		spk[len(spk)-1] == 0xac
}

func isP2PKH(spk []byte) bool {
	// OP_DUP OP_HASH160 {20-byte hash} OP_EQUALVERIFY OP_CHECKSIG
	return len(spk) == 25 &&
		bytes.Equal(spk[:3], []byte{0x76, 0xa9, 0x14}) &&
		bytes.Equal(spk[23:], []byte{0x88, 0xac})
}

func isP2SH(spk []byte) bool {
	// OP_HASH160 {20-byte hash} OP_EQUAL
	return len(spk) == 23 &&
		bytes.Equal(spk[:2], []byte{0xa9, 0x14}) &&
		spk[22] == 0x87
}

func isP2MS(spk []byte) bool {
	// m {keys} n OP_CHECKMULTISIG
	if len(spk) < 37 || spk[len(spk)-1] != 0xae {
		return false
	}
	m := int(spk[0]) - 80
	n := int(spk[len(spk)-2]) - 80
	if m < 1 || m > 16 || n < m || n > 16 {
		return false
	}
	r := bytes.NewReader(spk[1 : len(spk)-2])
	for i := 0; i < n; i++ {
		key, err := varint.DecodeBytes(r)
		if err != nil {
			return false
		}
		if len(key) != 33 && len(key) != 65 {
			return false
		}
	}
	return r.Len() == 0
}

func isNullData(spk []byte) bool {
	length := len(spk)
	if length < 78 {
		// OP_RETURN, single-byte push length, up to 75 bytes
		return length > 1 && spk[0] == 0x6a && int(spk[1]) == length-2
	}
	// OP_RETURN OP_PUSHDATA1, 76 to 80 bytes
	return length < 84 && spk[0] == 0x6a && spk[1] == 0x4c && int(spk[2]) == length-3
}

func isP2WPKH(spk []byte) bool {
	return len(spk) == 22 && spk[0] == 0x00 && spk[1] == 0x14
}

func isP2WSH(spk []byte) bool {
	return len(spk) == 34 && spk[0] == 0x00 && spk[1] == 0x20
}

// Classify returns the standard type of spk and its payload; unknown
// scripts are returned whole.
func Classify(spk []byte) (string, []byte) {
	switch {
	case isP2WPKH(spk):
		return TypeP2WPKH, spk[2:]
	case isP2WSH(spk):
		return TypeP2WSH, spk[2:]
	case isP2PK(spk):
		return TypeP2PK, spk[1 : len(spk)-1]
	case isP2MS(spk):
		return TypeP2MS, spk[:len(spk)-1]
	case isNullData(spk):
		if len(spk) < 78 {
			return TypeNullData, spk[2:]
		}
		return TypeNullData, spk[3:]
	case isP2PKH(spk):
		return TypeP2PKH, spk[3:23]
	case isP2SH(spk):
		return TypeP2SH, spk[2:22]
	default:
		return TypeUnknown, spk
	}
}

// P2PK returns the pay-to-pubkey script of a SEC encoded key.
func P2PK(pubKey []byte) ([]byte, error) {
	if _, err := ec.ParsePoint(pubKey); err != nil {
		return nil, err
	}
	return FromPayload(TypeP2PK, pubKey)
}

// P2PKH returns the pay-to-pubkey-hash script of a SEC encoded key.
func P2PKH(pubKey []byte) ([]byte, error) {
	if _, err := ec.ParsePoint(pubKey); err != nil {
		return nil, err
	}
	return FromPayload(TypeP2PKH, hashes.Hash160(pubKey))
}

// P2SH returns the pay-to-script-hash script of a redeem script.
func P2SH(redeemScript []byte) ([]byte, error) {
	return FromPayload(TypeP2SH, hashes.Hash160(redeemScript))
}

// P2MS returns the m-of-n multisig script of the provided SEC keys.
// BIP67 lexicographic sorting is applied unless disabled.
func P2MS(m int, pubKeys [][]byte, lexiSort bool) ([]byte, error) {
	n := len(pubKeys)
	if m < 1 || m > n || n > 16 {
		return nil, fmt.Errorf("scriptpubkey: invalid %d-of-%d multisig", m, n)
	}
	keys := make([][]byte, n)
	for i, k := range pubKeys {
		if _, err := ec.ParsePoint(k); err != nil {
			return nil, fmt.Errorf("scriptpubkey: key %d: %w", i, err)
		}
		keys[i] = k
	}
	if lexiSort {
		sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	}
	payload := []byte{byte(80 + m)}
	for _, k := range keys {
		payload = append(payload, varint.EncodeBytes(k)...)
	}
	payload = append(payload, byte(80+n))
	return FromPayload(TypeP2MS, payload)
}

// NullData returns the provably unspendable data-carrier script.
func NullData(data []byte) ([]byte, error) {
	return FromPayload(TypeNullData, data)
}

// P2WPKH returns the native segwit v0 key script. The key must be
// compressed.
func P2WPKH(pubKey []byte) ([]byte, error) {
	if len(pubKey) != 33 {
		return nil, fmt.Errorf("scriptpubkey: p2wpkh requires a compressed key")
	}
	if _, err := ec.ParsePoint(pubKey); err != nil {
		return nil, err
	}
	return FromPayload(TypeP2WPKH, hashes.Hash160(pubKey))
}

// P2WSH returns the native segwit v0 script-hash script.
func P2WSH(witnessScript []byte) ([]byte, error) {
	return FromPayload(TypeP2WSH, hashes.Sha256(witnessScript))
}
