// Package bip32 implements hierarchical deterministic wallets.
//
// An extended key is a tree node of a key hierarchy derived from a
// single seed. Serialized it is 78 bytes: a 4-byte version, the depth
// in the derivation path, the parent key fingerprint, the child index,
// the chain code, and the 33-byte key material (compressed public key
// or 0x00 followed by the private key).
package bip32

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"btckit/pkg/base58"
	"btckit/pkg/ec"
	"btckit/pkg/hashes"
	"btckit/pkg/network"
)

const serializedLen = 78

var masterHMACKey = []byte("Bitcoin seed")

// KeyData is a deserialized BIP32 extended key.
type KeyData struct {
	Version           []byte
	Depth             uint8
	ParentFingerprint [4]byte
	Index             uint32
	ChainCode         [32]byte
	Key               [33]byte
}

// IsPrivate reports whether the key carries private key material.
func (k *KeyData) IsPrivate() bool {
	return network.IsXPrvVersion(k.Version)
}

// IsHardened reports whether the key sits on a hardened branch.
func (k *KeyData) IsHardened() bool {
	return k.Index >= HardenedOffset
}

// Validate checks the structural and cryptographic invariants of the
// extended key, including the version/key-material match.
func (k *KeyData) Validate() error {
	if len(k.Version) != 4 {
		return fmt.Errorf("bip32: invalid version length: %d bytes", len(k.Version))
	}

	switch {
	case network.IsXPrvVersion(k.Version):
		if k.Key[0] != 0 {
			return fmt.Errorf("bip32: invalid private key prefix: 0x%02x", k.Key[0])
		}
		if _, err := ec.ParsePrivateKey(k.Key[1:]); err != nil {
			return err
		}
	case network.IsXPubVersion(k.Version):
		if _, err := ec.ParsePoint(k.Key[:]); err != nil {
			return fmt.Errorf("bip32: invalid public key: %w", err)
		}
	default:
		return fmt.Errorf("bip32: unknown extended key version: 0x%x", k.Version)
	}

	if k.Depth == 0 {
		if k.ParentFingerprint != [4]byte{} {
			return fmt.Errorf("bip32: zero depth with non-zero parent fingerprint: 0x%x",
				k.ParentFingerprint)
		}
		if k.Index != 0 {
			return fmt.Errorf("bip32: zero depth with non-zero index: %d", k.Index)
		}
	}
	return nil
}

// Serialize returns the 78-byte extended key.
func (k *KeyData) Serialize() []byte {
	out := make([]byte, 0, serializedLen)
	out = append(out, k.Version...)
	out = append(out, k.Depth)
	out = append(out, k.ParentFingerprint[:]...)
	out = binary.BigEndian.AppendUint32(out, k.Index)
	out = append(out, k.ChainCode[:]...)
	out = append(out, k.Key[:]...)
	return out
}

// Encode returns the base58check string of the extended key, the
// familiar xprv/xpub form.
func (k *KeyData) Encode() string {
	return base58.CheckEncode(k.Serialize())
}

// ParseKeyBytes deserializes and validates a 78-byte extended key.
func ParseKeyBytes(b []byte) (*KeyData, error) {
	if len(b) != serializedLen {
		return nil, fmt.Errorf("bip32: invalid decoded length: %d instead of %d",
			len(b), serializedLen)
	}
	k := &KeyData{
		Version: bytes.Clone(b[:4]),
		Depth:   b[4],
		Index:   binary.BigEndian.Uint32(b[9:13]),
	}
	copy(k.ParentFingerprint[:], b[5:9])
	copy(k.ChainCode[:], b[13:45])
	copy(k.Key[:], b[45:78])
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

// ParseKey decodes a base58check xprv/xpub string.
func ParseKey(s string) (*KeyData, error) {
	b, err := base58.CheckDecode(s, serializedLen)
	if err != nil {
		return nil, err
	}
	return ParseKeyBytes(b)
}

// PublicKey returns the compressed public key of the extended key,
// computing it from the private key material when needed.
func (k *KeyData) PublicKey() ([]byte, error) {
	if !k.IsPrivate() {
		return bytes.Clone(k.Key[:]), nil
	}
	q, err := ec.ParsePrivateKey(k.Key[1:])
	if err != nil {
		return nil, err
	}
	return ec.SerializePoint(ec.MultG(q), true)
}

// PrivateKey returns the private key scalar, or an error for a public
// extended key.
func (k *KeyData) PrivateKey() (*big.Int, error) {
	if !k.IsPrivate() {
		return nil, errors.New("bip32: not a private key")
	}
	return ec.ParsePrivateKey(k.Key[1:])
}

// Fingerprint returns the first four bytes of the hash160 of the
// compressed public key.
func (k *KeyData) Fingerprint() ([4]byte, error) {
	var fp [4]byte
	pub, err := k.PublicKey()
	if err != nil {
		return fp, err
	}
	copy(fp[:], hashes.Hash160(pub))
	return fp, nil
}

// MasterFromSeed returns the root extended private key of a seed.
// The seed must carry between 128 and 512 bits.
func MasterFromSeed(seed []byte, version []byte) (*KeyData, error) {
	bits := len(seed) * 8
	if bits < 128 {
		return nil, fmt.Errorf("bip32: too few bits for seed: %d", bits)
	}
	if bits > 512 {
		return nil, fmt.Errorf("bip32: too many bits for seed: %d", bits)
	}
	if !network.IsXPrvVersion(version) {
		return nil, fmt.Errorf("bip32: unknown private key version: 0x%x", version)
	}

	mac := hmac.New(sha512.New, masterHMACKey)
	mac.Write(seed)
	sum := mac.Sum(nil)

	k := &KeyData{Version: bytes.Clone(version)}
	copy(k.ChainCode[:], sum[32:])
	copy(k.Key[1:], sum[:32])
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

// Neuter returns the extended public key of an extended private key.
func (k *KeyData) Neuter() (*KeyData, error) {
	if !k.IsPrivate() {
		return nil, errors.New("bip32: not a private key")
	}
	net, err := network.FromXKeyVersion(k.Version)
	if err != nil {
		return nil, err
	}
	prvVersions, pubVersions := net.XPrvVersions(), net.XPubVersions()
	var pubVersion []byte
	for i, v := range prvVersions {
		if bytes.Equal(v, k.Version) {
			pubVersion = pubVersions[i]
			break
		}
	}

	pub, err := k.PublicKey()
	if err != nil {
		return nil, err
	}
	out := &KeyData{
		Version:           bytes.Clone(pubVersion),
		Depth:             k.Depth,
		ParentFingerprint: k.ParentFingerprint,
		Index:             k.Index,
		ChainCode:         k.ChainCode,
	}
	copy(out.Key[:], pub)
	return out, nil
}

// ErrInvalidChild marks a derivation step whose HMAC output falls
// outside the valid key range. The parent should retry with the next
// index.
var ErrInvalidChild = errors.New("bip32: invalid child key")

// childScalar combines a parent private key with the left HMAC half,
// rejecting out-of-range offsets and a zero child key.
func childScalar(q *big.Int, il []byte) (*big.Int, error) {
	offset := new(big.Int).SetBytes(il)
	if offset.Cmp(ec.N) >= 0 {
		return nil, ErrInvalidChild
	}
	child := new(big.Int).Add(q, offset)
	child.Mod(child, ec.N)
	if child.Sign() == 0 {
		return nil, ErrInvalidChild
	}
	return child, nil
}

// childPoint combines a parent public key with the left HMAC half,
// rejecting out-of-range offsets and the point at infinity.
func childPoint(Q ec.Point, il []byte) (ec.Point, error) {
	offset := new(big.Int).SetBytes(il)
	if offset.Cmp(ec.N) >= 0 {
		return ec.Point{}, ErrInvalidChild
	}
	point := ec.Add(Q, ec.MultG(offset))
	if point.IsInfinity() {
		return ec.Point{}, ErrInvalidChild
	}
	return point, nil
}

// child performs one child key derivation step in place.
func (k *KeyData) child(index uint32) error {
	var indexBytes [4]byte
	binary.BigEndian.PutUint32(indexBytes[:], index)

	mac := hmac.New(sha512.New, k.ChainCode[:])

	if k.IsPrivate() {
		q, err := ec.ParsePrivateKey(k.Key[1:])
		if err != nil {
			return err
		}
		pub, err := ec.SerializePoint(ec.MultG(q), true)
		if err != nil {
			return err
		}
		copy(k.ParentFingerprint[:], hashes.Hash160(pub))
		if index >= HardenedOffset {
			mac.Write(k.Key[:])
		} else {
			mac.Write(pub)
		}
		mac.Write(indexBytes[:])
		sum := mac.Sum(nil)

		q, err = childScalar(q, sum[:32])
		if err != nil {
			return fmt.Errorf("%w at index %d", err, index)
		}
		copy(k.ChainCode[:], sum[32:])
		k.Key[0] = 0
		q.FillBytes(k.Key[1:])
	} else {
		if index >= HardenedOffset {
			return errors.New("bip32: invalid hardened derivation from public key")
		}
		Q, err := ec.ParsePoint(k.Key[:])
		if err != nil {
			return err
		}
		copy(k.ParentFingerprint[:], hashes.Hash160(k.Key[:]))
		mac.Write(k.Key[:])
		mac.Write(indexBytes[:])
		sum := mac.Sum(nil)

		point, err := childPoint(Q, sum[:32])
		if err != nil {
			return fmt.Errorf("%w at index %d", err, index)
		}
		child, err := ec.SerializePoint(point, true)
		if err != nil {
			return err
		}
		copy(k.ChainCode[:], sum[32:])
		copy(k.Key[:], child)
	}

	k.Depth++
	k.Index = index
	return nil
}

// Derive walks a derivation path from the key and returns the final
// child. Hardened steps require private key material.
func (k *KeyData) Derive(path string) (*KeyData, error) {
	indexes, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return k.DeriveIndexes(indexes)
}

// DeriveIndexes derives along explicit absolute indexes.
func (k *KeyData) DeriveIndexes(indexes []uint32) (*KeyData, error) {
	if depth := int(k.Depth) + len(indexes); depth > 255 {
		return nil, fmt.Errorf("bip32: final depth greater than 255: %d", depth)
	}

	out := k.clone()
	for _, index := range indexes {
		if err := out.child(index); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeriveWithVersion derives along path and then forces the given
// serialization version, for SLIP132 re-labeling. The forced version
// must preserve the private/public nature of the key.
func (k *KeyData) DeriveWithVersion(path string, version []byte) (*KeyData, error) {
	if len(version) != 4 {
		return nil, fmt.Errorf("bip32: invalid version length: %d bytes", len(version))
	}
	if k.IsPrivate() && !network.IsXPrvVersion(version) {
		return nil, fmt.Errorf("bip32: invalid non-private version forced on a private key: 0x%x", version)
	}
	if !k.IsPrivate() && !network.IsXPubVersion(version) {
		return nil, fmt.Errorf("bip32: invalid non-public version forced on a public key: 0x%x", version)
	}
	out, err := k.Derive(path)
	if err != nil {
		return nil, err
	}
	out.Version = bytes.Clone(version)
	return out, nil
}

// DeriveFromAccount derives "m/branch/addressIndex" from a hardened
// account key, rejecting the derivations that BIP44-style wallets
// never perform.
func (k *KeyData) DeriveFromAccount(branch, addressIndex uint32) (*KeyData, error) {
	if !k.IsHardened() {
		return nil, errors.New("bip32: public derivation at account level")
	}
	if branch >= HardenedOffset {
		return nil, errors.New("bip32: private derivation at branch level")
	}
	if branch > 1 {
		return nil, fmt.Errorf("bip32: invalid branch: %d not in (0, 1)", branch)
	}
	if addressIndex >= HardenedOffset {
		return nil, errors.New("bip32: private derivation at address index level")
	}
	return k.DeriveIndexes([]uint32{branch, addressIndex})
}

// CrackPrivateKey recovers the parent extended private key from a
// parent extended public key and any non-hardened child extended
// private key. This is why sharing an xpub together with a child xprv
// is as bad as sharing the parent xprv itself.
func CrackPrivateKey(parentXPub, childXPrv *KeyData) (*KeyData, error) {
	if parentXPub.IsPrivate() {
		return nil, errors.New("bip32: extended parent key is not a public key")
	}
	if !childXPrv.IsPrivate() {
		return nil, errors.New("bip32: extended child key is not a private key")
	}
	if childXPrv.Depth != parentXPub.Depth+1 {
		return nil, errors.New("bip32: not a parent's child: wrong depths")
	}
	fp, err := parentXPub.Fingerprint()
	if err != nil {
		return nil, err
	}
	if childXPrv.ParentFingerprint != fp {
		return nil, errors.New("bip32: not a parent's child: wrong parent fingerprint")
	}
	if childXPrv.IsHardened() {
		return nil, errors.New("bip32: hardened child derivation")
	}

	mac := hmac.New(sha512.New, parentXPub.ChainCode[:])
	mac.Write(parentXPub.Key[:])
	var indexBytes [4]byte
	binary.BigEndian.PutUint32(indexBytes[:], childXPrv.Index)
	mac.Write(indexBytes[:])
	sum := mac.Sum(nil)

	childQ, err := childXPrv.PrivateKey()
	if err != nil {
		return nil, err
	}
	offset := new(big.Int).SetBytes(sum[:32])
	parentQ := new(big.Int).Sub(childQ, offset)
	parentQ.Mod(parentQ, ec.N)

	out := parentXPub.clone()
	out.Version = bytes.Clone(childXPrv.Version)
	out.Key[0] = 0
	parentQ.FillBytes(out.Key[1:])
	return out, nil
}

// WIF returns the wallet import format of the private key, flagged as
// compressed.
func (k *KeyData) WIF() (string, error) {
	if !k.IsPrivate() {
		return "", errors.New("bip32: not a private key")
	}
	net, err := network.FromXKeyVersion(k.Version)
	if err != nil {
		return "", err
	}
	payload := make([]byte, 0, 34)
	payload = append(payload, net.WIF)
	payload = append(payload, k.Key[1:]...)
	payload = append(payload, 0x01)
	return base58.CheckEncode(payload), nil
}

func (k *KeyData) clone() *KeyData {
	out := *k
	out.Version = bytes.Clone(k.Version)
	return &out
}
