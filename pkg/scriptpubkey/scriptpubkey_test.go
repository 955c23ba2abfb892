package scriptpubkey

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// the generator-point key, the most reproduced test key in existence
const genPubKey = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func pubKey(t *testing.T) []byte {
	t.Helper()
	b, err := hex.DecodeString(genPubKey)
	require.NoError(t, err)
	return b
}

func TestP2PKHScript(t *testing.T) {
	spk, err := P2PKH(pubKey(t))
	require.NoError(t, err)
	require.Equal(t,
		"76a914751e76e8199196d454941c45d1b3a323f1433bd688ac",
		hex.EncodeToString(spk))

	scriptType, payload := Classify(spk)
	require.Equal(t, TypeP2PKH, scriptType)
	require.Equal(t, "751e76e8199196d454941c45d1b3a323f1433bd6", hex.EncodeToString(payload))
}

func TestP2WPKHScript(t *testing.T) {
	spk, err := P2WPKH(pubKey(t))
	require.NoError(t, err)
	require.Equal(t, "0014751e76e8199196d454941c45d1b3a323f1433bd6", hex.EncodeToString(spk))

	scriptType, _ := Classify(spk)
	require.Equal(t, TypeP2WPKH, scriptType)

	// uncompressed keys are not allowed in v0 witness programs
	uncompressed := append([]byte{0x04}, bytes.Repeat([]byte{0}, 64)...)
	_, err = P2WPKH(uncompressed)
	require.Error(t, err)
}

func TestP2SHScript(t *testing.T) {
	redeem := []byte{0x51} // OP_1
	spk, err := P2SH(redeem)
	require.NoError(t, err)

	scriptType, payload := Classify(spk)
	require.Equal(t, TypeP2SH, scriptType)
	require.Len(t, payload, 20)
}

func TestP2WSHScript(t *testing.T) {
	spk, err := P2WSH([]byte{0x51})
	require.NoError(t, err)
	require.Equal(t,
		"00204ae81572f06e1b88fd5ced7a1a000945432e83e1551e6f721ee9c00b8cc33260",
		hex.EncodeToString(spk))

	scriptType, _ := Classify(spk)
	require.Equal(t, TypeP2WSH, scriptType)
}

func TestP2PKScript(t *testing.T) {
	spk, err := P2PK(pubKey(t))
	require.NoError(t, err)
	scriptType, payload := Classify(spk)
	require.Equal(t, TypeP2PK, scriptType)
	require.Equal(t, pubKey(t), payload)
}

func TestP2MSScript(t *testing.T) {
	key1 := pubKey(t)
	// 2G compressed
	key2, err := hex.DecodeString("02c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5")
	require.NoError(t, err)

	spk, err := P2MS(1, [][]byte{key1, key2}, true)
	require.NoError(t, err)
	scriptType, _ := Classify(spk)
	require.Equal(t, TypeP2MS, scriptType)

	// BIP67: sorting is on the compressed encodings
	sorted, err := P2MS(1, [][]byte{key2, key1}, true)
	require.NoError(t, err)
	require.Equal(t, spk, sorted)

	unsorted, err := P2MS(1, [][]byte{key2, key1}, false)
	require.NoError(t, err)
	require.NotEqual(t, spk, unsorted)

	_, err = P2MS(3, [][]byte{key1, key2}, true)
	require.Error(t, err)
}

func TestNullData(t *testing.T) {
	spk, err := NullData([]byte("charley loves heidi"))
	require.NoError(t, err)
	scriptType, payload := Classify(spk)
	require.Equal(t, TypeNullData, scriptType)
	require.Equal(t, []byte("charley loves heidi"), payload)

	// 80 bytes is the cap; it needs OP_PUSHDATA1
	long := bytes.Repeat([]byte{0xAA}, 80)
	spk, err = NullData(long)
	require.NoError(t, err)
	require.Equal(t, byte(0x4c), spk[1])
	scriptType, payload = Classify(spk)
	require.Equal(t, TypeNullData, scriptType)
	require.Equal(t, long, payload)

	_, err = NullData(bytes.Repeat([]byte{0xAA}, 81))
	require.Error(t, err)
}

func TestClassifyUnknown(t *testing.T) {
	raw := []byte{0x6e, 0x6e} // OP_2DUP OP_2DUP
	scriptType, payload := Classify(raw)
	require.Equal(t, TypeUnknown, scriptType)
	require.Equal(t, raw, payload)
}

func TestFromPayloadRejects(t *testing.T) {
	_, err := FromPayload(TypeP2PKH, make([]byte, 19))
	require.Error(t, err)
	_, err = FromPayload(TypeP2WSH, make([]byte, 20))
	require.Error(t, err)
	_, err = FromPayload("p2tr", make([]byte, 32))
	require.Error(t, err)
}
