package sighash

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"btckit/pkg/script"
	"btckit/pkg/scriptpubkey"
	"btckit/pkg/tx"
)

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// the worked native-p2wpkh example published with the segwit digest
// algorithm
func bip143Tx(t *testing.T) *tx.Tx {
	t.Helper()
	prev0, err := tx.NewOutPoint(
		"9f96ade4b41d5433f4eda31e1738ec2b36f6e7d1420d94a6af99801a88f7f7ff", 0)
	require.NoError(t, err)
	prev1, err := tx.NewOutPoint(
		"8ac60eb9575db5b2d987e29f301b5b819ea83a5c6579d282d189cc04b8e151ef", 1)
	require.NoError(t, err)
	return &tx.Tx{
		Version: 1,
		TxIn: []tx.TxIn{
			{PrevOut: prev0, Sequence: 0xffffffee},
			{PrevOut: prev1, Sequence: 0xffffffff},
		},
		TxOut: []tx.TxOut{
			{Value: 112340000, ScriptPubKey: fromHex(t,
				"76a9148280b37df378db99f66f85c95a783a76ac7a6d5988ac")},
			{Value: 223450000, ScriptPubKey: fromHex(t,
				"76a9143bde42dbee7e4dbe6a21b2d50ce2f0167faa815988ac")},
		},
		LockTime: 17,
	}
}

func TestSegwitV0(t *testing.T) {
	transaction := bip143Tx(t)
	scriptCode := fromHex(t, "76a9141d0f172a0ecb48aee1be1f2687d2963ae33f71a188ac")

	digest, err := SegwitV0(scriptCode, transaction, 1, All, 600000000)
	require.NoError(t, err)
	require.Equal(t,
		"c37af31116d1b27caf68aae9e3ac82f1477929014d5b917657d0eb49478cb670",
		hex.EncodeToString(digest))
}

func TestFromPrevOutP2WPKH(t *testing.T) {
	transaction := bip143Tx(t)
	prevOut := tx.TxOut{
		Value:        600000000,
		ScriptPubKey: fromHex(t, "00141d0f172a0ecb48aee1be1f2687d2963ae33f71a1"),
	}

	digest, err := FromPrevOut(prevOut, transaction, 1, All)
	require.NoError(t, err)
	require.Equal(t,
		"c37af31116d1b27caf68aae9e3ac82f1477929014d5b917657d0eb49478cb670",
		hex.EncodeToString(digest))
}

func TestFromPrevOutP2SHWrappedP2WPKH(t *testing.T) {
	transaction := bip143Tx(t)
	redeem := fromHex(t, "00141d0f172a0ecb48aee1be1f2687d2963ae33f71a1")
	transaction.TxIn[1].ScriptSig = script.MustSerialize([]script.Command{script.Data(redeem)})

	spk, err := scriptpubkey.P2SH(redeem)
	require.NoError(t, err)
	prevOut := tx.TxOut{Value: 600000000, ScriptPubKey: spk}

	digest, err := FromPrevOut(prevOut, transaction, 1, All)
	require.NoError(t, err)

	scriptCode := fromHex(t, "76a9141d0f172a0ecb48aee1be1f2687d2963ae33f71a188ac")
	want, err := SegwitV0(scriptCode, transaction, 1, All, 600000000)
	require.NoError(t, err)
	require.Equal(t, want, digest)
}

func TestFromPrevOutP2WSH(t *testing.T) {
	transaction := bip143Tx(t)
	witnessScript := fromHex(t,
		"2103501e454bf00751f24b1b489aa925215d66af2234e3891c3b21a52bedb3cd711cac")
	transaction.TxIn[1].Witness = tx.Witness{Stack: [][]byte{witnessScript}}

	spk, err := scriptpubkey.P2WSH(witnessScript)
	require.NoError(t, err)
	prevOut := tx.TxOut{Value: 600000000, ScriptPubKey: spk}

	digest, err := FromPrevOut(prevOut, transaction, 1, All)
	require.NoError(t, err)

	want, err := SegwitV0(witnessScript, transaction, 1, All, 600000000)
	require.NoError(t, err)
	require.Equal(t, want, digest)
}

func TestLegacy(t *testing.T) {
	prev, err := tx.NewOutPoint(
		"9f96ade4b41d5433f4eda31e1738ec2b36f6e7d1420d94a6af99801a88f7f7ff", 0)
	require.NoError(t, err)
	transaction := &tx.Tx{
		Version: 1,
		TxIn:    []tx.TxIn{{PrevOut: prev, Sequence: 0xffffffff}},
		TxOut: []tx.TxOut{{Value: 100000000, ScriptPubKey: fromHex(t,
			"76a914751e76e8199196d454941c45d1b3a323f1433bd688ac")}},
	}
	scriptCode := fromHex(t, "76a9148280b37df378db99f66f85c95a783a76ac7a6d5988ac")

	digest, err := Legacy(scriptCode, transaction, 0, All)
	require.NoError(t, err)
	require.Equal(t,
		"8e8fbdcc4677def5621a8da8fdb73d3bb6d9b7840c777411ce7e600dcccfd5b2",
		hex.EncodeToString(digest))

	// the digest must not mutate the transaction it hashes
	require.Empty(t, transaction.TxIn[0].ScriptSig)
}

func TestLegacySingleBug(t *testing.T) {
	transaction := bip143Tx(t)
	transaction.TxOut = transaction.TxOut[:1]

	digest, err := Legacy([]byte{0x51}, transaction, 1, Single)
	require.NoError(t, err)
	want := make([]byte, 32)
	want[0] = 0x01
	require.Equal(t, want, digest)
}

func TestLegacySequenceZeroing(t *testing.T) {
	scriptCode := fromHex(t, "76a9141d0f172a0ecb48aee1be1f2687d2963ae33f71a188ac")

	// with NONE the other inputs' sequences are zeroed, so changing
	// them cannot change the digest
	a := bip143Tx(t)
	b := bip143Tx(t)
	b.TxIn[0].Sequence = 0x12345678

	noneA, err := Legacy(scriptCode, a, 1, None)
	require.NoError(t, err)
	noneB, err := Legacy(scriptCode, b, 1, None)
	require.NoError(t, err)
	require.Equal(t, noneA, noneB)

	allA, err := Legacy(scriptCode, a, 1, All)
	require.NoError(t, err)
	allB, err := Legacy(scriptCode, b, 1, All)
	require.NoError(t, err)
	require.NotEqual(t, allA, allB)
	require.NotEqual(t, noneA, allA)
}

func TestLegacyAnyoneCanPay(t *testing.T) {
	scriptCode := fromHex(t, "76a9141d0f172a0ecb48aee1be1f2687d2963ae33f71a188ac")

	// only the signed input is committed, the other may change freely
	a := bip143Tx(t)
	b := bip143Tx(t)
	b.TxIn[0].Sequence = 1
	b.TxIn[0].PrevOut.Vout = 5

	digestA, err := Legacy(scriptCode, a, 1, All|AnyoneCanPay)
	require.NoError(t, err)
	digestB, err := Legacy(scriptCode, b, 1, All|AnyoneCanPay)
	require.NoError(t, err)
	require.Equal(t, digestA, digestB)
}

func TestSegwitV0HashTypeVariants(t *testing.T) {
	transaction := bip143Tx(t)
	scriptCode := fromHex(t, "76a9141d0f172a0ecb48aee1be1f2687d2963ae33f71a188ac")

	seen := map[string]bool{}
	for _, hashType := range []byte{All, None, Single, All | AnyoneCanPay, None | AnyoneCanPay, Single | AnyoneCanPay} {
		digest, err := SegwitV0(scriptCode, transaction, 1, hashType, 600000000)
		require.NoError(t, err)
		require.False(t, seen[hex.EncodeToString(digest)])
		seen[hex.EncodeToString(digest)] = true
	}
}

func TestValidateType(t *testing.T) {
	for _, hashType := range []byte{All, None, Single, All | AnyoneCanPay, None | AnyoneCanPay, Single | AnyoneCanPay} {
		require.NoError(t, ValidateType(hashType))
	}
	for _, hashType := range []byte{0x00, 0x04, 0x80, 0xff, 0x21} {
		require.Error(t, ValidateType(hashType))
	}
}

func TestLegacyScriptCode(t *testing.T) {
	spk := script.MustSerialize([]script.Command{
		script.Op("OP_DUP"),
		script.Op("OP_CODESEPARATOR"),
		script.Op("OP_HASH160"),
	})
	code, err := LegacyScriptCode(spk)
	require.NoError(t, err)
	want := script.MustSerialize([]script.Command{
		script.Op("OP_DUP"), script.Op("OP_HASH160"),
	})
	require.Equal(t, want, code)
}

func TestWitnessV0ScriptCode(t *testing.T) {
	code, err := WitnessV0ScriptCode(fromHex(t, "00141d0f172a0ecb48aee1be1f2687d2963ae33f71a1"))
	require.NoError(t, err)
	require.Equal(t, "76a9141d0f172a0ecb48aee1be1f2687d2963ae33f71a188ac",
		hex.EncodeToString(code))

	// any other script is its own script code
	ws := []byte{0x51}
	code, err = WitnessV0ScriptCode(ws)
	require.NoError(t, err)
	require.Equal(t, ws, code)
}

func TestInputIndexOutOfRange(t *testing.T) {
	transaction := bip143Tx(t)
	_, err := Legacy([]byte{0x51}, transaction, 2, All)
	require.Error(t, err)
	_, err = SegwitV0([]byte{0x51}, transaction, -1, All, 0)
	require.Error(t, err)
	_, err = FromPrevOut(tx.TxOut{}, transaction, 9, All)
	require.Error(t, err)
}
