package tx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"btckit/pkg/amount"
)

func sampleTx(t *testing.T) *Tx {
	t.Helper()
	prevOut, err := NewOutPoint(
		"d5b5c72c5d94f9b2ed2615b2bc8a1a261d4f2e2f2e5b2c6973a66bcdbfa4a9ba", 1)
	require.NoError(t, err)
	return &Tx{
		Version: 1,
		TxIn: []TxIn{{
			PrevOut:   prevOut,
			ScriptSig: []byte{0x51}, // OP_1
			Sequence:  0xFFFFFFFF,
		}},
		TxOut: []TxOut{{
			Value:        amount.Satoshi(50_000),
			ScriptPubKey: append([]byte{0x76, 0xa9, 0x14}, append(make([]byte, 20), 0x88, 0xac)...),
		}},
		LockTime: 0,
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	orig := sampleTx(t)
	require.NoError(t, orig.Validate())

	raw, err := orig.Serialize(true)
	require.NoError(t, err)

	parsed, err := ParseBytes(raw)
	require.NoError(t, err)
	require.Equal(t, orig, parsed)

	// no witness data, no segwit marker
	require.NotEqual(t, byte(0x00), raw[4])
}

func TestSegwitRoundTrip(t *testing.T) {
	orig := sampleTx(t)
	orig.TxIn[0].ScriptSig = nil
	orig.TxIn[0].Witness = Witness{Stack: [][]byte{
		bytes.Repeat([]byte{0x01}, 71), // signature placeholder
		bytes.Repeat([]byte{0x02}, 33), // pubkey placeholder
	}}

	raw, err := orig.Serialize(true)
	require.NoError(t, err)
	// extended format: version then 0x00 0x01 marker
	require.Equal(t, []byte{0x00, 0x01}, raw[4:6])

	parsed, err := ParseBytes(raw)
	require.NoError(t, err)
	require.Equal(t, orig, parsed)
}

func TestTxIDExcludesWitness(t *testing.T) {
	plain := sampleTx(t)
	withWitness := sampleTx(t)
	withWitness.TxIn[0].Witness = Witness{Stack: [][]byte{{0xAA}}}

	require.Equal(t, plain.TxID(), withWitness.TxID())
	require.NotEqual(t, withWitness.TxID(), withWitness.WTxID())
	// without witness data the two ids coincide
	require.Equal(t, plain.TxID(), plain.WTxID())
}

func TestWeightAndVSize(t *testing.T) {
	tr := sampleTx(t)
	stripped, _ := tr.Serialize(false)
	full, _ := tr.Serialize(true)
	require.Equal(t, len(stripped)*3+len(full), tr.Weight())
	require.Equal(t, (tr.Weight()+3)/4, tr.VSize())
	require.Equal(t, len(full), tr.Size())

	tr.TxIn[0].Witness = Witness{Stack: [][]byte{bytes.Repeat([]byte{1}, 70)}}
	// witness bytes count once, non-witness bytes four times
	require.Less(t, tr.Weight(), tr.Size()*4)
}

func TestValidateRejects(t *testing.T) {
	tr := sampleTx(t)
	tr.TxIn = nil
	require.ErrorContains(t, tr.Validate(), "input")

	tr = sampleTx(t)
	tr.TxOut = nil
	require.ErrorContains(t, tr.Validate(), "output")

	tr = sampleTx(t)
	tr.TxOut[0].Value = amount.MaxSatoshi + 1
	require.ErrorContains(t, tr.Validate(), "money range")
}

func TestCoinbase(t *testing.T) {
	cb := &Tx{
		Version: 1,
		TxIn: []TxIn{{
			PrevOut:   OutPoint{Vout: 0xFFFFFFFF},
			ScriptSig: []byte{0x01, 0x02},
			Sequence:  0xFFFFFFFF,
		}},
		TxOut:    []TxOut{{Value: 50 * 100_000_000, ScriptPubKey: []byte{0x51}}},
		LockTime: 0,
	}
	require.True(t, cb.IsCoinbase())
	require.NoError(t, cb.Validate())
	require.False(t, sampleTx(t).IsCoinbase())
}

func TestOutPointValidate(t *testing.T) {
	// zero txid with a regular vout is neither coinbase nor spendable
	bad := OutPoint{Vout: 3}
	require.Error(t, bad.Validate())

	var txid [32]byte
	txid[0] = 1
	alsoBad := OutPoint{TxID: txid, Vout: 0xFFFFFFFF}
	require.Error(t, alsoBad.Validate())

	require.NoError(t, OutPoint{TxID: txid, Vout: 0}.Validate())
	require.NoError(t, OutPoint{Vout: 0xFFFFFFFF}.Validate())
}

func TestNewOutPoint(t *testing.T) {
	op, err := NewOutPoint(strings.Repeat("ab", 32), 7)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("ab", 32), op.String())

	_, err = NewOutPoint("xyz", 0)
	require.Error(t, err)
	_, err = NewOutPoint("abcd", 0)
	require.Error(t, err)
}

func TestParseTruncated(t *testing.T) {
	raw, err := sampleTx(t).Serialize(true)
	require.NoError(t, err)
	for _, cut := range []int{3, 10, len(raw) - 1} {
		_, err := ParseBytes(raw[:cut])
		require.Error(t, err, "cut at %d", cut)
	}
}
