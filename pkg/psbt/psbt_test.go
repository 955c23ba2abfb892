package psbt

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"btckit/pkg/ec"
	"btckit/pkg/scriptpubkey"
	"btckit/pkg/sighash"
	"btckit/pkg/tx"
	"btckit/pkg/varint"
)

func unsignedTx(t *testing.T) *tx.Tx {
	t.Helper()
	prev0, err := tx.NewOutPoint(
		"9f96ade4b41d5433f4eda31e1738ec2b36f6e7d1420d94a6af99801a88f7f7ff", 0)
	require.NoError(t, err)
	prev1, err := tx.NewOutPoint(
		"8ac60eb9575db5b2d987e29f301b5b819ea83a5c6579d282d189cc04b8e151ef", 1)
	require.NoError(t, err)
	spk, err := hex.DecodeString("76a914751e76e8199196d454941c45d1b3a323f1433bd688ac")
	require.NoError(t, err)
	return &tx.Tx{
		Version: 2,
		TxIn: []tx.TxIn{
			{PrevOut: prev0, Sequence: 0xffffffff},
			{PrevOut: prev1, Sequence: 0xffffffff},
		},
		TxOut: []tx.TxOut{{Value: 100000000, ScriptPubKey: spk}},
	}
}

// a real signature over an arbitrary digest, in the pushed form
func pushedSig(t *testing.T, key int64) ([]byte, []byte) {
	t.Helper()
	q := big.NewInt(key)
	digest := bytes.Repeat([]byte{0xab}, 32)
	sig, err := ec.SignDigest(digest, q)
	require.NoError(t, err)
	der, err := sig.DER()
	require.NoError(t, err)
	pub, err := ec.SerializePoint(ec.MultG(q), true)
	require.NoError(t, err)
	return pub, append(der, sighash.All)
}

func TestNewStripsSignatures(t *testing.T) {
	unsigned := unsignedTx(t)
	unsigned.TxIn[0].ScriptSig = []byte{0x51}
	unsigned.TxIn[1].Witness = tx.Witness{Stack: [][]byte{{0x01}}}

	p, err := New(unsigned)
	require.NoError(t, err)
	require.Len(t, p.Inputs, 2)
	require.Len(t, p.Outputs, 1)
	require.Empty(t, p.Tx.TxIn[0].ScriptSig)
	require.True(t, p.Tx.TxIn[1].Witness.Empty())

	// the original transaction is untouched
	require.Equal(t, []byte{0x51}, unsigned.TxIn[0].ScriptSig)
}

func TestSerializeParseRoundTrip(t *testing.T) {
	p, err := New(unsignedTx(t))
	require.NoError(t, err)

	pub, sig := pushedSig(t, 7)
	p.Inputs[0].WitnessUTXO = &tx.TxOut{
		Value:        600000000,
		ScriptPubKey: mustHex(t, "00141d0f172a0ecb48aee1be1f2687d2963ae33f71a1"),
	}
	p.Inputs[0].PartialSigs[string(pub)] = sig
	p.Inputs[0].SighashType = uint32(sighash.All)
	p.Inputs[0].HasSighashType = true
	p.Inputs[0].BIP32Derivs[string(pub)] = mustHex(t, "d90c6a4f000000800000008000000080")
	p.Inputs[1].RedeemScript = mustHex(t, "00141d0f172a0ecb48aee1be1f2687d2963ae33f71a1")
	p.Inputs[1].PORCommitment = "proof-of-reserves"
	p.Outputs[0].BIP32Derivs[string(pub)] = mustHex(t, "d90c6a4f00000080")
	p.Unknown["\xf0custom"] = []byte{0xca, 0xfe}

	raw, err := p.Serialize()
	require.NoError(t, err)
	require.Equal(t, []byte("psbt\xff"), raw[:5])

	parsed, err := Parse(raw)
	require.NoError(t, err)
	raw2, err := parsed.Serialize()
	require.NoError(t, err)
	require.Equal(t, raw, raw2)

	require.Equal(t, sig, parsed.Inputs[0].PartialSigs[string(pub)])
	require.True(t, parsed.Inputs[0].HasSighashType)
	require.Equal(t, "proof-of-reserves", parsed.Inputs[1].PORCommitment)
	require.Equal(t, []byte{0xca, 0xfe}, parsed.Unknown["\xf0custom"])
}

func TestEncodeDecode(t *testing.T) {
	p, err := New(unsignedTx(t))
	require.NoError(t, err)
	s, err := p.Encode()
	require.NoError(t, err)

	parsed, err := Decode(" " + s + "\n")
	require.NoError(t, err)
	require.Equal(t, p.Tx.TxID(), parsed.Tx.TxID())

	_, err = Decode("not base64!!")
	require.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	_, err := Parse([]byte("psbt"))
	require.Error(t, err)
	_, err = Parse([]byte("xxxx\xff"))
	require.Error(t, err)
	_, err = Parse([]byte("psbt\x00"))
	require.Error(t, err)

	// an empty global map has no unsigned transaction
	_, err = Parse([]byte("psbt\xff\x00"))
	require.Error(t, err)
}

func TestParseRejectsDuplicateKeys(t *testing.T) {
	p, err := New(unsignedTx(t))
	require.NoError(t, err)
	rawTx, err := p.Tx.Serialize(true)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.WriteString("psbt\xff")
	for i := 0; i < 2; i++ {
		buf.Write(varint.EncodeBytes([]byte{globalUnsignedTx}))
		buf.Write(varint.EncodeBytes(rawTx))
	}
	buf.WriteByte(0x00)

	_, err = Parse(buf.Bytes())
	require.ErrorContains(t, err, "duplicated key")
}

func TestValidateRejects(t *testing.T) {
	p, err := New(unsignedTx(t))
	require.NoError(t, err)

	p.Version = 1
	require.Error(t, p.Validate())
	p.Version = 0

	p.Tx.TxIn[0].ScriptSig = []byte{0x51}
	require.Error(t, p.Validate())
	p.Tx.TxIn[0].ScriptSig = nil

	p.Inputs = p.Inputs[:1]
	require.Error(t, p.Validate())
}

func TestCombine(t *testing.T) {
	a, err := New(unsignedTx(t))
	require.NoError(t, err)
	b, err := New(unsignedTx(t))
	require.NoError(t, err)

	pubA, sigA := pushedSig(t, 7)
	pubB, sigB := pushedSig(t, 11)
	a.Inputs[0].PartialSigs[string(pubA)] = sigA
	b.Inputs[0].PartialSigs[string(pubB)] = sigB
	b.Inputs[1].RedeemScript = []byte{0x51}

	combined, err := Combine([]*Psbt{a, b})
	require.NoError(t, err)
	require.Len(t, combined.Inputs[0].PartialSigs, 2)
	require.Equal(t, []byte{0x51}, combined.Inputs[1].RedeemScript)

	// the inputs keep only their own keypairs
	require.Len(t, a.Inputs[0].PartialSigs, 1)
	require.NotContains(t, a.Inputs[0].PartialSigs, string(pubB))
	require.Empty(t, a.Inputs[1].RedeemScript)

	other, err := New(&tx.Tx{
		Version: 1,
		TxIn:    a.Tx.TxIn,
		TxOut:   a.Tx.TxOut,
	})
	require.NoError(t, err)
	_, err = Combine([]*Psbt{a, other})
	require.Error(t, err)
}

func TestFinalizeAndExtractP2WPKH(t *testing.T) {
	p, err := New(unsignedTx(t))
	require.NoError(t, err)

	pub0, sig0 := pushedSig(t, 7)
	pub1, sig1 := pushedSig(t, 11)
	for i, ps := range [][2][]byte{{pub0, sig0}, {pub1, sig1}} {
		spk, err := scriptpubkey.P2WPKH(ps[0])
		require.NoError(t, err)
		p.Inputs[i].WitnessUTXO = &tx.TxOut{Value: 100000000, ScriptPubKey: spk}
		p.Inputs[i].PartialSigs[string(ps[0])] = ps[1]
	}

	final, err := Finalize(p)
	require.NoError(t, err)
	require.Equal(t, [][]byte{sig0, pub0}, final.Inputs[0].FinalScriptWitness.Stack)
	require.Empty(t, final.Inputs[0].PartialSigs)
	require.Empty(t, final.Inputs[0].FinalScriptSig)

	extracted, err := Extract(final)
	require.NoError(t, err)
	require.True(t, extracted.HasWitness())
	require.Equal(t, p.Tx.TxID(), extracted.TxID())

	// a PSBT without signatures cannot be finalized or extracted
	empty, err := New(unsignedTx(t))
	require.NoError(t, err)
	_, err = Finalize(empty)
	require.Error(t, err)
	_, err = Extract(empty)
	require.Error(t, err)
}

func TestFinalizeP2WSHMultisig(t *testing.T) {
	p, err := New(unsignedTx(t))
	require.NoError(t, err)

	pub0, sig0 := pushedSig(t, 7)
	pub1, sig1 := pushedSig(t, 11)
	witnessScript, err := scriptpubkey.P2MS(2, [][]byte{pub0, pub1}, false)
	require.NoError(t, err)

	for i := range p.Inputs {
		spk, err := scriptpubkey.P2WSH(witnessScript)
		require.NoError(t, err)
		p.Inputs[i].WitnessUTXO = &tx.TxOut{Value: 100000000, ScriptPubKey: spk}
		p.Inputs[i].WitnessScript = witnessScript
		p.Inputs[i].PartialSigs[string(pub0)] = sig0
		p.Inputs[i].PartialSigs[string(pub1)] = sig1
	}

	final, err := Finalize(p)
	require.NoError(t, err)
	stack := final.Inputs[0].FinalScriptWitness.Stack
	require.Len(t, stack, 4)
	require.Empty(t, stack[0]) // the null dummy
	require.Equal(t, witnessScript, stack[3])
	require.Empty(t, final.Inputs[0].WitnessScript)
}

func TestFinalizeLegacyP2SH(t *testing.T) {
	p, err := New(unsignedTx(t))
	require.NoError(t, err)

	pub, sig := pushedSig(t, 7)
	redeem, err := scriptpubkey.P2MS(1, [][]byte{pub}, false)
	require.NoError(t, err)
	for i := range p.Inputs {
		p.Inputs[i].RedeemScript = redeem
		p.Inputs[i].PartialSigs[string(pub)] = sig
	}

	final, err := Finalize(p)
	require.NoError(t, err)
	require.NotEmpty(t, final.Inputs[0].FinalScriptSig)
	require.True(t, final.Inputs[0].FinalScriptWitness.Empty())
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}
