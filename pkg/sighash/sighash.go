// Package sighash computes the transaction digests that input
// signatures commit to, for both the legacy scheme and the segwit v0
// scheme, hash type quirks included.
package sighash

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"btckit/pkg/amount"
	"btckit/pkg/hashes"
	"btckit/pkg/script"
	"btckit/pkg/scriptpubkey"
	"btckit/pkg/tx"
	"btckit/pkg/varint"
)

// Hash type flags. The base type lives in the low five bits; the
// anyone-can-pay modifier is the top bit.
const (
	All          byte = 0x01
	None         byte = 0x02
	Single       byte = 0x03
	AnyoneCanPay byte = 0x80

	baseMask byte = 0x1f
)

// ValidateType rejects hash types other than ALL, NONE and SINGLE,
// each optionally combined with ANYONECANPAY.
func ValidateType(hashType byte) error {
	base := hashType &^ AnyoneCanPay
	if base != All && base != None && base != Single {
		return fmt.Errorf("sighash: invalid sighash type: 0x%02x", hashType)
	}
	return nil
}

// Legacy computes the pre-segwit signature digest of input inputIndex
// against scriptCode.
//
// The historical quirks are preserved: with SINGLE and no matching
// output the digest is the constant 0x01 followed by 31 zero bytes,
// and with NONE or SINGLE the other inputs' sequence numbers are
// zeroed out.
func Legacy(scriptCode []byte, transaction *tx.Tx, inputIndex int, hashType byte) ([]byte, error) {
	if err := ValidateType(hashType); err != nil {
		return nil, err
	}
	if inputIndex < 0 || inputIndex >= len(transaction.TxIn) {
		return nil, fmt.Errorf("sighash: input index %d out of range", inputIndex)
	}

	preimage := tx.Tx{
		Version:  transaction.Version,
		TxIn:     make([]tx.TxIn, len(transaction.TxIn)),
		TxOut:    make([]tx.TxOut, len(transaction.TxOut)),
		LockTime: transaction.LockTime,
	}
	for i, in := range transaction.TxIn {
		preimage.TxIn[i] = tx.TxIn{
			PrevOut:  in.PrevOut,
			Sequence: in.Sequence,
		}
	}
	copy(preimage.TxOut, transaction.TxOut)
	preimage.TxIn[inputIndex].ScriptSig = scriptCode

	switch hashType & baseMask {
	case None:
		preimage.TxOut = nil
		for i := range preimage.TxIn {
			if i != inputIndex {
				preimage.TxIn[i].Sequence = 0
			}
		}
	case Single:
		if inputIndex >= len(preimage.TxOut) {
			// the SIGHASH_SINGLE bug: the digest is the number one
			digest := make([]byte, 32)
			digest[0] = 0x01
			return digest, nil
		}
		preimage.TxOut = preimage.TxOut[:inputIndex+1]
		for i := range preimage.TxOut[:inputIndex] {
			// zeroed-out outputs carry the max value, 8 bytes of 0xff
			preimage.TxOut[i] = tx.TxOut{Value: -1}
		}
		for i := range preimage.TxIn {
			if i != inputIndex {
				preimage.TxIn[i].Sequence = 0
			}
		}
	}

	if hashType&AnyoneCanPay != 0 {
		preimage.TxIn = preimage.TxIn[inputIndex : inputIndex+1]
	}

	var buf bytes.Buffer
	if err := serializeUnchecked(&buf, &preimage); err != nil {
		return nil, err
	}
	var ht [4]byte
	binary.LittleEndian.PutUint32(ht[:], uint32(hashType))
	buf.Write(ht[:])
	return hashes.Hash256(buf.Bytes()), nil
}

// serializeUnchecked writes the legacy wire form of a sighash
// preimage transaction skipping value validation, since zeroed-out
// outputs carry the out-of-range 0xffffffffffffffff value.
func serializeUnchecked(buf *bytes.Buffer, t *tx.Tx) error {
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], t.Version)
	buf.Write(u32[:])

	buf.Write(varint.Encode(uint64(len(t.TxIn))))
	for _, in := range t.TxIn {
		if err := in.Serialize(buf); err != nil {
			return err
		}
	}
	buf.Write(varint.Encode(uint64(len(t.TxOut))))
	for _, out := range t.TxOut {
		var u64 [8]byte
		binary.LittleEndian.PutUint64(u64[:], uint64(out.Value))
		buf.Write(u64[:])
		buf.Write(varint.EncodeBytes(out.ScriptPubKey))
	}
	binary.LittleEndian.PutUint32(u32[:], t.LockTime)
	buf.Write(u32[:])
	return nil
}

// SegwitV0 computes the BIP143 signature digest of input inputIndex
// against scriptCode, committing to the spent output value.
func SegwitV0(scriptCode []byte, transaction *tx.Tx, inputIndex int, hashType byte, value amount.Satoshi) ([]byte, error) {
	if err := ValidateType(hashType); err != nil {
		return nil, err
	}
	if inputIndex < 0 || inputIndex >= len(transaction.TxIn) {
		return nil, fmt.Errorf("sighash: input index %d out of range", inputIndex)
	}

	base := hashType & baseMask
	anyoneCanPay := hashType&AnyoneCanPay != 0

	hashPrevOuts := make([]byte, 32)
	if !anyoneCanPay {
		var buf bytes.Buffer
		for _, in := range transaction.TxIn {
			if err := in.PrevOut.Serialize(&buf); err != nil {
				return nil, err
			}
		}
		hashPrevOuts = hashes.Hash256(buf.Bytes())
	}

	hashSequence := make([]byte, 32)
	if base == All && !anyoneCanPay {
		var buf bytes.Buffer
		var u32 [4]byte
		for _, in := range transaction.TxIn {
			binary.LittleEndian.PutUint32(u32[:], in.Sequence)
			buf.Write(u32[:])
		}
		hashSequence = hashes.Hash256(buf.Bytes())
	}

	hashOutputs := make([]byte, 32)
	switch {
	case base != None && base != Single:
		var buf bytes.Buffer
		for _, out := range transaction.TxOut {
			if err := out.Serialize(&buf); err != nil {
				return nil, err
			}
		}
		hashOutputs = hashes.Hash256(buf.Bytes())
	case base == Single && inputIndex < len(transaction.TxOut):
		var buf bytes.Buffer
		if err := transaction.TxOut[inputIndex].Serialize(&buf); err != nil {
			return nil, err
		}
		hashOutputs = hashes.Hash256(buf.Bytes())
	}

	in := transaction.TxIn[inputIndex]
	var buf bytes.Buffer
	var u32 [4]byte
	var u64 [8]byte

	binary.LittleEndian.PutUint32(u32[:], transaction.Version)
	buf.Write(u32[:])
	buf.Write(hashPrevOuts)
	buf.Write(hashSequence)
	if err := in.PrevOut.Serialize(&buf); err != nil {
		return nil, err
	}
	buf.Write(varint.EncodeBytes(scriptCode))
	binary.LittleEndian.PutUint64(u64[:], uint64(value))
	buf.Write(u64[:])
	binary.LittleEndian.PutUint32(u32[:], in.Sequence)
	buf.Write(u32[:])
	buf.Write(hashOutputs)
	binary.LittleEndian.PutUint32(u32[:], transaction.LockTime)
	buf.Write(u32[:])
	buf.Write([]byte{hashType, 0, 0, 0})

	return hashes.Hash256(buf.Bytes()), nil
}

// LegacyScriptCode returns the script code of a script being spent
// through the legacy scheme: the script with every OP_CODESEPARATOR
// removed.
func LegacyScriptCode(spk []byte) ([]byte, error) {
	commands, err := script.Parse(spk)
	if err != nil {
		return nil, err
	}
	kept := commands[:0]
	for _, c := range commands {
		if c.Op == "OP_CODESEPARATOR" {
			continue
		}
		kept = append(kept, c)
	}
	return script.Serialize(kept)
}

// WitnessV0ScriptCode returns the BIP143 script code: the canonical
// p2pkh template for a p2wpkh program, the script itself otherwise.
func WitnessV0ScriptCode(spk []byte) ([]byte, error) {
	if scriptType, payload := scriptpubkey.Classify(spk); scriptType == scriptpubkey.TypeP2WPKH {
		return scriptpubkey.FromPayload(scriptpubkey.TypeP2PKH, payload)
	}
	return spk, nil
}

// FromPrevOut computes the signature digest of input inputIndex given
// the output it spends, picking the legacy or BIP143 scheme and the
// script code from the spent scriptPubKey. A p2sh output is unwrapped
// through the input's scriptSig, a p2wsh program through the witness
// script on top of the input's witness stack.
func FromPrevOut(prevOut tx.TxOut, transaction *tx.Tx, inputIndex int, hashType byte) ([]byte, error) {
	if inputIndex < 0 || inputIndex >= len(transaction.TxIn) {
		return nil, fmt.Errorf("sighash: input index %d out of range", inputIndex)
	}

	spk := prevOut.ScriptPubKey
	scriptType, _ := scriptpubkey.Classify(spk)
	if scriptType == scriptpubkey.TypeP2SH {
		spk = redeemScript(transaction.TxIn[inputIndex].ScriptSig)
		scriptType, _ = scriptpubkey.Classify(spk)
	}

	switch scriptType {
	case scriptpubkey.TypeP2WPKH:
		scriptCode, err := WitnessV0ScriptCode(spk)
		if err != nil {
			return nil, err
		}
		return SegwitV0(scriptCode, transaction, inputIndex, hashType, prevOut.Value)
	case scriptpubkey.TypeP2WSH:
		stack := transaction.TxIn[inputIndex].Witness.Stack
		if len(stack) == 0 {
			return nil, fmt.Errorf("sighash: input %d: missing witness script", inputIndex)
		}
		scriptCode, err := WitnessV0ScriptCode(stack[len(stack)-1])
		if err != nil {
			return nil, err
		}
		return SegwitV0(scriptCode, transaction, inputIndex, hashType, prevOut.Value)
	}

	scriptCode, err := LegacyScriptCode(spk)
	if err != nil {
		return nil, err
	}
	return Legacy(scriptCode, transaction, inputIndex, hashType)
}

// redeemScript extracts the redeem script from a p2sh scriptSig, the
// final data push. A scriptSig that does not parse is taken verbatim.
func redeemScript(scriptSig []byte) []byte {
	commands, err := script.Parse(scriptSig)
	if err != nil || len(commands) == 0 {
		return scriptSig
	}
	if last := commands[len(commands)-1]; last.IsData() {
		return last.Data
	}
	return scriptSig
}
