package psbt

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"btckit/pkg/ec"
	"btckit/pkg/sighash"
	"btckit/pkg/tx"
	"btckit/pkg/varint"
)

// Input key types.
const (
	inNonWitnessUTXO     byte = 0x00
	inWitnessUTXO        byte = 0x01
	inPartialSig         byte = 0x02
	inSighashType        byte = 0x03
	inRedeemScript       byte = 0x04
	inWitnessScript      byte = 0x05
	inBIP32Derivation    byte = 0x06
	inFinalScriptSig     byte = 0x07
	inFinalScriptWitness byte = 0x08
	inPORCommitment      byte = 0x09
)

// Input is the key-value map paired with one transaction input.
// PartialSigs and BIP32Derivs are keyed by the SEC public key bytes.
type Input struct {
	NonWitnessUTXO     *tx.Tx
	WitnessUTXO        *tx.TxOut
	PartialSigs        map[string][]byte
	SighashType        uint32
	HasSighashType     bool
	RedeemScript       []byte
	WitnessScript      []byte
	BIP32Derivs        map[string][]byte
	FinalScriptSig     []byte
	FinalScriptWitness tx.Witness
	PORCommitment      string
	Unknown            map[string][]byte
}

// NewInput returns an empty input map.
func NewInput() Input {
	return Input{
		PartialSigs: map[string][]byte{},
		BIP32Derivs: map[string][]byte{},
		Unknown:     map[string][]byte{},
	}
}

// Validate checks the input map invariants.
func (in *Input) Validate() error {
	if in.NonWitnessUTXO != nil {
		if err := in.NonWitnessUTXO.Validate(); err != nil {
			return fmt.Errorf("psbt: non-witness utxo: %w", err)
		}
	}
	if in.WitnessUTXO != nil {
		if err := in.WitnessUTXO.Validate(); err != nil {
			return fmt.Errorf("psbt: witness utxo: %w", err)
		}
	}
	if in.HasSighashType {
		if err := sighash.ValidateType(byte(in.SighashType)); err != nil {
			return err
		}
	}
	for pubKey, sig := range in.PartialSigs {
		if _, err := ec.ParsePoint([]byte(pubKey)); err != nil {
			return fmt.Errorf("psbt: partial signature pubkey: %w", err)
		}
		if err := validatePushedSig(sig); err != nil {
			return err
		}
	}
	return validateDerivs(in.BIP32Derivs)
}

// validatePushedSig checks a signature the way it is pushed on the
// stack, DER bytes followed by the one-byte hash type.
func validatePushedSig(sig []byte) error {
	if len(sig) < 2 {
		return fmt.Errorf("psbt: invalid signature length: %d", len(sig))
	}
	if _, _, err := ec.ParseDER(sig[:len(sig)-1]); err != nil {
		return fmt.Errorf("psbt: partial signature: %w", err)
	}
	return sighash.ValidateType(sig[len(sig)-1])
}

// validateDerivs checks fingerprint+path key origin values.
func validateDerivs(derivs map[string][]byte) error {
	for pubKey, origin := range derivs {
		if n := len(pubKey); n != 33 && n != 65 {
			return fmt.Errorf("psbt: invalid derivation pubkey length: %d", n)
		}
		if len(origin) < 4 || (len(origin)-4)%4 != 0 {
			return fmt.Errorf("psbt: invalid key origin length: %d", len(origin))
		}
	}
	return nil
}

func (in *Input) serialize(buf *bytes.Buffer) error {
	if in.NonWitnessUTXO != nil {
		raw, err := in.NonWitnessUTXO.Serialize(true)
		if err != nil {
			return err
		}
		writeRecord(buf, []byte{inNonWitnessUTXO}, raw)
	}
	if in.WitnessUTXO != nil {
		var utxo bytes.Buffer
		if err := in.WitnessUTXO.Serialize(&utxo); err != nil {
			return err
		}
		writeRecord(buf, []byte{inWitnessUTXO}, utxo.Bytes())
	}
	writeDict(buf, inPartialSig, in.PartialSigs)
	if in.HasSighashType {
		var v [4]byte
		binary.LittleEndian.PutUint32(v[:], in.SighashType)
		writeRecord(buf, []byte{inSighashType}, v[:])
	}
	if len(in.RedeemScript) > 0 {
		writeRecord(buf, []byte{inRedeemScript}, in.RedeemScript)
	}
	if len(in.WitnessScript) > 0 {
		writeRecord(buf, []byte{inWitnessScript}, in.WitnessScript)
	}
	if len(in.FinalScriptSig) > 0 {
		writeRecord(buf, []byte{inFinalScriptSig}, in.FinalScriptSig)
	}
	if !in.FinalScriptWitness.Empty() {
		var wit bytes.Buffer
		if err := in.FinalScriptWitness.Serialize(&wit); err != nil {
			return err
		}
		writeRecord(buf, []byte{inFinalScriptWitness}, wit.Bytes())
	}
	if in.PORCommitment != "" {
		writeRecord(buf, []byte{inPORCommitment}, []byte(in.PORCommitment))
	}
	writeDict(buf, inBIP32Derivation, in.BIP32Derivs)
	writeUnknown(buf, in.Unknown)
	buf.WriteByte(0x00)
	return nil
}

func parseInput(records map[string][]byte) (Input, error) {
	in := NewInput()
	for key, value := range records {
		k := []byte(key)
		switch k[0] {
		case inNonWitnessUTXO:
			if err := expectBareKey(k); err != nil {
				return in, err
			}
			utxo, err := tx.ParseBytes(value)
			if err != nil {
				return in, err
			}
			in.NonWitnessUTXO = utxo
		case inWitnessUTXO:
			if err := expectBareKey(k); err != nil {
				return in, err
			}
			utxo, err := tx.ParseTxOut(bytes.NewReader(value))
			if err != nil {
				return in, err
			}
			in.WitnessUTXO = &utxo
		case inPartialSig:
			in.PartialSigs[string(k[1:])] = value
		case inSighashType:
			if err := expectBareKey(k); err != nil {
				return in, err
			}
			if len(value) != 4 {
				return in, fmt.Errorf("psbt: invalid sighash type length: %d", len(value))
			}
			in.SighashType = binary.LittleEndian.Uint32(value)
			in.HasSighashType = true
		case inRedeemScript:
			if err := expectBareKey(k); err != nil {
				return in, err
			}
			in.RedeemScript = value
		case inWitnessScript:
			if err := expectBareKey(k); err != nil {
				return in, err
			}
			in.WitnessScript = value
		case inBIP32Derivation:
			in.BIP32Derivs[string(k[1:])] = value
		case inFinalScriptSig:
			if err := expectBareKey(k); err != nil {
				return in, err
			}
			in.FinalScriptSig = value
		case inFinalScriptWitness:
			if err := expectBareKey(k); err != nil {
				return in, err
			}
			wit, err := tx.ParseWitness(bytes.NewReader(value))
			if err != nil {
				return in, err
			}
			in.FinalScriptWitness = wit
		case inPORCommitment:
			if err := expectBareKey(k); err != nil {
				return in, err
			}
			in.PORCommitment = string(value)
		default:
			in.Unknown[key] = value
		}
	}
	return in, in.Validate()
}

func expectBareKey(k []byte) error {
	if len(k) != 1 {
		return fmt.Errorf("psbt: invalid key length: %d", len(k))
	}
	return nil
}

func writeRecord(buf *bytes.Buffer, key, value []byte) {
	buf.Write(varint.EncodeBytes(key))
	buf.Write(varint.EncodeBytes(value))
}
