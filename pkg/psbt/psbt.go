// Package psbt implements partially signed Bitcoin transactions
// (BIP174): the interchange format itself plus the combiner,
// finalizer and extractor roles.
package psbt

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"btckit/pkg/script"
	"btckit/pkg/tx"
	"btckit/pkg/varint"
)

var (
	magic     = []byte("psbt")
	separator = byte(0xff)
)

// Global key types.
const (
	globalUnsignedTx byte = 0x00
	globalXPub       byte = 0x01
	globalVersion    byte = 0xfb
)

// Psbt is a partially signed Bitcoin transaction: the unsigned
// transaction plus one key-value map per input and per output.
// XPubs is keyed by the 78-byte serialized extended public key.
type Psbt struct {
	Tx      *tx.Tx
	Inputs  []Input
	Outputs []Output
	Version uint32
	XPubs   map[string][]byte
	Unknown map[string][]byte
}

// New creates a PSBT around an unsigned transaction, stripping any
// scriptSig and witness data the creator left in.
func New(unsigned *tx.Tx) (*Psbt, error) {
	stripped := *unsigned
	stripped.TxIn = make([]tx.TxIn, len(unsigned.TxIn))
	for i, in := range unsigned.TxIn {
		in.ScriptSig = nil
		in.Witness = tx.Witness{}
		stripped.TxIn[i] = in
	}
	p := &Psbt{
		Tx:      &stripped,
		Inputs:  make([]Input, len(stripped.TxIn)),
		Outputs: make([]Output, len(stripped.TxOut)),
		XPubs:   map[string][]byte{},
		Unknown: map[string][]byte{},
	}
	for i := range p.Inputs {
		p.Inputs[i] = NewInput()
	}
	for i := range p.Outputs {
		p.Outputs[i] = NewOutput()
	}
	return p, p.Validate()
}

// Validate asserts logical self-consistency: an unsigned transaction
// with empty scriptSigs and witnesses, and matching map counts.
func (p *Psbt) Validate() error {
	if p.Tx == nil {
		return errors.New("psbt: missing transaction")
	}
	if err := p.Tx.Validate(); err != nil {
		return err
	}
	if len(p.Tx.TxIn) != len(p.Inputs) {
		return fmt.Errorf("psbt: mismatched number of inputs: %d maps for %d tx inputs",
			len(p.Inputs), len(p.Tx.TxIn))
	}
	if len(p.Tx.TxOut) != len(p.Outputs) {
		return fmt.Errorf("psbt: mismatched number of outputs: %d maps for %d tx outputs",
			len(p.Outputs), len(p.Tx.TxOut))
	}
	for i, in := range p.Tx.TxIn {
		if len(in.ScriptSig) > 0 {
			return fmt.Errorf("psbt: input %d: non-empty scriptSig", i)
		}
		if !in.Witness.Empty() {
			return fmt.Errorf("psbt: input %d: non-empty witness", i)
		}
	}
	if p.Version != 0 {
		return fmt.Errorf("psbt: invalid non-zero version: %d", p.Version)
	}
	for xpub, origin := range p.XPubs {
		if len(xpub) != 78 {
			return fmt.Errorf("psbt: invalid xpub length: %d", len(xpub))
		}
		if len(origin) < 4 || (len(origin)-4)%4 != 0 {
			return fmt.Errorf("psbt: invalid xpub key origin length: %d", len(origin))
		}
	}
	for i := range p.Inputs {
		if err := p.Inputs[i].Validate(); err != nil {
			return fmt.Errorf("psbt: input %d: %w", i, err)
		}
	}
	for i := range p.Outputs {
		if err := p.Outputs[i].Validate(); err != nil {
			return fmt.Errorf("psbt: output %d: %w", i, err)
		}
	}
	return nil
}

// Serialize returns the binary PSBT.
func (p *Psbt) Serialize() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(magic)
	buf.WriteByte(separator)

	rawTx, err := p.Tx.Serialize(true)
	if err != nil {
		return nil, err
	}
	writeRecord(&buf, []byte{globalUnsignedTx}, rawTx)
	if p.Version != 0 {
		var v [4]byte
		binary.LittleEndian.PutUint32(v[:], p.Version)
		writeRecord(&buf, []byte{globalVersion}, v[:])
	}
	writeDict(&buf, globalXPub, p.XPubs)
	writeUnknown(&buf, p.Unknown)
	buf.WriteByte(0x00)

	for i := range p.Inputs {
		if err := p.Inputs[i].serialize(&buf); err != nil {
			return nil, err
		}
	}
	for i := range p.Outputs {
		if err := p.Outputs[i].serialize(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Encode returns the base64 text form.
func (p *Psbt) Encode() (string, error) {
	raw, err := p.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// parseMap reads key-value records up to the 0x00 map terminator,
// rejecting duplicate keys.
func parseMap(r *bytes.Reader) (map[string][]byte, error) {
	records := map[string][]byte{}
	for {
		prefix, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("psbt: truncated map: %w", err)
		}
		if prefix == 0x00 {
			return records, nil
		}
		if err := r.UnreadByte(); err != nil {
			return nil, err
		}
		key, err := varint.DecodeBytes(r)
		if err != nil {
			return nil, err
		}
		if len(key) == 0 {
			return nil, errors.New("psbt: empty map key")
		}
		value, err := varint.DecodeBytes(r)
		if err != nil {
			return nil, err
		}
		if _, ok := records[string(key)]; ok {
			return nil, fmt.Errorf("psbt: duplicated key in map: 0x%x", key)
		}
		records[string(key)] = value
	}
}

// Parse decodes a binary PSBT.
func Parse(raw []byte) (*Psbt, error) {
	r := bytes.NewReader(raw)
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("psbt: truncated: %w", err)
	}
	if !bytes.Equal(header[:4], magic) {
		return nil, errors.New("psbt: missing magic bytes")
	}
	if header[4] != separator {
		return nil, errors.New("psbt: missing separator")
	}

	p := &Psbt{XPubs: map[string][]byte{}, Unknown: map[string][]byte{}}
	globals, err := parseMap(r)
	if err != nil {
		return nil, err
	}
	for key, value := range globals {
		k := []byte(key)
		switch k[0] {
		case globalUnsignedTx:
			if err := expectBareKey(k); err != nil {
				return nil, err
			}
			unsigned, err := tx.ParseBytes(value)
			if err != nil {
				return nil, err
			}
			p.Tx = unsigned
		case globalVersion:
			if err := expectBareKey(k); err != nil {
				return nil, err
			}
			if len(value) != 4 {
				return nil, fmt.Errorf("psbt: invalid version length: %d", len(value))
			}
			p.Version = binary.LittleEndian.Uint32(value)
		case globalXPub:
			p.XPubs[string(k[1:])] = value
		default:
			p.Unknown[key] = value
		}
	}
	if p.Tx == nil {
		return nil, errors.New("psbt: missing transaction")
	}

	for range p.Tx.TxIn {
		records, err := parseMap(r)
		if err != nil {
			return nil, err
		}
		in, err := parseInput(records)
		if err != nil {
			return nil, err
		}
		p.Inputs = append(p.Inputs, in)
	}
	for range p.Tx.TxOut {
		records, err := parseMap(r)
		if err != nil {
			return nil, err
		}
		out, err := parseOutput(records)
		if err != nil {
			return nil, err
		}
		p.Outputs = append(p.Outputs, out)
	}
	return p, p.Validate()
}

// Decode parses the base64 text form.
func Decode(s string) (*Psbt, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("psbt: invalid base64: %w", err)
	}
	return Parse(raw)
}

func clonedDict(m map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies p deeply enough that merging keypairs into the copy
// leaves p untouched.
func (p *Psbt) clone() *Psbt {
	out := &Psbt{
		Tx:      p.Tx,
		Inputs:  make([]Input, len(p.Inputs)),
		Outputs: make([]Output, len(p.Outputs)),
		Version: p.Version,
		XPubs:   clonedDict(p.XPubs),
		Unknown: clonedDict(p.Unknown),
	}
	for i, in := range p.Inputs {
		in.PartialSigs = clonedDict(in.PartialSigs)
		in.BIP32Derivs = clonedDict(in.BIP32Derivs)
		in.Unknown = clonedDict(in.Unknown)
		out.Inputs[i] = in
	}
	for i, o := range p.Outputs {
		o.BIP32Derivs = clonedDict(o.BIP32Derivs)
		o.Unknown = clonedDict(o.Unknown)
		out.Outputs[i] = o
	}
	return out
}

// Combine merges PSBTs for the same unsigned transaction into one
// that carries every keypair from each of them. The inputs are left
// unmodified.
func Combine(psbts []*Psbt) (*Psbt, error) {
	if len(psbts) == 0 {
		return nil, errors.New("psbt: nothing to combine")
	}
	out := psbts[0].clone()
	txid := out.Tx.TxID()
	for _, p := range psbts[1:] {
		if p.Tx.TxID() != txid {
			return nil, fmt.Errorf("psbt: mismatched unsigned tx: %s", p.Tx.TxIDString())
		}
	}

	for _, p := range psbts[1:] {
		for i := range out.Inputs {
			dst, src := &out.Inputs[i], &p.Inputs[i]
			if dst.NonWitnessUTXO == nil {
				dst.NonWitnessUTXO = src.NonWitnessUTXO
			}
			if dst.WitnessUTXO == nil {
				dst.WitnessUTXO = src.WitnessUTXO
			}
			mergeDict(dst.PartialSigs, src.PartialSigs)
			if !dst.HasSighashType && src.HasSighashType {
				dst.SighashType, dst.HasSighashType = src.SighashType, true
			}
			dst.RedeemScript = firstNonEmpty(dst.RedeemScript, src.RedeemScript)
			dst.WitnessScript = firstNonEmpty(dst.WitnessScript, src.WitnessScript)
			mergeDict(dst.BIP32Derivs, src.BIP32Derivs)
			dst.FinalScriptSig = firstNonEmpty(dst.FinalScriptSig, src.FinalScriptSig)
			if dst.FinalScriptWitness.Empty() {
				dst.FinalScriptWitness = src.FinalScriptWitness
			}
			if dst.PORCommitment == "" {
				dst.PORCommitment = src.PORCommitment
			}
			mergeDict(dst.Unknown, src.Unknown)
		}
		for i := range out.Outputs {
			dst, src := &out.Outputs[i], &p.Outputs[i]
			dst.RedeemScript = firstNonEmpty(dst.RedeemScript, src.RedeemScript)
			dst.WitnessScript = firstNonEmpty(dst.WitnessScript, src.WitnessScript)
			mergeDict(dst.BIP32Derivs, src.BIP32Derivs)
			mergeDict(dst.Unknown, src.Unknown)
		}
		mergeDict(out.XPubs, p.XPubs)
		mergeDict(out.Unknown, p.Unknown)
	}
	return out, out.Validate()
}

func mergeDict(dst, src map[string][]byte) {
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

func firstNonEmpty(a, b []byte) []byte {
	if len(a) > 0 {
		return a
	}
	return b
}

// Finalize builds the final scriptSig and scriptWitness of every
// input from its partial signatures and scripts, then clears the
// signing-time records, keeping the UTXOs for the extractor. The
// standard single-sig and script-hash spending forms are handled.
func Finalize(p *Psbt) (*Psbt, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := &Psbt{
		Tx:      p.Tx,
		Inputs:  make([]Input, len(p.Inputs)),
		Outputs: p.Outputs,
		Version: p.Version,
		XPubs:   p.XPubs,
		Unknown: p.Unknown,
	}
	copy(out.Inputs, p.Inputs)

	for i := range out.Inputs {
		in := &out.Inputs[i]
		if len(in.PartialSigs) == 0 {
			return nil, fmt.Errorf("psbt: input %d: missing signatures", i)
		}
		pubKeys := sortedKeys(in.PartialSigs)
		multiSig := len(pubKeys) > 1

		switch {
		case len(in.WitnessScript) > 0:
			// p2wsh, possibly wrapped: the scriptSig is the redeem
			// script push, the witness carries the signatures and the
			// witness script (with the null dummy for multisig)
			if len(in.RedeemScript) > 0 {
				in.FinalScriptSig = script.MustSerialize(
					[]script.Command{script.Data(in.RedeemScript)})
			}
			var stack [][]byte
			if multiSig {
				stack = append(stack, []byte{})
			}
			for _, pubKey := range pubKeys {
				stack = append(stack, in.PartialSigs[pubKey])
			}
			stack = append(stack, in.WitnessScript)
			in.FinalScriptWitness = tx.Witness{Stack: stack}
		case in.WitnessUTXO != nil:
			// p2wpkh, possibly wrapped
			if multiSig {
				return nil, fmt.Errorf("psbt: input %d: multiple signatures without a witness script", i)
			}
			if len(in.RedeemScript) > 0 {
				in.FinalScriptSig = script.MustSerialize(
					[]script.Command{script.Data(in.RedeemScript)})
			}
			in.FinalScriptWitness = tx.Witness{Stack: [][]byte{
				in.PartialSigs[pubKeys[0]], []byte(pubKeys[0]),
			}}
		case len(in.RedeemScript) > 0:
			// legacy p2sh, the null dummy first for multisig
			commands := []script.Command{}
			if multiSig {
				commands = append(commands, script.Op("OP_0"))
			}
			for _, pubKey := range pubKeys {
				commands = append(commands, script.Data(in.PartialSigs[pubKey]))
			}
			commands = append(commands, script.Data(in.RedeemScript))
			in.FinalScriptSig = script.MustSerialize(commands)
		default:
			// legacy p2pkh
			if multiSig {
				return nil, fmt.Errorf("psbt: input %d: multiple signatures without a redeem script", i)
			}
			in.FinalScriptSig = script.MustSerialize([]script.Command{
				script.Data(in.PartialSigs[pubKeys[0]]),
				script.Data([]byte(pubKeys[0])),
			})
		}

		in.PartialSigs = map[string][]byte{}
		in.HasSighashType = false
		in.SighashType = 0
		in.RedeemScript = nil
		in.WitnessScript = nil
		in.BIP32Derivs = map[string][]byte{}
	}
	return out, nil
}

// Extract builds the network-serialized transaction from a finalized
// PSBT.
func Extract(p *Psbt) (*tx.Tx, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	final := *p.Tx
	final.TxIn = make([]tx.TxIn, len(p.Tx.TxIn))
	for i, in := range p.Tx.TxIn {
		psbtIn := &p.Inputs[i]
		if len(psbtIn.FinalScriptSig) == 0 && psbtIn.FinalScriptWitness.Empty() {
			return nil, fmt.Errorf("psbt: input %d: not finalized", i)
		}
		in.ScriptSig = psbtIn.FinalScriptSig
		in.Witness = psbtIn.FinalScriptWitness
		final.TxIn[i] = in
	}
	return &final, nil
}
