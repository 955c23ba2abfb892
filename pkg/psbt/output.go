package psbt

import (
	"bytes"
	"sort"
)

// Output key types.
const (
	outRedeemScript    byte = 0x00
	outWitnessScript   byte = 0x01
	outBIP32Derivation byte = 0x02
)

// Output is the key-value map paired with one transaction output.
type Output struct {
	RedeemScript  []byte
	WitnessScript []byte
	BIP32Derivs   map[string][]byte
	Unknown       map[string][]byte
}

// NewOutput returns an empty output map.
func NewOutput() Output {
	return Output{
		BIP32Derivs: map[string][]byte{},
		Unknown:     map[string][]byte{},
	}
}

// Validate checks the output map invariants.
func (out *Output) Validate() error {
	return validateDerivs(out.BIP32Derivs)
}

func (out *Output) serialize(buf *bytes.Buffer) error {
	if len(out.RedeemScript) > 0 {
		writeRecord(buf, []byte{outRedeemScript}, out.RedeemScript)
	}
	if len(out.WitnessScript) > 0 {
		writeRecord(buf, []byte{outWitnessScript}, out.WitnessScript)
	}
	writeDict(buf, outBIP32Derivation, out.BIP32Derivs)
	writeUnknown(buf, out.Unknown)
	buf.WriteByte(0x00)
	return nil
}

func parseOutput(records map[string][]byte) (Output, error) {
	out := NewOutput()
	for key, value := range records {
		k := []byte(key)
		switch k[0] {
		case outRedeemScript:
			if err := expectBareKey(k); err != nil {
				return out, err
			}
			out.RedeemScript = value
		case outWitnessScript:
			if err := expectBareKey(k); err != nil {
				return out, err
			}
			out.WitnessScript = value
		case outBIP32Derivation:
			out.BIP32Derivs[string(k[1:])] = value
		default:
			out.Unknown[key] = value
		}
	}
	return out, out.Validate()
}

// writeDict writes typed key-value records sorted by key so the
// serialization is deterministic.
func writeDict(buf *bytes.Buffer, keyType byte, dict map[string][]byte) {
	keys := sortedKeys(dict)
	for _, k := range keys {
		writeRecord(buf, append([]byte{keyType}, k...), dict[k])
	}
}

// writeUnknown writes records whose full key, type byte included, was
// preserved verbatim at parse time.
func writeUnknown(buf *bytes.Buffer, dict map[string][]byte) {
	for _, k := range sortedKeys(dict) {
		writeRecord(buf, []byte(k), dict[k])
	}
}

func sortedKeys(dict map[string][]byte) []string {
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
