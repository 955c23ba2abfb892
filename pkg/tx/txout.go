package tx

import (
	"fmt"
	"io"

	"btckit/pkg/amount"
	"btckit/pkg/varint"
)

// TxOut is one transaction output.
type TxOut struct {
	Value        amount.Satoshi
	ScriptPubKey []byte
}

// Validate enforces the money range on the output value.
func (out TxOut) Validate() error {
	if out.Value < 0 {
		return fmt.Errorf("tx: negative output value: %d", out.Value)
	}
	if !out.Value.Valid() {
		return fmt.Errorf("tx: output value beyond money range: %d", out.Value)
	}
	return nil
}

// Serialize writes the 8-byte value and the length-prefixed
// scriptPubKey.
func (out TxOut) Serialize(w io.Writer) error {
	if err := writeUint64(w, uint64(out.Value)); err != nil {
		return err
	}
	_, err := w.Write(varint.EncodeBytes(out.ScriptPubKey))
	return err
}

// ParseTxOut reads one output from r.
func ParseTxOut(r io.Reader) (TxOut, error) {
	var out TxOut
	v, err := readUint64(r)
	if err != nil {
		return out, fmt.Errorf("tx: reading output value: %w", err)
	}
	out.Value = amount.Satoshi(v)
	out.ScriptPubKey, err = varint.DecodeBytes(r)
	if err != nil {
		return out, fmt.Errorf("tx: reading scriptPubKey: %w", err)
	}
	return out, nil
}
