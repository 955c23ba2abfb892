package tx

import (
	"fmt"
	"io"

	"btckit/pkg/varint"
)

// Witness is a per-input stack of byte strings.
type Witness struct {
	Stack [][]byte
}

// Empty reports whether the witness carries no stack items.
func (w Witness) Empty() bool { return len(w.Stack) == 0 }

// Serialize writes the witness: item count then length-prefixed items.
func (w Witness) Serialize(dst io.Writer) error {
	if _, err := dst.Write(varint.Encode(uint64(len(w.Stack)))); err != nil {
		return err
	}
	for _, item := range w.Stack {
		if _, err := dst.Write(varint.EncodeBytes(item)); err != nil {
			return err
		}
	}
	return nil
}

// ParseWitness reads a witness stack from r.
func ParseWitness(r io.Reader) (Witness, error) {
	n, err := varint.Decode(r)
	if err != nil {
		return Witness{}, fmt.Errorf("tx: reading witness count: %w", err)
	}
	w := Witness{Stack: make([][]byte, 0, n)}
	for i := uint64(0); i < n; i++ {
		item, err := varint.DecodeBytes(r)
		if err != nil {
			return Witness{}, fmt.Errorf("tx: reading witness item %d: %w", i, err)
		}
		w.Stack = append(w.Stack, item)
	}
	return w, nil
}

// TxIn is one transaction input.
type TxIn struct {
	PrevOut   OutPoint
	ScriptSig []byte
	Sequence  uint32
	Witness   Witness
}

// IsCoinbase reports whether the input spends the coinbase outpoint.
func (in TxIn) IsCoinbase() bool { return in.PrevOut.IsCoinbase() }

// Validate checks the previous outpoint.
func (in TxIn) Validate() error { return in.PrevOut.Validate() }

// Serialize writes the input without its witness (witnesses are
// serialized at the transaction level).
func (in TxIn) Serialize(w io.Writer) error {
	if err := in.PrevOut.Serialize(w); err != nil {
		return err
	}
	if _, err := w.Write(varint.EncodeBytes(in.ScriptSig)); err != nil {
		return err
	}
	return writeUint32(w, in.Sequence)
}

// ParseTxIn reads one input from r.
func ParseTxIn(r io.Reader) (TxIn, error) {
	var in TxIn
	prevOut, err := ParseOutPoint(r)
	if err != nil {
		return in, err
	}
	in.PrevOut = prevOut
	in.ScriptSig, err = varint.DecodeBytes(r)
	if err != nil {
		return in, fmt.Errorf("tx: reading scriptSig: %w", err)
	}
	in.Sequence, err = readUint32(r)
	if err != nil {
		return in, fmt.Errorf("tx: reading sequence: %w", err)
	}
	return in, nil
}
