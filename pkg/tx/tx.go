// Package tx models Bitcoin transactions and blocks and their wire
// serialization, including the segwit extended format.
package tx

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"btckit/pkg/hashes"
	"btckit/pkg/varint"
)

var segwitMarker = []byte{0x00, 0x01}

// Tx is a Bitcoin transaction.
type Tx struct {
	Version  uint32
	TxIn     []TxIn
	TxOut    []TxOut
	LockTime uint32
}

// HasWitness reports whether any input carries witness data.
func (t *Tx) HasWitness() bool {
	for _, in := range t.TxIn {
		if !in.Witness.Empty() {
			return true
		}
	}
	return false
}

// IsCoinbase reports whether t is a coinbase transaction: a single
// input spending the zero outpoint.
func (t *Tx) IsCoinbase() bool {
	return len(t.TxIn) == 1 && t.TxIn[0].IsCoinbase()
}

// Validate checks structural validity: at least one input and one
// output, each of them valid.
func (t *Tx) Validate() error {
	if len(t.TxIn) == 0 {
		return fmt.Errorf("tx: transaction must have at least one input")
	}
	if len(t.TxOut) == 0 {
		return fmt.Errorf("tx: transaction must have at least one output")
	}
	for i, in := range t.TxIn {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("tx: input %d: %w", i, err)
		}
	}
	for i, out := range t.TxOut {
		if err := out.Validate(); err != nil {
			return fmt.Errorf("tx: output %d: %w", i, err)
		}
	}
	return nil
}

// Serialize returns the wire bytes. The witness section (and the
// segwit marker) is included only when requested and present.
func (t *Tx) Serialize(includeWitness bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.serializeTo(&buf, includeWitness); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Tx) serializeTo(w io.Writer, includeWitness bool) error {
	segwit := includeWitness && t.HasWitness()

	if err := writeUint32(w, t.Version); err != nil {
		return err
	}
	if segwit {
		if _, err := w.Write(segwitMarker); err != nil {
			return err
		}
	}
	if _, err := w.Write(varint.Encode(uint64(len(t.TxIn)))); err != nil {
		return err
	}
	for _, in := range t.TxIn {
		if err := in.Serialize(w); err != nil {
			return err
		}
	}
	if _, err := w.Write(varint.Encode(uint64(len(t.TxOut)))); err != nil {
		return err
	}
	for _, out := range t.TxOut {
		if err := out.Serialize(w); err != nil {
			return err
		}
	}
	if segwit {
		for _, in := range t.TxIn {
			if err := in.Witness.Serialize(w); err != nil {
				return err
			}
		}
	}
	return writeUint32(w, t.LockTime)
}

// Parse reads a transaction, accepting both the legacy and the segwit
// extended format.
func Parse(r io.Reader) (*Tx, error) {
	t := &Tx{}
	var err error
	if t.Version, err = readUint32(r); err != nil {
		return nil, fmt.Errorf("tx: reading version: %w", err)
	}

	n, err := varint.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("tx: reading input count: %w", err)
	}
	segwit := false
	if n == 0 {
		// segwit marker: a zero "input count" followed by the 0x01 flag
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return nil, fmt.Errorf("tx: reading segwit flag: %w", err)
		}
		if flag[0] != 0x01 {
			return nil, fmt.Errorf("tx: invalid segwit flag %#02x", flag[0])
		}
		segwit = true
		if n, err = varint.Decode(r); err != nil {
			return nil, fmt.Errorf("tx: reading input count: %w", err)
		}
	}

	for i := uint64(0); i < n; i++ {
		in, err := ParseTxIn(r)
		if err != nil {
			return nil, err
		}
		t.TxIn = append(t.TxIn, in)
	}

	if n, err = varint.Decode(r); err != nil {
		return nil, fmt.Errorf("tx: reading output count: %w", err)
	}
	for i := uint64(0); i < n; i++ {
		out, err := ParseTxOut(r)
		if err != nil {
			return nil, err
		}
		t.TxOut = append(t.TxOut, out)
	}

	if segwit {
		for i := range t.TxIn {
			w, err := ParseWitness(r)
			if err != nil {
				return nil, err
			}
			t.TxIn[i].Witness = w
		}
	}

	if t.LockTime, err = readUint32(r); err != nil {
		return nil, fmt.Errorf("tx: reading locktime: %w", err)
	}
	return t, nil
}

// ParseBytes parses a transaction from a byte slice.
func ParseBytes(raw []byte) (*Tx, error) { return Parse(bytes.NewReader(raw)) }

// TxID returns the display-order transaction id: the reversed double
// SHA256 of the serialization without witness data.
func (t *Tx) TxID() [32]byte {
	raw, _ := t.Serialize(false)
	return reversedHash(raw)
}

// WTxID returns the display-order hash of the full serialization,
// witness included.
func (t *Tx) WTxID() [32]byte {
	raw, _ := t.Serialize(true)
	return reversedHash(raw)
}

// TxIDString returns the hex txid.
func (t *Tx) TxIDString() string {
	id := t.TxID()
	return hex.EncodeToString(id[:])
}

// Size returns the full serialized size in bytes.
func (t *Tx) Size() int {
	raw, _ := t.Serialize(true)
	return len(raw)
}

// Weight returns 3x the stripped size plus the full size (BIP141).
func (t *Tx) Weight() int {
	stripped, _ := t.Serialize(false)
	full, _ := t.Serialize(true)
	return len(stripped)*3 + len(full)
}

// VSize returns the virtual size: weight divided by 4, rounded up.
func (t *Tx) VSize() int {
	return (t.Weight() + 3) / 4
}

func reversedHash(raw []byte) [32]byte {
	h := hashes.Hash256(raw)
	var out [32]byte
	for i, c := range h {
		out[len(h)-1-i] = c
	}
	return out
}
