package tx

import (
	"encoding/hex"
	"fmt"
	"io"
)

// OutPoint references one output of a previous transaction. TxID is
// kept in display order; the wire format reverses it.
type OutPoint struct {
	TxID [32]byte
	Vout uint32
}

// NewOutPoint builds an OutPoint from a display-order hex txid.
func NewOutPoint(txid string, vout uint32) (OutPoint, error) {
	raw, err := hex.DecodeString(txid)
	if err != nil || len(raw) != 32 {
		return OutPoint{}, fmt.Errorf("tx: invalid txid %q", txid)
	}
	var op OutPoint
	copy(op.TxID[:], raw)
	op.Vout = vout
	return op, nil
}

// IsCoinbase reports whether the outpoint is the all-zero coinbase
// reference.
func (o OutPoint) IsCoinbase() bool {
	return o.TxID == [32]byte{} && o.Vout == 0xFFFFFFFF
}

// Validate rejects half-coinbase outpoints: a zero txid requires the
// 0xFFFFFFFF vout and vice versa.
func (o OutPoint) Validate() error {
	if (o.TxID == [32]byte{}) != (o.Vout == 0xFFFFFFFF) {
		return fmt.Errorf("tx: invalid outpoint %s:%d", o, o.Vout)
	}
	return nil
}

// String returns the display-order hex txid.
func (o OutPoint) String() string { return hex.EncodeToString(o.TxID[:]) }

// Serialize writes the 36-byte wire form: reversed txid then
// little-endian vout.
func (o OutPoint) Serialize(w io.Writer) error {
	if err := writeReversed(w, o.TxID[:]); err != nil {
		return err
	}
	return writeUint32(w, o.Vout)
}

// ParseOutPoint reads a 36-byte outpoint from r.
func ParseOutPoint(r io.Reader) (OutPoint, error) {
	var o OutPoint
	if err := readReversed(r, o.TxID[:]); err != nil {
		return o, fmt.Errorf("tx: reading outpoint txid: %w", err)
	}
	v, err := readUint32(r)
	if err != nil {
		return o, fmt.Errorf("tx: reading outpoint vout: %w", err)
	}
	o.Vout = v
	return o, nil
}
