package tx

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"time"

	"btckit/pkg/hashes"
	"btckit/pkg/varint"
)

// BlockHeader is the 80-byte block header.
type BlockHeader struct {
	Version       uint32
	PrevBlockHash [32]byte // display order
	MerkleRoot    [32]byte // display order
	Time          time.Time
	Bits          uint32
	Nonce         uint32
}

// Serialize writes the 80-byte wire form.
func (h BlockHeader) Serialize(w io.Writer) error {
	if err := writeUint32(w, h.Version); err != nil {
		return err
	}
	if err := writeReversed(w, h.PrevBlockHash[:]); err != nil {
		return err
	}
	if err := writeReversed(w, h.MerkleRoot[:]); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(h.Time.Unix())); err != nil {
		return err
	}
	if err := writeUint32(w, h.Bits); err != nil {
		return err
	}
	return writeUint32(w, h.Nonce)
}

// ParseBlockHeader reads an 80-byte header from r.
func ParseBlockHeader(r io.Reader) (BlockHeader, error) {
	var h BlockHeader
	var err error
	if h.Version, err = readUint32(r); err != nil {
		return h, fmt.Errorf("tx: reading header version: %w", err)
	}
	if err = readReversed(r, h.PrevBlockHash[:]); err != nil {
		return h, fmt.Errorf("tx: reading prev block hash: %w", err)
	}
	if err = readReversed(r, h.MerkleRoot[:]); err != nil {
		return h, fmt.Errorf("tx: reading merkle root: %w", err)
	}
	ts, err := readUint32(r)
	if err != nil {
		return h, fmt.Errorf("tx: reading header time: %w", err)
	}
	h.Time = time.Unix(int64(ts), 0).UTC()
	if h.Bits, err = readUint32(r); err != nil {
		return h, fmt.Errorf("tx: reading header bits: %w", err)
	}
	if h.Nonce, err = readUint32(r); err != nil {
		return h, fmt.Errorf("tx: reading header nonce: %w", err)
	}
	return h, nil
}

// Hash returns the display-order block hash.
func (h BlockHeader) Hash() [32]byte {
	var buf bytes.Buffer
	_ = h.Serialize(&buf)
	return reversedHash(buf.Bytes())
}

// Target expands the compact bits field aabbccdd into the 32-byte
// proof-of-work target aabbcc * 256^(dd-3). Exponents below 3 shift
// the significand right instead; targets that do not fit in 256 bits
// saturate to the maximum.
func (h BlockHeader) Target() [32]byte {
	exponent := int(h.Bits >> 24)
	significand := new(big.Int).SetUint64(uint64(h.Bits & 0x00FFFFFF))
	var target *big.Int
	if exponent < 3 {
		target = significand.Rsh(significand, uint(8*(3-exponent)))
	} else {
		target = significand.Lsh(significand, uint(8*(exponent-3)))
	}
	var out [32]byte
	if target.BitLen() > 256 {
		for i := range out {
			out[i] = 0xFF
		}
		return out
	}
	target.FillBytes(out[:])
	return out
}

// Difficulty returns the ratio of the genesis target over the header
// target: the average number of hash evaluations, in units of the
// genesis difficulty.
func (h BlockHeader) Difficulty() float64 {
	const genesisSignificand = 0x00FFFF
	const genesisExponent = 0x1D
	significand := float64(genesisSignificand) / float64(h.Bits&0x00FFFFFF)
	exponent := genesisExponent - int(h.Bits>>24)
	scale := 1.0
	for i := 0; i < exponent; i++ {
		scale *= 256
	}
	for i := 0; i > exponent; i-- {
		scale /= 256
	}
	return significand * scale
}

// CheckProofOfWork verifies that the block hash is below the target.
func (h BlockHeader) CheckProofOfWork() error {
	hash := h.Hash()
	target := h.Target()
	if bytes.Compare(hash[:], target[:]) >= 0 {
		return fmt.Errorf("tx: invalid proof-of-work: %x >= %x", hash, target)
	}
	return nil
}

// Validate checks the header's structural fields.
func (h BlockHeader) Validate() error {
	if h.Version == 0 || h.Version > 0x7FFFFFFF {
		return fmt.Errorf("tx: invalid header version %#x", h.Version)
	}
	if h.Time.IsZero() || h.Time.Unix() == 0 {
		return fmt.Errorf("tx: missing header timestamp")
	}
	return nil
}

// Block is a full block: header plus transactions.
type Block struct {
	Header BlockHeader
	Txs    []*Tx
}

// Serialize writes the header, the transaction count, and every
// transaction with witness data.
func (b *Block) Serialize(w io.Writer) error {
	if err := b.Header.Serialize(w); err != nil {
		return err
	}
	if _, err := w.Write(varint.Encode(uint64(len(b.Txs)))); err != nil {
		return err
	}
	for _, t := range b.Txs {
		if err := t.serializeTo(w, true); err != nil {
			return err
		}
	}
	return nil
}

// ParseBlock reads a full block from r.
func ParseBlock(r io.Reader) (*Block, error) {
	header, err := ParseBlockHeader(r)
	if err != nil {
		return nil, err
	}
	n, err := varint.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("tx: reading tx count: %w", err)
	}
	b := &Block{Header: header}
	for i := uint64(0); i < n; i++ {
		t, err := Parse(r)
		if err != nil {
			return nil, fmt.Errorf("tx: parsing block tx %d: %w", i, err)
		}
		b.Txs = append(b.Txs, t)
	}
	return b, nil
}

// ParseBlockBytes parses a block from a byte slice.
func ParseBlockBytes(raw []byte) (*Block, error) { return ParseBlock(bytes.NewReader(raw)) }

// MerkleRoot recomputes the transaction merkle root (txids in
// internal byte order).
func (b *Block) MerkleRoot() [32]byte {
	leaves := make([][]byte, len(b.Txs))
	for i, t := range b.Txs {
		id := t.TxID()
		leaf := make([]byte, 32)
		for j, c := range id {
			leaf[len(id)-1-j] = c
		}
		leaves[i] = leaf
	}
	root := hashes.MerkleRoot(leaves)
	var out [32]byte
	for i, c := range root {
		out[len(root)-1-i] = c
	}
	return out
}

// Validate checks the header, requires the first transaction to be
// the coinbase and only the first, and recomputes the merkle root.
func (b *Block) Validate() error {
	if err := b.Header.Validate(); err != nil {
		return err
	}
	if len(b.Txs) == 0 {
		return fmt.Errorf("tx: block without transactions")
	}
	if !b.Txs[0].IsCoinbase() {
		return fmt.Errorf("tx: first block transaction is not a coinbase")
	}
	for i, t := range b.Txs[1:] {
		if t.IsCoinbase() {
			return fmt.Errorf("tx: coinbase at position %d", i+1)
		}
	}
	if b.MerkleRoot() != b.Header.MerkleRoot {
		return fmt.Errorf("tx: merkle root mismatch")
	}
	return nil
}
