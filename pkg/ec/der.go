package ec

import (
	"fmt"
	"math/big"
)

// SerializeDER returns the strict ASN.1 DER encoding of the (r, s)
// signature: 0x30 len [0x02 rlen r] [0x02 slen s], with minimal
// positive integer encodings.
func SerializeDER(r, s *big.Int) ([]byte, error) {
	if err := validateSig(r, s); err != nil {
		return nil, err
	}
	rb := derInt(r)
	sb := derInt(s)
	out := make([]byte, 0, 6+len(rb)+len(sb))
	out = append(out, 0x30, byte(4+len(rb)+len(sb)))
	out = append(out, 0x02, byte(len(rb)))
	out = append(out, rb...)
	out = append(out, 0x02, byte(len(sb)))
	out = append(out, sb...)
	return out, nil
}

// derInt encodes a positive integer with the minimal number of bytes,
// adding a leading zero when the high bit would flag it negative.
func derInt(i *big.Int) []byte {
	b := i.Bytes()
	if len(b) == 0 || b[0] >= 0x80 {
		b = append([]byte{0x00}, b...)
	}
	return b
}

// ParseDER parses a strict DER signature, rejecting padding, trailing
// garbage, and non-minimal integer encodings.
func ParseDER(sig []byte) (r, s *big.Int, err error) {
	if len(sig) < 8 || len(sig) > 72 {
		return nil, nil, fmt.Errorf("der: invalid signature size: %d bytes", len(sig))
	}
	if sig[0] != 0x30 {
		return nil, nil, fmt.Errorf("der: missing compound header")
	}
	if int(sig[1]) != len(sig)-2 {
		return nil, nil, fmt.Errorf("der: declared length %d does not match %d", sig[1], len(sig)-2)
	}
	r, rest, err := parseDERInt(sig[2:])
	if err != nil {
		return nil, nil, fmt.Errorf("der: invalid r: %w", err)
	}
	s, rest, err = parseDERInt(rest)
	if err != nil {
		return nil, nil, fmt.Errorf("der: invalid s: %w", err)
	}
	if len(rest) != 0 {
		return nil, nil, fmt.Errorf("der: trailing data")
	}
	if err := validateSig(r, s); err != nil {
		return nil, nil, err
	}
	return r, s, nil
}

func parseDERInt(b []byte) (*big.Int, []byte, error) {
	if len(b) < 2 || b[0] != 0x02 {
		return nil, nil, fmt.Errorf("missing integer header")
	}
	length := int(b[1])
	if length == 0 {
		return nil, nil, fmt.Errorf("zero length integer")
	}
	if len(b) < 2+length {
		return nil, nil, fmt.Errorf("truncated integer")
	}
	v := b[2 : 2+length]
	if v[0]&0x80 != 0 {
		return nil, nil, fmt.Errorf("negative integer")
	}
	if length > 1 && v[0] == 0x00 && v[1]&0x80 == 0 {
		return nil, nil, fmt.Errorf("padded integer")
	}
	return new(big.Int).SetBytes(v), b[2+length:], nil
}

// validateSig requires both scalars in [1, n-1].
func validateSig(r, s *big.Int) error {
	if r.Sign() <= 0 || r.Cmp(N) >= 0 {
		return fmt.Errorf("der: r not in 1..n-1")
	}
	if s.Sign() <= 0 || s.Cmp(N) >= 0 {
		return fmt.Errorf("der: s not in 1..n-1")
	}
	return nil
}
