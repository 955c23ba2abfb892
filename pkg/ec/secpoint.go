package ec

import (
	"fmt"
	"math/big"
)

// SerializePoint returns the SEC representation of p: 33 bytes with a
// 0x02/0x03 parity prefix when compressed, 65 bytes with a 0x04 prefix
// otherwise.
func SerializePoint(p Point, compressed bool) ([]byte, error) {
	if p.IsInfinity() {
		return nil, fmt.Errorf("ec: cannot serialize the point at infinity")
	}
	if !p.OnCurve() {
		return nil, fmt.Errorf("ec: point not on curve")
	}
	x := p.X.FillBytes(make([]byte, 32))
	if compressed {
		prefix := byte(0x02)
		if p.Y.Bit(0) == 1 {
			prefix = 0x03
		}
		return append([]byte{prefix}, x...), nil
	}
	y := p.Y.FillBytes(make([]byte, 32))
	out := append([]byte{0x04}, x...)
	return append(out, y...), nil
}

// ParsePoint parses a SEC encoded point, compressed or uncompressed.
func ParsePoint(b []byte) (Point, error) {
	switch {
	case len(b) == 33 && (b[0] == 0x02 || b[0] == 0x03):
		x := new(big.Int).SetBytes(b[1:])
		y, err := YFromX(x, b[0] == 0x03)
		if err != nil {
			return Point{}, fmt.Errorf("ec: invalid compressed point: %w", err)
		}
		return Point{X: x, Y: y}, nil
	case len(b) == 65 && b[0] == 0x04:
		p := Point{
			X: new(big.Int).SetBytes(b[1:33]),
			Y: new(big.Int).SetBytes(b[33:]),
		}
		if !p.OnCurve() {
			return Point{}, fmt.Errorf("ec: point not on curve")
		}
		return p, nil
	default:
		return Point{}, fmt.Errorf("ec: invalid SEC point: %d bytes, prefix %#02x", len(b), prefixOf(b))
	}
}

func prefixOf(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// ParsePrivateKey validates a 32-byte scalar, requiring 0 < q < n.
func ParsePrivateKey(b []byte) (*big.Int, error) {
	if len(b) != NSize {
		return nil, fmt.Errorf("ec: invalid private key length: %d", len(b))
	}
	q := new(big.Int).SetBytes(b)
	if q.Sign() == 0 || q.Cmp(N) >= 0 {
		return nil, fmt.Errorf("ec: private key not in 1..n-1")
	}
	return q, nil
}
