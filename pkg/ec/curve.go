// Package ec implements the secp256k1 group and the ECDSA signature
// scheme with the bitcoin canonical low-s encoding (SEC 1 v.2),
// deterministic nonces per RFC 6979, and strict DER serialization.
package ec

import (
	"fmt"
	"math/big"
)

// secp256k1 domain parameters: y^2 = x^3 + 7 over GF(p).
var (
	// P is the field prime.
	P, _ = new(big.Int).SetString(
		"fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f", 16)
	// N is the group order.
	N, _ = new(big.Int).SetString(
		"fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
	// Gx, Gy are the generator coordinates.
	Gx, _ = new(big.Int).SetString(
		"79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798", 16)
	Gy, _ = new(big.Int).SetString(
		"483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8", 16)

	seven   = big.NewInt(7)
	halfN   = new(big.Int).Rsh(N, 1)
	pPlus14 = new(big.Int).Rsh(new(big.Int).Add(P, big.NewInt(1)), 2) // (p+1)/4
)

// NSize is the byte size of a group scalar, NLen its bit length.
const (
	NSize = 32
	NLen  = 256
)

// Point is an affine point on secp256k1. The zero value is the point
// at infinity.
type Point struct {
	X, Y *big.Int
}

// Infinity returns the group identity.
func Infinity() Point { return Point{} }

// IsInfinity reports whether p is the group identity.
func (p Point) IsInfinity() bool { return p.X == nil || p.Y == nil }

// G returns the generator point.
func G() Point {
	return Point{X: new(big.Int).Set(Gx), Y: new(big.Int).Set(Gy)}
}

// Equal reports whether p and q are the same point.
func (p Point) Equal(q Point) bool {
	if p.IsInfinity() || q.IsInfinity() {
		return p.IsInfinity() && q.IsInfinity()
	}
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// OnCurve reports whether p satisfies the curve equation.
func (p Point) OnCurve() bool {
	if p.IsInfinity() {
		return false
	}
	if p.X.Sign() < 0 || p.X.Cmp(P) >= 0 || p.Y.Sign() < 0 || p.Y.Cmp(P) >= 0 {
		return false
	}
	y2 := new(big.Int).Mul(p.Y, p.Y)
	y2.Mod(y2, P)
	x3 := new(big.Int).Mul(p.X, p.X)
	x3.Mul(x3, p.X)
	x3.Add(x3, seven)
	x3.Mod(x3, P)
	return y2.Cmp(x3) == 0
}

// YFromX returns the curve y-coordinate for x with the requested
// parity (even when odd is false).
func YFromX(x *big.Int, odd bool) (*big.Int, error) {
	if x.Sign() < 0 || x.Cmp(P) >= 0 {
		return nil, fmt.Errorf("ec: x not in 0..p-1")
	}
	y2 := new(big.Int).Mul(x, x)
	y2.Mul(y2, x)
	y2.Add(y2, seven)
	y2.Mod(y2, P)
	// p = 3 mod 4, so the square root is y2^((p+1)/4)
	y := new(big.Int).Exp(y2, pPlus14, P)
	check := new(big.Int).Mul(y, y)
	check.Mod(check, P)
	if check.Cmp(y2) != 0 {
		return nil, fmt.Errorf("ec: x is not on the curve")
	}
	if y.Bit(0) != 0 != odd {
		y.Sub(P, y)
	}
	return y, nil
}

// Neg returns -p.
func (p Point) Neg() Point {
	if p.IsInfinity() {
		return Point{}
	}
	return Point{X: new(big.Int).Set(p.X), Y: new(big.Int).Sub(P, p.Y)}
}

// Add returns p + q.
func Add(p, q Point) Point {
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}
	if p.X.Cmp(q.X) == 0 {
		if p.Y.Cmp(q.Y) != 0 || p.Y.Sign() == 0 {
			return Point{} // p == -q
		}
		return double(p)
	}
	// lambda = (qy - py) / (qx - px)
	num := new(big.Int).Sub(q.Y, p.Y)
	den := new(big.Int).Sub(q.X, p.X)
	den.ModInverse(den, P)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, P)
	return chord(p, q, lambda)
}

func double(p Point) Point {
	// lambda = 3*px^2 / 2*py
	num := new(big.Int).Mul(p.X, p.X)
	num.Mul(num, big.NewInt(3))
	den := new(big.Int).Lsh(p.Y, 1)
	den.ModInverse(den, P)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, P)
	return chord(p, p, lambda)
}

func chord(p, q Point, lambda *big.Int) Point {
	x := new(big.Int).Mul(lambda, lambda)
	x.Sub(x, p.X)
	x.Sub(x, q.X)
	x.Mod(x, P)
	y := new(big.Int).Sub(p.X, x)
	y.Mul(y, lambda)
	y.Sub(y, p.Y)
	y.Mod(y, P)
	return Point{X: x, Y: y}
}

// Mult returns k*p using double-and-add.
func Mult(k *big.Int, p Point) Point {
	if p.IsInfinity() {
		return Point{}
	}
	k = new(big.Int).Mod(k, N)
	r := Point{}
	add := p
	for i := 0; i < k.BitLen(); i++ {
		if k.Bit(i) == 1 {
			r = Add(r, add)
		}
		add = Add(add, add)
	}
	return r
}

// MultG returns k*G.
func MultG(k *big.Int) Point { return Mult(k, G()) }

// DoubleMult returns u*G + v*p, as used by ECDSA verification.
func DoubleMult(u *big.Int, v *big.Int, p Point) Point {
	return Add(MultG(u), Mult(v, p))
}
