// Package curve implements the P-256 key and point operations used by the signer and the
// HPKE decryptor: key generation, public key derivation and point (de)compression.
//
// All functions are pure over byte slices. Curve constants live in a single table that is
// built once at package init and never handed out by reference.
package curve

import "math/big"

const (
	ScalarSize       = 32
	CoordinateSize   = 32
	CompressedSize   = 1 + CoordinateSize
	UncompressedSize = 1 + 2*CoordinateSize

	prefixEven         = 0x02
	prefixOdd          = 0x03
	prefixUncompressed = 0x04
)

type params struct {
	p     *big.Int // field prime
	n     *big.Int // group order
	b     *big.Int // curve coefficient, a = -3
	gx    *big.Int
	gy    *big.Int
	halfN *big.Int
	sqrtE *big.Int // (p+1)/4, valid because p = 3 mod 4
}

var p256 = newParams()

func newParams() *params {
	c := &params{
		p:  mustHex("ffffffff00000001000000000000000000000000ffffffffffffffffffffffff"),
		n:  mustHex("ffffffff00000000ffffffffffffffffbce6faada7179e84f3b9cac2fc632551"),
		b:  mustHex("5ac635d8aa3a93e7b3ebbd55769886bc651d06b0cc53b0f63bce3c3e27d2604b"),
		gx: mustHex("6b17d1f2e12c4247f8bce6e563a440f277037d812deb33a0f4a13945d898c296"),
		gy: mustHex("4fe342e2fe1a7f9b8ee7eb4a7c0f9e162bce33576b315ececbb6406837bf51f5"),
	}
	c.halfN = new(big.Int).Rsh(c.n, 1)
	c.sqrtE = new(big.Int).Add(c.p, big.NewInt(1))
	c.sqrtE.Rsh(c.sqrtE, 2)
	return c
}

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("curve: bad constant " + s)
	}
	return v
}

// Order returns a copy of the group order n.
func Order() *big.Int { return new(big.Int).Set(p256.n) }

// HalfOrder returns a copy of floor(n/2), the upper bound of a canonical S.
func HalfOrder() *big.Int { return new(big.Int).Set(p256.halfN) }

// FieldPrime returns a copy of the field prime p.
func FieldPrime() *big.Int { return new(big.Int).Set(p256.p) }

// Generator returns copies of the base point coordinates.
func Generator() (x, y *big.Int) {
	return new(big.Int).Set(p256.gx), new(big.Int).Set(p256.gy)
}

// curveRHS returns x^3 - 3x + b mod p.
func curveRHS(x *big.Int) *big.Int {
	p := p256.p
	x3 := new(big.Int).Mul(x, x)
	x3.Mul(x3, x)

	threeX := new(big.Int).Lsh(x, 1)
	threeX.Add(threeX, x)

	rhs := x3.Sub(x3, threeX)
	rhs.Add(rhs, p256.b)
	return rhs.Mod(rhs, p)
}

// IsOnCurve reports whether (x, y) satisfies y^2 = x^3 - 3x + b over the P-256 field.
func IsOnCurve(x, y *big.Int) bool {
	if x.Sign() < 0 || x.Cmp(p256.p) >= 0 || y.Sign() < 0 || y.Cmp(p256.p) >= 0 {
		return false
	}
	y2 := new(big.Int).Mul(y, y)
	y2.Mod(y2, p256.p)
	return y2.Cmp(curveRHS(x)) == 0
}
