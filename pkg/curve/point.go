package curve

import (
	"crypto/ecdh"
	"fmt"
	"math/big"

	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
)

// CompressPublicKey converts a 65-byte 0x04||X||Y point into its 33-byte form.
func CompressPublicKey(uncompressed []byte) ([]byte, error) {
	const op = "compress public key"
	if len(uncompressed) != UncompressedSize {
		return nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat,
			"expected %d bytes, got %d", UncompressedSize, len(uncompressed))
	}
	if uncompressed[0] != prefixUncompressed {
		return nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat,
			"expected prefix 0x04, got 0x%02x", uncompressed[0])
	}

	out := make([]byte, CompressedSize)
	out[0] = prefixEven
	if uncompressed[UncompressedSize-1]&1 == 1 {
		out[0] = prefixOdd
	}
	copy(out[1:], uncompressed[1:1+CoordinateSize])
	return out, nil
}

// UncompressPublicKey recovers Y for a 33-byte compressed point and returns 0x04||X||Y.
func UncompressPublicKey(compressed []byte) ([]byte, error) {
	const op = "uncompress public key"
	if len(compressed) != CompressedSize {
		return nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat,
			"expected %d bytes, got %d", CompressedSize, len(compressed))
	}
	prefix := compressed[0]
	if prefix != prefixEven && prefix != prefixOdd {
		return nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat,
			"expected prefix 0x02 or 0x03, got 0x%02x", prefix)
	}

	x := new(big.Int).SetBytes(compressed[1:])
	if x.Cmp(p256.p) >= 0 {
		return nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat, "x coordinate exceeds field prime")
	}

	rhs := curveRHS(x)
	y := new(big.Int).Exp(rhs, p256.sqrtE, p256.p)
	check := new(big.Int).Mul(y, y)
	check.Mod(check, p256.p)
	if check.Cmp(rhs) != 0 {
		return nil, cryptoerr.Cryptographic(op, cryptoerr.ErrPointNotOnCurve)
	}
	if y.Bit(0) != uint(prefix&1) {
		y.Sub(p256.p, y)
	}

	out := make([]byte, UncompressedSize)
	out[0] = prefixUncompressed
	x.FillBytes(out[1 : 1+CoordinateSize])
	y.FillBytes(out[1+CoordinateSize:])

	// Second opinion from the constant-time implementation before the point leaves here.
	if _, err := ecdh.P256().NewPublicKey(out); err != nil {
		return nil, cryptoerr.Cryptographic(op, fmt.Errorf("%w: %v", cryptoerr.ErrPointNotOnCurve, err))
	}
	return out, nil
}

// ParsePublicKey accepts either encoding and returns the uncompressed form.
func ParsePublicKey(b []byte) ([]byte, error) {
	switch len(b) {
	case CompressedSize:
		return UncompressPublicKey(b)
	case UncompressedSize:
		if b[0] != prefixUncompressed {
			return nil, cryptoerr.Validationf("parse public key", cryptoerr.ErrInvalidKeyFormat,
				"expected prefix 0x04, got 0x%02x", b[0])
		}
		if _, err := ecdh.P256().NewPublicKey(b); err != nil {
			return nil, cryptoerr.Cryptographic("parse public key", cryptoerr.ErrPointNotOnCurve)
		}
		return append([]byte(nil), b...), nil
	default:
		return nil, cryptoerr.Validationf("parse public key", cryptoerr.ErrInvalidKeyFormat,
			"expected %d or %d bytes, got %d", CompressedSize, UncompressedSize, len(b))
	}
}
