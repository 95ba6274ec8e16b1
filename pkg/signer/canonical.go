package signer

import (
	"math/big"

	"github.com/custody-labs/custody-crypto/pkg/curve"
)

// NormalizeLowS returns sig with S replaced by n-S when S > n/2. R is unchanged.
// The input is not modified.
func NormalizeLowS(sig Signature) Signature {
	out := Signature{R: new(big.Int).Set(sig.R), S: new(big.Int).Set(sig.S)}
	if IsLowS(out.S) {
		return out
	}
	out.S.Sub(curve.Order(), out.S)
	return out
}

// IsLowS reports whether s <= n/2.
func IsLowS(s *big.Int) bool {
	return s.Cmp(curve.HalfOrder()) <= 0
}
