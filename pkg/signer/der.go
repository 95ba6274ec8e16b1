package signer

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
)

// EncodeDER renders sig as SEQUENCE { INTEGER r, INTEGER s } with minimal integers.
// A single 0x00 byte precedes an integer whose first content byte has its high bit set.
func EncodeDER(sig Signature) ([]byte, error) {
	if sig.R == nil || sig.S == nil || sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return nil, cryptoerr.Cryptographic("encode signature", fmt.Errorf("%w: r and s must be positive", cryptoerr.ErrInvalidSignature))
	}
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(sig.R)
		b.AddASN1BigInt(sig.S)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, cryptoerr.Cryptographic("encode signature", err)
	}
	return der, nil
}

// DecodeDER parses a strict DER ECDSA signature. Trailing data is rejected.
func DecodeDER(der []byte) (Signature, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return Signature{}, cryptoerr.Validation("decode signature", fmt.Errorf("%w: malformed DER", cryptoerr.ErrInvalidSignature))
	}
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return Signature{}, cryptoerr.Validation("decode signature", fmt.Errorf("%w: r and s must be positive", cryptoerr.ErrInvalidSignature))
	}
	return Signature{R: r, S: s}, nil
}
