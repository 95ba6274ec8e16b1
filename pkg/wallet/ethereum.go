// Package wallet renders exported key material as chain addresses and validates mnemonics.
package wallet

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"

	"github.com/custody-labs/custody-crypto/pkg/codec"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
)

// ParseSecp256k1PrivateKey decodes a 32-byte hex scalar in [1, N-1].
func ParseSecp256k1PrivateKey(privHex string) (*secp256k1.PrivateKey, error) {
	const op = "parse secp256k1 key"
	b, err := codec.DecodeHex(strings.TrimPrefix(privHex, "0x"))
	if err != nil || len(b) != secp256k1.PrivKeyBytesLen {
		return nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat, "expected %d hex-encoded bytes", secp256k1.PrivKeyBytesLen)
	}
	defer zero(b)

	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat, "scalar outside [1, N-1]")
	}
	return secp256k1.NewPrivateKey(&s), nil
}

// EthereumAddress returns the EIP-55 checksummed address for a secp256k1 private key.
func EthereumAddress(privHex string) (string, error) {
	priv, err := ParseSecp256k1PrivateKey(privHex)
	if err != nil {
		return "", err
	}
	defer priv.Zero()
	return EthereumAddressFromPublicKey(priv.PubKey())
}

// EthereumAddressFromPublicKey is keccak256(X || Y)[12:], checksummed.
func EthereumAddressFromPublicKey(pub *secp256k1.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("nil secp256k1 public key")
	}
	uncompressed := pub.SerializeUncompressed()
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(uncompressed[1:])
	sum := h.Sum(nil)
	return checksumAddress(hex.EncodeToString(sum[len(sum)-20:])), nil
}

// checksumAddress applies EIP-55 mixed-case encoding to 40 lowercase hex characters.
func checksumAddress(lower string) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
