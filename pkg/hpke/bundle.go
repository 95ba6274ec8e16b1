package hpke

import (
	"encoding/hex"
	"fmt"

	"github.com/custody-labs/custody-crypto/pkg/codec"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/curve"
)

// Encoding selects the text form of a credential bundle.
type Encoding int

const (
	EncodingHex Encoding = iota
	EncodingBase58Check
)

// DecryptedCredentials is the session key pair recovered from a credential bundle.
// The caller owns SessionPrivateKey and is responsible for erasing it.
type DecryptedCredentials struct {
	SessionPublicKey  string // compressed, hex
	SessionPrivateKey string // 64 hex characters
}

// DecodeBundle accepts strict hex first and falls back to base58check.
func DecodeBundle(bundle string) ([]byte, error) {
	if codec.IsStrictHex(bundle) {
		return codec.DecodeHex(bundle)
	}
	b, err := codec.DecodeBase58Check(bundle)
	if err != nil {
		return nil, cryptoerr.BundleFormatf("decode bundle", "neither hex nor base58check")
	}
	return b, nil
}

// ParseBundleEncappedKey splits a decoded bundle into the uncompressed encapsulated key and
// the ciphertext. A compressed key is expanded before it is returned.
func ParseBundleEncappedKey(b []byte) (enc, ciphertext []byte, err error) {
	const op = "parse bundle"
	if len(b) == 0 {
		return nil, nil, cryptoerr.BundleFormatf(op, "empty bundle")
	}

	var keyLen int
	switch b[0] {
	case 0x04:
		keyLen = curve.UncompressedSize
	case 0x02, 0x03:
		keyLen = curve.CompressedSize
	default:
		return nil, nil, cryptoerr.BundleFormatf(op, "unknown encapped key prefix 0x%02x", b[0])
	}
	if len(b) < keyLen {
		return nil, nil, cryptoerr.BundleFormatf(op, "need %d bytes for encapped key, got %d", keyLen, len(b))
	}
	ciphertext = b[keyLen:]
	if len(ciphertext) < TagSize {
		return nil, nil, cryptoerr.BundleFormatf(op, "ciphertext too short (%d bytes)", len(ciphertext))
	}

	enc, err = curve.ParsePublicKey(b[:keyLen])
	if err != nil {
		return nil, nil, cryptoerr.BundleFormat(op, fmt.Errorf("%w: encapped key: %w", cryptoerr.ErrInvalidBundle, err))
	}
	return enc, append([]byte(nil), ciphertext...), nil
}

// EncodeCredentialBundle renders compressed(enc) || ciphertext in the given encoding.
func EncodeCredentialBundle(enc, ciphertext []byte, encoding Encoding) (string, error) {
	compressed, err := curve.CompressPublicKey(enc)
	if err != nil {
		return "", err
	}
	raw := append(compressed, ciphertext...)
	if encoding == EncodingBase58Check {
		return codec.EncodeBase58Check(raw), nil
	}
	return hex.EncodeToString(raw), nil
}

// DecryptCredentialBundle recovers the session key pair sealed to the ephemeral key.
// Any failure is final for the bundle.
func DecryptCredentialBundle(bundle, ephemeralPrivateKeyHex string) (*DecryptedCredentials, error) {
	const op = "decrypt credential bundle"
	ephemeral, err := curve.ParsePrivateKeyHex(ephemeralPrivateKeyHex)
	if err != nil {
		return nil, err
	}
	defer zero(ephemeral)

	raw, err := DecodeBundle(bundle)
	if err != nil {
		return nil, err
	}
	enc, ciphertext, err := ParseBundleEncappedKey(raw)
	if err != nil {
		return nil, err
	}

	pt, err := Open(enc, ciphertext, ephemeral)
	if err != nil {
		return nil, err
	}
	defer zero(pt)
	if len(pt) > curve.ScalarSize {
		return nil, cryptoerr.Cryptographic(op, fmt.Errorf("%w: session key is %d bytes", cryptoerr.ErrInvalidKeyFormat, len(pt)))
	}

	sessionKey := make([]byte, curve.ScalarSize)
	copy(sessionKey[curve.ScalarSize-len(pt):], pt)
	defer zero(sessionKey)

	keys, err := curve.DerivePublicKeyFromPrivate(sessionKey)
	if err != nil {
		return nil, cryptoerr.Cryptographic(op, cryptoerr.ErrInvalidKeyFormat)
	}
	return &DecryptedCredentials{
		SessionPublicKey:  hex.EncodeToString(keys.Compressed),
		SessionPrivateKey: hex.EncodeToString(sessionKey),
	}, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
