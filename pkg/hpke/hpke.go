// Package hpke opens and seals the vendor's credential bundles.
//
// The suite is fixed: DHKEM(P-256, HKDF-SHA256), HKDF-SHA256, AES-256-GCM, with info
// "turnkey_hpke" and AAD = enc || receiver public key (both uncompressed).
package hpke

import (
	"crypto/ecdh"
	"fmt"

	fhpke "filippo.io/hpke"

	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/curve"
)

const (
	// Info is the HPKE info string bound into the key schedule.
	Info = "turnkey_hpke"
	// TagSize is the AES-GCM tag length.
	TagSize = 16
)

var (
	kem  = fhpke.DHKEM(ecdh.P256())
	kdf  = fhpke.HKDFSHA256()
	aead = fhpke.AES256GCM()
)

// BuildAAD returns enc || receiverUncompressed in a fresh buffer.
func BuildAAD(enc, receiverUncompressed []byte) []byte {
	aad := make([]byte, 0, len(enc)+len(receiverUncompressed))
	aad = append(aad, enc...)
	return append(aad, receiverUncompressed...)
}

// Open decrypts ciphertext for the holder of recipientPrivateKey. enc must be the
// uncompressed encapsulated key.
func Open(enc, ciphertext, recipientPrivateKey []byte) ([]byte, error) {
	const op = "hpke open"
	keys, err := curve.DerivePublicKeyFromPrivate(recipientPrivateKey)
	if err != nil {
		return nil, err
	}
	sk, err := kem.NewPrivateKey(recipientPrivateKey)
	if err != nil {
		return nil, cryptoerr.Validation(op, fmt.Errorf("%w: %v", cryptoerr.ErrInvalidKeyFormat, err))
	}

	r, err := fhpke.NewRecipient(enc, sk, kdf, aead, []byte(Info))
	if err != nil {
		return nil, cryptoerr.Cryptographic(op, fmt.Errorf("%w: decapsulate: %v", cryptoerr.ErrAuthenticationFailed, err))
	}
	pt, err := r.Open(BuildAAD(enc, keys.Uncompressed), ciphertext)
	if err != nil {
		return nil, cryptoerr.Cryptographic(op, cryptoerr.ErrAuthenticationFailed)
	}
	return pt, nil
}

// Seal encrypts plaintext to recipientUncompressed and returns the uncompressed enc with
// the ciphertext (tag included).
func Seal(plaintext, recipientUncompressed []byte) (enc, ciphertext []byte, err error) {
	const op = "hpke seal"
	if len(recipientUncompressed) != curve.UncompressedSize || recipientUncompressed[0] != 0x04 {
		return nil, nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidPublicKey,
			"recipient must be a %d-byte uncompressed point", curve.UncompressedSize)
	}
	pk, err := kem.NewPublicKey(recipientUncompressed)
	if err != nil {
		return nil, nil, cryptoerr.Cryptographic(op, cryptoerr.ErrPointNotOnCurve)
	}

	enc, s, err := fhpke.NewSender(pk, kdf, aead, []byte(Info))
	if err != nil {
		return nil, nil, cryptoerr.Cryptographic(op, err)
	}
	ciphertext, err = s.Seal(BuildAAD(enc, recipientUncompressed), plaintext)
	if err != nil {
		return nil, nil, cryptoerr.Cryptographic(op, err)
	}
	return enc, ciphertext, nil
}
