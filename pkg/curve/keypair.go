package curve

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/custody-labs/custody-crypto/pkg/codec"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
)

// KeyPair is a private scalar and its public point in the encoding requested at creation.
// The caller owns both slices.
type KeyPair struct {
	PrivateKey []byte
	PublicKey  []byte
}

// PublicKeys holds both encodings of one public point.
type PublicKeys struct {
	Compressed   []byte
	Uncompressed []byte
}

// GenerateKeypair draws a uniformly random scalar in [1, n-1] from the system CSPRNG.
func GenerateKeypair(compressed bool) (*KeyPair, error) {
	sk, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, cryptoerr.Cryptographic("generate keypair", err)
	}
	pub := sk.PublicKey().Bytes()
	if compressed {
		if pub, err = CompressPublicKey(pub); err != nil {
			return nil, err
		}
	}
	return &KeyPair{PrivateKey: sk.Bytes(), PublicKey: pub}, nil
}

// ValidateScalar checks that sk is 32 bytes and encodes a value in [1, n-1].
func ValidateScalar(sk []byte) error {
	if len(sk) != ScalarSize {
		return fmt.Errorf("%w: private key must be %d bytes, got %d", cryptoerr.ErrInvalidKeyFormat, ScalarSize, len(sk))
	}
	d := new(big.Int).SetBytes(sk)
	if d.Sign() == 0 || d.Cmp(p256.n) >= 0 {
		return fmt.Errorf("%w: private key outside [1, n-1]", cryptoerr.ErrInvalidKeyFormat)
	}
	return nil
}

// ParsePrivateKeyHex decodes a 64-character hex scalar and range-checks it.
func ParsePrivateKeyHex(s string) ([]byte, error) {
	const op = "parse private key"
	sk, err := codec.DecodeHex(s)
	if err != nil {
		return nil, cryptoerr.Validation(op, fmt.Errorf("%w: private key is not hex", cryptoerr.ErrInvalidKeyFormat))
	}
	if err := ValidateScalar(sk); err != nil {
		return nil, cryptoerr.Validation(op, err)
	}
	return sk, nil
}

// DerivePublicKeyFromPrivate computes sk*G and returns both encodings.
func DerivePublicKeyFromPrivate(sk []byte) (*PublicKeys, error) {
	const op = "derive public key"
	if err := ValidateScalar(sk); err != nil {
		return nil, cryptoerr.Validation(op, err)
	}
	priv, err := ecdh.P256().NewPrivateKey(sk)
	if err != nil {
		return nil, cryptoerr.Validation(op, fmt.Errorf("%w: %v", cryptoerr.ErrInvalidKeyFormat, err))
	}
	uncompressed := priv.PublicKey().Bytes()
	compressed, err := CompressPublicKey(uncompressed)
	if err != nil {
		return nil, err
	}
	return &PublicKeys{Compressed: compressed, Uncompressed: uncompressed}, nil
}

// DerivePublicKeyFromPrivateHex is DerivePublicKeyFromPrivate over a hex scalar.
func DerivePublicKeyFromPrivateHex(skHex string) (*PublicKeys, error) {
	sk, err := ParsePrivateKeyHex(skHex)
	if err != nil {
		return nil, err
	}
	defer zero(sk)
	return DerivePublicKeyFromPrivate(sk)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
