package wallet

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"

	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/curve"
)

const apiKeyInfoV1 = "custody/api-key/p256/v1"

// DeriveAPIKeyFromMnemonic derives a P-256 API key scalar from a BIP-39 mnemonic.
// The caller owns the result.
func DeriveAPIKeyFromMnemonic(mnemonic string) ([]byte, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}
	seed := bip39.NewSeed(mnemonic, "")
	defer zero(seed)

	// A draw outside [1, n-1] has probability ~2^-32; the counter keeps it total.
	for counter := byte(0); counter < 8; counter++ {
		sk := make([]byte, curve.ScalarSize)
		rd := hkdf.New(sha256.New, seed, nil, append([]byte(apiKeyInfoV1), counter))
		if _, err := rd.Read(sk); err != nil {
			return nil, fmt.Errorf("hkdf expand: %w", err)
		}
		if curve.ValidateScalar(sk) == nil {
			return sk, nil
		}
		zero(sk)
	}
	return nil, cryptoerr.Cryptographic("derive api key", cryptoerr.ErrInvalidKeyFormat)
}
