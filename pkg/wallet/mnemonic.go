package wallet

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
)

// ValidateMnemonic checks word list membership and the BIP-39 checksum.
func ValidateMnemonic(mnemonic string) error {
	if strings.TrimSpace(mnemonic) == "" {
		return cryptoerr.Validation("validate mnemonic", fmt.Errorf("%w: empty mnemonic", cryptoerr.ErrInvalidKeyFormat))
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return cryptoerr.Validation("validate mnemonic", fmt.Errorf("%w: not a valid BIP-39 mnemonic", cryptoerr.ErrInvalidKeyFormat))
	}
	return nil
}

// NewMnemonic returns a fresh mnemonic with the given entropy size (128 to 256 bits).
func NewMnemonic(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", cryptoerr.Validation("new mnemonic", err)
	}
	defer zero(entropy)
	return bip39.NewMnemonic(entropy)
}
