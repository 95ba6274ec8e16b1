package enclave

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custody-labs/custody-crypto/pkg/codec"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/hpke"
	"github.com/custody-labs/custody-crypto/pkg/types"
	"github.com/custody-labs/custody-crypto/pkg/wallet"
)

// ImportRequest carries key material to seal for an import bundle.
type ImportRequest struct {
	Bundle           string // SignedEnvelope JSON issued by the init-import activity
	OrganizationID   string
	UserID           string
	TrustedSignerHex string

	Mnemonic   string          // EncryptWalletToBundle
	PrivateKey string          // EncryptPrivateKeyToBundle
	KeyFormat  types.KeyFormat // of PrivateKey
}

// EncryptWalletToBundle seals a BIP-39 mnemonic to the enclave target key.
func EncryptWalletToBundle(req ImportRequest) (string, error) {
	if err := wallet.ValidateMnemonic(req.Mnemonic); err != nil {
		return "", err
	}
	return sealImport("encrypt wallet", req, []byte(req.Mnemonic))
}

// EncryptPrivateKeyToBundle seals a raw private key to the enclave target key.
func EncryptPrivateKeyToBundle(req ImportRequest) (string, error) {
	const op = "encrypt private key"
	key, err := parsePrivateKey(op, req.PrivateKey, req.KeyFormat)
	if err != nil {
		return "", err
	}
	defer zero(key)
	return sealImport(op, req, key)
}

func parsePrivateKey(op, s string, format types.KeyFormat) ([]byte, error) {
	switch format {
	case types.KeyFormatHexadecimal, "":
		b, err := codec.DecodeHex(strings.TrimPrefix(s, "0x"))
		if err != nil || len(b) == 0 {
			return nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat, "private key is not hex")
		}
		return b, nil
	case types.KeyFormatSolana:
		priv, err := wallet.ParseSolanaPrivateKey(s)
		if err != nil {
			return nil, err
		}
		seed := append([]byte(nil), priv.Seed()...)
		zero(priv)
		return seed, nil
	default:
		return nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat, "unsupported key format %q", format)
	}
}

func sealImport(op string, req ImportRequest, plaintext []byte) (string, error) {
	data, err := verifiedData[types.ImportData](req.Bundle, req.TrustedSignerHex)
	if err != nil {
		return "", err
	}
	if data.OrganizationID != req.OrganizationID {
		return "", cryptoerr.BundleFormatf(op, "organization id does not match")
	}
	if data.UserID != req.UserID {
		return "", cryptoerr.BundleFormatf(op, "user id does not match")
	}

	target, err := decodePoint(op, "targetPublic", data.TargetPublic)
	if err != nil {
		return "", err
	}
	enc, ciphertext, err := hpke.Seal(plaintext, target)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(types.EncryptedImport{
		EncappedPublic: hex.EncodeToString(enc),
		Ciphertext:     hex.EncodeToString(ciphertext),
	})
	if err != nil {
		return "", fmt.Errorf("marshal encrypted import: %w", err)
	}
	return string(out), nil
}
