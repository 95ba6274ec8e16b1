package enclave

import (
	"encoding/hex"
	"fmt"

	"github.com/custody-labs/custody-crypto/pkg/codec"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/curve"
	"github.com/custody-labs/custody-crypto/pkg/hpke"
	"github.com/custody-labs/custody-crypto/pkg/types"
	"github.com/custody-labs/custody-crypto/pkg/wallet"
)

// ExportRequest describes an export bundle and the key it was sealed to.
type ExportRequest struct {
	Bundle           string // SignedEnvelope JSON
	EmbeddedKeyHex   string // P-256 private key whose public half was sent with the export activity
	OrganizationID   string
	KeyFormat        types.KeyFormat
	ReturnMnemonic   bool
	TrustedSignerHex string
}

// DecryptExportBundle verifies and opens an export bundle and renders the plaintext.
// The result is secret and owned by the caller.
func DecryptExportBundle(req ExportRequest) (string, error) {
	const op = "decrypt export bundle"
	embedded, err := curve.ParsePrivateKeyHex(req.EmbeddedKeyHex)
	if err != nil {
		return "", err
	}
	defer zero(embedded)

	data, err := verifiedData[types.ExportData](req.Bundle, req.TrustedSignerHex)
	if err != nil {
		return "", err
	}
	if data.OrganizationID != req.OrganizationID {
		return "", cryptoerr.BundleFormatf(op, "organization id does not match")
	}

	enc, err := decodePoint(op, "encappedPublic", data.EncappedPublic)
	if err != nil {
		return "", err
	}
	ciphertext, err := codec.DecodeHex(data.Ciphertext)
	if err != nil {
		return "", cryptoerr.BundleFormatf(op, "ciphertext is not hex")
	}

	pt, err := hpke.Open(enc, ciphertext, embedded)
	if err != nil {
		return "", err
	}
	defer zero(pt)

	if req.ReturnMnemonic {
		mnemonic := string(pt)
		if err := wallet.ValidateMnemonic(mnemonic); err != nil {
			return "", cryptoerr.Cryptographic(op, fmt.Errorf("%w: decrypted wallet is not a valid mnemonic", cryptoerr.ErrInvalidKeyFormat))
		}
		return mnemonic, nil
	}
	return renderPrivateKey(op, pt, req.KeyFormat)
}

func renderPrivateKey(op string, key []byte, format types.KeyFormat) (string, error) {
	switch format {
	case types.KeyFormatHexadecimal, "":
		return hex.EncodeToString(key), nil
	case types.KeyFormatSolana:
		priv, err := wallet.SolanaKeypair(key)
		if err != nil {
			return "", cryptoerr.Cryptographic(op, fmt.Errorf("%w: exported key is %d bytes", cryptoerr.ErrInvalidKeyFormat, len(key)))
		}
		defer zero(priv)
		return wallet.SolanaPrivateKey(priv), nil
	default:
		return "", cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat, "unsupported key format %q", format)
	}
}
