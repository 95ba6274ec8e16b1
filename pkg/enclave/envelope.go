// Package enclave handles the vendor's enclave-signed export and import bundles.
//
// Both directions share one envelope: hex JSON data signed by the enclave quorum key
// (ECDSA P-256, DER, over SHA-256 of the decoded data). The payloads are sealed with the
// same HPKE suite as credential bundles.
package enclave

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custody-labs/custody-crypto/pkg/codec"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/curve"
	"github.com/custody-labs/custody-crypto/pkg/signer"
	"github.com/custody-labs/custody-crypto/pkg/types"
)

// ParseEnvelope decodes the JSON form of a signed bundle.
func ParseEnvelope(bundle string) (*types.SignedEnvelope, error) {
	var env types.SignedEnvelope
	if err := json.Unmarshal([]byte(bundle), &env); err != nil {
		return nil, cryptoerr.BundleFormat("parse envelope", fmt.Errorf("%w: %v", cryptoerr.ErrInvalidBundle, err))
	}
	return &env, nil
}

// VerifySignedEnvelope checks the envelope against the trusted enclave key and returns the
// decoded data.
func VerifySignedEnvelope(env *types.SignedEnvelope, trustedSignerHex string) ([]byte, error) {
	const op = "verify envelope"
	if trustedSignerHex == "" {
		return nil, cryptoerr.Configuration(op, fmt.Errorf("%w: trusted enclave signer", cryptoerr.ErrMissingKeyMaterial))
	}
	if env == nil {
		return nil, cryptoerr.BundleFormatf(op, "nil envelope")
	}
	if env.Version != types.EnclaveBundleVersion {
		return nil, cryptoerr.BundleFormatf(op, "unsupported version %q", env.Version)
	}
	if !strings.EqualFold(env.EnclaveQuorumPublic, trustedSignerHex) {
		return nil, cryptoerr.Cryptographic(op, fmt.Errorf("%w: envelope signed by untrusted key", cryptoerr.ErrInvalidSignature))
	}

	signerKey, err := codec.DecodeHex(trustedSignerHex)
	if err != nil {
		return nil, cryptoerr.Configuration(op, fmt.Errorf("%w: trusted signer is not hex", cryptoerr.ErrInvalidPublicKey))
	}
	pub, err := signer.ParsePublicKey(signerKey)
	if err != nil {
		return nil, cryptoerr.Configuration(op, err)
	}

	data, err := codec.DecodeHex(env.Data)
	if err != nil {
		return nil, cryptoerr.BundleFormatf(op, "data is not hex")
	}
	der, err := codec.DecodeHex(env.DataSignature)
	if err != nil {
		return nil, cryptoerr.BundleFormatf(op, "signature is not hex")
	}
	sig, err := signer.DecodeDER(der)
	if err != nil {
		return nil, cryptoerr.Cryptographic(op, cryptoerr.ErrInvalidSignature)
	}

	digest := codec.SHA256(data)
	if !ecdsa.Verify(pub, digest[:], sig.R, sig.S) {
		return nil, cryptoerr.Cryptographic(op, cryptoerr.ErrInvalidSignature)
	}
	return data, nil
}

// SignEnvelope produces an envelope over data with the given P-256 key. The enclave does
// this on the vendor side; it is used here to build test fixtures and local import bundles.
func SignEnvelope(data []byte, signerPrivateKeyHex string) (*types.SignedEnvelope, error) {
	const op = "sign envelope"
	sk, err := curve.ParsePrivateKeyHex(signerPrivateKeyHex)
	if err != nil {
		return nil, err
	}
	defer zero(sk)
	keys, err := curve.DerivePublicKeyFromPrivate(sk)
	if err != nil {
		return nil, err
	}
	priv, err := signer.LoadPrivateKey(sk)
	if err != nil {
		return nil, cryptoerr.Cryptographic(op, fmt.Errorf("%w: %v", cryptoerr.ErrSigningFailed, err))
	}

	digest := codec.SHA256(data)
	raw, err := signer.Deterministic().Sign(priv, digest[:])
	if err != nil {
		return nil, cryptoerr.Cryptographic(op, fmt.Errorf("%w: %v", cryptoerr.ErrSigningFailed, err))
	}
	der, err := signer.EncodeDER(signer.NormalizeLowS(raw))
	if err != nil {
		return nil, err
	}
	return &types.SignedEnvelope{
		Version:             types.EnclaveBundleVersion,
		Data:                hex.EncodeToString(data),
		DataSignature:       hex.EncodeToString(der),
		EnclaveQuorumPublic: hex.EncodeToString(keys.Uncompressed),
	}, nil
}

func verifiedData[T any](bundle, trustedSignerHex string) (*T, error) {
	env, err := ParseEnvelope(bundle)
	if err != nil {
		return nil, err
	}
	data, err := VerifySignedEnvelope(env, trustedSignerHex)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, cryptoerr.BundleFormat("decode envelope data", fmt.Errorf("%w: %v", cryptoerr.ErrInvalidBundle, err))
	}
	return &out, nil
}

func decodePoint(op, field, s string) ([]byte, error) {
	b, err := codec.DecodeHex(s)
	if err != nil {
		return nil, cryptoerr.BundleFormatf(op, "%s is not hex", field)
	}
	p, err := curve.ParsePublicKey(b)
	if err != nil {
		return nil, cryptoerr.BundleFormat(op, fmt.Errorf("%w: %s: %w", cryptoerr.ErrInvalidBundle, field, err))
	}
	return p, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
