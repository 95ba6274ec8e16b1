package signer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custody-labs/custody-crypto/pkg/codec"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/curve"
)

// Scheme identifies P-256 API key stamps to the vendor.
const Scheme = "SIGNATURE_SCHEME_TK_API_P256"

// Stamp is the signed artifact sent with each vendor request. Field order is the wire order.
type Stamp struct {
	PublicKey string `json:"publicKey"`
	Scheme    string `json:"scheme"`
	Signature string `json:"signature"`
}

type options struct {
	engine Engine
}

// Option configures SignPayload.
type Option func(*options)

// WithEngine selects the nonce engine. The default is Deterministic.
func WithEngine(e Engine) Option {
	return func(o *options) {
		if e != nil {
			o.engine = e
		}
	}
}

// SignPayload signs SHA-256(payload) with the hex private key and returns the base64url
// encoded stamp. An empty publicKeyHex is derived from the private key.
func SignPayload(payload, privateKeyHex, publicKeyHex string, opts ...Option) (string, error) {
	const op = "sign payload"
	o := options{engine: Deterministic()}
	for _, fn := range opts {
		fn(&o)
	}

	sk, err := curve.ParsePrivateKeyHex(privateKeyHex)
	if err != nil {
		return "", cryptoerr.Cryptographic(op, fmt.Errorf("%w: %w", cryptoerr.ErrSigningFailed, cryptoerr.ErrInvalidKeyFormat))
	}
	defer zero(sk)

	if publicKeyHex == "" {
		keys, err := curve.DerivePublicKeyFromPrivate(sk)
		if err != nil {
			return "", cryptoerr.Cryptographic(op, fmt.Errorf("%w: %w", cryptoerr.ErrSigningFailed, cryptoerr.ErrInvalidKeyFormat))
		}
		publicKeyHex = hex.EncodeToString(keys.Compressed)
	}
	if err := validateCompressedHex(publicKeyHex); err != nil {
		return "", cryptoerr.Validation(op, err)
	}

	priv, err := LoadPrivateKey(sk)
	if err != nil {
		return "", cryptoerr.Cryptographic(op, fmt.Errorf("%w: %w", cryptoerr.ErrSigningFailed, cryptoerr.ErrInvalidKeyFormat))
	}

	digest := codec.SHA256([]byte(payload))
	raw, err := o.engine.Sign(priv, digest[:])
	if err != nil {
		return "", cryptoerr.Cryptographic(op, fmt.Errorf("%w: %v", cryptoerr.ErrSigningFailed, err))
	}
	der, err := EncodeDER(NormalizeLowS(raw))
	if err != nil {
		return "", err
	}

	return encodeStamp(Stamp{
		PublicKey: publicKeyHex,
		Scheme:    Scheme,
		Signature: hex.EncodeToString(der),
	})
}

func encodeStamp(s Stamp) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal stamp: %w", err)
	}
	return codec.EncodeBase64URL(b), nil
}

// DecodeStamp reverses the base64url and JSON layers of a stamp.
func DecodeStamp(stamp string) (*Stamp, error) {
	const op = "decode stamp"
	raw, err := codec.DecodeBase64URL(stamp)
	if err != nil {
		return nil, cryptoerr.Validation(op, fmt.Errorf("%w: not base64url", cryptoerr.ErrInvalidSignature))
	}
	var s Stamp
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, cryptoerr.Validation(op, fmt.Errorf("%w: %v", cryptoerr.ErrInvalidSignature, err))
	}
	if s.Scheme != Scheme {
		return nil, cryptoerr.Validation(op, fmt.Errorf("%w: unsupported scheme %q", cryptoerr.ErrInvalidSignature, s.Scheme))
	}
	return &s, nil
}

// VerifyStamp checks that stamp is a canonical signature over SHA-256(payload) by the
// public key it names, and returns that key.
func VerifyStamp(stamp, payload string) (string, error) {
	const op = "verify stamp"
	s, err := DecodeStamp(stamp)
	if err != nil {
		return "", err
	}
	if err := validateCompressedHex(s.PublicKey); err != nil {
		return "", cryptoerr.Validation(op, err)
	}
	compressed, _ := hex.DecodeString(s.PublicKey)
	pub, err := ParsePublicKey(compressed)
	if err != nil {
		return "", err
	}

	der, err := codec.DecodeHex(s.Signature)
	if err != nil {
		return "", cryptoerr.Validation(op, fmt.Errorf("%w: signature is not hex", cryptoerr.ErrInvalidSignature))
	}
	sig, err := DecodeDER(der)
	if err != nil {
		return "", err
	}
	if !IsLowS(sig.S) {
		return "", cryptoerr.Cryptographic(op, fmt.Errorf("%w: non-canonical s", cryptoerr.ErrInvalidSignature))
	}

	digest := codec.SHA256([]byte(payload))
	if !ecdsa.Verify(pub, digest[:], sig.R, sig.S) {
		return "", cryptoerr.Cryptographic(op, cryptoerr.ErrInvalidSignature)
	}
	return s.PublicKey, nil
}

// ParsePublicKey loads a compressed or uncompressed P-256 point for verification.
func ParsePublicKey(b []byte) (*ecdsa.PublicKey, error) {
	uncompressed, err := curve.ParsePublicKey(b)
	if err != nil {
		return nil, err
	}
	pub, err := ecdsa.ParseUncompressedPublicKey(elliptic.P256(), uncompressed)
	if err != nil {
		return nil, cryptoerr.Cryptographic("parse public key", cryptoerr.ErrPointNotOnCurve)
	}
	return pub, nil
}

func validateCompressedHex(s string) error {
	if len(s) != 2*curve.CompressedSize {
		return fmt.Errorf("%w: expected %d hex characters, got %d", cryptoerr.ErrInvalidPublicKey, 2*curve.CompressedSize, len(s))
	}
	if !strings.HasPrefix(s, "02") && !strings.HasPrefix(s, "03") {
		return fmt.Errorf("%w: compressed key must start with 02 or 03", cryptoerr.ErrInvalidPublicKey)
	}
	if !codec.IsStrictHex(s) {
		return fmt.Errorf("%w: not hex", cryptoerr.ErrInvalidPublicKey)
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
