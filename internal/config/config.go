package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/curve"
	"github.com/custody-labs/custody-crypto/pkg/signer"
	"github.com/custody-labs/custody-crypto/pkg/wallet"
)

type NonceMode string

const (
	NonceDeterministic NonceMode = "deterministic"
	NonceRandomized    NonceMode = "randomized"
)

type Config struct {
	ListenAddr string
	VendorAPI  *url.URL

	// APIPublicKey is the compressed hex key registered with the vendor. Derived from
	// APIPrivateKey when unset.
	APIPublicKey  string
	APIPrivateKey string

	OrganizationID string

	// TrustedSignerKey is the enclave quorum public key (uncompressed hex) used to verify
	// export and import bundles.
	TrustedSignerKey string

	SessionTTL time.Duration
	NonceMode  NonceMode
	Debug      bool
}

// Engine returns the signing engine selected by NonceMode.
func (c *Config) Engine() signer.Engine {
	if c.NonceMode == NonceRandomized {
		return signer.Randomized()
	}
	return signer.Deterministic()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:       getenv("AGENT_LISTEN_ADDR", "127.0.0.1:8282"),
		APIPublicKey:     strings.ToLower(getenv("API_PUBLIC_KEY", "")),
		APIPrivateKey:    getenv("API_PRIVATE_KEY", ""),
		OrganizationID:   getenv("ORGANIZATION_ID", ""),
		TrustedSignerKey: strings.ToLower(getenv("ENCLAVE_SIGNER_PUBLIC_KEY", "")),
		NonceMode:        NonceMode(getenv("SIGNING_NONCE_MODE", string(NonceDeterministic))),
	}

	vendorRaw := getenv("VENDOR_API_URL", "")
	if vendorRaw == "" {
		return nil, configErr("VENDOR_API_URL is required (e.g. https://api.vendor.example)")
	}
	u, err := url.Parse(vendorRaw)
	if err != nil {
		return nil, configErr("invalid VENDOR_API_URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, configErr("VENDOR_API_URL must be http(s), got %q", u.Scheme)
	}
	cfg.VendorAPI = u

	ttlSecs := getenv("SESSION_TTL_SECS", "900")
	ttlN, err := strconv.Atoi(ttlSecs)
	if err != nil || ttlN <= 0 {
		return nil, configErr("SESSION_TTL_SECS must be a positive integer, got %q", ttlSecs)
	}
	cfg.SessionTTL = time.Duration(ttlN) * time.Second

	switch cfg.NonceMode {
	case NonceDeterministic, NonceRandomized:
	default:
		return nil, configErr("invalid SIGNING_NONCE_MODE %q (expected deterministic|randomized)", cfg.NonceMode)
	}

	if cfg.TrustedSignerKey != "" {
		b, err := hex.DecodeString(cfg.TrustedSignerKey)
		if err != nil || len(b) != curve.UncompressedSize {
			return nil, configErr("ENCLAVE_SIGNER_PUBLIC_KEY must be a 65-byte uncompressed hex P-256 key")
		}
		if _, err := curve.ParsePublicKey(b); err != nil {
			return nil, configErr("ENCLAVE_SIGNER_PUBLIC_KEY is not a point on P-256")
		}
	}

	debug := getenv("AGENT_DEBUG", "false")
	if cfg.Debug, err = strconv.ParseBool(debug); err != nil {
		return nil, configErr("AGENT_DEBUG must be a boolean, got %q", debug)
	}

	if err := cfg.resolveAPIKey(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveAPIKey checks the key pair without ever echoing it. API_KEY_MNEMONIC is used
// when API_PRIVATE_KEY is unset.
func (c *Config) resolveAPIKey() error {
	if c.APIPrivateKey == "" {
		if mnemonic := os.Getenv("API_KEY_MNEMONIC"); strings.TrimSpace(mnemonic) != "" {
			sk, err := wallet.DeriveAPIKeyFromMnemonic(mnemonic)
			if err != nil {
				return configErr("API_KEY_MNEMONIC is not a valid BIP-39 mnemonic")
			}
			c.APIPrivateKey = hex.EncodeToString(sk)
			clear(sk)
		}
	}
	if c.APIPrivateKey == "" {
		return cryptoerr.Configuration("config", fmt.Errorf("%w: API_PRIVATE_KEY is required", cryptoerr.ErrMissingKeyMaterial))
	}
	keys, err := curve.DerivePublicKeyFromPrivateHex(c.APIPrivateKey)
	if err != nil {
		return configErr("API_PRIVATE_KEY must be a 32-byte hex P-256 scalar")
	}
	derived := hex.EncodeToString(keys.Compressed)
	if c.APIPublicKey == "" {
		c.APIPublicKey = derived
		return nil
	}
	if c.APIPublicKey != derived {
		return configErr("API_PUBLIC_KEY does not match API_PRIVATE_KEY")
	}
	return nil
}

func configErr(format string, args ...any) error {
	return cryptoerr.Configuration("config", fmt.Errorf(format, args...))
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
