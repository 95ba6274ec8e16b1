package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/custody-labs/custody-crypto/internal/logging"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/signer"
	"github.com/custody-labs/custody-crypto/pkg/types"
)

type Config struct {
	PrivateKey       string
	PublicKey        string
	NonceMode        string
	OrganizationID   string
	UserID           string
	TrustedSignerKey string
	KeyFormat        types.KeyFormat
	Debug            bool
}

func NewConfigFromCLI(c *cli.Context) *Config {
	return &Config{
		PrivateKey:       c.String(PrivateKeyFlag.Name),
		PublicKey:        c.String(PublicKeyFlag.Name),
		NonceMode:        c.String(NonceModeFlag.Name),
		OrganizationID:   c.String(OrganizationIDFlag.Name),
		UserID:           c.String(UserIDFlag.Name),
		TrustedSignerKey: strings.ToLower(c.String(TrustedSignerFlag.Name)),
		KeyFormat:        types.KeyFormat(strings.ToUpper(c.String(KeyFormatFlag.Name))),
		Debug:            c.Bool(DebugFlag.Name),
	}
}

// Engine resolves --nonce-mode.
func (c *Config) Engine() (signer.Engine, error) {
	switch c.NonceMode {
	case "", "deterministic":
		return signer.Deterministic(), nil
	case "randomized":
		return signer.Randomized(), nil
	default:
		return nil, cryptoerr.Configuration("cli", fmt.Errorf("invalid nonce mode %q (expected deterministic|randomized)", c.NonceMode))
	}
}

// Stamper returns the API key stamper configured by --private-key and --public-key.
func (c *Config) Stamper() (*signer.APIKeyStamper, error) {
	if c.PrivateKey == "" {
		return nil, cryptoerr.Configuration("cli", fmt.Errorf("%w: --private-key or API_PRIVATE_KEY is required", cryptoerr.ErrMissingKeyMaterial))
	}
	engine, err := c.Engine()
	if err != nil {
		return nil, err
	}
	return &signer.APIKeyStamper{PublicKeyHex: c.PublicKey, PrivateKeyHex: c.PrivateKey, Engine: engine}, nil
}

func NewLogger(debug bool) (*zap.Logger, error) {
	return logging.NewLogger(debug)
}

// readBundle returns --bundle, or the contents of --bundle-file.
func readBundle(c *cli.Context) (string, error) {
	if b := strings.TrimSpace(c.String(BundleFlag.Name)); b != "" {
		return b, nil
	}
	path := c.String(BundleFileFlag.Name)
	if path == "" {
		return "", fmt.Errorf("one of --%s or --%s is required", BundleFlag.Name, BundleFileFlag.Name)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read bundle file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
