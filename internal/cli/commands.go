package cli

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/custody-labs/custody-crypto/pkg/codec"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/curve"
	"github.com/custody-labs/custody-crypto/pkg/enclave"
	"github.com/custody-labs/custody-crypto/pkg/hpke"
	"github.com/custody-labs/custody-crypto/pkg/signer"
	"github.com/custody-labs/custody-crypto/pkg/vendorclient"
	"github.com/custody-labs/custody-crypto/pkg/wallet"
)

func NewApp() *cli.App {
	return &cli.App{
		Name:  "custody-cli",
		Usage: "P-256 request stamping and credential bundle tooling for the custody vendor",
		Flags: []cli.Flag{DebugFlag},
		Commands: []*cli.Command{
			{
				Name:   "keygen",
				Usage:  "Generate a P-256 key pair",
				Flags:  []cli.Flag{CompressedFlag},
				Action: runKeygen,
			},
			{
				Name:   "pubkey",
				Usage:  "Derive both public key encodings from a private key",
				Flags:  []cli.Flag{PrivateKeyFlag},
				Action: runPubkey,
			},
			{
				Name:   "compress",
				Usage:  "Compress an uncompressed public key",
				Flags:  []cli.Flag{KeyFlag},
				Action: runCompress,
			},
			{
				Name:   "uncompress",
				Usage:  "Recover the uncompressed form of a compressed public key",
				Flags:  []cli.Flag{KeyFlag},
				Action: runUncompress,
			},
			{
				Name:   "stamp",
				Usage:  "Sign a request body and print the X-Stamp value",
				Flags:  []cli.Flag{PayloadFlag, PrivateKeyFlag, PublicKeyFlag, NonceModeFlag},
				Action: runStamp,
			},
			{
				Name:   "verify-stamp",
				Usage:  "Verify a stamp over a request body",
				Flags:  []cli.Flag{StampFlag, PayloadFlag},
				Action: runVerifyStamp,
			},
			{
				Name:   "decrypt-credentials",
				Usage:  "Decrypt a credential bundle into a session key pair",
				Flags:  []cli.Flag{BundleFlag, BundleFileFlag, EphemeralKeyFlag},
				Action: runDecryptCredentials,
			},
			{
				Name:  "decrypt-export",
				Usage: "Verify and decrypt an enclave export bundle",
				Flags: []cli.Flag{
					BundleFlag, BundleFileFlag, EmbeddedKeyFlag, OrganizationIDFlag,
					TrustedSignerFlag, KeyFormatFlag, ReturnMnemonicFlag,
				},
				Action: runDecryptExport,
			},
			{
				Name:  "encrypt-wallet",
				Usage: "Seal a mnemonic to an enclave import bundle",
				Flags: []cli.Flag{
					BundleFlag, BundleFileFlag, OrganizationIDFlag, UserIDFlag, TrustedSignerFlag, MnemonicFlag,
				},
				Action: runEncryptWallet,
			},
			{
				Name:  "encrypt-key",
				Usage: "Seal a private key to an enclave import bundle",
				Flags: []cli.Flag{
					BundleFlag, BundleFileFlag, OrganizationIDFlag, UserIDFlag, TrustedSignerFlag, ImportKeyFlag, KeyFormatFlag,
				},
				Action: runEncryptKey,
			},
			{
				Name:   "eth-address",
				Usage:  "Print the checksummed Ethereum address of a secp256k1 key",
				Flags:  []cli.Flag{Secp256k1KeyFlag},
				Action: runEthAddress,
			},
			{
				Name:   "solana-address",
				Usage:  "Print the Solana address of a mnemonic account or a base58 keypair",
				Flags:  []cli.Flag{MnemonicFlag, SolanaIndexFlag, SolanaKeyFlag},
				Action: runSolanaAddress,
			},
			{
				Name:   "mnemonic",
				Usage:  "Generate a BIP-39 mnemonic",
				Flags:  []cli.Flag{MnemonicBitsFlag},
				Action: runMnemonic,
			},
			{
				Name:   "whoami",
				Usage:  "Resolve the organization and user behind an API key",
				Flags:  []cli.Flag{VendorURLFlag, OrganizationIDFlag, PrivateKeyFlag, PublicKeyFlag, NonceModeFlag},
				Action: runWhoami,
			},
		},
	}
}

func printJSON(c *cli.Context, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s\n", out)
	return err
}

func runKeygen(c *cli.Context) error {
	kp, err := curve.GenerateKeypair(c.Bool(CompressedFlag.Name))
	if err != nil {
		return err
	}
	return printJSON(c, map[string]string{
		"privateKey": hex.EncodeToString(kp.PrivateKey),
		"publicKey":  hex.EncodeToString(kp.PublicKey),
	})
}

func runPubkey(c *cli.Context) error {
	cfg := NewConfigFromCLI(c)
	if cfg.PrivateKey == "" {
		return cryptoerr.Configuration("pubkey", cryptoerr.ErrMissingKeyMaterial)
	}
	keys, err := curve.DerivePublicKeyFromPrivateHex(cfg.PrivateKey)
	if err != nil {
		return err
	}
	return printJSON(c, map[string]string{
		"compressed":   hex.EncodeToString(keys.Compressed),
		"uncompressed": hex.EncodeToString(keys.Uncompressed),
	})
}

func decodeKeyFlag(c *cli.Context) ([]byte, error) {
	b, err := codec.DecodeHex(c.String(KeyFlag.Name))
	if err != nil {
		return nil, cryptoerr.Validationf("decode key", cryptoerr.ErrInvalidKeyFormat, "--key is not hex")
	}
	return b, nil
}

func runCompress(c *cli.Context) error {
	key, err := decodeKeyFlag(c)
	if err != nil {
		return err
	}
	out, err := curve.CompressPublicKey(key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, hex.EncodeToString(out))
	return err
}

func runUncompress(c *cli.Context) error {
	key, err := decodeKeyFlag(c)
	if err != nil {
		return err
	}
	out, err := curve.UncompressPublicKey(key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, hex.EncodeToString(out))
	return err
}

func runStamp(c *cli.Context) error {
	stamper, err := NewConfigFromCLI(c).Stamper()
	if err != nil {
		return err
	}
	header, stamp, err := stamper.Stamp([]byte(c.String(PayloadFlag.Name)))
	if err != nil {
		return err
	}
	return printJSON(c, map[string]string{"header": header, "stamp": stamp})
}

func runVerifyStamp(c *cli.Context) error {
	pub, err := signer.VerifyStamp(c.String(StampFlag.Name), c.String(PayloadFlag.Name))
	if err != nil {
		return err
	}
	return printJSON(c, map[string]any{"valid": true, "publicKey": pub})
}

func runDecryptCredentials(c *cli.Context) error {
	bundle, err := readBundle(c)
	if err != nil {
		return err
	}
	creds, err := hpke.DecryptCredentialBundle(bundle, c.String(EphemeralKeyFlag.Name))
	if err != nil {
		return err
	}
	return printJSON(c, map[string]string{
		"sessionPublicKey":  creds.SessionPublicKey,
		"sessionPrivateKey": creds.SessionPrivateKey,
	})
}

func runDecryptExport(c *cli.Context) error {
	cfg := NewConfigFromCLI(c)
	bundle, err := readBundle(c)
	if err != nil {
		return err
	}
	out, err := enclave.DecryptExportBundle(enclave.ExportRequest{
		Bundle:           bundle,
		EmbeddedKeyHex:   c.String(EmbeddedKeyFlag.Name),
		OrganizationID:   cfg.OrganizationID,
		KeyFormat:        cfg.KeyFormat,
		ReturnMnemonic:   c.Bool(ReturnMnemonicFlag.Name),
		TrustedSignerHex: cfg.TrustedSignerKey,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, out)
	return err
}

func importRequest(c *cli.Context) (enclave.ImportRequest, error) {
	cfg := NewConfigFromCLI(c)
	bundle, err := readBundle(c)
	if err != nil {
		return enclave.ImportRequest{}, err
	}
	return enclave.ImportRequest{
		Bundle:           bundle,
		OrganizationID:   cfg.OrganizationID,
		UserID:           cfg.UserID,
		TrustedSignerHex: cfg.TrustedSignerKey,
		KeyFormat:        cfg.KeyFormat,
	}, nil
}

func runEncryptWallet(c *cli.Context) error {
	req, err := importRequest(c)
	if err != nil {
		return err
	}
	req.Mnemonic = c.String(MnemonicFlag.Name)
	out, err := enclave.EncryptWalletToBundle(req)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, out)
	return err
}

func runEncryptKey(c *cli.Context) error {
	req, err := importRequest(c)
	if err != nil {
		return err
	}
	req.PrivateKey = c.String(ImportKeyFlag.Name)
	out, err := enclave.EncryptPrivateKeyToBundle(req)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, out)
	return err
}

func runEthAddress(c *cli.Context) error {
	addr, err := wallet.EthereumAddress(c.String(Secp256k1KeyFlag.Name))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, addr)
	return err
}

func runSolanaAddress(c *cli.Context) error {
	const op = "solana address"
	var (
		priv ed25519.PrivateKey
		path string
		err  error
	)
	switch {
	case c.String(SolanaKeyFlag.Name) != "":
		priv, err = wallet.ParseSolanaPrivateKey(c.String(SolanaKeyFlag.Name))
	case c.String(MnemonicFlag.Name) != "":
		index := c.Uint(SolanaIndexFlag.Name)
		if index >= 1<<31 {
			return cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat, "index must be below 2^31, got %d", index)
		}
		priv, err = wallet.SolanaKeyFromMnemonic(c.String(MnemonicFlag.Name), uint32(index))
		path = wallet.DerivationPathSolana(uint32(index))
	default:
		return cryptoerr.Configuration(op, fmt.Errorf("%w: --wallet-mnemonic or --solana-key is required", cryptoerr.ErrMissingKeyMaterial))
	}
	if err != nil {
		return err
	}
	defer clear(priv)

	out := map[string]string{"address": wallet.SolanaAddress(priv.Public().(ed25519.PublicKey))}
	if path != "" {
		out["derivationPath"] = path
	}
	return printJSON(c, out)
}

func runMnemonic(c *cli.Context) error {
	m, err := wallet.NewMnemonic(c.Int(MnemonicBitsFlag.Name))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, m)
	return err
}

func runWhoami(c *cli.Context) error {
	cfg := NewConfigFromCLI(c)
	logger, err := NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	stamper, err := cfg.Stamper()
	if err != nil {
		return err
	}
	client := vendorclient.NewClient(logger, stamper, c.String(VendorURLFlag.Name))
	out, err := client.Whoami(context.Background(), cfg.OrganizationID)
	if err != nil {
		return err
	}
	return printJSON(c, out)
}
