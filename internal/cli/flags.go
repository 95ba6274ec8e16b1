package cli

import "github.com/urfave/cli/v2"

var (
	DebugFlag = &cli.BoolFlag{
		Name:    "debug",
		Usage:   "Enable debug logging",
		EnvVars: []string{"CUSTODY_DEBUG"},
	}

	PrivateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Usage:   "P-256 private key (64 hex characters)",
		EnvVars: []string{"API_PRIVATE_KEY"},
	}

	PublicKeyFlag = &cli.StringFlag{
		Name:    "public-key",
		Usage:   "Compressed P-256 public key (66 hex characters); derived from --private-key when empty",
		EnvVars: []string{"API_PUBLIC_KEY"},
	}

	KeyFlag = &cli.StringFlag{
		Name:     "key",
		Usage:    "Public key in hex",
		Required: true,
	}

	CompressedFlag = &cli.BoolFlag{
		Name:  "compressed",
		Usage: "Emit the public key in compressed form",
		Value: true,
	}

	PayloadFlag = &cli.StringFlag{
		Name:     "payload",
		Usage:    "Exact request body to sign",
		Required: true,
	}

	StampFlag = &cli.StringFlag{
		Name:     "stamp",
		Usage:    "Base64url signature stamp",
		Required: true,
	}

	NonceModeFlag = &cli.StringFlag{
		Name:    "nonce-mode",
		Usage:   "ECDSA nonce generation (deterministic, randomized)",
		Value:   "deterministic",
		EnvVars: []string{"SIGNING_NONCE_MODE"},
	}

	BundleFlag = &cli.StringFlag{
		Name:  "bundle",
		Usage: "Bundle contents (credential bundle string or signed envelope JSON)",
	}

	BundleFileFlag = &cli.StringFlag{
		Name:  "bundle-file",
		Usage: "Path to a file holding the bundle",
	}

	EphemeralKeyFlag = &cli.StringFlag{
		Name:     "ephemeral-private-key",
		Usage:    "Private half of the target key the credential bundle was sealed to",
		EnvVars:  []string{"EPHEMERAL_PRIVATE_KEY"},
		Required: true,
	}

	EmbeddedKeyFlag = &cli.StringFlag{
		Name:     "embedded-private-key",
		Usage:    "Private half of the target key the export was sealed to",
		EnvVars:  []string{"EMBEDDED_PRIVATE_KEY"},
		Required: true,
	}

	OrganizationIDFlag = &cli.StringFlag{
		Name:    "organization-id",
		Usage:   "Vendor organization ID",
		EnvVars: []string{"ORGANIZATION_ID"},
	}

	UserIDFlag = &cli.StringFlag{
		Name:    "user-id",
		Usage:   "Vendor user ID the import bundle was issued for",
		EnvVars: []string{"USER_ID"},
	}

	TrustedSignerFlag = &cli.StringFlag{
		Name:    "enclave-signer-public-key",
		Usage:   "Uncompressed hex public key of the enclave quorum that signs bundles",
		EnvVars: []string{"ENCLAVE_SIGNER_PUBLIC_KEY"},
	}

	KeyFormatFlag = &cli.StringFlag{
		Name:  "key-format",
		Usage: "Private key format (HEXADECIMAL, SOLANA)",
		Value: "HEXADECIMAL",
	}

	ReturnMnemonicFlag = &cli.BoolFlag{
		Name:  "mnemonic",
		Usage: "Treat the exported plaintext as a wallet mnemonic",
	}

	MnemonicFlag = &cli.StringFlag{
		Name:    "wallet-mnemonic",
		Usage:   "BIP-39 mnemonic to import",
		EnvVars: []string{"MNEMONIC"},
	}

	ImportKeyFlag = &cli.StringFlag{
		Name:    "import-private-key",
		Usage:   "Private key to import, in --key-format",
		EnvVars: []string{"IMPORT_PRIVATE_KEY"},
	}

	SolanaKeyFlag = &cli.StringFlag{
		Name:    "solana-key",
		Usage:   "Base58 64-byte Solana keypair",
		EnvVars: []string{"SOLANA_PRIVATE_KEY"},
	}

	SolanaIndexFlag = &cli.UintFlag{
		Name:  "index",
		Usage: "Account index in m/44'/501'/index'/0'",
	}

	MnemonicBitsFlag = &cli.IntFlag{
		Name:  "bits",
		Usage: "Entropy size in bits (128, 160, 192, 224 or 256)",
		Value: 256,
	}

	Secp256k1KeyFlag = &cli.StringFlag{
		Name:     "secp256k1-private-key",
		Usage:    "secp256k1 private key (hex)",
		Required: true,
	}

	VendorURLFlag = &cli.StringFlag{
		Name:     "vendor-api-url",
		Usage:    "Vendor API base URL (e.g. https://api.vendor.example)",
		EnvVars:  []string{"VENDOR_API_URL"},
		Required: true,
	}
)
