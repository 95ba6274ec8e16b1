package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"

	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
)

const hardened uint32 = 0x80000000

// SolanaKeypair expands a 32-byte ed25519 seed into the 64-byte private||public key.
func SolanaKeypair(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, cryptoerr.Validationf("solana keypair", cryptoerr.ErrInvalidKeyFormat,
			"expected %d-byte seed, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// SolanaAddress is the base58 public key.
func SolanaAddress(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

// SolanaPrivateKey renders the 64-byte keypair the way Solana wallets import it.
func SolanaPrivateKey(priv ed25519.PrivateKey) string {
	return base58.Encode(priv)
}

// ParseSolanaPrivateKey accepts a base58 64-byte keypair and checks that its halves agree.
func ParseSolanaPrivateKey(s string) (ed25519.PrivateKey, error) {
	const op = "parse solana key"
	b, err := base58.Decode(s)
	if err != nil || len(b) != ed25519.PrivateKeySize {
		return nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat, "expected base58 %d-byte keypair", ed25519.PrivateKeySize)
	}
	priv := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
	if !priv.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(b[ed25519.SeedSize:])) {
		return nil, cryptoerr.Validationf(op, cryptoerr.ErrInvalidKeyFormat, "public half does not match seed")
	}
	return priv, nil
}

// SolanaKeyFromMnemonic derives m/44'/501'/index'/0' with SLIP-0010.
func SolanaKeyFromMnemonic(mnemonic string, index uint32) (ed25519.PrivateKey, error) {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}
	seed := bip39.NewSeed(mnemonic, "")
	defer zero(seed)

	h := hmac.New(sha512.New, []byte("ed25519 seed"))
	h.Write(seed)
	sum := h.Sum(nil)
	key, chain := sum[:32], sum[32:]

	for _, segment := range []uint32{hardened + 44, hardened + 501, hardened + index, hardened + 0} {
		key, chain = slip10Child(key, chain, segment)
	}
	defer zero(key)
	return SolanaKeypair(key)
}

func slip10Child(key, chainCode []byte, segment uint32) ([]byte, []byte) {
	buf := make([]byte, 0, 1+len(key)+4)
	buf = append(buf, 0x00)
	buf = append(buf, key...)
	buf = binary.BigEndian.AppendUint32(buf, segment)

	h := hmac.New(sha512.New, chainCode)
	h.Write(buf)
	i := h.Sum(nil)
	return i[:32], i[32:]
}

// DerivationPathSolana formats the path used by SolanaKeyFromMnemonic.
func DerivationPathSolana(index uint32) string {
	return fmt.Sprintf("m/44'/501'/%d'/0'", index)
}
