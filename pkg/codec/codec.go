// Package codec holds the byte encodings used on the wire with the custody provider.
package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/mr-tron/base58"
)

const checksumLen = 4

var strictHex = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// IsStrictHex reports whether s is a non-empty, even-length hex string.
func IsStrictHex(s string) bool {
	return len(s)%2 == 0 && strictHex.MatchString(s)
}

// DecodeHex decodes s, rejecting anything IsStrictHex rejects.
func DecodeHex(s string) ([]byte, error) {
	if !IsStrictHex(s) {
		return nil, fmt.Errorf("not a strict hex string (length %d)", len(s))
	}
	return hex.DecodeString(s)
}

// EncodeBase64URL encodes b as base64url with the '=' padding stripped.
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBase64URL accepts base64url with or without padding.
func DecodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(trimPadding(s))
}

func trimPadding(s string) string {
	for len(s) > 0 && s[len(s)-1] == '=' {
		s = s[:len(s)-1]
	}
	return s
}

// SHA256 returns the SHA-256 digest of b.
func SHA256(b []byte) [32]byte {
	return sha256.Sum256(b)
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}

// EncodeBase58Check appends SHA256(SHA256(payload))[:4] to payload and base58-encodes it.
func EncodeBase58Check(payload []byte) string {
	buf := make([]byte, 0, len(payload)+checksumLen)
	buf = append(buf, payload...)
	buf = append(buf, checksum(payload)...)
	return base58.Encode(buf)
}

// DecodeBase58Check decodes s and validates then strips the 4-byte checksum.
func DecodeBase58Check(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("base58 decode: %w", err)
	}
	if len(raw) < checksumLen {
		return nil, fmt.Errorf("base58check payload too short (%d bytes)", len(raw))
	}
	payload, sum := raw[:len(raw)-checksumLen], raw[len(raw)-checksumLen:]
	if !bytes.Equal(sum, checksum(payload)) {
		return nil, fmt.Errorf("base58check checksum mismatch")
	}
	return payload, nil
}
