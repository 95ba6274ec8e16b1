package hpke

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custody-labs/custody-crypto/pkg/codec"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/curve"
)

type fixture struct {
	ephemeral   *curve.KeyPair // uncompressed public key
	enc         []byte
	ciphertext  []byte
	hexBundle   string
	b58Bundle   string
	ephemeralSK string
}

func newFixture(t *testing.T, plaintext []byte) *fixture {
	t.Helper()
	eph, err := curve.GenerateKeypair(false)
	require.NoError(t, err)

	enc, ct, err := Seal(plaintext, eph.PublicKey)
	require.NoError(t, err)
	require.Len(t, enc, curve.UncompressedSize)

	hexBundle, err := EncodeCredentialBundle(enc, ct, EncodingHex)
	require.NoError(t, err)
	b58Bundle, err := EncodeCredentialBundle(enc, ct, EncodingBase58Check)
	require.NoError(t, err)

	return &fixture{
		ephemeral:   eph,
		enc:         enc,
		ciphertext:  ct,
		hexBundle:   hexBundle,
		b58Bundle:   b58Bundle,
		ephemeralSK: hex.EncodeToString(eph.PrivateKey),
	}
}

func TestDecryptCredentialBundle(t *testing.T) {
	session, err := curve.GenerateKeypair(true)
	require.NoError(t, err)
	f := newFixture(t, session.PrivateKey)

	for name, bundle := range map[string]string{"hex": f.hexBundle, "base58check": f.b58Bundle} {
		t.Run(name, func(t *testing.T) {
			creds, err := DecryptCredentialBundle(bundle, f.ephemeralSK)
			require.NoError(t, err)
			assert.Equal(t, hex.EncodeToString(session.PrivateKey), creds.SessionPrivateKey)
			assert.Equal(t, hex.EncodeToString(session.PublicKey), creds.SessionPublicKey)
		})
	}

	t.Run("uncompressed encapped key", func(t *testing.T) {
		raw := append(append([]byte(nil), f.enc...), f.ciphertext...)
		creds, err := DecryptCredentialBundle(hex.EncodeToString(raw), f.ephemeralSK)
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(session.PrivateKey), creds.SessionPrivateKey)
	})
}

func TestDecryptCredentialBundlePadsShortPlaintext(t *testing.T) {
	sk := make([]byte, 31)
	sk[30] = 0x07
	f := newFixture(t, sk)

	creds, err := DecryptCredentialBundle(f.hexBundle, f.ephemeralSK)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("0", 63)+"7", creds.SessionPrivateKey)
	assert.Len(t, creds.SessionPrivateKey, 64)

	keys, err := curve.DerivePublicKeyFromPrivateHex(creds.SessionPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(keys.Compressed), creds.SessionPublicKey)
}

func TestDecryptCredentialBundleTampering(t *testing.T) {
	session, err := curve.GenerateKeypair(true)
	require.NoError(t, err)
	f := newFixture(t, session.PrivateKey)
	raw, err := hex.DecodeString(f.hexBundle)
	require.NoError(t, err)

	for i := curve.CompressedSize; i < len(raw); i++ {
		flipped := append([]byte(nil), raw...)
		flipped[i] ^= 0x01
		_, err := DecryptCredentialBundle(hex.EncodeToString(flipped), f.ephemeralSK)
		require.Error(t, err, "byte %d", i)
		assert.ErrorIs(t, err, cryptoerr.ErrCryptographic, "byte %d", i)
		assert.ErrorIs(t, err, cryptoerr.ErrAuthenticationFailed, "byte %d", i)
	}

	t.Run("wrong ephemeral key", func(t *testing.T) {
		other, err := curve.GenerateKeypair(false)
		require.NoError(t, err)
		_, err = DecryptCredentialBundle(f.hexBundle, hex.EncodeToString(other.PrivateKey))
		assert.ErrorIs(t, err, cryptoerr.ErrCryptographic)
	})

	t.Run("error does not leak key material", func(t *testing.T) {
		flipped := append([]byte(nil), raw...)
		flipped[len(flipped)-1] ^= 0x80
		_, err := DecryptCredentialBundle(hex.EncodeToString(flipped), f.ephemeralSK)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), f.ephemeralSK)
		assert.NotContains(t, err.Error(), hex.EncodeToString(session.PrivateKey))
	})
}

func TestDecryptCredentialBundleRejectsOversizedPlaintext(t *testing.T) {
	f := newFixture(t, make([]byte, 33))
	_, err := DecryptCredentialBundle(f.hexBundle, f.ephemeralSK)
	assert.ErrorIs(t, err, cryptoerr.ErrCryptographic)
}

func TestDecodeBundle(t *testing.T) {
	t.Run("odd length hex", func(t *testing.T) {
		_, err := DecodeBundle("abc")
		assert.ErrorIs(t, err, cryptoerr.ErrBundleFormat)
		assert.ErrorIs(t, err, cryptoerr.ErrInvalidBundle)
	})

	t.Run("corrupted base58check checksum", func(t *testing.T) {
		payload := []byte("some bundle bytes")
		encoded := codec.EncodeBase58Check(payload)
		out, err := DecodeBundle(encoded)
		require.NoError(t, err)
		assert.Equal(t, payload, out)

		raw := append(payload, 0, 0, 0, 0)
		sum := codec.SHA256(payload)
		sum = codec.SHA256(sum[:])
		copy(raw[len(payload):], sum[:4])
		raw[len(raw)-1] ^= 0xff
		_, err = DecodeBundle(base58.Encode(raw))
		assert.ErrorIs(t, err, cryptoerr.ErrBundleFormat)
	})

	t.Run("hex takes precedence", func(t *testing.T) {
		out, err := DecodeBundle("0a0b")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x0a, 0x0b}, out)
	})
}

func TestParseBundleEncappedKey(t *testing.T) {
	kp, err := curve.GenerateKeypair(false)
	require.NoError(t, err)
	compressed, err := curve.CompressPublicKey(kp.PublicKey)
	require.NoError(t, err)
	tag := make([]byte, TagSize)

	t.Run("compressed key is expanded", func(t *testing.T) {
		enc, ct, err := ParseBundleEncappedKey(append(append([]byte(nil), compressed...), tag...))
		require.NoError(t, err)
		assert.Equal(t, kp.PublicKey, enc)
		assert.Equal(t, tag, ct)
	})

	t.Run("uncompressed key", func(t *testing.T) {
		enc, ct, err := ParseBundleEncappedKey(append(append([]byte(nil), kp.PublicKey...), tag...))
		require.NoError(t, err)
		assert.Equal(t, kp.PublicKey, enc)
		assert.Len(t, ct, TagSize)
	})

	bad := map[string][]byte{
		"empty":                nil,
		"unknown prefix":       append([]byte{0x05}, make([]byte, 64)...),
		"short compressed":     compressed[:20],
		"short uncompressed":   kp.PublicKey[:40],
		"ciphertext too short": append(append([]byte(nil), compressed...), make([]byte, TagSize-1)...),
	}
	for name, in := range bad {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseBundleEncappedKey(in)
			assert.ErrorIs(t, err, cryptoerr.ErrBundleFormat)
		})
	}
}

func TestBuildAAD(t *testing.T) {
	aad := BuildAAD([]byte{1, 2}, []byte{3})
	assert.Equal(t, []byte{1, 2, 3}, aad)
}

// Bundles sealed outside this package with an RFC 9180 reference implementation:
// DHKEM(P-256)/HKDF-SHA256/AES-256-GCM, info "turnkey_hpke", aad = enc || receiver.
const (
	vectorRecipientSK = "bba4adae66cbdd01f9546bae76de88dfef80092dc94edb1a252cdf95297dfc54"
	vectorRecipientPK = "04a4cec5071a669e430f051ae417f42f22905da671df2710caa007b6a4119c05e1" +
		"c55d6dcfff108a95f92c11f2419d3b17eb2b7a5d92addd18d5670267add3bb08"
	vectorEnc = "04e191c8f1b2a4b5b2f38f95a1f0e1de6afdfbfabb27e1c9bc0148d64baeb7bfaa" +
		"f05c0609ae53b67016c062970b4d6affff624a9d44d6f609c27dff4885f0d421"
	vectorCiphertext = "a06153b7980669b3eedbfeeb86498de76097b1d01c2ad20b8a141f5658d66874" +
		"7872c1f09123e03a2e8d3045592e00bc"
	vectorBundleB58 = "2Dr9kYeaL3YCYmgCFLEpnFJ73LFD5bKRC3u5ocKDJf7tK3PM2nMSiC6B4DsLNEXuzCjPqCCH1JHSiCTeGtSw1V5LGj6TnYshjEUWB2TJUA4c6uXvtfee"
	vectorSessionSK  = "dcf1641080305afc10c98e6d75d56f468d0882f0056d5422749a349fbd5d4dd5"
	vectorSessionPK  = "032a555c6ee6c879a3534122917e38efe2e4cc4d68cdf74b027acb3c1d9706c756"

	vectorBundle31Hex = "03e191c8f1b2a4b5b2f38f95a1f0e1de6afdfbfabb27e1c9bc0148d64baeb7bfaa" +
		"6d8126b60927225eef036197e28df3b0fc8e223108569738ef9f3ad8f49a3433e47c5e0779908ed60b6f73241531d9"
	vectorSession31PK = "03149c58d7b80fe7510afd51a3bb09ce8d1aaa337404467e076d29ac865ff9d42a"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestDecryptCredentialBundleKnownVector(t *testing.T) {
	t.Run("base58check bundle", func(t *testing.T) {
		creds, err := DecryptCredentialBundle(vectorBundleB58, vectorRecipientSK)
		require.NoError(t, err)
		assert.Equal(t, vectorSessionSK, creds.SessionPrivateKey)
		assert.Equal(t, vectorSessionPK, creds.SessionPublicKey)
	})

	t.Run("short plaintext is left padded", func(t *testing.T) {
		creds, err := DecryptCredentialBundle(vectorBundle31Hex, vectorRecipientSK)
		require.NoError(t, err)
		assert.Equal(t, "00"+strings.Repeat("11", 31), creds.SessionPrivateKey)
		assert.Equal(t, vectorSession31PK, creds.SessionPublicKey)
	})

	t.Run("compressed enc expands to the sealed enc", func(t *testing.T) {
		raw, err := DecodeBundle(vectorBundleB58)
		require.NoError(t, err)
		enc, ct, err := ParseBundleEncappedKey(raw)
		require.NoError(t, err)
		assert.Equal(t, vectorEnc, hex.EncodeToString(enc))
		assert.Equal(t, vectorCiphertext, hex.EncodeToString(ct))
	})

	t.Run("open with fixed aad layout", func(t *testing.T) {
		enc, ct := mustHex(t, vectorEnc), mustHex(t, vectorCiphertext)
		pt, err := Open(enc, ct, mustHex(t, vectorRecipientSK))
		require.NoError(t, err)
		assert.Equal(t, vectorSessionSK, hex.EncodeToString(pt))

		aad := BuildAAD(enc, mustHex(t, vectorRecipientPK))
		assert.Equal(t, vectorEnc+vectorRecipientPK, hex.EncodeToString(aad))
	})
}
