// Package signer produces canonical P-256 ECDSA signatures and the signature stamps that
// authenticate requests to the custody vendor.
//
// Signing is split into independent steps: an Engine yields a raw (r, s), NormalizeLowS
// canonicalizes it and EncodeDER renders it. Swapping the Engine never changes the later steps.
package signer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"
)

// Signature is a raw ECDSA signature.
type Signature struct {
	R *big.Int
	S *big.Int
}

// Engine signs a 32-byte digest with a P-256 private key.
type Engine interface {
	Sign(priv *ecdsa.PrivateKey, digest []byte) (Signature, error)
}

type deterministicEngine struct{}

type randomizedEngine struct{}

// Deterministic returns the RFC 6979 engine. Equal inputs give byte-identical signatures.
func Deterministic() Engine { return deterministicEngine{} }

// Randomized returns an engine drawing nonces from crypto/rand.
func Randomized() Engine { return randomizedEngine{} }

func (deterministicEngine) Sign(priv *ecdsa.PrivateKey, digest []byte) (Signature, error) {
	// A nil random source selects RFC 6979 nonces.
	der, err := priv.Sign(nil, digest, crypto.SHA256)
	if err != nil {
		return Signature{}, err
	}
	return DecodeDER(der)
}

func (randomizedEngine) Sign(priv *ecdsa.PrivateKey, digest []byte) (Signature, error) {
	der, err := ecdsa.SignASN1(rand.Reader, priv, digest)
	if err != nil {
		return Signature{}, err
	}
	return DecodeDER(der)
}

// LoadPrivateKey wraps a validated 32-byte scalar for use with an Engine.
func LoadPrivateKey(sk []byte) (*ecdsa.PrivateKey, error) {
	priv, err := ecdsa.ParseRawPrivateKey(elliptic.P256(), sk)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}
	return priv, nil
}
