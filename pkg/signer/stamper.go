package signer

import (
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
)

// StampHeader carries the stamp on vendor requests.
const StampHeader = "X-Stamp"

// Stamper authenticates a request body.
type Stamper interface {
	Stamp(body []byte) (header, value string, err error)
}

// APIKeyStamper stamps with a long-lived API key or a session key.
type APIKeyStamper struct {
	PublicKeyHex  string
	PrivateKeyHex string
	Engine        Engine
}

func (s *APIKeyStamper) Stamp(body []byte) (string, string, error) {
	if s.PrivateKeyHex == "" {
		return "", "", cryptoerr.Configuration("stamp", cryptoerr.ErrMissingKeyMaterial)
	}
	var opts []Option
	if s.Engine != nil {
		opts = append(opts, WithEngine(s.Engine))
	}
	stamp, err := SignPayload(string(body), s.PrivateKeyHex, s.PublicKeyHex, opts...)
	if err != nil {
		return "", "", err
	}
	return StampHeader, stamp, nil
}
