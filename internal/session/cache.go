package session

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/curve"
	"github.com/custody-labs/custody-crypto/pkg/hpke"
	"github.com/custody-labs/custody-crypto/pkg/signer"
)

var ErrUnknownSession = fmt.Errorf("%w: unknown or expired session", cryptoerr.ErrMissingKeyMaterial)

// Cache holds ephemeral target keys waiting for a credential bundle and the session keys
// recovered from them.
type Cache struct {
	ttl    time.Duration
	engine signer.Engine

	mu      sync.Mutex
	pending map[string]*pendingEntry
	live    map[string]*liveEntry
}

type pendingEntry struct {
	privateKey []byte
	expiresAt  time.Time
}

type liveEntry struct {
	publicKey  string
	privateKey string
	expiresAt  time.Time
}

// Started is returned by Begin. TargetPublicKey is sent to the vendor with the login or
// read-write session activity.
type Started struct {
	ID              string
	TargetPublicKey string // uncompressed hex
	ExpiresAt       time.Time
}

// Session is the public view of a live session.
type Session struct {
	ID        string
	PublicKey string
	ExpiresAt time.Time
}

func NewCache(ttl time.Duration, engine signer.Engine) *Cache {
	if engine == nil {
		engine = signer.Deterministic()
	}
	return &Cache{
		ttl:     ttl,
		engine:  engine,
		pending: make(map[string]*pendingEntry),
		live:    make(map[string]*liveEntry),
	}
}

// Begin generates an ephemeral key pair and holds its private half until Complete.
func (c *Cache) Begin(now time.Time) (*Started, error) {
	kp, err := curve.GenerateKeypair(false)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	exp := now.Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(now)
	c.pending[id] = &pendingEntry{privateKey: kp.PrivateKey, expiresAt: exp}

	return &Started{ID: id, TargetPublicKey: hex.EncodeToString(kp.PublicKey), ExpiresAt: exp}, nil
}

// Complete decrypts the credential bundle for a pending session. The ephemeral key is
// consumed whether or not decryption succeeds.
func (c *Cache) Complete(id, bundle string, now time.Time) (*Session, error) {
	c.mu.Lock()
	p, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok || !now.Before(p.expiresAt) {
		if ok {
			zero(p.privateKey)
		}
		return nil, cryptoerr.Validation("complete session", ErrUnknownSession)
	}

	ephemeralHex := hex.EncodeToString(p.privateKey)
	zero(p.privateKey)
	creds, err := hpke.DecryptCredentialBundle(bundle, ephemeralHex)
	if err != nil {
		return nil, err
	}

	exp := now.Add(c.ttl)
	c.mu.Lock()
	c.live[id] = &liveEntry{publicKey: creds.SessionPublicKey, privateKey: creds.SessionPrivateKey, expiresAt: exp}
	c.mu.Unlock()

	return &Session{ID: id, PublicKey: creds.SessionPublicKey, ExpiresAt: exp}, nil
}

// Stamper returns a signer bound to a live session.
func (c *Cache) Stamper(id string, now time.Time) (signer.Stamper, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live[id]
	if !ok {
		return nil, cryptoerr.Validation("session stamper", ErrUnknownSession)
	}
	if !now.Before(e.expiresAt) {
		delete(c.live, id)
		return nil, cryptoerr.Validation("session stamper", ErrUnknownSession)
	}
	return &signer.APIKeyStamper{PublicKeyHex: e.publicKey, PrivateKeyHex: e.privateKey, Engine: c.engine}, nil
}

// Len returns the number of pending and live entries, expired ones included.
func (c *Cache) Len() (pending, live int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending), len(c.live)
}

func (c *Cache) sweepLocked(now time.Time) {
	for id, p := range c.pending {
		if !now.Before(p.expiresAt) {
			zero(p.privateKey)
			delete(c.pending, id)
		}
	}
	for id, e := range c.live {
		if !now.Before(e.expiresAt) {
			delete(c.live, id)
		}
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
