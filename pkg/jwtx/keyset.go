package jwtx

import (
	"errors"
	"sync"
)

// ErrNoKey is returned when no verification key exists for a kid.
var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds public verification keys indexed by kid. It is safe for
// concurrent use, so a rotation layer can add keys while requests verify.
type KeySet struct {
	mu  sync.RWMutex
	pub map[string]any // kid -> ed25519.PublicKey | *rsa.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]any)}
}

// AddSigner registers a signer's public key under its kid.
func (k *KeySet) AddSigner(s Signer) {
	k.Add(s.KID(), s.Public())
}

// Add registers a public key under the given kid.
func (k *KeySet) Add(kid string, pub any) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub[kid] = pub
}

// Get returns the public key for kid, or ErrNoKey.
func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// IsReady reports whether at least one verification key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}
