package crypto

import (
	"fmt"
	"sync"
)

// KeyRing holds multiple named signing keys so a key can be rotated without
// invalidating signatures made under a previous one: old keys stay in the
// ring, able to verify, until explicitly revoked.
type KeyRing struct {
	mu      sync.RWMutex
	signers map[string]*Ed25519Signer
	active  string
}

// NewKeyRing returns an empty KeyRing.
func NewKeyRing() *KeyRing {
	return &KeyRing{signers: make(map[string]*Ed25519Signer)}
}

// AddKey adds s to the ring and, if it's the first key added, makes it
// active.
func (k *KeyRing) AddKey(s *Ed25519Signer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.signers[s.KeyID()] = s
	if k.active == "" {
		k.active = s.KeyID()
	}
}

// Rotate makes keyID the active signer for new signatures. keyID must
// already be in the ring.
func (k *KeyRing) Rotate(keyID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.signers[keyID]; !ok {
		return fmt.Errorf("crypto: unknown key %q", keyID)
	}
	k.active = keyID
	return nil
}

// RevokeKey removes a key from the ring. A signature already produced under
// a revoked key can no longer be verified.
func (k *KeyRing) RevokeKey(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.signers, keyID)
	if k.active == keyID {
		k.active = ""
	}
}

// Active returns the current active signer.
func (k *KeyRing) Active() (*Ed25519Signer, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.active == "" {
		return nil, fmt.Errorf("crypto: key ring has no active key")
	}
	return k.signers[k.active], nil
}

// Sign signs data with the active key.
func (k *KeyRing) Sign(data []byte) (string, error) {
	signer, err := k.Active()
	if err != nil {
		return "", err
	}
	return signer.Sign(data)
}

// Verify verifies signature against data using whichever key in the ring
// produced it, identified by the key ID embedded in the signature string.
func (k *KeyRing) Verify(data []byte, signature string) (bool, error) {
	keyID, _, err := ParseSignature(signature)
	if err != nil {
		return false, err
	}

	k.mu.RLock()
	signer, ok := k.signers[keyID]
	k.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("crypto: signature references unknown or revoked key %q", keyID)
	}
	return signer.Verify(data, signature)
}
