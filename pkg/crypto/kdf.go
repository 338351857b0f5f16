package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveSigningKey derives a domain-separated Ed25519 signing key from a
// master secret via HKDF-SHA256, so the governor can mint purpose-scoped
// keys (e.g. one per cartridge, one for approval receipts) from a single
// root secret instead of generating and storing one keypair per purpose.
func DeriveSigningKey(masterSecret []byte, purpose string) (*Ed25519Signer, error) {
	reader := hkdf.New(sha256.New, masterSecret, nil, []byte("actiongov:"+purpose))

	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, seed); err != nil {
		return nil, fmt.Errorf("crypto: derive signing key for %q: %w", purpose, err)
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return NewEd25519SignerFromKey(purpose, priv), nil
}
