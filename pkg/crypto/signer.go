package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SigPrefixEd25519 tags a signature string with its algorithm and key ID,
// e.g. "ed25519:governor-key-1".
const SigPrefixEd25519 = "ed25519"

// Signer signs arbitrary byte payloads and reports the key used.
type Signer interface {
	Sign(data []byte) (string, error)
	KeyID() string
	PublicKeyHex() string
}

// Verifier verifies a signature produced by a Signer.
type Verifier interface {
	Verify(data []byte, signature string) (bool, error)
}

// Ed25519Signer is the default Signer/Verifier implementation, used to bind
// approval receipts and audit entries to the key that recorded them.
type Ed25519Signer struct {
	keyID   string
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
}

// NewEd25519Signer generates a fresh keypair under the given key ID.
func NewEd25519Signer(keyID string) (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate ed25519 key: %w", err)
	}
	return &Ed25519Signer{keyID: keyID, privKey: priv, pubKey: pub}, nil
}

// NewEd25519SignerFromKey wraps an existing private key, for keys loaded
// from a secrets store rather than generated at startup.
func NewEd25519SignerFromKey(keyID string, priv ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{keyID: keyID, privKey: priv, pubKey: priv.Public().(ed25519.PublicKey)}
}

func (s *Ed25519Signer) KeyID() string { return s.keyID }

func (s *Ed25519Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.pubKey)
}

// Sign returns a "ed25519:<keyID>:<hex signature>" string.
func (s *Ed25519Signer) Sign(data []byte) (string, error) {
	sig := ed25519.Sign(s.privKey, data)
	return fmt.Sprintf("%s:%s:%s", SigPrefixEd25519, s.keyID, hex.EncodeToString(sig)), nil
}

// Verify checks a signature produced by this signer's key against data.
func (s *Ed25519Signer) Verify(data []byte, signature string) (bool, error) {
	_, sigBytes, err := ParseSignature(signature)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(s.pubKey, data, sigBytes), nil
}

// ParseSignature splits a "ed25519:<keyID>:<hex>" string into its key ID
// and raw signature bytes.
func ParseSignature(signature string) (keyID string, sig []byte, err error) {
	prefix := SigPrefixEd25519 + ":"
	if len(signature) <= len(prefix) || signature[:len(prefix)] != prefix {
		return "", nil, fmt.Errorf("crypto: malformed signature %q", signature)
	}
	rest := signature[len(prefix):]
	sep := -1
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == ':' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return "", nil, fmt.Errorf("crypto: malformed signature %q", signature)
	}
	keyID = rest[:sep]
	sigBytes, err := hex.DecodeString(rest[sep+1:])
	if err != nil {
		return "", nil, fmt.Errorf("crypto: decode signature hex: %w", err)
	}
	return keyID, sigBytes, nil
}
