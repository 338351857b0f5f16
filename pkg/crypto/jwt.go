package crypto

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ApprovalTokenClaims is what a remote approver's signed response carries:
// the binding hash ties the response to the exact parameters it was shown,
// so a token cannot be replayed against a re-proposed (and thus re-bound)
// action.
type ApprovalTokenClaims struct {
	jwt.RegisteredClaims
	EnvelopeID    string `json:"envelope_id"`
	ApprovalID    string `json:"approval_id"`
	BindingHash   string `json:"binding_hash"`
	ResponderID   string `json:"responder_id"`
	Decision      string `json:"decision"` // "approved" or "rejected"
}

// IssueApprovalToken signs an ApprovalTokenClaims with priv using EdDSA,
// for an approver acting through a remote channel (mobile push, email
// link) that carries the response back as a bearer token rather than a
// direct API call.
func IssueApprovalToken(priv ed25519.PrivateKey, keyID string, claims ApprovalTokenClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = keyID

	signed, err := token.SignedString(priv)
	if err != nil {
		return "", fmt.Errorf("crypto: sign approval token: %w", err)
	}
	return signed, nil
}

// ParseApprovalToken verifies tokenString against pub and returns its
// claims. Expiry is enforced by the jwt library's standard claims
// validation.
func ParseApprovalToken(tokenString string, pub ed25519.PublicKey) (*ApprovalTokenClaims, error) {
	claims := &ApprovalTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("crypto: unexpected signing method %v", t.Header["alg"])
		}
		return pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("crypto: parse approval token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("crypto: approval token failed validation")
	}
	return claims, nil
}
