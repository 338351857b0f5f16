// Package types holds the data model shared across the governance runtime:
// principals, identities, proposals, envelopes, decisions, approvals, and
// audit entries. Types here carry no behavior beyond small derivations —
// the logic that operates on them lives in pkg/identity, pkg/policy,
// pkg/approval, pkg/ledger, and pkg/orchestrator.
package types

import "time"

// PrincipalType classifies who or what is acting.
type PrincipalType string

const (
	PrincipalUser   PrincipalType = "user"
	PrincipalAgent  PrincipalType = "agent"
	PrincipalSystem PrincipalType = "system"
)

// Principal is a user, agent, or system identity. It is persisted by an
// external admin surface and is read-only to the governance core.
type Principal struct {
	ID             string        `json:"id"`
	Type           PrincipalType `json:"type"`
	DisplayName    string        `json:"display_name"`
	OrganizationID string        `json:"organization_id,omitempty"`
	Roles          []string      `json:"roles"`
	CreatedAt      time.Time     `json:"created_at"`
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
