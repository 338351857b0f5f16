package approval

import (
	"strings"
	"time"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// ChainResult is the outcome of canApproveWithChain: whether principal is
// authorized to respond, and if so via which chain of principal IDs.
type ChainResult struct {
	Authorized bool
	Chain      []string // principal IDs, starting with the responder
	Depth      int
}

// DefaultMaxChainDepth bounds every delegation BFS. DelegationRule carries
// no per-rule depth cap, so this bound applies to every walk.
const DefaultMaxChainDepth = 5

// CanApproveWithChain reports whether principal may respond to an approval
// whose eligible approvers are approverIDs, walking delegation edges where
// principal is (transitively) a grantee.
//
// A direct match (principal already in approverIDs and holding the
// "approver" role) is depth 0. Otherwise a
// breadth-first search follows delegation edges from principal as grantee to
// their grantor, repeating until a grantor is found in approverIDs or the
// configured max depth is exhausted.
func CanApproveWithChain(principal types.Principal, approverIDs []string, delegations []types.DelegationRule, actionType string, now time.Time) ChainResult {
	if contains(approverIDs, principal.ID) && principal.HasRole("approver") {
		return ChainResult{Authorized: true, Chain: []string{principal.ID}, Depth: 0}
	}

	type frontierNode struct {
		id    string
		chain []string
		depth int
	}

	maxDepth := DefaultMaxChainDepth

	visited := map[string]bool{principal.ID: true}
	queue := []frontierNode{{id: principal.ID, chain: []string{principal.ID}, depth: 0}}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if node.depth >= maxDepth {
			continue
		}

		for _, edge := range delegations {
			if edge.GranteePrincipalID != node.id {
				continue
			}
			if edge.ExpiresAt != nil && !now.Before(*edge.ExpiresAt) {
				continue
			}
			if !scopeAllows(edge.Scope, actionType) {
				continue
			}
			grantor := edge.GrantorPrincipalID
			if visited[grantor] {
				continue
			}
			visited[grantor] = true
			nextChain := append(append([]string{}, node.chain...), grantor)

			if contains(approverIDs, grantor) {
				return ChainResult{Authorized: true, Chain: nextChain, Depth: node.depth + 1}
			}
			queue = append(queue, frontierNode{id: grantor, chain: nextChain, depth: node.depth + 1})
		}
	}

	return ChainResult{Authorized: false}
}

func scopeAllows(scope []string, actionType string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, s := range scope {
		if s == "*" || s == actionType {
			return true
		}
		if strings.HasSuffix(s, ".*") && strings.HasPrefix(actionType, strings.TrimSuffix(s, "*")) {
			return true
		}
	}
	return false
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
