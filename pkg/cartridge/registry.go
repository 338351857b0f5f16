// Package cartridge hosts the registry that maps a cartridge ID (or an
// action-type prefix) to a registered types.Cartridge implementation.
package cartridge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// ErrUnknownCartridge is returned when an explicit cartridge ID does not
// resolve to a registered cartridge.
type ErrUnknownCartridge struct {
	ID string
}

func (e *ErrUnknownCartridge) Error() string {
	return fmt.Sprintf("cartridge: unknown cartridge %q", e.ID)
}

// MissingCapability is returned when no registered cartridge declares a
// handler for a requested action type. It names any registered cartridge
// that owns a neighboring namespace (the segment of actionType before its
// first '.') as a likely misconfiguration or extension point, rather than
// leaving the caller with a bare not-found error.
type MissingCapability struct {
	ActionType            string   `json:"action_type"`
	SuggestedCartridgeIDs []string `json:"suggested_cartridge_ids,omitempty"`
}

func (e *MissingCapability) Error() string {
	if len(e.SuggestedCartridgeIDs) == 0 {
		return fmt.Sprintf("cartridge: no cartridge handles action type %q", e.ActionType)
	}
	return fmt.Sprintf("cartridge: no cartridge handles action type %q (similar namespace: %s)",
		e.ActionType, strings.Join(e.SuggestedCartridgeIDs, ", "))
}

// namespaceOf returns the leading dotted segment of an action type, e.g.
// "ads" for "ads.campaign.pause".
func namespaceOf(actionType string) string {
	if i := strings.Index(actionType, "."); i >= 0 {
		return actionType[:i]
	}
	return actionType
}

// Registry maps cartridge IDs to their implementations.
type Registry struct {
	mu         sync.RWMutex
	cartridges map[string]types.Cartridge
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{cartridges: make(map[string]types.Cartridge)}
}

// Register adds or replaces the cartridge under id.
func (r *Registry) Register(id string, c types.Cartridge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cartridges[id] = c
}

// Get returns the cartridge registered under id.
func (r *Registry) Get(id string) (types.Cartridge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cartridges[id]
	if !ok {
		return nil, &ErrUnknownCartridge{ID: id}
	}
	return c, nil
}

// ResolveForActionType finds the cartridge owning actionType, either by an
// explicit cartridge ID stamped on the proposal or by matching the
// cartridge's declared action-type prefixes (e.g. "ads.*" owns
// "ads.campaign.pause").
func (r *Registry) ResolveForActionType(explicitCartridgeID, actionType string) (types.Cartridge, error) {
	if explicitCartridgeID != "" {
		return r.Get(explicitCartridgeID)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cartridges {
		for _, prefix := range c.Descriptor().ActionTypes {
			if matchesActionType(prefix, actionType) {
				return c, nil
			}
		}
	}

	wantNamespace := namespaceOf(actionType)
	var suggestions []string
	for id, c := range r.cartridges {
		for _, prefix := range c.Descriptor().ActionTypes {
			if namespaceOf(strings.TrimSuffix(prefix, ".*")) == wantNamespace {
				suggestions = append(suggestions, id)
				break
			}
		}
	}
	sort.Strings(suggestions)
	return nil, &MissingCapability{ActionType: actionType, SuggestedCartridgeIDs: suggestions}
}

// InitializeAll calls Initialize on every registered cartridge. The first
// error aborts; callers should treat a partially initialized registry as
// unusable.
func (r *Registry) InitializeAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.cartridges))
	for id := range r.cartridges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := r.cartridges[id].Initialize(ctx); err != nil {
			return fmt.Errorf("cartridge: initialize %q: %w", id, err)
		}
	}
	return nil
}

// HealthCheckAll runs HealthCheck against every registered cartridge and
// returns the results keyed by cartridge ID. A cartridge whose HealthCheck
// call errors is reported with status "unreachable" rather than aborting
// the whole sweep.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]types.HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]types.HealthStatus, len(r.cartridges))
	for id, c := range r.cartridges {
		status, err := c.HealthCheck(ctx)
		if err != nil {
			status = types.HealthStatus{Status: "unreachable"}
		}
		out[id] = status
	}
	return out
}

func matchesActionType(pattern, actionType string) bool {
	if pattern == actionType {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		return strings.HasPrefix(actionType, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
