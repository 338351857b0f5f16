package types

import "context"

// CartridgeDescriptor is the static metadata a cartridge publishes about
// itself at registration time.
type CartridgeDescriptor struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	ActionTypes []string `json:"action_types"` // dotted namespaces this cartridge owns
	Version     string   `json:"version"`      // semver
}

// HealthStatus is what a cartridge's healthCheck reports: its current
// reachability and the capabilities it is currently able to serve.
type HealthStatus struct {
	Status       string   `json:"status"` // "healthy" | "degraded" | "unreachable"
	Capabilities []string `json:"capabilities,omitempty"`
}

// Cartridge is the boundary the governance core calls through to reach an
// external integration. The core never inspects a cartridge's internal
// parameter schema beyond what JSON-Schema validation reports; it treats
// Parameters, enrichment maps, and ExecuteResult.Raw as opaque beyond the
// reserved keys in proposal.go. There is no separate undo executor: a
// reverse action is just another proposal routed back through the normal
// propose/execute pipeline.
type Cartridge interface {
	Descriptor() CartridgeDescriptor

	// Initialize performs one-time setup (provider clients, credentials)
	// before the cartridge serves any other call.
	Initialize(ctx context.Context) error

	// GetGuardrails returns this cartridge's rate limits, cooldowns, and
	// protected entities. Called once per proposal evaluation.
	GetGuardrails(ctx context.Context) (GuardrailSpec, error)

	// Score supplies the risk inputs for one proposal. The cartridge owns
	// all domain knowledge needed to judge exposure and reversibility.
	Score(ctx context.Context, proposal ActionProposal) (RiskInput, error)

	// EnrichContext returns extra read-only metadata about proposal for the
	// risk/policy pipeline to consider. Fail-closed: callers must treat an
	// error as a reason to stop, not substitute an empty map.
	EnrichContext(ctx context.Context, proposal ActionProposal) (map[string]interface{}, error)

	// Execute performs the side-effecting action after approval. Cartridges
	// that support undo must populate ExecuteResult.UndoRecipe on success.
	Execute(ctx context.Context, proposal ActionProposal) (ExecuteResult, error)

	// HealthCheck reports whether the cartridge's external dependencies are
	// currently reachable.
	HealthCheck(ctx context.Context) (HealthStatus, error)
}

// SnapshotCapturer is an optional capability: cartridges whose actions need
// pre-execution state captured for later undo implement it. The
// orchestrator type-asserts for it immediately before calling Execute.
type SnapshotCapturer interface {
	CaptureSnapshot(ctx context.Context, proposal ActionProposal) (map[string]interface{}, error)
}
