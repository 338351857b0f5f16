package obslog

import (
	"log/slog"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// WithEnvelope returns a logger carrying envelope_id and status fields, for
// every log line emitted while processing one ActionEnvelope.
func WithEnvelope(logger *slog.Logger, env *types.ActionEnvelope) *slog.Logger {
	if env == nil {
		return logger
	}
	return logger.With("envelope_id", env.ID, "envelope_status", string(env.Status), "envelope_version", env.Version)
}

// WithPrincipal returns a logger carrying principal_id and principal_type
// fields.
func WithPrincipal(logger *slog.Logger, principal *types.Principal) *slog.Logger {
	if principal == nil {
		return logger
	}
	return logger.With("principal_id", principal.ID, "principal_type", string(principal.Type))
}

// WithDecision returns a logger carrying the outcome of a DecisionTrace:
// final decision, required approval level, and risk category.
func WithDecision(logger *slog.Logger, trace *types.DecisionTrace) *slog.Logger {
	if trace == nil {
		return logger
	}
	return logger.With(
		"decision", string(trace.FinalDecision),
		"required_approval_level", string(trace.RequiredApprovalLevel),
		"risk_category", string(trace.RiskScore.Category),
		"risk_score", trace.RiskScore.Raw,
	)
}
