package types

import "time"

// RiskCategory is the closed set of risk bands used throughout the system.
type RiskCategory string

const (
	RiskNone     RiskCategory = "none"
	RiskLow      RiskCategory = "low"
	RiskMedium   RiskCategory = "medium"
	RiskHigh     RiskCategory = "high"
	RiskCritical RiskCategory = "critical"
)

// ApprovalLevel is the closed set of required-approval strengths, in a
// total order none < standard < elevated < mandatory.
type ApprovalLevel string

const (
	ApprovalLevelNone      ApprovalLevel = "none"
	ApprovalLevelStandard  ApprovalLevel = "standard"
	ApprovalLevelElevated  ApprovalLevel = "elevated"
	ApprovalLevelMandatory ApprovalLevel = "mandatory"
)

var approvalLevelRank = map[ApprovalLevel]int{
	ApprovalLevelNone:      0,
	ApprovalLevelStandard:  1,
	ApprovalLevelElevated:  2,
	ApprovalLevelMandatory: 3,
}

// Rank returns the total-order position of the level, or -1 if unknown.
func (l ApprovalLevel) Rank() int {
	r, ok := approvalLevelRank[l]
	if !ok {
		return -1
	}
	return r
}

// MaxApprovalLevel returns the more restrictive (higher-ranked) of a, b.
func MaxApprovalLevel(a, b ApprovalLevel) ApprovalLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// MinApprovalLevel returns the less restrictive (lower-ranked) of a, b.
func MinApprovalLevel(a, b ApprovalLevel) ApprovalLevel {
	if b.Rank() < a.Rank() {
		return b
	}
	return a
}

// GovernanceProfile names a baseline tolerance-matrix preset.
type GovernanceProfile string

const (
	ProfileObserve GovernanceProfile = "observe"
	ProfileGuarded GovernanceProfile = "guarded"
	ProfileStrict  GovernanceProfile = "strict"
	ProfileLocked  GovernanceProfile = "locked"
)

// SpendLimits bounds how much a principal may commit, per action and over
// rolling windows. Each bound is nullable (nil = unlimited). CartridgeOverrides
// lets a specific cartridge carry a stricter or looser set of limits.
type SpendLimits struct {
	PerAction           *float64               `json:"per_action,omitempty"`
	Daily               *float64               `json:"daily,omitempty"`
	Weekly              *float64               `json:"weekly,omitempty"`
	Monthly             *float64               `json:"monthly,omitempty"`
	CartridgeOverrides  map[string]SpendLimits `json:"cartridge_overrides,omitempty"`
}

// IdentitySpec is the governance policy attached to a principal.
type IdentitySpec struct {
	ID                string                          `json:"id"`
	PrincipalID       string                           `json:"principal_id"`
	RiskTolerance     map[RiskCategory]ApprovalLevel   `json:"risk_tolerance"`
	SpendLimits       SpendLimits                      `json:"spend_limits"`
	ForbiddenBehaviors []string                        `json:"forbidden_behaviors"`
	TrustBehaviors     []string                        `json:"trust_behaviors"`
	DelegatedApprovers []string                        `json:"delegated_approvers,omitempty"`
	GovernanceProfile  GovernanceProfile                `json:"governance_profile,omitempty"`
	CreatedAt          time.Time                        `json:"created_at"`
	UpdatedAt          time.Time                        `json:"updated_at"`
}

// OverlayMode selects how a RoleOverlay combines with the base spec.
type OverlayMode string

const (
	OverlayRestrict OverlayMode = "restrict"
	OverlayExtend   OverlayMode = "extend"
)

// TimeWindow is a recurring activation window for an overlay.
type TimeWindow struct {
	DayOfWeek []time.Weekday `json:"day_of_week,omitempty"`
	StartHour int            `json:"start_hour"` // 0-23, inclusive
	EndHour   int            `json:"end_hour"`   // 0-23, exclusive
	Timezone  string         `json:"timezone"`   // IANA name; "" = UTC
}

// OverridePatch is the partial modification a RoleOverlay applies.
type OverridePatch struct {
	RiskTolerance               map[RiskCategory]ApprovalLevel `json:"risk_tolerance,omitempty"`
	AdditionalForbiddenBehaviors []string                      `json:"additional_forbidden_behaviors,omitempty"`
	RemoveTrustBehaviors         []string                      `json:"remove_trust_behaviors,omitempty"`
	SpendLimitDeltas             SpendLimits                   `json:"spend_limit_deltas,omitempty"`
}

// ActivationContext carries the runtime facts an overlay's activation
// conditions are evaluated against.
type ActivationContext struct {
	CartridgeID string
	Now         time.Time
	Metadata    map[string]interface{}
}

// RoleOverlay is a conditional modifier of an IdentitySpec.
type RoleOverlay struct {
	ID                  string        `json:"id"`
	TargetSpecID        string        `json:"target_spec_id"`
	Mode                OverlayMode   `json:"mode"`
	Priority            int           `json:"priority"` // lower = applied earlier
	Active              bool          `json:"active"`
	TimeWindows         []TimeWindow  `json:"time_windows,omitempty"`
	CartridgeFilter      []string     `json:"cartridge_filter,omitempty"`
	Predicate           func(ActivationContext) bool `json:"-"`
	Patch               OverridePatch `json:"patch"`
}

// CompetenceAdjustment is the per-(principal, action-type) runtime trust
// record maintained by pkg/competence.
type CompetenceAdjustment struct {
	PrincipalID  string  `json:"principal_id"`
	ActionType   string  `json:"action_type"`
	SuccessCount int     `json:"success_count"`
	FailureCount int     `json:"failure_count"`
	RollbackCount int    `json:"rollback_count"`
	CurrentStreak int    `json:"current_streak"`
	Score        float64 `json:"score"`
	ShouldTrust  bool    `json:"should_trust"`
	ShouldDeny   bool    `json:"should_deny"`
}

// ResolvedIdentity is the computed merge of an IdentitySpec, its active
// overlays, and competence adjustments. It is never persisted; it is
// recomputed per proposal by pkg/identity.
type ResolvedIdentity struct {
	PrincipalID                  string
	EffectiveRiskTolerance       map[RiskCategory]ApprovalLevel
	EffectiveSpendLimits         SpendLimits
	EffectiveForbiddenBehaviors  []string
	EffectiveTrustBehaviors      []string
	ActiveOverlays               []*RoleOverlay
	ActiveGovernanceProfile      GovernanceProfile
	DelegatedApprovers           []string
}
