package identity

import (
	"sort"
	"time"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// FilterActiveOverlays returns the overlays from candidates that are active,
// whose time windows (if any) contain ctx.Now, and whose cartridge filter
// (if any) includes ctx.CartridgeID, sorted by ascending priority.
func FilterActiveOverlays(candidates []*types.RoleOverlay, ctx types.ActivationContext) []*types.RoleOverlay {
	var active []*types.RoleOverlay
	for _, o := range candidates {
		if !o.Active {
			continue
		}
		if len(o.TimeWindows) > 0 && !anyWindowContains(o.TimeWindows, ctx.Now) {
			continue
		}
		if len(o.CartridgeFilter) > 0 && !contains(o.CartridgeFilter, ctx.CartridgeID) {
			continue
		}
		if o.Predicate != nil && !o.Predicate(ctx) {
			continue
		}
		active = append(active, o)
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority < active[j].Priority
	})
	return active
}

func anyWindowContains(windows []types.TimeWindow, now time.Time) bool {
	for _, w := range windows {
		if windowContains(w, now) {
			return true
		}
	}
	return false
}

func windowContains(w types.TimeWindow, now time.Time) bool {
	loc := time.UTC
	if w.Timezone != "" {
		if l, err := time.LoadLocation(w.Timezone); err == nil {
			loc = l
		}
	}
	local := now.In(loc)

	if len(w.DayOfWeek) > 0 && !containsWeekday(w.DayOfWeek, local.Weekday()) {
		return false
	}
	hour := local.Hour()
	return hour >= w.StartHour && hour < w.EndHour
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, x := range days {
		if x == d {
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

// MergeOverlay folds one overlay's patch into the accumulating effective
// state, in the overlay's own mode.
func MergeOverlay(state *types.ResolvedIdentity, overlay *types.RoleOverlay) {
	switch overlay.Mode {
	case types.OverlayRestrict:
		for cat, level := range overlay.Patch.RiskTolerance {
			state.EffectiveRiskTolerance[cat] = types.MaxApprovalLevel(state.EffectiveRiskTolerance[cat], level)
		}
		state.EffectiveSpendLimits = mergeSpendLimits(state.EffectiveSpendLimits, overlay.Patch.SpendLimitDeltas, true)
	case types.OverlayExtend:
		for cat, level := range overlay.Patch.RiskTolerance {
			state.EffectiveRiskTolerance[cat] = types.MinApprovalLevel(state.EffectiveRiskTolerance[cat], level)
		}
		state.EffectiveSpendLimits = mergeSpendLimits(state.EffectiveSpendLimits, overlay.Patch.SpendLimitDeltas, false)
	}

	for _, fb := range overlay.Patch.AdditionalForbiddenBehaviors {
		if !contains(state.EffectiveForbiddenBehaviors, fb) {
			state.EffectiveForbiddenBehaviors = append(state.EffectiveForbiddenBehaviors, fb)
		}
	}
	if len(overlay.Patch.RemoveTrustBehaviors) > 0 {
		state.EffectiveTrustBehaviors = removeAll(state.EffectiveTrustBehaviors, overlay.Patch.RemoveTrustBehaviors)
	}

	state.ActiveOverlays = append(state.ActiveOverlays, overlay)
}

// mergeSpendLimits combines a base limit with a delta. In restrict mode the
// stricter (smaller non-nil) bound wins; in extend mode the larger (or
// nil-if-either-is-nil) bound wins.
func mergeSpendLimits(base, delta types.SpendLimits, restrict bool) types.SpendLimits {
	pick := func(a, b *float64) *float64 {
		if restrict {
			if a == nil {
				return b
			}
			if b == nil {
				return a
			}
			if *a < *b {
				return a
			}
			return b
		}
		if a == nil || b == nil {
			return nil
		}
		if *a > *b {
			return a
		}
		return b
	}
	return types.SpendLimits{
		PerAction: pick(base.PerAction, delta.PerAction),
		Daily:     pick(base.Daily, delta.Daily),
		Weekly:    pick(base.Weekly, delta.Weekly),
		Monthly:   pick(base.Monthly, delta.Monthly),
	}
}

func removeAll(from []string, remove []string) []string {
	var out []string
	for _, f := range from {
		if !contains(remove, f) {
			out = append(out, f)
		}
	}
	return out
}
