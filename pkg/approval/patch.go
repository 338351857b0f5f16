package approval

import "github.com/Mindburn-Labs/actiongov/pkg/types"

// ApplyPatch returns a new parameter map with patch's keys shallow-overriding
// original's. original is never mutated.
func ApplyPatch(original, patch map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(original)+len(patch))
	for k, v := range original {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// DiffPatchedFields reports, for every key present in patch, the before/after
// values — used to populate ApprovalRequest.PatchedFields for audit.
func DiffPatchedFields(original, patch map[string]interface{}) []types.PatchedField {
	var fields []types.PatchedField
	for k, newVal := range patch {
		fields = append(fields, types.PatchedField{
			Path:     k,
			OldValue: original[k],
			NewValue: newVal,
		})
	}
	return fields
}
