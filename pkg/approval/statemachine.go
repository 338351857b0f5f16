package approval

import (
	"time"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// IsExpired reports whether req has passed its expiry and is still pending.
func IsExpired(req *types.ApprovalRequest, now time.Time) bool {
	return req.Status == types.ApprovalPending && !now.Before(req.ExpiresAt)
}

// Approve transitions a pending request to approved. Callers must have
// already verified the binding hash and authorized respondedBy.
func Approve(req *types.ApprovalRequest, respondedBy string, now time.Time) error {
	if req.Status != types.ApprovalPending {
		return ErrNotPending
	}
	req.Status = types.ApprovalApproved
	req.RespondedBy = respondedBy
	req.RespondedAt = &now
	return nil
}

// Reject transitions a pending request to rejected.
func Reject(req *types.ApprovalRequest, respondedBy, reason string, now time.Time) error {
	if req.Status != types.ApprovalPending {
		return ErrNotPending
	}
	req.Status = types.ApprovalRejected
	req.RespondedBy = respondedBy
	req.RespondedAt = &now
	req.RejectionReason = reason
	return nil
}

// Patch transitions a pending request to patched, recording the fields that
// changed. The caller is responsible for re-evaluating the patched
// parameters and deciding the envelope's subsequent status.
func Patch(req *types.ApprovalRequest, respondedBy string, fields []types.PatchedField, now time.Time) error {
	if req.Status != types.ApprovalPending {
		return ErrNotPending
	}
	req.Status = types.ApprovalPatched
	req.RespondedBy = respondedBy
	req.RespondedAt = &now
	req.PatchedFields = fields
	return nil
}

// Expire transitions a pending request to expired.
func Expire(req *types.ApprovalRequest, now time.Time) error {
	if req.Status != types.ApprovalPending {
		return ErrNotPending
	}
	req.Status = types.ApprovalExpired
	req.RespondedAt = &now
	return nil
}
