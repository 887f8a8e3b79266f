package authorization

import "time"

type ActionRequest struct {
	Action         string  `json:"action" binding:"required,oneof=RECALCULATE AUTHORIZE_STAMPING CANCEL_CFDI RETRY_STAMPING REVOKE_AUTHORIZATION CLOSE_PERIOD"`
	TargetID       string  `json:"target_id" binding:"required,uuid"`
	RequestedBy    string  `json:"requested_by" binding:"required"`
	SecondApprover *string `json:"second_approver,omitempty"`
	Justification  string  `json:"justification" binding:"required"`
}

type ActionResponse struct {
	ID             string    `json:"id"`
	Action         string    `json:"action"`
	TargetID       string    `json:"target_id"`
	RequestedBy    string    `json:"requested_by"`
	SecondApprover *string   `json:"second_approver,omitempty"`
	Justification  string    `json:"justification"`
	Outcome        string    `json:"outcome"`
	DenyReason     *string   `json:"deny_reason,omitempty"`
	DecidedAt      time.Time `json:"decided_at"`
}

// IntegrityIssue surfaces one corrupted snapshot blocking a period's
// stamping eligibility.
type IntegrityIssue struct {
	ReceiptID string `json:"receipt_id"`
	Version   int    `json:"version"`
	Details   string `json:"details"`
}

type EligibilityResponse struct {
	PeriodID         string           `json:"period_id"`
	Eligible         bool             `json:"eligible"`
	Reason           string           `json:"reason,omitempty"`
	IntegrityResults []IntegrityIssue `json:"integrity_issues,omitempty"`
}

func mapActionResponse(r *CriticalActionRecord) ActionResponse {
	return ActionResponse{
		ID:             r.ID,
		Action:         r.Action,
		TargetID:       r.TargetID,
		RequestedBy:    r.RequestedBy,
		SecondApprover: r.SecondApprover,
		Justification:  r.Justification,
		Outcome:        r.Outcome,
		DenyReason:     r.DenyReason,
		DecidedAt:      r.DecidedAt,
	}
}
