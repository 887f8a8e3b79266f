package authorization

import (
	"time"
)

const (
	OutcomeApproved = "APPROVED"
	OutcomeDenied   = "DENIED"
)

// CriticalActionRecord is one decision in the append-only audit ledger.
// Rows are inserted exactly once and never updated or deleted; together
// with the version and snapshot history they form the compliance trail.
type CriticalActionRecord struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	Action         string    `gorm:"type:varchar(40);not null;index" json:"action"`
	TargetID       string    `gorm:"type:uuid;not null;index" json:"target_id"`
	RequestedBy    string    `gorm:"type:uuid;not null" json:"requested_by"`
	SecondApprover *string   `gorm:"type:uuid" json:"second_approver,omitempty"`
	Justification  string    `gorm:"type:text;not null" json:"justification"`
	Outcome        string    `gorm:"type:varchar(20);not null" json:"outcome"`
	DenyReason     *string   `gorm:"type:text" json:"deny_reason,omitempty"`
	RequestID      string    `gorm:"type:varchar(64)" json:"request_id"`
	DecidedAt      time.Time `gorm:"not null;index" json:"decided_at"`
}

func (CriticalActionRecord) TableName() string {
	return "critical_action_records"
}
