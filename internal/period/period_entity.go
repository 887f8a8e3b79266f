package period

import (
	"time"
)

const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Period is the payroll period aggregate. Receipts reference it by ID and
// become immutable once the period closes.
type Period struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID string     `gorm:"type:uuid;not null;index" json:"company_id"`
	Name      string     `gorm:"type:varchar(100);not null" json:"name"`
	Status    string     `gorm:"type:varchar(20);not null;default:'OPEN'" json:"status"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	ClosedBy  *string    `gorm:"type:uuid" json:"closed_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Period) TableName() string {
	return "payroll_periods"
}

// StampingAuthorization permits the receipts of one period to enter stamping.
// At most one non-revoked row exists per period, enforced by a partial unique
// index on (period_id) WHERE revoked_at IS NULL. Rows are created and revoked
// only through the authorization gate.
type StampingAuthorization struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	PeriodID      string     `gorm:"type:uuid;not null;index" json:"period_id"`
	AuthorizedBy  string     `gorm:"type:uuid;not null" json:"authorized_by"`
	Justification string     `gorm:"type:text;not null" json:"justification"`
	AuthorizedAt  time.Time  `gorm:"not null" json:"authorized_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedBy     *string    `gorm:"type:uuid" json:"revoked_by,omitempty"`
	RevokeReason  *string    `gorm:"type:text" json:"revoke_reason,omitempty"`
}

func (StampingAuthorization) TableName() string {
	return "stamping_authorizations"
}

func (a StampingAuthorization) Active() bool {
	return a.RevokedAt == nil
}
