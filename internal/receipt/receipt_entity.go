package receipt

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receipt is the aggregate root for one employee's pay computation in one
// period. CurrentVersion is an explicit pointer to the live version; it is
// updated only inside the same transaction that writes a new version and
// supersedes the old one.
type Receipt struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployeeID     uuid.UUID `gorm:"type:uuid;not null;index:idx_receipt_employee_period,unique"`
	PeriodID       uuid.UUID `gorm:"type:uuid;not null;index:idx_receipt_employee_period,unique"`
	CurrentVersion int       `gorm:"not null;default:0"` // 0 = no version yet

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Receipt) TableName() string {
	return "receipts"
}

// PayrollReceiptVersion is one immutable computation of a receipt. Amount
// columns are written once at insert; only Status (and the stamp outcome
// columns it implies) ever change afterwards.
type PayrollReceiptVersion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReceiptID uuid.UUID `gorm:"type:uuid;not null;index:idx_version_receipt,unique"`
	Version   int       `gorm:"not null;index:idx_version_receipt,unique"`

	NetPay           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalPerceptions decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalDeductions  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	WorkedDays       decimal.Decimal `gorm:"type:decimal(5,2);not null"`

	Status        string `gorm:"type:varchar(20);not null;index"`
	CreatedReason string `gorm:"type:varchar(20);not null"`

	// Set when the stamping provider returns, null otherwise.
	StampUUID      *string `gorm:"type:varchar(64)"`
	StampErrorCode *string `gorm:"type:varchar(40)"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"not null"`

	LineItems []ReceiptLineItem `gorm:"foreignKey:VersionRowID"`
}

func (PayrollReceiptVersion) TableName() string {
	return "receipt_versions"
}

// ReceiptLineItem is one perception or deduction concept inside a version.
// Position preserves the order the calculation engine emitted them in.
type ReceiptLineItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VersionRowID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position     int             `gorm:"not null"`
	ConceptCode  string          `gorm:"type:varchar(20);not null"`
	ConceptName  string          `gorm:"type:varchar(120);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Kind         string          `gorm:"type:varchar(12);not null"` // perception | deduction
}

func (ReceiptLineItem) TableName() string {
	return "receipt_line_items"
}

// Line item kinds.
const (
	KindPerception = "perception"
	KindDeduction  = "deduction"
)

// Version creation reasons.
const (
	ReasonInitial        = "INITIAL"
	ReasonRecalculation  = "RECALCULATION"
	ReasonCorrection     = "CORRECTION"
	ReasonIncidentUpdate = "INCIDENT_UPDATE"
	ReasonDataUpdate     = "DATA_UPDATE"
)

func ValidReason(reason string) bool {
	switch reason {
	case ReasonInitial, ReasonRecalculation, ReasonCorrection, ReasonIncidentUpdate, ReasonDataUpdate:
		return true
	}
	return false
}
