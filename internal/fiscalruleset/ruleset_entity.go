package fiscalruleset

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RulesetSnapshot freezes the fiscal parameters that were in effect when a
// receipt version was computed. Rows are insert-only: one snapshot per
// (receipt, version), written in the same transaction as the version and
// never updated or deleted afterwards.
type RulesetSnapshot struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReceiptID uuid.UUID `gorm:"type:uuid;not null;index:idx_snapshot_receipt_version,unique"`
	Version   int       `gorm:"not null;index:idx_snapshot_receipt_version,unique"`

	// Payload holds the canonical serialization of the fiscal parameters.
	// ContentHash is the SHA-256 of that canonical form. jsonb does not
	// preserve written bytes, so verification decodes the payload and
	// re-canonicalizes before comparing digests.
	Payload     []byte `gorm:"type:jsonb;not null"`
	ContentHash string `gorm:"type:char(64);not null"`

	ComputedAt time.Time `gorm:"not null"`
}

func (RulesetSnapshot) TableName() string {
	return "ruleset_snapshots"
}

// FiscalParameters is the set of rule references a receipt calculation
// depends on: which tax table, which social-security rate table, and the
// inflation-indexed reference values (UMA, minimum wage) on the effective
// date.
type FiscalParameters struct {
	TaxTableID            string                     `json:"tax_table_id"`
	SocialSecurityTableID string                     `json:"social_security_table_id"`
	ReferenceValues       map[string]decimal.Decimal `json:"reference_values"`
	EffectiveDate         string                     `json:"effective_date"` // YYYY-MM-DD
}

// Integrity verification outcomes.
const (
	IntegrityVerified  = "VERIFIED"
	IntegrityCorrupted = "CORRUPTED"
)

type IntegrityResult struct {
	ReceiptID uuid.UUID
	Version   int
	Status    string
	Details   string
}
