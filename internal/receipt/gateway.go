package receipt

import (
	"context"

	"github.com/shopspring/decimal"

	"nomina-core/internal/fiscalruleset"
)

// ComputedReceipt is what the external tax-calculation engine returns for
// one employee/period pair, together with the fiscal parameters it used.
type ComputedReceipt struct {
	NetPay           decimal.Decimal
	TotalPerceptions decimal.Decimal
	TotalDeductions  decimal.Decimal
	WorkedDays       decimal.Decimal
	LineItems        []ComputedLineItem
	FiscalParameters fiscalruleset.FiscalParameters
}

type ComputedLineItem struct {
	ConceptCode string
	ConceptName string
	Amount      decimal.Decimal
	Kind        string
}

// Calculator is the external tax-calculation engine. Computing amounts is
// explicitly not this service's job; it only records what the engine
// produced.
type Calculator interface {
	ComputeReceipt(ctx context.Context, employeeID, periodID string) (ComputedReceipt, error)
}

// StampResult is the stamping provider's answer for a receipt version.
type StampResult struct {
	UUID string
	XML  []byte
}

// StampError carries the provider's error code so STAMP_ERROR rows keep
// enough detail for a retry decision.
type StampError struct {
	Code    string
	Message string
}

func (e *StampError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "stamping failed with code " + e.Code
}

// Stamper is the external stamping-provider client. Only invoked while the
// version is in STAMPING and the period's eligibility holds.
type Stamper interface {
	Stamp(ctx context.Context, receiptID string, version int) (StampResult, error)
}
