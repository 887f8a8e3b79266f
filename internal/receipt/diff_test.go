package receipt_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"nomina-core/internal/receipt"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func version(receiptID uuid.UUID, number int, netPay, perceptions, deductions string, items []receipt.ReceiptLineItem) *receipt.PayrollReceiptVersion {
	return &receipt.PayrollReceiptVersion{
		ID:               uuid.New(),
		ReceiptID:        receiptID,
		Version:          number,
		NetPay:           dec(netPay),
		TotalPerceptions: dec(perceptions),
		TotalDeductions:  dec(deductions),
		LineItems:        items,
	}
}

func item(code, name, amount, kind string) receipt.ReceiptLineItem {
	return receipt.ReceiptLineItem{ConceptCode: code, ConceptName: name, Amount: dec(amount), Kind: kind}
}

func TestCompareVersions_Classification(t *testing.T) {
	receiptID := uuid.New()

	a := version(receiptID, 1, "1000.00", "1200.00", "200.00", []receipt.ReceiptLineItem{
		item("P001", "Sueldo", "1100.00", receipt.KindPerception),
		item("P002", "Prima dominical", "100.00", receipt.KindPerception),
		item("D001", "ISR", "150.00", receipt.KindDeduction),
		item("D002", "IMSS", "50.00", receipt.KindDeduction),
	})
	b := version(receiptID, 2, "950.00", "1180.00", "230.00", []receipt.ReceiptLineItem{
		item("P001", "Sueldo", "1100.00", receipt.KindPerception),
		item("P003", "Bono puntualidad", "80.00", receipt.KindPerception),
		item("D001", "ISR", "180.00", receipt.KindDeduction),
		item("D002", "IMSS", "50.00", receipt.KindDeduction),
	})

	diff := receipt.CompareVersions(a, b)

	assert.Equal(t, receiptID.String(), diff.ReceiptID)
	assert.Equal(t, 1, diff.VersionA)
	assert.Equal(t, 2, diff.VersionB)
	assert.True(t, diff.NetPayDifference.Equal(dec("-50.00")))
	assert.True(t, diff.PerceptionsDifference.Equal(dec("-20.00")))
	assert.True(t, diff.DeductionsDifference.Equal(dec("30.00")))

	// P001 unchanged, P002 removed, P003 added.
	assert.Len(t, diff.PerceptionsDiff, 2)
	assert.Equal(t, receipt.DiffAdded, diff.PerceptionsDiff[0].Type)
	assert.Equal(t, "P003", diff.PerceptionsDiff[0].ConceptCode)
	assert.True(t, diff.PerceptionsDiff[0].Amount.Equal(dec("80.00")))
	assert.Equal(t, receipt.DiffRemoved, diff.PerceptionsDiff[1].Type)
	assert.Equal(t, "P002", diff.PerceptionsDiff[1].ConceptCode)

	// D001 modified, D002 unchanged and therefore omitted.
	assert.Len(t, diff.DeductionsDiff, 1)
	assert.Equal(t, receipt.DiffModified, diff.DeductionsDiff[0].Type)
	assert.Equal(t, "D001", diff.DeductionsDiff[0].ConceptCode)
	assert.True(t, diff.DeductionsDiff[0].OldAmount.Equal(dec("150.00")))
	assert.True(t, diff.DeductionsDiff[0].NewAmount.Equal(dec("180.00")))
}

func TestCompareVersions_AntiSymmetry(t *testing.T) {
	receiptID := uuid.New()

	a := version(receiptID, 1, "1000.00", "1200.00", "200.00", []receipt.ReceiptLineItem{
		item("P001", "Sueldo", "1200.00", receipt.KindPerception),
		item("D001", "ISR", "200.00", receipt.KindDeduction),
	})
	b := version(receiptID, 2, "950.00", "1200.00", "250.00", []receipt.ReceiptLineItem{
		item("P001", "Sueldo", "1200.00", receipt.KindPerception),
		item("D001", "ISR", "200.00", receipt.KindDeduction),
		item("D003", "Fonacot", "50.00", receipt.KindDeduction),
	})

	forward := receipt.CompareVersions(a, b)
	backward := receipt.CompareVersions(b, a)

	assert.True(t, forward.NetPayDifference.Equal(backward.NetPayDifference.Neg()))
	assert.True(t, forward.DeductionsDifference.Equal(backward.DeductionsDifference.Neg()))

	assert.Len(t, forward.DeductionsDiff, 1)
	assert.Len(t, backward.DeductionsDiff, 1)
	assert.Equal(t, receipt.DiffAdded, forward.DeductionsDiff[0].Type)
	assert.Equal(t, receipt.DiffRemoved, backward.DeductionsDiff[0].Type)
	assert.Equal(t, "D003", backward.DeductionsDiff[0].ConceptCode)
}

func TestCompareVersions_IdenticalVersionsYieldEmptyDiff(t *testing.T) {
	receiptID := uuid.New()
	items := []receipt.ReceiptLineItem{
		item("P001", "Sueldo", "1000.00", receipt.KindPerception),
		item("D001", "ISR", "100.00", receipt.KindDeduction),
	}

	a := version(receiptID, 1, "900.00", "1000.00", "100.00", items)
	b := version(receiptID, 2, "900.00", "1000.00", "100.00", items)

	diff := receipt.CompareVersions(a, b)

	assert.True(t, diff.NetPayDifference.IsZero())
	assert.Empty(t, diff.PerceptionsDiff)
	assert.Empty(t, diff.DeductionsDiff)
}
