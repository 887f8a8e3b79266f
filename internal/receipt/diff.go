package receipt

import (
	"github.com/shopspring/decimal"
)

// Diff entry types.
const (
	DiffAdded    = "ADDED"
	DiffRemoved  = "REMOVED"
	DiffModified = "MODIFIED"
)

type LineItemDiff struct {
	Type        string           `json:"type"`
	ConceptCode string           `json:"concept_code"`
	ConceptName string           `json:"concept_name"`
	OldAmount   *decimal.Decimal `json:"old_amount,omitempty"`
	NewAmount   *decimal.Decimal `json:"new_amount,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

type VersionDiff struct {
	ReceiptID             string          `json:"receipt_id"`
	VersionA              int             `json:"version_a"`
	VersionB              int             `json:"version_b"`
	NetPayDifference      decimal.Decimal `json:"net_pay_difference"`
	PerceptionsDifference decimal.Decimal `json:"perceptions_difference"`
	DeductionsDifference  decimal.Decimal `json:"deductions_difference"`
	PerceptionsDiff       []LineItemDiff  `json:"perceptions_diff"`
	DeductionsDiff        []LineItemDiff  `json:"deductions_diff"`
}

// CompareVersions diffs B against A. B is always treated as "after" A,
// whatever the numeric version ordering; callers choose the direction.
// Numeric differences are B minus A.
func CompareVersions(a, b *PayrollReceiptVersion) VersionDiff {
	return VersionDiff{
		ReceiptID:             a.ReceiptID.String(),
		VersionA:              a.Version,
		VersionB:              b.Version,
		NetPayDifference:      b.NetPay.Sub(a.NetPay),
		PerceptionsDifference: b.TotalPerceptions.Sub(a.TotalPerceptions),
		DeductionsDifference:  b.TotalDeductions.Sub(a.TotalDeductions),
		PerceptionsDiff:       diffLineItems(a.LineItems, b.LineItems, KindPerception),
		DeductionsDiff:        diffLineItems(a.LineItems, b.LineItems, KindDeduction),
	}
}

type conceptEntry struct {
	name   string
	amount decimal.Decimal
}

// diffLineItems maps concept codes to amounts per side and classifies
// each code: only in B is ADDED, only in A is REMOVED, different amounts
// is MODIFIED. Equal amounts are omitted. Output order follows B's item
// order for ADDED/MODIFIED, then A's order for REMOVED, so renders stay
// stable.
func diffLineItems(itemsA, itemsB []ReceiptLineItem, kind string) []LineItemDiff {
	mapA := make(map[string]conceptEntry)
	for _, item := range itemsA {
		if item.Kind == kind {
			mapA[item.ConceptCode] = conceptEntry{name: item.ConceptName, amount: item.Amount}
		}
	}
	mapB := make(map[string]conceptEntry)
	for _, item := range itemsB {
		if item.Kind == kind {
			mapB[item.ConceptCode] = conceptEntry{name: item.ConceptName, amount: item.Amount}
		}
	}

	diffs := make([]LineItemDiff, 0)

	for _, item := range itemsB {
		if item.Kind != kind {
			continue
		}
		entryB := mapB[item.ConceptCode]
		entryA, inA := mapA[item.ConceptCode]
		if !inA {
			amount := entryB.amount
			diffs = append(diffs, LineItemDiff{
				Type:        DiffAdded,
				ConceptCode: item.ConceptCode,
				ConceptName: entryB.name,
				Amount:      &amount,
			})
			continue
		}
		if !entryA.amount.Equal(entryB.amount) {
			oldAmount := entryA.amount
			newAmount := entryB.amount
			diffs = append(diffs, LineItemDiff{
				Type:        DiffModified,
				ConceptCode: item.ConceptCode,
				ConceptName: entryB.name,
				OldAmount:   &oldAmount,
				NewAmount:   &newAmount,
			})
		}
	}

	for _, item := range itemsA {
		if item.Kind != kind {
			continue
		}
		if _, inB := mapB[item.ConceptCode]; !inB {
			entryA := mapA[item.ConceptCode]
			amount := entryA.amount
			diffs = append(diffs, LineItemDiff{
				Type:        DiffRemoved,
				ConceptCode: item.ConceptCode,
				ConceptName: entryA.name,
				Amount:      &amount,
			})
		}
	}

	return diffs
}
