package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"nomina-core/internal/fiscalruleset"
)

type LineItemRequest struct {
	ConceptCode string          `json:"concept_code" binding:"required"`
	ConceptName string          `json:"concept_name" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind" binding:"required,oneof=perception deduction"`
}

type CreateVersionRequest struct {
	Reason string `json:"reason" binding:"required,oneof=INITIAL RECALCULATION CORRECTION INCIDENT_UPDATE DATA_UPDATE"`
	// Synchronous marks the calculation as already confirmed, so the new
	// version starts CALCULATED instead of PENDING.
	Synchronous      bool                           `json:"synchronous"`
	NetPay           decimal.Decimal                `json:"net_pay"`
	TotalPerceptions decimal.Decimal                `json:"total_perceptions"`
	TotalDeductions  decimal.Decimal                `json:"total_deductions"`
	WorkedDays       decimal.Decimal                `json:"worked_days"`
	LineItems        []LineItemRequest              `json:"line_items"`
	FiscalParameters fiscalruleset.FiscalParameters `json:"fiscal_parameters" binding:"required"`
}

type CalculateRequest struct {
	Reason string `json:"reason" binding:"required,oneof=INITIAL RECALCULATION CORRECTION INCIDENT_UPDATE DATA_UPDATE"`
}

type LineItemResponse struct {
	ConceptCode string          `json:"concept_code"`
	ConceptName string          `json:"concept_name"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind"`
}

type VersionResponse struct {
	ReceiptID        string             `json:"receipt_id"`
	Version          int                `json:"version"`
	NetPay           decimal.Decimal    `json:"net_pay"`
	TotalPerceptions decimal.Decimal    `json:"total_perceptions"`
	TotalDeductions  decimal.Decimal    `json:"total_deductions"`
	WorkedDays       decimal.Decimal    `json:"worked_days"`
	Status           string             `json:"status"`
	CreatedReason    string             `json:"created_reason"`
	StampUUID        *string            `json:"stamp_uuid,omitempty"`
	StampErrorCode   *string            `json:"stamp_error_code,omitempty"`
	CreatedBy        string             `json:"created_by"`
	CreatedAt        string             `json:"created_at"`
	LineItems        []LineItemResponse `json:"line_items"`
}

type CanModifyResponse struct {
	ReceiptID string `json:"receipt_id"`
	CanModify bool   `json:"can_modify"`
}

func mapVersionResponse(v *PayrollReceiptVersion) VersionResponse {
	items := make([]LineItemResponse, len(v.LineItems))
	for i, item := range v.LineItems {
		items[i] = LineItemResponse{
			ConceptCode: item.ConceptCode,
			ConceptName: item.ConceptName,
			Amount:      item.Amount,
			Kind:        item.Kind,
		}
	}

	return VersionResponse{
		ReceiptID:        v.ReceiptID.String(),
		Version:          v.Version,
		NetPay:           v.NetPay,
		TotalPerceptions: v.TotalPerceptions,
		TotalDeductions:  v.TotalDeductions,
		WorkedDays:       v.WorkedDays,
		Status:           v.Status,
		CreatedReason:    v.CreatedReason,
		StampUUID:        v.StampUUID,
		StampErrorCode:   v.StampErrorCode,
		CreatedBy:        v.CreatedBy.String(),
		CreatedAt:        v.CreatedAt.Format(time.RFC3339),
		LineItems:        items,
	}
}
