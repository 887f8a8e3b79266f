package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"nomina-core/internal/fiscalruleset"
	"nomina-core/internal/receipt"
	"nomina-core/internal/shared/contextutil"
)

// CalculationClient talks to the external tax-calculation engine over HTTP.
// The engine owns all tax math; this client only relays its results.
type CalculationClient struct {
	baseURL string
	client  *http.Client
}

func NewCalculationClient(baseURL string, timeout time.Duration) *CalculationClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CalculationClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type computeRequest struct {
	EmployeeID string `json:"employee_id"`
	PeriodID   string `json:"period_id"`
}

type computeResponse struct {
	NetPay           decimal.Decimal `json:"net_pay"`
	TotalPerceptions decimal.Decimal `json:"total_perceptions"`
	TotalDeductions  decimal.Decimal `json:"total_deductions"`
	WorkedDays       decimal.Decimal `json:"worked_days"`
	LineItems        []struct {
		ConceptCode string          `json:"concept_code"`
		ConceptName string          `json:"concept_name"`
		Amount      decimal.Decimal `json:"amount"`
		Kind        string          `json:"kind"`
	} `json:"line_items"`
	FiscalParameters fiscalruleset.FiscalParameters `json:"fiscal_parameters"`
}

func (c *CalculationClient) ComputeReceipt(ctx context.Context, employeeID, periodID string) (receipt.ComputedReceipt, error) {
	body, err := json.Marshal(computeRequest{EmployeeID: employeeID, PeriodID: periodID})
	if err != nil {
		return receipt.ComputedReceipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/compute", bytes.NewReader(body))
	if err != nil {
		return receipt.ComputedReceipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", contextutil.GetRequestID(ctx))

	resp, err := c.client.Do(req)
	if err != nil {
		return receipt.ComputedReceipt{}, fmt.Errorf("calculation engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return receipt.ComputedReceipt{}, fmt.Errorf("calculation engine returned %d", resp.StatusCode)
	}

	var out computeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return receipt.ComputedReceipt{}, fmt.Errorf("calculation engine: decode response: %w", err)
	}

	computed := receipt.ComputedReceipt{
		NetPay:           out.NetPay,
		TotalPerceptions: out.TotalPerceptions,
		TotalDeductions:  out.TotalDeductions,
		WorkedDays:       out.WorkedDays,
		FiscalParameters: out.FiscalParameters,
	}
	for _, item := range out.LineItems {
		computed.LineItems = append(computed.LineItems, receipt.ComputedLineItem{
			ConceptCode: item.ConceptCode,
			ConceptName: item.ConceptName,
			Amount:      item.Amount,
			Kind:        item.Kind,
		})
	}
	return computed, nil
}
