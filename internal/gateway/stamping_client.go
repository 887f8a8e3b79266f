package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nomina-core/internal/receipt"
	"nomina-core/internal/shared/contextutil"
)

// StampingClient talks to the external stamping provider. Provider errors
// come back as receipt.StampError so the state machine can record the code
// on the STAMP_ERROR row.
type StampingClient struct {
	baseURL string
	client  *http.Client
}

func NewStampingClient(baseURL string, timeout time.Duration) *StampingClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StampingClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type stampRequest struct {
	ReceiptID string `json:"receipt_id"`
	Version   int    `json:"version"`
}

type stampResponse struct {
	UUID  string `json:"uuid"`
	XML   string `json:"xml"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *StampingClient) Stamp(ctx context.Context, receiptID string, version int) (receipt.StampResult, error) {
	body, err := json.Marshal(stampRequest{ReceiptID: receiptID, Version: version})
	if err != nil {
		return receipt.StampResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stamp", bytes.NewReader(body))
	if err != nil {
		return receipt.StampResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", contextutil.GetRequestID(ctx))

	resp, err := c.client.Do(req)
	if err != nil {
		return receipt.StampResult{}, fmt.Errorf("stamping provider: %w", err)
	}
	defer resp.Body.Close()

	var out stampResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return receipt.StampResult{}, fmt.Errorf("stamping provider: decode response: %w", err)
	}

	if out.Error != nil {
		return receipt.StampResult{}, &receipt.StampError{Code: out.Error.Code, Message: out.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return receipt.StampResult{}, fmt.Errorf("stamping provider returned %d", resp.StatusCode)
	}

	return receipt.StampResult{UUID: out.UUID, XML: []byte(out.XML)}, nil
}
