package fiscalruleset

import (
	"encoding/json"
	"time"
)

type SnapshotResponse struct {
	ReceiptID   string          `json:"receipt_id"`
	Version     int             `json:"version"`
	Payload     json.RawMessage `json:"payload"`
	ContentHash string          `json:"content_hash"`
	ComputedAt  string          `json:"computed_at"`
}

type IntegrityResponse struct {
	ReceiptID string `json:"receipt_id"`
	Version   int    `json:"version"`
	Status    string `json:"status"`
	Details   string `json:"details,omitempty"`
}

type SnapshotFieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
}

type SnapshotDiffResponse struct {
	ReceiptID string                `json:"receipt_id"`
	VersionA  int                   `json:"version_a"`
	VersionB  int                   `json:"version_b"`
	Changes   []SnapshotFieldChange `json:"changes"`
}

func mapToResponse(snapshot *RulesetSnapshot) SnapshotResponse {
	return SnapshotResponse{
		ReceiptID:   snapshot.ReceiptID.String(),
		Version:     snapshot.Version,
		Payload:     json.RawMessage(snapshot.Payload),
		ContentHash: snapshot.ContentHash,
		ComputedAt:  snapshot.ComputedAt.Format(time.RFC3339),
	}
}

func mapIntegrityResponse(result IntegrityResult) IntegrityResponse {
	return IntegrityResponse{
		ReceiptID: result.ReceiptID.String(),
		Version:   result.Version,
		Status:    result.Status,
		Details:   result.Details,
	}
}
