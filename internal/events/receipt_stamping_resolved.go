package events

import "time"

const ReceiptStampingResolvedTopic = "nomina.receipt.stamping.resolved.v1"

type ReceiptStampingResolvedEvent struct {
	EventType  string    `json:"event_type"`
	ReceiptID  string    `json:"receipt_id"`
	Version    int       `json:"version"`
	Status     string    `json:"status"` // STAMP_OK or STAMP_ERROR
	StampUUID  *string   `json:"stamp_uuid,omitempty"`
	ErrorCode  *string   `json:"error_code,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
