package events

import "time"

const ReceiptVersionCreatedTopic = "nomina.receipt.version.created.v1"

type ReceiptVersionCreatedEvent struct {
	EventType     string    `json:"event_type"`
	ReceiptID     string    `json:"receipt_id"`
	PeriodID      string    `json:"period_id"`
	Version       int       `json:"version"`
	CreatedReason string    `json:"created_reason"`
	CreatedBy     string    `json:"created_by"`
	OccurredAt    time.Time `json:"occurred_at"`
}
