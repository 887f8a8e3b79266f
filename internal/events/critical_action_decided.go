package events

import "time"

const CriticalActionDecidedTopic = "nomina.critical_action.decided.v1"

type CriticalActionDecidedEvent struct {
	EventType      string    `json:"event_type"`
	Action         string    `json:"action"`
	TargetID       string    `json:"target_id"`
	RequestedBy    string    `json:"requested_by"`
	SecondApprover *string   `json:"second_approver,omitempty"`
	Outcome        string    `json:"outcome"`
	OccurredAt     time.Time `json:"occurred_at"`
}
