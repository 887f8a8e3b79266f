package receipt

// Receipt detail statuses.
const (
	StatusPending     = "PENDING"
	StatusCalculating = "CALCULATING"
	StatusCalculated  = "CALCULATED"
	StatusApproved    = "APPROVED"
	StatusStamping    = "STAMPING"
	StatusStampOK     = "STAMP_OK"
	StatusStampError  = "STAMP_ERROR"
	StatusPaid        = "PAID"
	StatusCancelled   = "CANCELLED"
	StatusSuperseded  = "SUPERSEDED"
)

// transitions is the authoritative lifecycle table. STAMP_ERROR → STAMPING
// and STAMP_OK → CANCELLED are legal here but only reachable through the
// authorization gate (RETRY_STAMPING, CANCEL_CFDI).
var transitions = map[string][]string{
	StatusPending:     {StatusCalculating, StatusCalculated, StatusCancelled, StatusSuperseded},
	StatusCalculating: {StatusCalculated, StatusSuperseded},
	StatusCalculated:  {StatusApproved, StatusCancelled, StatusSuperseded},
	StatusApproved:    {StatusStamping, StatusCancelled, StatusSuperseded},
	StatusStamping:    {StatusStampOK, StatusStampError, StatusSuperseded},
	StatusStampOK:     {StatusPaid, StatusCancelled, StatusSuperseded},
	StatusStampError:  {StatusStamping, StatusSuperseded},
	StatusPaid:        {},
	StatusCancelled:   {},
	StatusSuperseded:  {},
}

// CanTransition reports whether from → to is a legal lifecycle move.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a version in this status can never move again.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}

// Modifiable reports whether a receipt whose current version has this
// status may receive data changes: not yet stamped, not paid, not
// cancelled.
func Modifiable(status string) bool {
	switch status {
	case StatusPending, StatusCalculated, StatusApproved:
		return true
	}
	return false
}

func ValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}
