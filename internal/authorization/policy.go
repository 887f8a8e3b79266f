package authorization

// Critical actions gated by the dual-control policy.
const (
	ActionRecalculate         = "RECALCULATE"
	ActionAuthorizeStamping   = "AUTHORIZE_STAMPING"
	ActionCancelCFDI          = "CANCEL_CFDI"
	ActionRetryStamping       = "RETRY_STAMPING"
	ActionRevokeAuthorization = "REVOKE_AUTHORIZATION"
	ActionClosePeriod         = "CLOSE_PERIOD"
)

// Policy declares what a critical action demands before it may run. Every
// action requires a justification; only some require a second approver.
type Policy struct {
	RequiresJustification bool
	RequiresDualControl   bool
}

var policyTable = map[string]Policy{
	ActionRecalculate:         {RequiresJustification: true, RequiresDualControl: true},
	ActionAuthorizeStamping:   {RequiresJustification: true, RequiresDualControl: false},
	ActionCancelCFDI:          {RequiresJustification: true, RequiresDualControl: true},
	ActionRetryStamping:       {RequiresJustification: true, RequiresDualControl: false},
	ActionRevokeAuthorization: {RequiresJustification: true, RequiresDualControl: true},
	ActionClosePeriod:         {RequiresJustification: true, RequiresDualControl: false},
}

// LookupPolicy returns the policy for an action and whether the action is
// known at all.
func LookupPolicy(action string) (Policy, bool) {
	p, ok := policyTable[action]
	return p, ok
}
