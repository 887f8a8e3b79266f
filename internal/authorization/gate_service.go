package authorization

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	actionerrors "nomina-core/internal/authorization/errors"
	"nomina-core/internal/events"
	"nomina-core/internal/fiscalruleset"
	"nomina-core/internal/messaging/kafka"
	"nomina-core/internal/period"
	"nomina-core/internal/shared/contextutil"
)

// StateMachine is the slice of the receipt lifecycle the gate drives after
// a critical action is approved.
type StateMachine interface {
	Recalculate(ctx context.Context, receiptID, actorID string) error
	RetryStamping(ctx context.Context, receiptID string) error
	CancelStamped(ctx context.Context, receiptID string) error
}

// PeriodControl is the slice of the period aggregate the gate drives.
type PeriodControl interface {
	AuthorizeStamping(ctx context.Context, periodID, actorID, justification string) error
	RevokeAuthorization(ctx context.Context, periodID, actorID, reason string) error
	ClosePeriod(ctx context.Context, periodID, actorID string) error
}

// Gate enforces the fixed critical-action policy table and appends every
// decision to the immutable ledger. It is the only entry point for the
// actions it names: nothing else may revoke authorizations, retry stamping
// or close periods.
type Gate interface {
	RequestAction(ctx context.Context, req ActionRequest) (ActionResponse, error)
	GetStampingEligibility(ctx context.Context, periodID string) (EligibilityResponse, error)
	GetActionLog(ctx context.Context, targetID string) ([]ActionResponse, error)

	// Bind attaches the executors the gate invokes on approval. Called
	// once at wiring time; breaks the construction cycle between the gate
	// and the services it drives.
	Bind(sm StateMachine, periods PeriodControl)
}

type gate struct {
	db       *sql.DB
	repo     Repository
	periods  period.Service
	rulesets fiscalruleset.Service
	outbox   kafka.OutboxRepository

	sm      StateMachine
	control PeriodControl
}

func NewGate(
	db *sql.DB,
	repo Repository,
	periods period.Service,
	rulesets fiscalruleset.Service,
	outbox kafka.OutboxRepository,
) Gate {
	return &gate{
		db:       db,
		repo:     repo,
		periods:  periods,
		rulesets: rulesets,
		outbox:   outbox,
	}
}

func (g *gate) Bind(sm StateMachine, periods PeriodControl) {
	g.sm = sm
	g.control = periods
}

func (g *gate) RequestAction(ctx context.Context, req ActionRequest) (ActionResponse, error) {
	policy, ok := LookupPolicy(req.Action)
	if !ok {
		return ActionResponse{}, actionerrors.ErrUnknownAction
	}
	if req.TargetID == "" {
		return ActionResponse{}, actionerrors.ErrInvalidTargetID
	}
	if req.RequestedBy == "" {
		return ActionResponse{}, actionerrors.ErrInvalidRequester
	}
	if policy.RequiresJustification && strings.TrimSpace(req.Justification) == "" {
		return ActionResponse{}, actionerrors.ErrJustificationRequired
	}

	if policy.RequiresDualControl {
		if req.SecondApprover == nil || *req.SecondApprover == "" {
			return ActionResponse{}, actionerrors.ErrSecondApproverRequired
		}
		if *req.SecondApprover == req.RequestedBy {
			record, err := g.appendDecision(ctx, req, OutcomeDenied, strPtr("second approver equals requester"))
			if err != nil {
				return ActionResponse{}, err
			}
			return mapActionResponse(record), actionerrors.ErrSelfApproval
		}
	}

	if err := g.execute(ctx, req); err != nil {
		reason := err.Error()
		if _, ledgerErr := g.appendDecision(ctx, req, OutcomeDenied, &reason); ledgerErr != nil {
			// A denial that never reached the ledger is an audit gap;
			// it must not disappear behind the executor's error.
			contextutil.GetLogger(ctx, zap.L()).Error("critical action denial not ledgered",
				zap.String("action", req.Action),
				zap.String("target_id", req.TargetID),
				zap.String("requested_by", req.RequestedBy),
				zap.Error(ledgerErr),
			)
			return ActionResponse{}, errors.Join(err, ledgerErr)
		}
		return ActionResponse{}, err
	}

	record, err := g.appendDecision(ctx, req, OutcomeApproved, nil)
	if err != nil {
		return ActionResponse{}, err
	}
	return mapActionResponse(record), nil
}

// execute dispatches the approved action to its bound executor. Executors
// run their own transactions and locking.
func (g *gate) execute(ctx context.Context, req ActionRequest) error {
	switch req.Action {
	case ActionRecalculate:
		if g.sm == nil {
			return actionerrors.ErrActionNotBound
		}
		return g.sm.Recalculate(ctx, req.TargetID, req.RequestedBy)
	case ActionRetryStamping:
		if g.sm == nil {
			return actionerrors.ErrActionNotBound
		}
		return g.sm.RetryStamping(ctx, req.TargetID)
	case ActionCancelCFDI:
		if g.sm == nil {
			return actionerrors.ErrActionNotBound
		}
		return g.sm.CancelStamped(ctx, req.TargetID)
	case ActionAuthorizeStamping:
		if g.control == nil {
			return actionerrors.ErrActionNotBound
		}
		return g.control.AuthorizeStamping(ctx, req.TargetID, req.RequestedBy, req.Justification)
	case ActionRevokeAuthorization:
		if g.control == nil {
			return actionerrors.ErrActionNotBound
		}
		return g.control.RevokeAuthorization(ctx, req.TargetID, req.RequestedBy, req.Justification)
	case ActionClosePeriod:
		if g.control == nil {
			return actionerrors.ErrActionNotBound
		}
		return g.control.ClosePeriod(ctx, req.TargetID, req.RequestedBy)
	default:
		return actionerrors.ErrUnknownAction
	}
}

// appendDecision writes the ledger row and its outbox event in one
// transaction so the audit trail and the published event cannot diverge.
func (g *gate) appendDecision(ctx context.Context, req ActionRequest, outcome string, denyReason *string) (*CriticalActionRecord, error) {
	record := &CriticalActionRecord{
		ID:             uuid.NewString(),
		Action:         req.Action,
		TargetID:       req.TargetID,
		RequestedBy:    req.RequestedBy,
		SecondApprover: req.SecondApprover,
		Justification:  req.Justification,
		Outcome:        outcome,
		DenyReason:     denyReason,
		RequestID:      contextutil.GetRequestID(ctx),
		DecidedAt:      time.Now().UTC(),
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := g.repo.WithTx(tx).Insert(ctx, record); err != nil {
		return nil, err
	}

	payload := events.CriticalActionDecidedEvent{
		EventType:      "critical_action.decided",
		Action:         record.Action,
		TargetID:       record.TargetID,
		RequestedBy:    record.RequestedBy,
		SecondApprover: record.SecondApprover,
		Outcome:        record.Outcome,
		OccurredAt:     record.DecidedAt,
	}
	event, err := kafka.NewEvent(ctx, kafka.AggregateCriticalAction, record.ID, payload.EventType, events.CriticalActionDecidedTopic, payload)
	if err != nil {
		return nil, err
	}
	if err := g.outbox.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("action", record.Action),
		zap.String("target_id", record.TargetID),
		zap.String("requested_by", record.RequestedBy),
		zap.String("outcome", record.Outcome),
	}
	if record.SecondApprover != nil {
		fields = append(fields, zap.String("second_approver", *record.SecondApprover))
	}
	if denyReason != nil {
		fields = append(fields, zap.String("deny_reason", *denyReason))
	}
	contextutil.GetLogger(ctx, zap.L()).Info("critical action decided", fields...)

	return record, nil
}

func (g *gate) GetStampingEligibility(ctx context.Context, periodID string) (EligibilityResponse, error) {
	auth, err := g.periods.ActiveAuthorization(ctx, periodID)
	if err != nil {
		return EligibilityResponse{}, err
	}
	if auth == nil {
		return EligibilityResponse{
			PeriodID: periodID,
			Eligible: false,
			Reason:   "no active stamping authorization",
		}, nil
	}

	intact, results, err := g.rulesets.PeriodIntact(ctx, periodID)
	if err != nil {
		return EligibilityResponse{}, err
	}
	if !intact {
		return EligibilityResponse{
			PeriodID:         periodID,
			Eligible:         false,
			Reason:           "one or more receipts fail integrity verification",
			IntegrityResults: corruptedOnly(results),
		}, nil
	}

	return EligibilityResponse{PeriodID: periodID, Eligible: true}, nil
}

func (g *gate) GetActionLog(ctx context.Context, targetID string) ([]ActionResponse, error) {
	if targetID == "" {
		return nil, actionerrors.ErrInvalidTargetID
	}

	records, err := g.repo.FindByTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	responses := make([]ActionResponse, 0, len(records))
	for i := range records {
		responses = append(responses, mapActionResponse(&records[i]))
	}
	return responses, nil
}

func corruptedOnly(results []fiscalruleset.IntegrityResult) []IntegrityIssue {
	var issues []IntegrityIssue
	for _, r := range results {
		if r.Status == fiscalruleset.IntegrityCorrupted {
			issues = append(issues, IntegrityIssue{
				ReceiptID: r.ReceiptID.String(),
				Version:   r.Version,
				Details:   r.Details,
			})
		}
	}
	return issues
}

func strPtr(s string) *string {
	return &s
}
