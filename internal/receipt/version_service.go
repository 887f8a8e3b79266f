package receipt

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nomina-core/internal/events"
	"nomina-core/internal/fiscalruleset"
	"nomina-core/internal/messaging/kafka"
	receipterrors "nomina-core/internal/receipt/errors"
	"nomina-core/internal/shared/contextutil"
)

type Service interface {
	// CreateVersion appends an immutable version computed by the external
	// engine, snapshots the fiscal parameters it used, supersedes the
	// previous current version, and advances the current-version pointer.
	// All of it in one transaction under the receipt's row lock.
	CreateVersion(ctx context.Context, receiptID, actorID string, req CreateVersionRequest) (VersionResponse, error)
	// Calculate invokes the tax-calculation engine synchronously and
	// records the result as a new CALCULATED version.
	Calculate(ctx context.Context, receiptID, actorID, reason string) (VersionResponse, error)

	GetVersions(ctx context.Context, receiptID string) ([]VersionResponse, error)
	GetVersion(ctx context.Context, receiptID string, version int) (VersionResponse, error)
	CanModify(ctx context.Context, receiptID string) (bool, error)
	Compare(ctx context.Context, receiptID string, versionA, versionB int) (VersionDiff, error)

	MarkCalculating(ctx context.Context, receiptID string) (VersionResponse, error)
	ConfirmCalculated(ctx context.Context, receiptID string) (VersionResponse, error)
	Approve(ctx context.Context, receiptID string) (VersionResponse, error)
	BeginStamping(ctx context.Context, receiptID string) (VersionResponse, error)
	Stamp(ctx context.Context, receiptID string) (VersionResponse, error)
	MarkPaid(ctx context.Context, receiptID string) (VersionResponse, error)
	Cancel(ctx context.Context, receiptID string) (VersionResponse, error)

	// Gate-only operations. Reachable exclusively through the dual-control
	// authorization gate; the HTTP layer never routes here directly.
	Recalculate(ctx context.Context, receiptID, actorID string) error
	RetryStamping(ctx context.Context, receiptID string) error
	CancelStamped(ctx context.Context, receiptID string) error
}

type service struct {
	db          *sql.DB
	repo        Repository
	rulesets    fiscalruleset.Service
	outbox      kafka.OutboxRepository
	calculator  Calculator
	stamper     Stamper
	lockTimeout time.Duration
}

func NewService(
	db *sql.DB,
	repo Repository,
	rulesets fiscalruleset.Service,
	outbox kafka.OutboxRepository,
	calculator Calculator,
	stamper Stamper,
	lockTimeout time.Duration,
) Service {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &service{
		db:          db,
		repo:        repo,
		rulesets:    rulesets,
		outbox:      outbox,
		calculator:  calculator,
		stamper:     stamper,
		lockTimeout: lockTimeout,
	}
}

func (s *service) CreateVersion(
	ctx context.Context,
	receiptID, actorID string,
	req CreateVersionRequest,
) (VersionResponse, error) {
	computed, err := validateCreateRequest(req)
	if err != nil {
		return VersionResponse{}, err
	}

	initialStatus := StatusPending
	if req.Synchronous {
		initialStatus = StatusCalculated
	}

	version, err := s.appendVersion(ctx, receiptID, actorID, req.Reason, initialStatus, computed, false)
	if err != nil {
		return VersionResponse{}, err
	}
	return mapVersionResponse(version), nil
}

func (s *service) Calculate(ctx context.Context, receiptID, actorID, reason string) (VersionResponse, error) {
	if !ValidReason(reason) {
		return VersionResponse{}, receipterrors.ErrInvalidReason
	}

	rec, err := s.repo.FindReceipt(ctx, receiptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VersionResponse{}, receipterrors.ErrReceiptNotFound
		}
		return VersionResponse{}, err
	}

	computed, err := s.calculator.ComputeReceipt(ctx, rec.EmployeeID.String(), rec.PeriodID.String())
	if err != nil {
		return VersionResponse{}, err
	}

	version, err := s.appendVersion(ctx, receiptID, actorID, reason, StatusCalculated, computed, false)
	if err != nil {
		return VersionResponse{}, err
	}
	return mapVersionResponse(version), nil
}

// Recalculate is the critical-action override: the gate has already
// verified dual control, so the PAID / closed-period guard is bypassed.
func (s *service) Recalculate(ctx context.Context, receiptID, actorID string) error {
	rec, err := s.repo.FindReceipt(ctx, receiptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return receipterrors.ErrReceiptNotFound
		}
		return err
	}

	computed, err := s.calculator.ComputeReceipt(ctx, rec.EmployeeID.String(), rec.PeriodID.String())
	if err != nil {
		return err
	}

	_, err = s.appendVersion(ctx, receiptID, actorID, ReasonRecalculation, StatusCalculated, computed, true)
	return err
}

// appendVersion is the single write path for new versions. The receipt row
// lock is held from the first read to the commit, so version numbers can
// never be allocated twice and the superseded predecessor is always the
// real current version.
func (s *service) appendVersion(
	ctx context.Context,
	receiptID, actorID, reason, initialStatus string,
	computed ComputedReceipt,
	override bool,
) (*PayrollReceiptVersion, error) {
	if _, err := uuid.Parse(receiptID); err != nil {
		return nil, receipterrors.ErrInvalidReceiptID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return nil, receipterrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if err := qtx.SetLockTimeout(ctx, s.lockTimeout); err != nil {
		return nil, err
	}

	rec, err := qtx.LockReceipt(ctx, receiptID)
	if err != nil {
		return nil, mapLockError(err)
	}

	if !override {
		closed, err := qtx.PeriodClosed(ctx, rec.PeriodID.String())
		if err != nil {
			return nil, err
		}
		if closed {
			return nil, receipterrors.ErrPeriodClosed
		}
	}

	var predecessor string
	if rec.CurrentVersion > 0 {
		predecessor, err = qtx.VersionStatus(ctx, receiptID, rec.CurrentVersion)
		if err != nil {
			return nil, err
		}
		if predecessor == StatusPaid && !override {
			return nil, receipterrors.ErrReceiptPaid
		}
	}

	// Never reuse a number, even after rolled-back attempts.
	highest, err := qtx.MaxVersion(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	next := highest + 1

	version := &PayrollReceiptVersion{
		ID:               uuid.New(),
		ReceiptID:        rec.ID,
		Version:          next,
		NetPay:           computed.NetPay,
		TotalPerceptions: computed.TotalPerceptions,
		TotalDeductions:  computed.TotalDeductions,
		WorkedDays:       computed.WorkedDays,
		Status:           initialStatus,
		CreatedReason:    reason,
		CreatedBy:        actorUUID,
		CreatedAt:        time.Now().UTC(),
		LineItems:        buildLineItems(computed.LineItems),
	}

	if err := qtx.InsertVersion(ctx, version); err != nil {
		if isPgCode(err, "23505") {
			return nil, receipterrors.ErrConcurrentModification
		}
		return nil, mapLockError(err)
	}

	// Version and snapshot are one logical unit: a version without its
	// snapshot is unauditable.
	if _, err := s.rulesets.CaptureSnapshot(ctx, tx, receiptID, next, computed.FiscalParameters); err != nil {
		return nil, err
	}

	if rec.CurrentVersion > 0 && !IsTerminal(predecessor) {
		if err := qtx.UpdateVersionStatus(ctx, receiptID, rec.CurrentVersion, predecessor, StatusSuperseded); err != nil {
			if errors.Is(err, ErrStatusChanged) {
				return nil, receipterrors.ErrConcurrentModification
			}
			return nil, err
		}
	}

	if err := qtx.SetCurrentVersion(ctx, receiptID, next); err != nil {
		return nil, err
	}

	event, err := kafka.NewEvent(
		ctx,
		kafka.AggregateReceiptVersion,
		rec.ID.String(),
		"receipt_version_created",
		events.ReceiptVersionCreatedTopic,
		events.ReceiptVersionCreatedEvent{
			EventType:     "receipt_version_created",
			ReceiptID:     rec.ID.String(),
			PeriodID:      rec.PeriodID.String(),
			Version:       next,
			CreatedReason: reason,
			CreatedBy:     actorID,
			OccurredAt:    time.Now().UTC(),
		},
	)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	contextutil.GetLogger(ctx, zap.L()).Info("receipt version created",
		zap.String("receipt_id", rec.ID.String()),
		zap.Int("version", next),
		zap.String("reason", reason),
	)

	return version, nil
}

func (s *service) GetVersions(ctx context.Context, receiptID string) ([]VersionResponse, error) {
	if _, err := uuid.Parse(receiptID); err != nil {
		return nil, receipterrors.ErrInvalidReceiptID
	}

	versions, err := s.repo.FindVersions(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	resp := make([]VersionResponse, len(versions))
	for i := range versions {
		resp[i] = mapVersionResponse(&versions[i])
	}
	return resp, nil
}

func (s *service) GetVersion(ctx context.Context, receiptID string, version int) (VersionResponse, error) {
	if _, err := uuid.Parse(receiptID); err != nil {
		return VersionResponse{}, receipterrors.ErrInvalidReceiptID
	}
	if version < 1 {
		return VersionResponse{}, receipterrors.ErrInvalidVersion
	}

	v, err := s.repo.FindVersion(ctx, receiptID, version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VersionResponse{}, receipterrors.ErrVersionNotFound
		}
		return VersionResponse{}, err
	}
	return mapVersionResponse(v), nil
}

func (s *service) CanModify(ctx context.Context, receiptID string) (bool, error) {
	if _, err := uuid.Parse(receiptID); err != nil {
		return false, receipterrors.ErrInvalidReceiptID
	}

	current, err := s.repo.FindCurrentVersion(ctx, receiptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, receipterrors.ErrReceiptNotFound
		}
		return false, err
	}

	return Modifiable(current.Status), nil
}

func (s *service) Compare(ctx context.Context, receiptID string, versionA, versionB int) (VersionDiff, error) {
	if _, err := uuid.Parse(receiptID); err != nil {
		return VersionDiff{}, receipterrors.ErrInvalidReceiptID
	}
	if versionA < 1 || versionB < 1 {
		return VersionDiff{}, receipterrors.ErrInvalidVersion
	}

	a, err := s.repo.FindVersion(ctx, receiptID, versionA)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VersionDiff{}, receipterrors.ErrVersionNotFound
		}
		return VersionDiff{}, err
	}
	b, err := s.repo.FindVersion(ctx, receiptID, versionB)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VersionDiff{}, receipterrors.ErrVersionNotFound
		}
		return VersionDiff{}, err
	}

	return CompareVersions(a, b), nil
}

func (s *service) MarkCalculating(ctx context.Context, receiptID string) (VersionResponse, error) {
	return s.transition(ctx, receiptID, StatusCalculating)
}

func (s *service) ConfirmCalculated(ctx context.Context, receiptID string) (VersionResponse, error) {
	return s.transition(ctx, receiptID, StatusCalculated)
}

func (s *service) Approve(ctx context.Context, receiptID string) (VersionResponse, error) {
	return s.transition(ctx, receiptID, StatusApproved)
}

func (s *service) MarkPaid(ctx context.Context, receiptID string) (VersionResponse, error) {
	return s.transition(ctx, receiptID, StatusPaid)
}

// Cancel is the administrative cancellation of a not-yet-stamped receipt.
// Cancelling a stamped document is CANCEL_CFDI and goes through the gate.
func (s *service) Cancel(ctx context.Context, receiptID string) (VersionResponse, error) {
	return s.transitionFrom(ctx, receiptID, StatusCancelled, []string{StatusPending, StatusCalculated, StatusApproved}, false)
}

func (s *service) BeginStamping(ctx context.Context, receiptID string) (VersionResponse, error) {
	return s.transitionFrom(ctx, receiptID, StatusStamping, []string{StatusApproved}, true)
}

// RetryStamping re-enters STAMPING after a provider failure. Gate-only.
func (s *service) RetryStamping(ctx context.Context, receiptID string) error {
	_, err := s.transitionFrom(ctx, receiptID, StatusStamping, []string{StatusStampError}, true)
	return err
}

// CancelStamped cancels a stamped document (CANCEL_CFDI). Gate-only.
func (s *service) CancelStamped(ctx context.Context, receiptID string) error {
	_, err := s.transitionFrom(ctx, receiptID, StatusCancelled, []string{StatusStampOK}, false)
	return err
}

// transition moves the current version to the target status from any
// status the lifecycle table allows.
func (s *service) transition(ctx context.Context, receiptID, to string) (VersionResponse, error) {
	return s.transitionFrom(ctx, receiptID, to, nil, false)
}

// transitionFrom performs a serialized status change. When allowedFrom is
// non-nil the current status must be in it; otherwise the lifecycle table
// decides. enteringStamping additionally locks the period row and checks
// stamping eligibility, closing the revoke-then-stamp race.
func (s *service) transitionFrom(
	ctx context.Context,
	receiptID, to string,
	allowedFrom []string,
	enteringStamping bool,
) (VersionResponse, error) {
	if _, err := uuid.Parse(receiptID); err != nil {
		return VersionResponse{}, receipterrors.ErrInvalidReceiptID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return VersionResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if err := qtx.SetLockTimeout(ctx, s.lockTimeout); err != nil {
		return VersionResponse{}, err
	}

	rec, err := qtx.LockReceipt(ctx, receiptID)
	if err != nil {
		return VersionResponse{}, mapLockError(err)
	}
	if rec.CurrentVersion == 0 {
		return VersionResponse{}, receipterrors.ErrVersionNotFound
	}

	current, err := qtx.VersionStatus(ctx, receiptID, rec.CurrentVersion)
	if err != nil {
		return VersionResponse{}, err
	}

	if allowedFrom != nil {
		ok := false
		for _, status := range allowedFrom {
			if current == status {
				ok = true
				break
			}
		}
		if !ok {
			return VersionResponse{}, receipterrors.ErrInvalidTransition
		}
	}
	if !CanTransition(current, to) {
		return VersionResponse{}, receipterrors.ErrInvalidTransition
	}

	if enteringStamping {
		if err := qtx.LockPeriod(ctx, rec.PeriodID.String()); err != nil {
			return VersionResponse{}, mapLockError(err)
		}
		authorized, err := qtx.ActiveAuthorizationExists(ctx, rec.PeriodID.String())
		if err != nil {
			return VersionResponse{}, err
		}
		if !authorized {
			return VersionResponse{}, receipterrors.ErrStampingNotAuthorized
		}
		intact, _, err := s.rulesets.PeriodIntact(ctx, rec.PeriodID.String())
		if err != nil {
			return VersionResponse{}, err
		}
		if !intact {
			return VersionResponse{}, receipterrors.ErrPeriodIntegrityFailed
		}
	}

	if err := qtx.UpdateVersionStatus(ctx, receiptID, rec.CurrentVersion, current, to); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return VersionResponse{}, receipterrors.ErrConcurrentModification
		}
		return VersionResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return VersionResponse{}, err
	}

	version, err := s.repo.FindVersion(ctx, receiptID, rec.CurrentVersion)
	if err != nil {
		return VersionResponse{}, err
	}
	return mapVersionResponse(version), nil
}

// Stamp submits the current version to the stamping provider and records
// the outcome. The provider is called outside the transaction; the
// compare-and-set on STAMPING protects against concurrent writers.
func (s *service) Stamp(ctx context.Context, receiptID string) (VersionResponse, error) {
	if _, err := uuid.Parse(receiptID); err != nil {
		return VersionResponse{}, receipterrors.ErrInvalidReceiptID
	}

	current, err := s.repo.FindCurrentVersion(ctx, receiptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VersionResponse{}, receipterrors.ErrReceiptNotFound
		}
		return VersionResponse{}, err
	}
	if current.Status != StatusStamping {
		return VersionResponse{}, receipterrors.ErrInvalidTransition
	}

	var (
		outcome   = StatusStampOK
		stampUUID *string
		errorCode *string
	)

	result, stampErr := s.stamper.Stamp(ctx, receiptID, current.Version)
	if stampErr != nil {
		var provider *StampError
		if !errors.As(stampErr, &provider) {
			return VersionResponse{}, stampErr
		}
		outcome = StatusStampError
		errorCode = &provider.Code
	} else {
		stampUUID = &result.UUID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return VersionResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.SetLockTimeout(ctx, s.lockTimeout); err != nil {
		return VersionResponse{}, err
	}
	if _, err := qtx.LockReceipt(ctx, receiptID); err != nil {
		return VersionResponse{}, mapLockError(err)
	}
	if err := qtx.SetStampOutcome(ctx, receiptID, current.Version, outcome, stampUUID, errorCode); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return VersionResponse{}, receipterrors.ErrConcurrentModification
		}
		return VersionResponse{}, err
	}

	event, err := kafka.NewEvent(
		ctx,
		kafka.AggregateReceiptVersion,
		receiptID,
		"receipt_stamping_resolved",
		events.ReceiptStampingResolvedTopic,
		events.ReceiptStampingResolvedEvent{
			EventType:  "receipt_stamping_resolved",
			ReceiptID:  receiptID,
			Version:    current.Version,
			Status:     outcome,
			StampUUID:  stampUUID,
			ErrorCode:  errorCode,
			OccurredAt: time.Now().UTC(),
		},
	)
	if err != nil {
		return VersionResponse{}, err
	}
	if err := s.outbox.WithTx(tx).Create(ctx, event); err != nil {
		return VersionResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return VersionResponse{}, err
	}

	version, err := s.repo.FindVersion(ctx, receiptID, current.Version)
	if err != nil {
		return VersionResponse{}, err
	}
	return mapVersionResponse(version), nil
}

func buildLineItems(items []ComputedLineItem) []ReceiptLineItem {
	out := make([]ReceiptLineItem, len(items))
	for i, item := range items {
		out[i] = ReceiptLineItem{
			ID:          uuid.New(),
			Position:    i,
			ConceptCode: item.ConceptCode,
			ConceptName: item.ConceptName,
			Amount:      item.Amount,
			Kind:        item.Kind,
		}
	}
	return out
}

func validateCreateRequest(req CreateVersionRequest) (ComputedReceipt, error) {
	if !ValidReason(req.Reason) {
		return ComputedReceipt{}, receipterrors.ErrInvalidReason
	}

	items := make([]ComputedLineItem, len(req.LineItems))
	for i, item := range req.LineItems {
		if item.Kind != KindPerception && item.Kind != KindDeduction {
			return ComputedReceipt{}, receipterrors.ErrInvalidLineItemKind
		}
		items[i] = ComputedLineItem{
			ConceptCode: item.ConceptCode,
			ConceptName: item.ConceptName,
			Amount:      item.Amount,
			Kind:        item.Kind,
		}
	}

	if !req.NetPay.Equal(req.TotalPerceptions.Sub(req.TotalDeductions)) {
		return ComputedReceipt{}, receipterrors.ErrTotalsMismatch
	}

	return ComputedReceipt{
		NetPay:           req.NetPay,
		TotalPerceptions: req.TotalPerceptions,
		TotalDeductions:  req.TotalDeductions,
		WorkedDays:       req.WorkedDays,
		LineItems:        items,
		FiscalParameters: req.FiscalParameters,
	}, nil
}

func mapLockError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return receipterrors.ErrReceiptNotFound
	}
	if isPgCode(err, "55P03") { // lock_not_available
		return receipterrors.ErrLockTimeout
	}
	if isPgCode(err, "40P01") { // deadlock_detected
		return receipterrors.ErrConcurrentModification
	}
	return err
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
