package fiscalruleset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	ruleseterrors "nomina-core/internal/fiscalruleset/errors"
	"nomina-core/internal/integrity"
	"nomina-core/internal/shared/contextutil"
)

type Service interface {
	// CaptureSnapshot canonicalizes and hashes the parameters, then writes
	// the snapshot inside the caller's transaction. The version store calls
	// this while holding the receipt lock so version and snapshot land
	// atomically.
	CaptureSnapshot(ctx context.Context, tx *sql.Tx, receiptID string, version int, params FiscalParameters) (*RulesetSnapshot, error)
	VerifyIntegrity(ctx context.Context, receiptID string, version int) (IntegrityResult, error)
	GetSnapshot(ctx context.Context, receiptID string, version int) (SnapshotResponse, error)
	GetAllSnapshots(ctx context.Context, receiptID string) ([]SnapshotResponse, error)
	CompareSnapshots(ctx context.Context, receiptID string, versionA, versionB int) (SnapshotDiffResponse, error)
	// PeriodIntact reports whether every snapshot in the period passes
	// verification. Stamping eligibility depends on it.
	PeriodIntact(ctx context.Context, periodID string) (bool, []IntegrityResult, error)
}

type service struct {
	repo Repository
	sf   *singleflight.Group
}

func NewService(repo Repository) Service {
	return &service{repo: repo, sf: &singleflight.Group{}}
}

func (s *service) CaptureSnapshot(
	ctx context.Context,
	tx *sql.Tx,
	receiptID string,
	version int,
	params FiscalParameters,
) (*RulesetSnapshot, error) {
	receiptUUID, err := uuid.Parse(receiptID)
	if err != nil {
		return nil, ruleseterrors.ErrInvalidReceiptID
	}
	if version < 1 {
		return nil, ruleseterrors.ErrInvalidVersion
	}
	if params.TaxTableID == "" {
		return nil, ruleseterrors.ErrMissingTaxTable
	}

	payload, err := integrity.Canonicalize(params)
	if err != nil {
		return nil, err
	}

	snapshot := &RulesetSnapshot{
		ID:          uuid.New(),
		ReceiptID:   receiptUUID,
		Version:     version,
		Payload:     payload,
		ContentHash: integrity.Hash(payload),
		ComputedAt:  time.Now().UTC(),
	}

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}

	if err := repo.Insert(ctx, snapshot); err != nil {
		if isUniqueViolation(err) {
			return nil, ruleseterrors.ErrDuplicateSnapshot
		}
		return nil, err
	}

	return snapshot, nil
}

func (s *service) VerifyIntegrity(ctx context.Context, receiptID string, version int) (IntegrityResult, error) {
	if _, err := uuid.Parse(receiptID); err != nil {
		return IntegrityResult{}, ruleseterrors.ErrInvalidReceiptID
	}

	snapshot, err := s.repo.FindByReceiptAndVersion(ctx, receiptID, version)
	if err != nil {
		if IsNotFound(err) {
			return IntegrityResult{}, ruleseterrors.ErrSnapshotNotFound
		}
		return IntegrityResult{}, err
	}

	return s.verify(ctx, snapshot), nil
}

// verify recomputes the content hash from the decoded payload. The jsonb
// column re-renders on read (separators, key order), so hashing the raw
// column bytes would flag every untampered row; re-canonicalizing the
// decoded content makes the digest independent of storage rendering.
func (s *service) verify(ctx context.Context, snapshot *RulesetSnapshot) IntegrityResult {
	result := IntegrityResult{
		ReceiptID: snapshot.ReceiptID,
		Version:   snapshot.Version,
	}

	params, err := decodeParameters(snapshot.Payload)
	if err == nil {
		if ok, verr := integrity.Verify(params, snapshot.ContentHash); verr == nil && ok {
			result.Status = IntegrityVerified
			return result
		}
	}

	result.Status = IntegrityCorrupted
	if err != nil {
		result.Details = fmt.Sprintf("payload is not decodable fiscal parameters: %v", err)
	} else {
		recomputed, _ := integrity.HashValue(params)
		result.Details = fmt.Sprintf(
			"stored hash %s does not match recomputed hash %s; payload or hash column was altered outside the application",
			snapshot.ContentHash, recomputed,
		)
	}

	// Corruption is tamper evidence. Log loudly, never repair.
	contextutil.GetLogger(ctx, zap.L()).Error("ruleset snapshot corrupted",
		zap.String("receipt_id", snapshot.ReceiptID.String()),
		zap.Int("version", snapshot.Version),
	)

	return result
}

func (s *service) GetSnapshot(ctx context.Context, receiptID string, version int) (SnapshotResponse, error) {
	if _, err := uuid.Parse(receiptID); err != nil {
		return SnapshotResponse{}, ruleseterrors.ErrInvalidReceiptID
	}

	snapshot, err := s.repo.FindByReceiptAndVersion(ctx, receiptID, version)
	if err != nil {
		if IsNotFound(err) {
			return SnapshotResponse{}, ruleseterrors.ErrSnapshotNotFound
		}
		return SnapshotResponse{}, err
	}

	return mapToResponse(snapshot), nil
}

func (s *service) GetAllSnapshots(ctx context.Context, receiptID string) ([]SnapshotResponse, error) {
	if _, err := uuid.Parse(receiptID); err != nil {
		return nil, ruleseterrors.ErrInvalidReceiptID
	}

	snapshots, err := s.repo.FindAllByReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	resp := make([]SnapshotResponse, len(snapshots))
	for i := range snapshots {
		resp[i] = mapToResponse(&snapshots[i])
	}
	return resp, nil
}

func (s *service) CompareSnapshots(ctx context.Context, receiptID string, versionA, versionB int) (SnapshotDiffResponse, error) {
	if _, err := uuid.Parse(receiptID); err != nil {
		return SnapshotDiffResponse{}, ruleseterrors.ErrInvalidReceiptID
	}

	snapA, err := s.repo.FindByReceiptAndVersion(ctx, receiptID, versionA)
	if err != nil {
		if IsNotFound(err) {
			return SnapshotDiffResponse{}, ruleseterrors.ErrSnapshotNotFound
		}
		return SnapshotDiffResponse{}, err
	}
	snapB, err := s.repo.FindByReceiptAndVersion(ctx, receiptID, versionB)
	if err != nil {
		if IsNotFound(err) {
			return SnapshotDiffResponse{}, ruleseterrors.ErrSnapshotNotFound
		}
		return SnapshotDiffResponse{}, err
	}

	paramsA, err := decodeParameters(snapA.Payload)
	if err != nil {
		return SnapshotDiffResponse{}, err
	}
	paramsB, err := decodeParameters(snapB.Payload)
	if err != nil {
		return SnapshotDiffResponse{}, err
	}

	return SnapshotDiffResponse{
		ReceiptID: receiptID,
		VersionA:  versionA,
		VersionB:  versionB,
		Changes:   diffParameters(paramsA, paramsB),
	}, nil
}

func (s *service) PeriodIntact(ctx context.Context, periodID string) (bool, []IntegrityResult, error) {
	if _, err := uuid.Parse(periodID); err != nil {
		return false, nil, ruleseterrors.ErrInvalidReceiptID
	}

	// A full period sweep rehashes every snapshot; singleflight collapses
	// the stampede when eligibility checks and BeginStamping race on the
	// same period.
	v, err, _ := s.sf.Do("period-intact:"+periodID, func() (interface{}, error) {
		snapshots, err := s.repo.FindAllByPeriod(ctx, periodID)
		if err != nil {
			return nil, err
		}

		var corrupted []IntegrityResult
		for i := range snapshots {
			if result := s.verify(ctx, &snapshots[i]); result.Status == IntegrityCorrupted {
				corrupted = append(corrupted, result)
			}
		}
		return corrupted, nil
	})
	if err != nil {
		return false, nil, err
	}

	corrupted := v.([]IntegrityResult)
	return len(corrupted) == 0, corrupted, nil
}

// diffParameters compares two parameter sets field by field. B is treated
// as "after" A.
func diffParameters(a, b FiscalParameters) []SnapshotFieldChange {
	var changes []SnapshotFieldChange

	appendChange := func(field, oldVal, newVal string) {
		if oldVal != newVal {
			changes = append(changes, SnapshotFieldChange{Field: field, OldValue: oldVal, NewValue: newVal})
		}
	}

	appendChange("tax_table_id", a.TaxTableID, b.TaxTableID)
	appendChange("social_security_table_id", a.SocialSecurityTableID, b.SocialSecurityTableID)
	appendChange("effective_date", a.EffectiveDate, b.EffectiveDate)

	seen := make(map[string]bool)
	for name, oldVal := range a.ReferenceValues {
		seen[name] = true
		newVal, ok := b.ReferenceValues[name]
		if !ok {
			changes = append(changes, SnapshotFieldChange{
				Field:    "reference_values." + name,
				OldValue: oldVal.String(),
			})
			continue
		}
		if !oldVal.Equal(newVal) {
			changes = append(changes, SnapshotFieldChange{
				Field:    "reference_values." + name,
				OldValue: oldVal.String(),
				NewValue: newVal.String(),
			})
		}
	}
	for name, newVal := range b.ReferenceValues {
		if !seen[name] {
			changes = append(changes, SnapshotFieldChange{
				Field:    "reference_values." + name,
				NewValue: newVal.String(),
			})
		}
	}

	return changes
}

func decodeParameters(payload []byte) (FiscalParameters, error) {
	var params FiscalParameters
	if err := json.Unmarshal(payload, &params); err != nil {
		return FiscalParameters{}, integrity.ErrNotCanonicalizable.WithErr(err)
	}
	if params.ReferenceValues == nil {
		params.ReferenceValues = map[string]decimal.Decimal{}
	}
	return params, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
