package authorization

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Repository persists the critical-action ledger. Insert-only: the
// interface deliberately has no update or delete verbs.
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	Insert(ctx context.Context, record *CriticalActionRecord) error
	FindByTarget(ctx context.Context, targetID string) ([]CriticalActionRecord, error)
	FindByAction(ctx context.Context, action string) ([]CriticalActionRecord, error)
}

type repository struct {
	db    *gorm.DB
	sqlDB *sql.DB
	tx    *sql.Tx
}

func NewRepository(db *gorm.DB, sqlDB *sql.DB) Repository {
	return &repository{db: db, sqlDB: sqlDB}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, sqlDB: r.sqlDB, tx: tx}
}

func (r *repository) execer() interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}

func (r *repository) Insert(ctx context.Context, record *CriticalActionRecord) error {
	query := `
INSERT INTO critical_action_records
	(id, action, target_id, requested_by, second_approver, justification, outcome, deny_reason, request_id, decided_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	_, err := r.execer().ExecContext(ctx, query,
		record.ID,
		record.Action,
		record.TargetID,
		record.RequestedBy,
		record.SecondApprover,
		record.Justification,
		record.Outcome,
		record.DenyReason,
		record.RequestID,
		record.DecidedAt,
	)
	return err
}

func (r *repository) FindByTarget(ctx context.Context, targetID string) ([]CriticalActionRecord, error) {
	var records []CriticalActionRecord
	err := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("decided_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) FindByAction(ctx context.Context, action string) ([]CriticalActionRecord, error) {
	var records []CriticalActionRecord
	err := r.db.WithContext(ctx).
		Where("action = ?", action).
		Order("decided_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
