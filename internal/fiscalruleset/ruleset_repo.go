package fiscalruleset

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repository is deliberately insert-only: it exposes no update or delete
// for snapshot rows, so the tamper-evidence property cannot be broken
// through this code path.
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Insert(ctx context.Context, snapshot *RulesetSnapshot) error
	FindByReceiptAndVersion(ctx context.Context, receiptID string, version int) (*RulesetSnapshot, error)
	FindAllByReceipt(ctx context.Context, receiptID string) ([]RulesetSnapshot, error)
	FindAllByPeriod(ctx context.Context, periodID string) ([]RulesetSnapshot, error)
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

// Insert writes through raw SQL so it can participate in the version
// store's transaction. The unique index on (receipt_id, version) is the
// real guard against duplicate snapshots.
func (r *repository) Insert(ctx context.Context, snapshot *RulesetSnapshot) error {
	query := `
        INSERT INTO ruleset_snapshots (
            id, receipt_id, version, payload, content_hash, computed_at
        ) VALUES ($1, $2, $3, $4, $5, $6)
    `

	if snapshot.ComputedAt.IsZero() {
		snapshot.ComputedAt = time.Now().UTC()
	}

	exec := r.execer()
	_, err := exec.ExecContext(
		ctx, query,
		snapshot.ID, snapshot.ReceiptID, snapshot.Version,
		snapshot.Payload, snapshot.ContentHash, snapshot.ComputedAt,
	)
	return err
}

func (r *repository) FindByReceiptAndVersion(ctx context.Context, receiptID string, version int) (*RulesetSnapshot, error) {
	var snapshot RulesetSnapshot
	err := r.db.WithContext(ctx).
		First(&snapshot, "receipt_id = ? AND version = ?", receiptID, version).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *repository) FindAllByReceipt(ctx context.Context, receiptID string) ([]RulesetSnapshot, error) {
	var snapshots []RulesetSnapshot
	err := r.db.WithContext(ctx).
		Where("receipt_id = ?", receiptID).
		Order("version ASC").
		Find(&snapshots).Error
	return snapshots, err
}

func (r *repository) FindAllByPeriod(ctx context.Context, periodID string) ([]RulesetSnapshot, error) {
	var snapshots []RulesetSnapshot
	err := r.db.WithContext(ctx).
		Joins("JOIN receipts ON receipts.id = ruleset_snapshots.receipt_id").
		Where("receipts.period_id = ?", periodID).
		Order("ruleset_snapshots.receipt_id, ruleset_snapshots.version").
		Find(&snapshots).Error
	return snapshots, err
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
