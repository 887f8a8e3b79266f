package receipt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists receipts and their version ledger. Version rows are
// insert-only: the only mutation the interface allows is the status
// projection (UpdateVersionStatus / SetStampOutcome); amounts and line
// items have no update path.
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	// SetLockTimeout bounds lock waits for the current transaction. Must
	// be called before LockReceipt so a contended receipt fails fast
	// instead of deadlocking.
	SetLockTimeout(ctx context.Context, timeout time.Duration) error
	// LockReceipt takes the per-receipt exclusive row lock that serializes
	// all writers of the same receipt.
	LockReceipt(ctx context.Context, receiptID string) (*Receipt, error)
	// LockPeriod serializes receipt transitions into STAMPING against
	// authorization grant/revoke on the same period.
	LockPeriod(ctx context.Context, periodID string) error

	FindReceipt(ctx context.Context, receiptID string) (*Receipt, error)
	PeriodClosed(ctx context.Context, periodID string) (bool, error)
	ActiveAuthorizationExists(ctx context.Context, periodID string) (bool, error)

	MaxVersion(ctx context.Context, receiptID string) (int, error)
	VersionStatus(ctx context.Context, receiptID string, version int) (string, error)
	InsertVersion(ctx context.Context, version *PayrollReceiptVersion) error
	UpdateVersionStatus(ctx context.Context, receiptID string, version int, from, to string) error
	SetStampOutcome(ctx context.Context, receiptID string, version int, status string, stampUUID, errorCode *string) error
	SetCurrentVersion(ctx context.Context, receiptID string, version int) error

	FindVersion(ctx context.Context, receiptID string, version int) (*PayrollReceiptVersion, error)
	FindVersions(ctx context.Context, receiptID string) ([]PayrollReceiptVersion, error)
	FindCurrentVersion(ctx context.Context, receiptID string) (*PayrollReceiptVersion, error)
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

func (r *repository) SetLockTimeout(ctx context.Context, timeout time.Duration) error {
	if r.tx == nil {
		return errors.New("SetLockTimeout requires a transaction")
	}
	// SET LOCAL scopes the timeout to this transaction only.
	_, err := r.tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds()))
	return err
}

func (r *repository) LockReceipt(ctx context.Context, receiptID string) (*Receipt, error) {
	query := `
SELECT id, employee_id, period_id, current_version
FROM receipts
WHERE id = $1
FOR UPDATE
`
	var rec Receipt
	row := r.queryer().QueryRowContext(ctx, query, receiptID)
	if err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.PeriodID, &rec.CurrentVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *repository) LockPeriod(ctx context.Context, periodID string) error {
	query := `SELECT id FROM payroll_periods WHERE id = $1 FOR UPDATE`
	var id uuid.UUID
	if err := r.queryer().QueryRowContext(ctx, query, periodID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gorm.ErrRecordNotFound
		}
		return err
	}
	return nil
}

func (r *repository) FindReceipt(ctx context.Context, receiptID string) (*Receipt, error) {
	var rec Receipt
	err := r.db.WithContext(ctx).First(&rec, "id = ?", receiptID).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) PeriodClosed(ctx context.Context, periodID string) (bool, error) {
	query := `SELECT status FROM payroll_periods WHERE id = $1`
	var status string
	if err := r.queryer().QueryRowContext(ctx, query, periodID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, gorm.ErrRecordNotFound
		}
		return false, err
	}
	return status == "CLOSED", nil
}

func (r *repository) ActiveAuthorizationExists(ctx context.Context, periodID string) (bool, error) {
	query := `
SELECT COUNT(*)
FROM stamping_authorizations
WHERE period_id = $1 AND revoked_at IS NULL
`
	var count int64
	if err := r.queryer().QueryRowContext(ctx, query, periodID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) MaxVersion(ctx context.Context, receiptID string) (int, error) {
	query := `SELECT COALESCE(MAX(version), 0) FROM receipt_versions WHERE receipt_id = $1`
	var highest int
	if err := r.queryer().QueryRowContext(ctx, query, receiptID).Scan(&highest); err != nil {
		return 0, err
	}
	return highest, nil
}

func (r *repository) VersionStatus(ctx context.Context, receiptID string, version int) (string, error) {
	query := `SELECT status FROM receipt_versions WHERE receipt_id = $1 AND version = $2`
	var status string
	if err := r.queryer().QueryRowContext(ctx, query, receiptID, version).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", gorm.ErrRecordNotFound
		}
		return "", err
	}
	return status, nil
}

func (r *repository) InsertVersion(ctx context.Context, version *PayrollReceiptVersion) error {
	query := `
        INSERT INTO receipt_versions (
            id, receipt_id, version, net_pay, total_perceptions, total_deductions,
            worked_days, status, created_reason, created_by, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `

	exec := r.execer()
	_, err := exec.ExecContext(
		ctx, query,
		version.ID, version.ReceiptID, version.Version,
		version.NetPay, version.TotalPerceptions, version.TotalDeductions,
		version.WorkedDays, version.Status, version.CreatedReason,
		version.CreatedBy, version.CreatedAt,
	)
	if err != nil {
		return err
	}

	itemQuery := `
        INSERT INTO receipt_line_items (
            id, version_row_id, position, concept_code, concept_name, amount, kind
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	for i := range version.LineItems {
		item := &version.LineItems[i]
		if _, err := exec.ExecContext(
			ctx, itemQuery,
			item.ID, version.ID, item.Position,
			item.ConceptCode, item.ConceptName, item.Amount, item.Kind,
		); err != nil {
			return err
		}
	}

	return nil
}

// UpdateVersionStatus performs a compare-and-set so a stale writer cannot
// clobber a concurrent transition.
func (r *repository) UpdateVersionStatus(ctx context.Context, receiptID string, version int, from, to string) error {
	query := `
UPDATE receipt_versions
SET status = $4
WHERE receipt_id = $1 AND version = $2 AND status = $3
`
	res, err := r.execer().ExecContext(ctx, query, receiptID, version, from, to)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *repository) SetStampOutcome(ctx context.Context, receiptID string, version int, status string, stampUUID, errorCode *string) error {
	query := `
UPDATE receipt_versions
SET status = $3, stamp_uuid = $4, stamp_error_code = $5
WHERE receipt_id = $1 AND version = $2 AND status = $6
`
	res, err := r.execer().ExecContext(ctx, query, receiptID, version, status, stampUUID, errorCode, StatusStamping)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *repository) SetCurrentVersion(ctx context.Context, receiptID string, version int) error {
	query := `UPDATE receipts SET current_version = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.execer().ExecContext(ctx, query, receiptID, version)
	return err
}

func (r *repository) FindVersion(ctx context.Context, receiptID string, version int) (*PayrollReceiptVersion, error) {
	var v PayrollReceiptVersion
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&v, "receipt_id = ? AND version = ?", receiptID, version).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repository) FindVersions(ctx context.Context, receiptID string) ([]PayrollReceiptVersion, error) {
	var versions []PayrollReceiptVersion
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("receipt_id = ?", receiptID).
		Order("version ASC").
		Find(&versions).Error
	return versions, err
}

func (r *repository) FindCurrentVersion(ctx context.Context, receiptID string) (*PayrollReceiptVersion, error) {
	rec, err := r.FindReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if rec.CurrentVersion == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindVersion(ctx, receiptID, rec.CurrentVersion)
}

// ErrStatusChanged signals a lost compare-and-set on the status column.
var ErrStatusChanged = errors.New("receipt version status changed concurrently")

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}

func (r *repository) queryer() interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}
