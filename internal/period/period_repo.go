package period

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository persists periods and their stamping authorizations. The
// authorization table is append-then-revoke: rows are never deleted, a
// revocation only fills revoked_at/revoked_by/revoke_reason on the active row.
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	SetLockTimeout(ctx context.Context, timeout time.Duration) error
	// LockPeriod serializes authorization grant/revoke and period close
	// against receipt transitions into STAMPING.
	LockPeriod(ctx context.Context, periodID string) (*Period, error)

	FindPeriod(ctx context.Context, periodID string) (*Period, error)
	FindActiveAuthorization(ctx context.Context, periodID string) (*StampingAuthorization, error)
	FindAuthorizationHistory(ctx context.Context, periodID string) ([]StampingAuthorization, error)

	InsertAuthorization(ctx context.Context, auth *StampingAuthorization) error
	RevokeActiveAuthorization(ctx context.Context, periodID, revokedBy, reason string, at time.Time) error
	ClosePeriod(ctx context.Context, periodID, closedBy string, at time.Time) error
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

func (r *repository) queryer() interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}

func (r *repository) SetLockTimeout(ctx context.Context, timeout time.Duration) error {
	if r.tx == nil {
		return errors.New("SetLockTimeout requires a transaction")
	}
	_, err := r.tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds()))
	return err
}

func (r *repository) LockPeriod(ctx context.Context, periodID string) (*Period, error) {
	query := `
SELECT id, company_id, name, status, closed_at, closed_by
FROM payroll_periods
WHERE id = $1
FOR UPDATE
`
	var p Period
	row := r.queryer().QueryRowContext(ctx, query, periodID)
	if err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Status, &p.ClosedAt, &p.ClosedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) FindPeriod(ctx context.Context, periodID string) (*Period, error) {
	var p Period
	if err := r.db.WithContext(ctx).First(&p, "id = ?", periodID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) FindActiveAuthorization(ctx context.Context, periodID string) (*StampingAuthorization, error) {
	var auth StampingAuthorization
	err := r.db.WithContext(ctx).
		Where("period_id = ? AND revoked_at IS NULL", periodID).
		First(&auth).Error
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

func (r *repository) FindAuthorizationHistory(ctx context.Context, periodID string) ([]StampingAuthorization, error) {
	var auths []StampingAuthorization
	err := r.db.WithContext(ctx).
		Where("period_id = ?", periodID).
		Order("authorized_at DESC").
		Find(&auths).Error
	if err != nil {
		return nil, err
	}
	return auths, nil
}

func (r *repository) InsertAuthorization(ctx context.Context, auth *StampingAuthorization) error {
	query := `
INSERT INTO stamping_authorizations (id, period_id, authorized_by, justification, authorized_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := r.execer().ExecContext(ctx, query,
		auth.ID, auth.PeriodID, auth.AuthorizedBy, auth.Justification, auth.AuthorizedAt)
	return err
}

// ErrNoRowsAffected reports a guarded update that matched nothing, meaning
// the row changed under us or never existed.
var ErrNoRowsAffected = errors.New("period: no rows affected")

func (r *repository) RevokeActiveAuthorization(ctx context.Context, periodID, revokedBy, reason string, at time.Time) error {
	query := `
UPDATE stamping_authorizations
SET revoked_at = $1, revoked_by = $2, revoke_reason = $3
WHERE period_id = $4 AND revoked_at IS NULL
`
	res, err := r.execer().ExecContext(ctx, query, at, revokedBy, reason, periodID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *repository) ClosePeriod(ctx context.Context, periodID, closedBy string, at time.Time) error {
	query := `
UPDATE payroll_periods
SET status = $1, closed_at = $2, closed_by = $3, updated_at = $2
WHERE id = $4 AND status = $5
`
	res, err := r.execer().ExecContext(ctx, query, StatusClosed, at, closedBy, periodID, StatusOpen)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
