package period_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"nomina-core/internal/period"
	perioderrors "nomina-core/internal/period/errors"
)

type fakePeriodRepository struct {
	withTxFn                     func(tx *sql.Tx) period.Repository
	setLockTimeoutFn             func(ctx context.Context, timeout time.Duration) error
	lockPeriodFn                 func(ctx context.Context, periodID string) (*period.Period, error)
	findPeriodFn                 func(ctx context.Context, periodID string) (*period.Period, error)
	findActiveAuthorizationFn    func(ctx context.Context, periodID string) (*period.StampingAuthorization, error)
	findAuthorizationHistoryFn   func(ctx context.Context, periodID string) ([]period.StampingAuthorization, error)
	insertAuthorizationFn        func(ctx context.Context, auth *period.StampingAuthorization) error
	revokeActiveAuthorizationFn  func(ctx context.Context, periodID, actorID, reason string, at time.Time) error
	closePeriodFn                func(ctx context.Context, periodID, actorID string, at time.Time) error
}

func (f *fakePeriodRepository) WithTx(tx *sql.Tx) period.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakePeriodRepository) SetLockTimeout(ctx context.Context, timeout time.Duration) error {
	if f.setLockTimeoutFn != nil {
		return f.setLockTimeoutFn(ctx, timeout)
	}
	return nil
}

func (f *fakePeriodRepository) LockPeriod(ctx context.Context, periodID string) (*period.Period, error) {
	if f.lockPeriodFn != nil {
		return f.lockPeriodFn(ctx, periodID)
	}
	return &period.Period{ID: periodID, Status: period.StatusOpen}, nil
}

func (f *fakePeriodRepository) FindPeriod(ctx context.Context, periodID string) (*period.Period, error) {
	if f.findPeriodFn != nil {
		return f.findPeriodFn(ctx, periodID)
	}
	return &period.Period{ID: periodID, Status: period.StatusOpen}, nil
}

func (f *fakePeriodRepository) FindActiveAuthorization(ctx context.Context, periodID string) (*period.StampingAuthorization, error) {
	if f.findActiveAuthorizationFn != nil {
		return f.findActiveAuthorizationFn(ctx, periodID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePeriodRepository) FindAuthorizationHistory(ctx context.Context, periodID string) ([]period.StampingAuthorization, error) {
	if f.findAuthorizationHistoryFn != nil {
		return f.findAuthorizationHistoryFn(ctx, periodID)
	}
	return nil, nil
}

func (f *fakePeriodRepository) InsertAuthorization(ctx context.Context, auth *period.StampingAuthorization) error {
	if f.insertAuthorizationFn != nil {
		return f.insertAuthorizationFn(ctx, auth)
	}
	return nil
}

func (f *fakePeriodRepository) RevokeActiveAuthorization(ctx context.Context, periodID, actorID, reason string, at time.Time) error {
	if f.revokeActiveAuthorizationFn != nil {
		return f.revokeActiveAuthorizationFn(ctx, periodID, actorID, reason, at)
	}
	return nil
}

func (f *fakePeriodRepository) ClosePeriod(ctx context.Context, periodID, actorID string, at time.Time) error {
	if f.closePeriodFn != nil {
		return f.closePeriodFn(ctx, periodID, actorID, at)
	}
	return nil
}

func setupPeriodServiceTest(t *testing.T) (period.Service, *fakePeriodRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakePeriodRepository{}
	svc := period.NewService(db, repo, 5*time.Second)
	return svc, repo, mock, func() { db.Close() }
}

func expectPeriodTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func TestAuthorizeStamping_GrantsOnOpenPeriod(t *testing.T) {
	ctx := context.Background()
	svc, repo, mock, cleanup := setupPeriodServiceTest(t)
	defer cleanup()

	expectPeriodTx(t, mock, true)

	periodID := uuid.New().String()
	var inserted *period.StampingAuthorization
	repo.insertAuthorizationFn = func(ctx context.Context, auth *period.StampingAuthorization) error {
		inserted = auth
		return nil
	}

	err := svc.AuthorizeStamping(ctx, periodID, "mgr-ana", "nomina quincenal lista")

	assert.NoError(t, err)
	if assert.NotNil(t, inserted) {
		assert.Equal(t, periodID, inserted.PeriodID)
		assert.Equal(t, "mgr-ana", inserted.AuthorizedBy)
		assert.Nil(t, inserted.RevokedAt)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeStamping_ClosedPeriodRejected(t *testing.T) {
	ctx := context.Background()
	svc, repo, mock, cleanup := setupPeriodServiceTest(t)
	defer cleanup()

	expectPeriodTx(t, mock, false)

	now := time.Now().UTC()
	repo.lockPeriodFn = func(ctx context.Context, periodID string) (*period.Period, error) {
		return &period.Period{ID: periodID, Status: period.StatusClosed, ClosedAt: &now}, nil
	}
	repo.insertAuthorizationFn = func(ctx context.Context, auth *period.StampingAuthorization) error {
		t.Fatal("no authorization may be granted on a closed period")
		return nil
	}

	err := svc.AuthorizeStamping(ctx, uuid.New().String(), "mgr-ana", "late grant attempt")

	assert.ErrorIs(t, err, perioderrors.ErrPeriodClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeStamping_DuplicateActiveGrant(t *testing.T) {
	ctx := context.Background()
	svc, repo, mock, cleanup := setupPeriodServiceTest(t)
	defer cleanup()

	expectPeriodTx(t, mock, false)

	repo.insertAuthorizationFn = func(ctx context.Context, auth *period.StampingAuthorization) error {
		return &pgconn.PgError{Code: "23505", ConstraintName: "uq_stamping_authorizations_active"}
	}

	err := svc.AuthorizeStamping(ctx, uuid.New().String(), "mgr-ana", "second grant")

	assert.ErrorIs(t, err, perioderrors.ErrAlreadyAuthorized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAuthorization_NoActiveGrant(t *testing.T) {
	ctx := context.Background()
	svc, repo, mock, cleanup := setupPeriodServiceTest(t)
	defer cleanup()

	expectPeriodTx(t, mock, false)

	repo.revokeActiveAuthorizationFn = func(ctx context.Context, periodID, actorID, reason string, at time.Time) error {
		return period.ErrNoRowsAffected
	}

	err := svc.RevokeAuthorization(ctx, uuid.New().String(), "mgr-luis", "figures under review")

	assert.ErrorIs(t, err, perioderrors.ErrNoActiveAuthorization)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAuthorization_Revokes(t *testing.T) {
	ctx := context.Background()
	svc, repo, mock, cleanup := setupPeriodServiceTest(t)
	defer cleanup()

	expectPeriodTx(t, mock, true)

	var gotReason string
	repo.revokeActiveAuthorizationFn = func(ctx context.Context, periodID, actorID, reason string, at time.Time) error {
		gotReason = reason
		return nil
	}

	err := svc.RevokeAuthorization(ctx, uuid.New().String(), "mgr-luis", "figures under review")

	assert.NoError(t, err)
	assert.Equal(t, "figures under review", gotReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosePeriod_AlreadyClosed(t *testing.T) {
	ctx := context.Background()
	svc, repo, mock, cleanup := setupPeriodServiceTest(t)
	defer cleanup()

	expectPeriodTx(t, mock, false)

	repo.lockPeriodFn = func(ctx context.Context, periodID string) (*period.Period, error) {
		return &period.Period{ID: periodID, Status: period.StatusClosed}, nil
	}

	err := svc.ClosePeriod(ctx, uuid.New().String(), "mgr-ana")

	assert.ErrorIs(t, err, perioderrors.ErrAlreadyClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosePeriod_Closes(t *testing.T) {
	ctx := context.Background()
	svc, repo, mock, cleanup := setupPeriodServiceTest(t)
	defer cleanup()

	expectPeriodTx(t, mock, true)

	periodID := uuid.New().String()
	var closedBy string
	repo.closePeriodFn = func(ctx context.Context, id, actorID string, at time.Time) error {
		assert.Equal(t, periodID, id)
		closedBy = actorID
		return nil
	}

	err := svc.ClosePeriod(ctx, periodID, "mgr-ana")

	assert.NoError(t, err)
	assert.Equal(t, "mgr-ana", closedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPeriod_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, cleanup := setupPeriodServiceTest(t)
	defer cleanup()

	repo.findPeriodFn = func(ctx context.Context, periodID string) (*period.Period, error) {
		return nil, gorm.ErrRecordNotFound
	}

	_, err := svc.GetPeriod(ctx, uuid.New().String())

	assert.ErrorIs(t, err, perioderrors.ErrPeriodNotFound)
}

func TestActiveAuthorization_NilWhenNoneActive(t *testing.T) {
	ctx := context.Background()
	svc, _, _, cleanup := setupPeriodServiceTest(t)
	defer cleanup()

	auth, err := svc.ActiveAuthorization(ctx, uuid.New().String())

	assert.NoError(t, err)
	assert.Nil(t, auth)
}

func TestActiveAuthorization_MapsActiveGrant(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, cleanup := setupPeriodServiceTest(t)
	defer cleanup()

	periodID := uuid.New().String()
	repo.findActiveAuthorizationFn = func(ctx context.Context, id string) (*period.StampingAuthorization, error) {
		return &period.StampingAuthorization{
			ID:            uuid.New().String(),
			PeriodID:      id,
			AuthorizedBy:  "mgr-ana",
			Justification: "nomina quincenal lista",
			AuthorizedAt:  time.Now().UTC(),
		}, nil
	}

	auth, err := svc.ActiveAuthorization(ctx, periodID)

	assert.NoError(t, err)
	if assert.NotNil(t, auth) {
		assert.Equal(t, periodID, auth.PeriodID)
		assert.True(t, auth.Active)
	}
}

func TestAuthorizationHistory_InvalidPeriodID(t *testing.T) {
	ctx := context.Background()
	svc, _, _, cleanup := setupPeriodServiceTest(t)
	defer cleanup()

	_, err := svc.AuthorizationHistory(ctx, "")

	assert.ErrorIs(t, err, perioderrors.ErrInvalidPeriodID)
}
