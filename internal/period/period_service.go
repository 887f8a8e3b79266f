package period

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	perioderrors "nomina-core/internal/period/errors"
	"nomina-core/internal/shared/contextutil"
)

// Service exposes period reads plus the authorization mutations. The
// mutating operations (AuthorizeStamping, RevokeAuthorization, ClosePeriod)
// are invoked only by the critical-action gate after its policy checks pass.
type Service interface {
	GetPeriod(ctx context.Context, periodID string) (PeriodResponse, error)
	ActiveAuthorization(ctx context.Context, periodID string) (*AuthorizationResponse, error)
	AuthorizationHistory(ctx context.Context, periodID string) ([]AuthorizationResponse, error)

	AuthorizeStamping(ctx context.Context, periodID, actorID, justification string) error
	RevokeAuthorization(ctx context.Context, periodID, actorID, reason string) error
	ClosePeriod(ctx context.Context, periodID, actorID string) error
}

type service struct {
	db          *sql.DB
	repo        Repository
	lockTimeout time.Duration
}

func NewService(db *sql.DB, repo Repository, lockTimeout time.Duration) Service {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &service{db: db, repo: repo, lockTimeout: lockTimeout}
}

func (s *service) GetPeriod(ctx context.Context, periodID string) (PeriodResponse, error) {
	if periodID == "" {
		return PeriodResponse{}, perioderrors.ErrInvalidPeriodID
	}

	p, err := s.repo.FindPeriod(ctx, periodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PeriodResponse{}, perioderrors.ErrPeriodNotFound
		}
		return PeriodResponse{}, err
	}
	return mapPeriodResponse(p), nil
}

func (s *service) ActiveAuthorization(ctx context.Context, periodID string) (*AuthorizationResponse, error) {
	if periodID == "" {
		return nil, perioderrors.ErrInvalidPeriodID
	}

	auth, err := s.repo.FindActiveAuthorization(ctx, periodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	resp := mapAuthorizationResponse(auth)
	return &resp, nil
}

func (s *service) AuthorizationHistory(ctx context.Context, periodID string) ([]AuthorizationResponse, error) {
	if periodID == "" {
		return nil, perioderrors.ErrInvalidPeriodID
	}

	auths, err := s.repo.FindAuthorizationHistory(ctx, periodID)
	if err != nil {
		return nil, err
	}

	responses := make([]AuthorizationResponse, 0, len(auths))
	for i := range auths {
		responses = append(responses, mapAuthorizationResponse(&auths[i]))
	}
	return responses, nil
}

// AuthorizeStamping activates a stamping authorization for an open period.
// The period row lock serializes the grant against receipts trying to enter
// stamping and against a concurrent revoke.
func (s *service) AuthorizeStamping(ctx context.Context, periodID, actorID, justification string) error {
	return s.withLockedPeriod(ctx, periodID, func(qtx Repository, p *Period) error {
		if p.Status == StatusClosed {
			return perioderrors.ErrPeriodClosed
		}

		auth := &StampingAuthorization{
			ID:            uuid.NewString(),
			PeriodID:      periodID,
			AuthorizedBy:  actorID,
			Justification: justification,
			AuthorizedAt:  time.Now().UTC(),
		}
		if err := qtx.InsertAuthorization(ctx, auth); err != nil {
			if isUniqueViolation(err) {
				return perioderrors.ErrAlreadyAuthorized
			}
			return err
		}

		contextutil.GetLogger(ctx, zap.L()).Info("stamping authorization granted",
			zap.String("period_id", periodID),
			zap.String("authorized_by", actorID),
		)
		return nil
	})
}

func (s *service) RevokeAuthorization(ctx context.Context, periodID, actorID, reason string) error {
	return s.withLockedPeriod(ctx, periodID, func(qtx Repository, p *Period) error {
		err := qtx.RevokeActiveAuthorization(ctx, periodID, actorID, reason, time.Now().UTC())
		if err != nil {
			if errors.Is(err, ErrNoRowsAffected) {
				return perioderrors.ErrNoActiveAuthorization
			}
			return err
		}

		contextutil.GetLogger(ctx, zap.L()).Info("stamping authorization revoked",
			zap.String("period_id", periodID),
			zap.String("revoked_by", actorID),
		)
		return nil
	})
}

func (s *service) ClosePeriod(ctx context.Context, periodID, actorID string) error {
	return s.withLockedPeriod(ctx, periodID, func(qtx Repository, p *Period) error {
		if p.Status == StatusClosed {
			return perioderrors.ErrAlreadyClosed
		}

		if err := qtx.ClosePeriod(ctx, periodID, actorID, time.Now().UTC()); err != nil {
			if errors.Is(err, ErrNoRowsAffected) {
				return perioderrors.ErrAlreadyClosed
			}
			return err
		}

		contextutil.GetLogger(ctx, zap.L()).Info("payroll period closed",
			zap.String("period_id", periodID),
			zap.String("closed_by", actorID),
		)
		return nil
	})
}

func (s *service) withLockedPeriod(ctx context.Context, periodID string, fn func(qtx Repository, p *Period) error) error {
	if periodID == "" {
		return perioderrors.ErrInvalidPeriodID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.SetLockTimeout(ctx, s.lockTimeout); err != nil {
		return err
	}

	p, err := qtx.LockPeriod(ctx, periodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return perioderrors.ErrPeriodNotFound
		}
		return err
	}

	if err := fn(qtx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
