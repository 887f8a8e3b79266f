package fiscalruleset_test

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"nomina-core/internal/fiscalruleset"
	ruleseterrors "nomina-core/internal/fiscalruleset/errors"
	"nomina-core/internal/integrity"
)

type fakeRulesetRepository struct {
	withTxFn                  func(tx *sql.Tx) fiscalruleset.Repository
	insertFn                  func(ctx context.Context, snapshot *fiscalruleset.RulesetSnapshot) error
	findByReceiptAndVersionFn func(ctx context.Context, receiptID string, version int) (*fiscalruleset.RulesetSnapshot, error)
	findAllByReceiptFn        func(ctx context.Context, receiptID string) ([]fiscalruleset.RulesetSnapshot, error)
	findAllByPeriodFn         func(ctx context.Context, periodID string) ([]fiscalruleset.RulesetSnapshot, error)
}

func (f *fakeRulesetRepository) WithTx(tx *sql.Tx) fiscalruleset.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeRulesetRepository) Insert(ctx context.Context, snapshot *fiscalruleset.RulesetSnapshot) error {
	if f.insertFn != nil {
		return f.insertFn(ctx, snapshot)
	}
	return nil
}

func (f *fakeRulesetRepository) FindByReceiptAndVersion(ctx context.Context, receiptID string, version int) (*fiscalruleset.RulesetSnapshot, error) {
	if f.findByReceiptAndVersionFn != nil {
		return f.findByReceiptAndVersionFn(ctx, receiptID, version)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRulesetRepository) FindAllByReceipt(ctx context.Context, receiptID string) ([]fiscalruleset.RulesetSnapshot, error) {
	if f.findAllByReceiptFn != nil {
		return f.findAllByReceiptFn(ctx, receiptID)
	}
	return nil, nil
}

func (f *fakeRulesetRepository) FindAllByPeriod(ctx context.Context, periodID string) ([]fiscalruleset.RulesetSnapshot, error) {
	if f.findAllByPeriodFn != nil {
		return f.findAllByPeriodFn(ctx, periodID)
	}
	return nil, nil
}

func sampleParameters() fiscalruleset.FiscalParameters {
	return fiscalruleset.FiscalParameters{
		TaxTableID:            "isr-mensual-2026",
		SocialSecurityTableID: "imss-2026",
		ReferenceValues: map[string]decimal.Decimal{
			"uma":         decimal.RequireFromString("113.14"),
			"salario_min": decimal.RequireFromString("278.80"),
		},
		EffectiveDate: "2026-08-31",
	}
}

func TestRulesetService_CaptureSnapshot(t *testing.T) {
	ctx := context.Background()
	receiptID := uuid.New().String()

	var stored *fiscalruleset.RulesetSnapshot
	repo := &fakeRulesetRepository{
		insertFn: func(ctx context.Context, snapshot *fiscalruleset.RulesetSnapshot) error {
			stored = snapshot
			return nil
		},
	}
	svc := fiscalruleset.NewService(repo)

	snapshot, err := svc.CaptureSnapshot(ctx, nil, receiptID, 1, sampleParameters())

	assert.NoError(t, err)
	assert.NotNil(t, stored)
	assert.Equal(t, 1, snapshot.Version)
	assert.Len(t, snapshot.ContentHash, 64)
	// The stored hash must be exactly the hash of the stored payload.
	assert.True(t, integrity.VerifyBytes(snapshot.Payload, snapshot.ContentHash))
}

func TestRulesetService_CaptureSnapshot_Validation(t *testing.T) {
	ctx := context.Background()
	svc := fiscalruleset.NewService(&fakeRulesetRepository{})

	_, err := svc.CaptureSnapshot(ctx, nil, "not-a-uuid", 1, sampleParameters())
	assert.ErrorIs(t, err, ruleseterrors.ErrInvalidReceiptID)

	_, err = svc.CaptureSnapshot(ctx, nil, uuid.New().String(), 0, sampleParameters())
	assert.ErrorIs(t, err, ruleseterrors.ErrInvalidVersion)

	params := sampleParameters()
	params.TaxTableID = ""
	_, err = svc.CaptureSnapshot(ctx, nil, uuid.New().String(), 1, params)
	assert.ErrorIs(t, err, ruleseterrors.ErrMissingTaxTable)
}

func TestRulesetService_CaptureSnapshot_Duplicate(t *testing.T) {
	ctx := context.Background()

	repo := &fakeRulesetRepository{
		insertFn: func(ctx context.Context, snapshot *fiscalruleset.RulesetSnapshot) error {
			return &pgconn.PgError{Code: "23505"}
		},
	}
	svc := fiscalruleset.NewService(repo)

	_, err := svc.CaptureSnapshot(ctx, nil, uuid.New().String(), 1, sampleParameters())

	assert.ErrorIs(t, err, ruleseterrors.ErrDuplicateSnapshot)
}

func TestRulesetService_VerifyIntegrity(t *testing.T) {
	ctx := context.Background()
	receiptID := uuid.New()

	payload, err := integrity.Canonicalize(sampleParameters())
	assert.NoError(t, err)

	t.Run("untouched snapshot verifies", func(t *testing.T) {
		repo := &fakeRulesetRepository{
			findByReceiptAndVersionFn: func(ctx context.Context, id string, version int) (*fiscalruleset.RulesetSnapshot, error) {
				return &fiscalruleset.RulesetSnapshot{
					ReceiptID:   receiptID,
					Version:     version,
					Payload:     payload,
					ContentHash: integrity.Hash(payload),
				}, nil
			},
		}
		svc := fiscalruleset.NewService(repo)

		result, err := svc.VerifyIntegrity(ctx, receiptID.String(), 1)

		assert.NoError(t, err)
		assert.Equal(t, fiscalruleset.IntegrityVerified, result.Status)
		assert.Empty(t, result.Details)
	})

	t.Run("storage re-rendered payload still verifies", func(t *testing.T) {
		// jsonb does not round-trip written bytes: Postgres re-renders
		// with its own separators and key order. Same content, different
		// bytes, and the digest must still match.
		rerendered := []byte(`{"tax_table_id": "isr-mensual-2026", ` +
			`"reference_values": {"salario_min": "278.80", "uma": "113.14"}, ` +
			`"social_security_table_id": "imss-2026", ` +
			`"effective_date": "2026-08-31"}`)
		assert.NotEqual(t, payload, rerendered)

		repo := &fakeRulesetRepository{
			findByReceiptAndVersionFn: func(ctx context.Context, id string, version int) (*fiscalruleset.RulesetSnapshot, error) {
				return &fiscalruleset.RulesetSnapshot{
					ReceiptID:   receiptID,
					Version:     version,
					Payload:     rerendered,
					ContentHash: integrity.Hash(payload),
				}, nil
			},
		}
		svc := fiscalruleset.NewService(repo)

		result, err := svc.VerifyIntegrity(ctx, receiptID.String(), 1)

		assert.NoError(t, err)
		assert.Equal(t, fiscalruleset.IntegrityVerified, result.Status)
	})

	t.Run("altered value in well-formed payload is corrupted", func(t *testing.T) {
		doctored := sampleParameters()
		doctored.ReferenceValues["uma"] = decimal.RequireFromString("999.99")
		doctoredPayload, err := integrity.Canonicalize(doctored)
		assert.NoError(t, err)

		repo := &fakeRulesetRepository{
			findByReceiptAndVersionFn: func(ctx context.Context, id string, version int) (*fiscalruleset.RulesetSnapshot, error) {
				return &fiscalruleset.RulesetSnapshot{
					ReceiptID:   receiptID,
					Version:     version,
					Payload:     doctoredPayload,
					ContentHash: integrity.Hash(payload),
				}, nil
			},
		}
		svc := fiscalruleset.NewService(repo)

		result, err := svc.VerifyIntegrity(ctx, receiptID.String(), 1)

		assert.NoError(t, err)
		assert.Equal(t, fiscalruleset.IntegrityCorrupted, result.Status)
		assert.NotEmpty(t, result.Details)
	})

	t.Run("tampered payload is reported corrupted", func(t *testing.T) {
		tampered := append([]byte(nil), payload...)
		tampered[len(tampered)-2] ^= 0x01

		repo := &fakeRulesetRepository{
			findByReceiptAndVersionFn: func(ctx context.Context, id string, version int) (*fiscalruleset.RulesetSnapshot, error) {
				return &fiscalruleset.RulesetSnapshot{
					ReceiptID:   receiptID,
					Version:     version,
					Payload:     tampered,
					ContentHash: integrity.Hash(payload),
				}, nil
			},
		}
		svc := fiscalruleset.NewService(repo)

		result, err := svc.VerifyIntegrity(ctx, receiptID.String(), 1)

		assert.NoError(t, err)
		assert.Equal(t, fiscalruleset.IntegrityCorrupted, result.Status)
		assert.NotEmpty(t, result.Details)
	})

	t.Run("missing snapshot", func(t *testing.T) {
		svc := fiscalruleset.NewService(&fakeRulesetRepository{})

		_, err := svc.VerifyIntegrity(ctx, receiptID.String(), 9)

		assert.ErrorIs(t, err, ruleseterrors.ErrSnapshotNotFound)
	})
}

func TestRulesetService_PeriodIntact(t *testing.T) {
	ctx := context.Background()
	periodID := uuid.New().String()

	goodPayload, err := integrity.Canonicalize(sampleParameters())
	assert.NoError(t, err)

	badPayload := append([]byte(nil), goodPayload...)
	badPayload[0] ^= 0x01

	repo := &fakeRulesetRepository{
		findAllByPeriodFn: func(ctx context.Context, id string) ([]fiscalruleset.RulesetSnapshot, error) {
			return []fiscalruleset.RulesetSnapshot{
				{ReceiptID: uuid.New(), Version: 1, Payload: goodPayload, ContentHash: integrity.Hash(goodPayload)},
				{ReceiptID: uuid.New(), Version: 2, Payload: badPayload, ContentHash: integrity.Hash(goodPayload)},
			}, nil
		},
	}
	svc := fiscalruleset.NewService(repo)

	intact, corrupted, err := svc.PeriodIntact(ctx, periodID)

	assert.NoError(t, err)
	assert.False(t, intact)
	assert.Len(t, corrupted, 1)
	assert.Equal(t, 2, corrupted[0].Version)
}

func TestRulesetService_PeriodIntact_ConcurrentSweepsCollapse(t *testing.T) {
	ctx := context.Background()
	periodID := uuid.New().String()

	var sweeps int32
	entered := make(chan struct{})
	release := make(chan struct{})
	repo := &fakeRulesetRepository{
		findAllByPeriodFn: func(ctx context.Context, id string) ([]fiscalruleset.RulesetSnapshot, error) {
			if atomic.AddInt32(&sweeps, 1) == 1 {
				close(entered)
				<-release
			}
			return nil, nil
		},
	}
	svc := fiscalruleset.NewService(repo)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		intact, _, err := svc.PeriodIntact(ctx, periodID)
		assert.NoError(t, err)
		assert.True(t, intact)
	}()
	<-entered
	go func() {
		defer wg.Done()
		intact, _, err := svc.PeriodIntact(ctx, periodID)
		assert.NoError(t, err)
		assert.True(t, intact)
	}()

	// Give the second caller time to join the in-flight sweep.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&sweeps))
}

func TestRulesetService_CompareSnapshots(t *testing.T) {
	ctx := context.Background()
	receiptID := uuid.New()

	paramsA := sampleParameters()
	paramsB := sampleParameters()
	paramsB.TaxTableID = "isr-mensual-2027"
	paramsB.ReferenceValues = map[string]decimal.Decimal{
		"uma":         decimal.RequireFromString("117.31"),
		"salario_min": decimal.RequireFromString("278.80"),
	}

	payloadA, err := integrity.Canonicalize(paramsA)
	assert.NoError(t, err)
	payloadB, err := integrity.Canonicalize(paramsB)
	assert.NoError(t, err)

	repo := &fakeRulesetRepository{
		findByReceiptAndVersionFn: func(ctx context.Context, id string, version int) (*fiscalruleset.RulesetSnapshot, error) {
			payload := payloadA
			if version == 2 {
				payload = payloadB
			}
			return &fiscalruleset.RulesetSnapshot{ReceiptID: receiptID, Version: version, Payload: payload}, nil
		},
	}
	svc := fiscalruleset.NewService(repo)

	diff, err := svc.CompareSnapshots(ctx, receiptID.String(), 1, 2)

	assert.NoError(t, err)
	assert.Equal(t, 1, diff.VersionA)
	assert.Equal(t, 2, diff.VersionB)

	fields := make(map[string]fiscalruleset.SnapshotFieldChange)
	for _, change := range diff.Changes {
		fields[change.Field] = change
	}
	assert.Contains(t, fields, "tax_table_id")
	assert.Equal(t, "isr-mensual-2026", fields["tax_table_id"].OldValue)
	assert.Equal(t, "isr-mensual-2027", fields["tax_table_id"].NewValue)
	assert.Contains(t, fields, "reference_values.uma")
	assert.NotContains(t, fields, "reference_values.salario_min")
	assert.NotContains(t, fields, "effective_date")
}
