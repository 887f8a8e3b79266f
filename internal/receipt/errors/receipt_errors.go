package receipterrors

import (
	"net/http"

	"nomina-core/internal/shared/apperror"
)

var (
	ErrInvalidReceiptID = apperror.New(
		apperror.CodeValidation,
		"invalid receipt id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeValidation,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidReason = apperror.New(
		apperror.CodeValidation,
		"invalid version creation reason",
		http.StatusBadRequest,
	)
	ErrInvalidVersion = apperror.New(
		apperror.CodeValidation,
		"version must be a positive integer",
		http.StatusBadRequest,
	)
	ErrInvalidLineItemKind = apperror.New(
		apperror.CodeValidation,
		"line item kind must be perception or deduction",
		http.StatusBadRequest,
	)
	ErrTotalsMismatch = apperror.New(
		apperror.CodeValidation,
		"net pay must equal total perceptions minus total deductions",
		http.StatusBadRequest,
	)
	ErrReceiptNotFound = apperror.New(
		apperror.CodeNotFound,
		"receipt not found",
		http.StatusNotFound,
	)
	ErrVersionNotFound = apperror.New(
		apperror.CodeNotFound,
		"receipt version not found",
		http.StatusNotFound,
	)
	ErrReceiptPaid = apperror.New(
		apperror.CodeStateConflict,
		"receipt is paid; a new version requires a revoke-and-recalculate override",
		http.StatusConflict,
	)
	ErrPeriodClosed = apperror.New(
		apperror.CodeStateConflict,
		"payroll period is closed",
		http.StatusConflict,
	)
	ErrInvalidTransition = apperror.New(
		apperror.CodeStateConflict,
		"transition not legal from current status",
		http.StatusConflict,
	)
	ErrStampingNotAuthorized = apperror.New(
		apperror.CodeStateConflict,
		"period has no active stamping authorization",
		http.StatusConflict,
	)
	ErrPeriodIntegrityFailed = apperror.New(
		apperror.CodeIntegrityViolation,
		"a receipt in this period failed integrity verification",
		http.StatusConflict,
	)
	ErrConcurrentModification = apperror.New(
		apperror.CodeConcurrentModification,
		"another writer updated this receipt; retry the operation",
		http.StatusConflict,
	)
	ErrLockTimeout = apperror.New(
		apperror.CodeLockTimeout,
		"timed out waiting for the receipt lock; retry the operation",
		http.StatusConflict,
	)
)
