package ruleseterrors

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
	ErrInvalidVersion = apperror.New(
		apperror.CodeValidation,
		"version must be a positive integer",
		http.StatusBadRequest,
	)
	ErrMissingTaxTable = apperror.New(
		apperror.CodeValidation,
		"fiscal parameters must reference a tax table",
		http.StatusBadRequest,
	)
	ErrSnapshotNotFound = apperror.New(
		apperror.CodeNotFound,
		"ruleset snapshot not found",
		http.StatusNotFound,
	)
	// A duplicate snapshot means the version store tried to snapshot the
	// same version twice. That is a bug upstream, never a user mistake.
	ErrDuplicateSnapshot = apperror.New(
		apperror.CodeDuplicateSnapshot,
		"a ruleset snapshot already exists for this receipt version",
		http.StatusConflict,
	)
	ErrSnapshotCorrupted = apperror.New(
		apperror.CodeIntegrityViolation,
		"ruleset snapshot failed integrity verification",
		http.StatusConflict,
	)
)
