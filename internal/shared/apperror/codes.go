package apperror

const (
	// Client errors (4xx)
	CodeInvalidInput = "INVALID_INPUT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInvalidState = "INVALID_STATE"

	// Versioning / audit ledger errors
	CodeValidation             = "VALIDATION_ERROR"
	CodeStateConflict          = "STATE_CONFLICT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION" // retryable
	CodeLockTimeout            = "LOCK_TIMEOUT"            // retryable
	CodeIntegrityViolation     = "INTEGRITY_VIOLATION"     // never retried
	CodeSelfApproval           = "SELF_APPROVAL"
	CodeJustificationRequired  = "JUSTIFICATION_REQUIRED"
	CodeDuplicateSnapshot      = "DUPLICATE_SNAPSHOT"
	CodeSerialization          = "SERIALIZATION_ERROR"

	// Server errors (5xx)
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Retryable reports whether the caller may safely retry the operation that
// produced an error with this code. Integrity violations are deliberately
// excluded: a corrupted snapshot needs manual review, not a retry.
func Retryable(code string) bool {
	switch code {
	case CodeConcurrentModification, CodeLockTimeout:
		return true
	default:
		return false
	}
}
