package actionerrors

import (
	"net/http"

	"nomina-core/internal/shared/apperror"
)

var (
	ErrUnknownAction = apperror.New(
		apperror.CodeValidation,
		"unknown critical action",
		http.StatusBadRequest,
	)
	ErrInvalidTargetID = apperror.New(
		apperror.CodeValidation,
		"target id is required",
		http.StatusBadRequest,
	)
	ErrInvalidRequester = apperror.New(
		apperror.CodeValidation,
		"requesting principal is required",
		http.StatusBadRequest,
	)
	ErrJustificationRequired = apperror.New(
		apperror.CodeJustificationRequired,
		"a non-empty justification is required for critical actions",
		http.StatusBadRequest,
	)
	ErrSecondApproverRequired = apperror.New(
		apperror.CodeValidation,
		"this action requires a second approver",
		http.StatusBadRequest,
	)
	ErrSelfApproval = apperror.New(
		apperror.CodeSelfApproval,
		"requester and second approver must be distinct principals",
		http.StatusConflict,
	)
	ErrActionNotBound = apperror.New(
		apperror.CodeInternalError,
		"critical action has no bound executor",
		http.StatusInternalServerError,
	)
)
