package perioderrors

import (
	"net/http"

	"nomina-core/internal/shared/apperror"
)

var (
	ErrInvalidPeriodID = apperror.New(
		apperror.CodeValidation,
		"period id is required",
		http.StatusBadRequest,
	)
	ErrPeriodNotFound = apperror.New(
		apperror.CodeNotFound,
		"payroll period not found",
		http.StatusNotFound,
	)
	ErrPeriodClosed = apperror.New(
		apperror.CodeStateConflict,
		"payroll period is closed",
		http.StatusConflict,
	)
	ErrAlreadyAuthorized = apperror.New(
		apperror.CodeStateConflict,
		"period already has an active stamping authorization",
		http.StatusConflict,
	)
	ErrNoActiveAuthorization = apperror.New(
		apperror.CodeStateConflict,
		"period has no active stamping authorization",
		http.StatusConflict,
	)
	ErrAlreadyClosed = apperror.New(
		apperror.CodeStateConflict,
		"payroll period is already closed",
		http.StatusConflict,
	)
)
