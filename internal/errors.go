package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeForbidden:    http.StatusForbidden,
	ErrorTypeConflict:     http.StatusConflict,
	ErrorTypeInternal:     http.StatusInternalServerError,
}

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidCurrency  ErrorCode = "INVALID_CURRENCY"
	ErrCodeInvalidQuote     ErrorCode = "INVALID_QUOTE"

	ErrCodePurchaseRequestNotFound ErrorCode = "PR_NOT_FOUND"
	ErrCodeQuoteNotFound           ErrorCode = "QUOTE_NOT_FOUND"
	ErrCodeInvalidTransition       ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeApprovalValidation      ErrorCode = "APPROVAL_VALIDATION_FAILED"
	ErrCodeNotAssignedApprover     ErrorCode = "NOT_ASSIGNED_APPROVER"
	ErrCodeApprovalAlreadyRecorded ErrorCode = "APPROVAL_ALREADY_RECORDED"
	ErrCodeUnauthorizedAccess      ErrorCode = "UNAUTHORIZED_ACCESS"

	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeUserInactive ErrorCode = "USER_INACTIVE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError is the error shape every service returns to the transport layer.
// StatusCode and Cause never reach the client.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func newAppError(t ErrorType, code ErrorCode, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: statusByType[t]}
}

func (e *AppError) Error() string {
	if v, ok := e.Details.(ValidationErrors); ok && len(v.Errors) > 0 {
		return v.Errors[0].Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, code, message)
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationError("Validation failed", ErrCodeValidationFailed).WithDetails(ValidationErrors{
		Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}},
	})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, code, message)
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeUnauthorized, code, message)
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeForbidden, code, message)
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeConflict, code, message)
}

func NewInternalError(message string, cause error) *AppError {
	e := newAppError(ErrorTypeInternal, ErrCodeInternal, message)
	e.Cause = cause
	return e
}

var (
	ErrPurchaseRequestNotFound = NewNotFoundError("Purchase request not found", ErrCodePurchaseRequestNotFound)
	ErrQuoteNotFound           = NewNotFoundError("Quote not found on purchase request", ErrCodeQuoteNotFound)
	ErrInvalidTransition       = NewConflictError("status transition is not allowed", ErrCodeInvalidTransition)
	ErrNotAssignedApprover     = NewForbiddenError("user is not an assigned approver of this purchase request", ErrCodeNotAssignedApprover)
	ErrApprovalRecorded        = NewConflictError("approval already recorded for this approver", ErrCodeApprovalAlreadyRecorded)
	ErrUnauthorizedAccess      = NewForbiddenError("unauthorized access to purchase request", ErrCodeUnauthorizedAccess)

	ErrInvalidToken = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrUserInactive = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
)

// NewApprovalValidationError wraps the validator's error list so handlers can
// render every message, not just the first.
func NewApprovalValidationError(messages []string) *AppError {
	details := ValidationErrors{Errors: make([]ValidationError, 0, len(messages))}
	for _, m := range messages {
		details.Errors = append(details.Errors, ValidationError{
			Field:   "purchase_request",
			Message: m,
			Code:    string(ErrCodeApprovalValidation),
		})
	}
	e := newAppError(ErrorTypeValidation, ErrCodeApprovalValidation, "Purchase request failed approval validation")
	e.StatusCode = http.StatusUnprocessableEntity
	return e.WithDetails(details)
}

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is matches app errors by code so wrapped sentinels still compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
