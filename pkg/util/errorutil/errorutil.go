package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so sentinels survive WithDetails.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithDetails returns a copy of the error carrying extra context for the caller.
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

const (
	CodeInvalidInput              = "INVALID_INPUT"
	CodeNotAProvider              = "NOT_A_PROVIDER"
	CodeInvalidDate               = "INVALID_DATE"
	CodePastDate                  = "PAST_DATE"
	CodeSlotTaken                 = "SLOT_TAKEN"
	CodeForbidden                 = "FORBIDDEN"
	CodeUnauthorized              = "UNAUTHORIZED"
	CodeNotFound                  = "NOT_FOUND"
	CodeCancellationWindowExpired = "CANCELLATION_WINDOW_EXPIRED"
	CodeAlreadyCanceled           = "ALREADY_CANCELED"
	CodeRateLimited               = "RATE_LIMITED"
	CodeInternal                  = "INTERNAL_ERROR"
)

// Business-rule failures of the booking core.
var (
	ErrNotAProvider              = NewDomainError(CodeNotAProvider, "user is not a provider", http.StatusBadRequest, nil)
	ErrInvalidDate               = NewDomainError(CodeInvalidDate, "date is not valid", http.StatusBadRequest, nil)
	ErrPastDate                  = NewDomainError(CodePastDate, "past dates are not permitted", http.StatusBadRequest, nil)
	ErrSlotTaken                 = NewDomainError(CodeSlotTaken, "appointment date with this provider is not available", http.StatusBadRequest, nil)
	ErrForbidden                 = NewDomainError(CodeForbidden, "you don't have permission for this operation", http.StatusUnauthorized, nil)
	ErrAppointmentNotFound       = NewDomainError(CodeNotFound, "appointment not found", http.StatusNotFound, nil)
	ErrCancellationWindowExpired = NewDomainError(CodeCancellationWindowExpired, "appointments can only be canceled up to the cancellation cutoff", http.StatusBadRequest, nil)
	ErrAlreadyCanceled           = NewDomainError(CodeAlreadyCanceled, "appointment is already canceled", http.StatusBadRequest, nil)
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidInput, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewRateLimited(message string) error {
	return NewDomainError(CodeRateLimited, message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
