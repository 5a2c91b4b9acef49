package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const DuplicateEmailMessage = "Email already exists, please try another one"

var (
	ErrNotFound       = errors.New("not found")
	ErrPermission     = errors.New("permission denied")
	ErrInvalidInput   = errors.New("invalid input")
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrStorage        = errors.New("storage error")
	ErrBlob           = errors.New("blob error")
	ErrInternal       = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
)

type AppError struct {
	BaseError error
	Message   string
	Details   string
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (Details: %s, Cause: %v)", e.BaseError.Error(), e.Message, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s (Details: %s)", e.BaseError.Error(), e.Message, e.Details)
}

func (e *AppError) Unwrap() error {
	return e.BaseError
}

func NewAppError(base error, msg, details string, err error) *AppError {
	return &AppError{BaseError: base, Message: msg, Details: details, Err: err}
}

func NewNotFound(resource, identifier string) *AppError {
	msg := fmt.Sprintf("%s not found", resource)
	details := fmt.Sprintf("%s with identifier '%s' was not found", resource, identifier)
	return NewAppError(ErrNotFound, msg, details, nil)
}

// NewInvalidInput carries the field problem in Message so it reaches the client as-is.
func NewInvalidInput(details string, err error) *AppError {
	return NewAppError(ErrInvalidInput, details, details, err)
}

func NewDuplicateEmail(email string) *AppError {
	details := fmt.Sprintf("profile with email '%s' already exists", email)
	return NewAppError(ErrDuplicateEmail, DuplicateEmailMessage, details, nil)
}

func NewStorage(msg string, err error) *AppError {
	return NewAppError(ErrStorage, msg, "store rejected the statement", err)
}

func NewBlob(details string, err error) *AppError {
	return NewAppError(ErrBlob, "Failed to access profile picture storage", details, err)
}

func NewInternal(details string, err error) *AppError {
	return NewAppError(ErrInternal, "An internal server error occurred", details, err)
}

func NewUnauthorized(details string, err error) *AppError {
	return NewAppError(ErrUnauthorized, "Authentication required", details, err)
}

func NewPermissionDenied(details string) *AppError {
	return NewAppError(ErrPermission, "Permission denied", details, nil)
}

func ToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrStorage):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (e *AppError) ToJSON() gin.H {
	return gin.H{"message": e.Message}
}

// ToJSON renders any error in the {"message": ...} envelope. Errors that are not
// an *AppError surface their own text, matching the unclassified 500 path.
func ToJSON(err error) gin.H {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ToJSON()
	}
	return gin.H{"message": err.Error()}
}
