package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

var (
	errInvalidEmail = domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Please enter a valid email address", map[string]any{"field": "adminEmail"})
	errInvalidUsage = domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Usage context must be personal, small_business or company", map[string]any{"field": "usageContext"})
	errInstalled    = domainError(http.StatusConflict, "ALREADY_INSTALLED", "System already configured", nil)
	errPersistence  = domainError(http.StatusInternalServerError, "PERSISTENCE_ERROR", "Failed to save configuration. Please try again.", nil)
	errSession      = domainError(http.StatusInternalServerError, "SESSION_ERROR", "Could not create a session. Please log in.", nil)
	errNotInstalled = domainError(http.StatusBadRequest, "NOT_CONFIGURED", "System not configured", nil)
	errBadLogin     = domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid admin email", nil)
	errReset        = domainError(http.StatusInternalServerError, "RESET_FAILED", "Failed to reset", nil)
)
