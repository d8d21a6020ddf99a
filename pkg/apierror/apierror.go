package apierror

import (
	"fmt"
	"net/http"
)

// Kind groups errors by how the HTTP boundary and telemetry treat them.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication"
	KindToken          Kind = "token"
	KindNotFound       Kind = "not_found"
	KindDelivery       Kind = "delivery"
	KindInternal       Kind = "internal"
)

type APIError struct {
	Kind       Kind   `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(kind Kind, code string, message string, details string, status int) *APIError {
	return &APIError{Kind: kind, Code: code, Message: message, Details: details, HTTPStatus: status}
}

func Validation(code string, message string, details string) *APIError {
	return New(KindValidation, code, message, details, http.StatusBadRequest)
}

func Conflict(code string, message string) *APIError {
	return New(KindConflict, code, message, "", http.StatusBadRequest)
}

func Authentication(message string) *APIError {
	return New(KindAuthentication, "INVALID_CREDENTIALS", message, "", http.StatusUnauthorized)
}

func Token(message string) *APIError {
	return New(KindToken, "INVALID_TOKEN", message, "", http.StatusUnauthorized)
}

func NotFound(code string, message string) *APIError {
	return New(KindNotFound, code, message, "", http.StatusNotFound)
}

// Delivery never carries transport details; they go to the server log only.
func Delivery(message string) *APIError {
	return New(KindDelivery, "DELIVERY_FAILED", message, "", http.StatusInternalServerError)
}
