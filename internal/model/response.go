package model

import "time"

type AuthResponse struct {
	Message     string `json:"Message"`
	AccessToken string `json:"AccessToken,omitempty"`
	TokenType   string `json:"TokenType,omitempty"`
}

type MessageResponse struct {
	Message string `json:"Message"`
}

type IdentityResponse struct {
	Email string `json:"Email"`
}

type APIResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type AuditEntry struct {
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
	Subject    string    `json:"subject,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}
