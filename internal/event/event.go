package event

import "time"

type Type string

const (
	TypeUserRegistered Type = "auth.register"
	TypeLoginSucceeded Type = "auth.login.success"
	TypeLoginFailed    Type = "auth.login.failure"
	TypeResetRequested Type = "auth.reset.request"
	TypeResetConfirmed Type = "auth.reset.confirm"
	TypeResetRejected  Type = "auth.reset.reject"
)

// Event is a security-relevant fact about an account. It never carries
// passwords or tokens.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Subject   string    `json:"subject,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
