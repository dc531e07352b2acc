// Package notify fans client events out to registered senders: the
// agent's SSE hub, the log, or anything else that implements Sender.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Broadcast event names understood by subscribed clients.
const (
	EventCheckAuth   = "CHECK_AUTH"
	EventAuthSuccess = "AUTH_SUCCESS"
	EventAuthFailure = "AUTH_FAILURE"
	EventPendingRepo = "PENDING_REPO"
)

// Severity classifies an event for display purposes.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Event is one client notification.
type Event struct {
	// ID uniquely identifies the event
	ID string `json:"id"`

	// Name is the broadcast name (AUTH_SUCCESS, ...)
	Name string `json:"name"`

	// Severity is the display classification
	Severity Severity `json:"severity"`

	// Message is the human-readable text
	Message string `json:"message,omitempty"`

	// Data carries event-specific payload
	Data any `json:"data,omitempty"`

	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event with a fresh id and timestamp.
func NewEvent(name string, severity Severity, message string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Name:      name,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Sender is the interface for event senders.
type Sender interface {
	// Send delivers the event. Returns an error if delivery failed.
	Send(ctx context.Context, event *Event) error

	// Name returns the sender's name for logging purposes.
	Name() string
}
