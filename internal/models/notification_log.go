package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification event types sent to outbound webhooks.
const (
	NotifyRegistrationCreated      = "registration.created"
	NotifyEventRegistrationCreated = "event_registration.created"
	NotifyPaymentUpdated           = "payment.updated"
	NotifyContactCreated           = "contact.created"
	NotifySessionTransferred       = "registration.session_transferred"
)

// NotificationLog delivery status.
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationLog records one outbound webhook delivery attempt.
type NotificationLog struct {
	ID           uuid.UUID       `json:"id"`
	EventType    string          `json:"event_type"`
	TargetURL    string          `json:"target_url"`
	ReferenceID  *uuid.UUID      `json:"reference_id,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	Attempt      int             `json:"attempt"`
	ResponseCode int             `json:"response_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	SentAt       *time.Time      `json:"sent_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
