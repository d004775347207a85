package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod values for registrations.
const (
	PaymentMethodTransfer = "transfer"
	PaymentMethodOnline   = "online"
)

// Registration payment status. Mutated by gateway callbacks and admin actions only.
const (
	RegistrationPending = "pending"
	RegistrationPaid    = "paid"
	RegistrationFailed  = "failed"
)

// ValidRegistrationStatus reports whether s is a registration payment status.
func ValidRegistrationStatus(s string) bool {
	switch s {
	case RegistrationPending, RegistrationPaid, RegistrationFailed:
		return true
	}
	return false
}

// Attendee is one person attending a course registration.
type Attendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Industry string `json:"industry,omitempty"`
}

// CourseRegistration is a persisted course registration.
type CourseRegistration struct {
	ID            uuid.UUID  `json:"id"`
	Code          string     `json:"code"`
	UserType      string     `json:"user_type"`
	Plan          string     `json:"plan"`
	SessionIDs    []string   `json:"session_ids"`
	Attendees     []Attendee `json:"attendees"`
	PaymentMethod string     `json:"payment_method"`
	PromoCode     string     `json:"promo_code,omitempty"`
	NeedInvoice   bool       `json:"need_invoice"`
	TaxID         string     `json:"tax_id,omitempty"`
	InvoiceTitle  string     `json:"invoice_title,omitempty"`
	Newsletter    bool       `json:"newsletter"`
	OriginalPrice int        `json:"original_price"`
	FinalPrice    int        `json:"final_price"`
	PaymentStatus string     `json:"payment_status"`
	Notes         string     `json:"notes,omitempty"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PrimaryEmail returns the first attendee's email.
func (r *CourseRegistration) PrimaryEmail() string {
	if len(r.Attendees) == 0 {
		return ""
	}
	return r.Attendees[0].Email
}

// HasSession reports whether id is among the selected sessions.
func (r *CourseRegistration) HasSession(id string) bool {
	for _, s := range r.SessionIDs {
		if s == id {
			return true
		}
	}
	return false
}
