package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a one-off workshop or talk with its own registration form.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Price       int        `json:"price"`
	Capacity    int        `json:"capacity"` // 0 = unlimited
	Published   bool       `json:"published"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EventRegistration is one attendee registered for an event.
type EventRegistration struct {
	ID            uuid.UUID `json:"id"`
	EventID       uuid.UUID `json:"event_id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	PromoCode     string    `json:"promo_code,omitempty"`
	PaymentMethod string    `json:"payment_method"`
	OriginalPrice int       `json:"original_price"`
	FinalPrice    int       `json:"final_price"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
