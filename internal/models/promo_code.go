package models

import (
	"time"

	"github.com/google/uuid"
)

// Promo code discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// PromoCode is a stored discount code for events.
type PromoCode struct {
	ID            uuid.UUID  `json:"id"`
	Code          string     `json:"code"`
	EventID       *uuid.UUID `json:"event_id,omitempty"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue int        `json:"discount_value"`
	Description   string     `json:"description"`
	MaxUses       int        `json:"max_uses"`
	UsedCount     int        `json:"used_count"`
	ValidFrom     time.Time  `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
