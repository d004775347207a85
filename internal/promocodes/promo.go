// Package promocodes manages stored discount codes and the public code check.
package promocodes

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stride-coaching/backend/internal/models"
)

var (
	ErrNotFound     = errors.New("promo code not found")
	ErrInactive     = errors.New("promo code is not active")
	ErrNotYetValid  = errors.New("promo code is not valid yet")
	ErrExpired      = errors.New("promo code has expired")
	ErrExhausted    = errors.New("promo code has been fully redeemed")
	ErrWrongEvent   = errors.New("promo code does not apply to this event")
	ErrInvalidInput = errors.New("invalid promo code")
)

// Apply returns amount after the discount. The result is never negative.
func Apply(p *models.PromoCode, amount int) int {
	var out int
	switch p.DiscountType {
	case models.DiscountPercentage:
		out = amount - amount*p.DiscountValue/100
	case models.DiscountFixed:
		out = amount - p.DiscountValue
	default:
		out = amount
	}
	if out < 0 {
		return 0
	}
	return out
}

// Check reports why p cannot be used for eventID at now, or nil.
func Check(p *models.PromoCode, eventID *uuid.UUID, now time.Time) error {
	switch {
	case !p.Active:
		return ErrInactive
	case now.Before(p.ValidFrom):
		return ErrNotYetValid
	case p.ValidUntil != nil && now.After(*p.ValidUntil):
		return ErrExpired
	case p.MaxUses > 0 && p.UsedCount >= p.MaxUses:
		return ErrExhausted
	case p.EventID != nil && (eventID == nil || *p.EventID != *eventID):
		return ErrWrongEvent
	}
	return nil
}

func validDefinition(p *models.PromoCode) error {
	if p.Code == "" {
		return ErrInvalidInput
	}
	switch p.DiscountType {
	case models.DiscountPercentage:
		if p.DiscountValue <= 0 || p.DiscountValue > 100 {
			return ErrInvalidInput
		}
	case models.DiscountFixed:
		if p.DiscountValue <= 0 {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	if p.MaxUses < 0 {
		return ErrInvalidInput
	}
	return nil
}
