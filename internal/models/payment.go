package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentProviderNewebPay is the only gateway wired today.
const PaymentProviderNewebPay = "newebpay"

// PaymentKind says which registration table a payment belongs to.
const (
	PaymentKindCourse = "course"
	PaymentKindEvent  = "event"
)

// Payment is one gateway checkout attempt for a registration.
type Payment struct {
	ID              uuid.UUID  `json:"id"`
	Kind            string     `json:"kind"`
	ReferenceID     uuid.UUID  `json:"reference_id"`
	MerchantOrderNo string     `json:"merchant_order_no"`
	Provider        string     `json:"provider"`
	Amount          int        `json:"amount"`
	Status          string     `json:"status"` // pending | paid | failed
	TradeNo         string     `json:"trade_no,omitempty"`
	PaymentType     string     `json:"payment_type,omitempty"`
	Message         string     `json:"message,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
