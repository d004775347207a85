package pricing

import (
	"fmt"
	"strings"
)

const (
	// PartnerPromoCode is the only code recognised by the course price rule.
	PartnerPromoCode = "BNI"
	// PartnerPromoPrice replaces the list price when the code applies.
	PartnerPromoPrice = 7000
)

// PromoResult is the outcome of evaluating a code against a plan.
type PromoResult struct {
	Applied bool
	Price   int
}

// NormalizeCode trims and upper-cases a submitted code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// EvaluatePromo applies the partner code. It only matches new students on the full plan;
// every other combination keeps basePrice.
func EvaluatePromo(code string, u UserType, p Plan, basePrice int) PromoResult {
	if NormalizeCode(code) == PartnerPromoCode && u == UserNew && p == PlanFull {
		return PromoResult{Applied: true, Price: PartnerPromoPrice}
	}
	return PromoResult{Price: basePrice}
}

// Quote is the priced summary shown before and stored at submission.
type Quote struct {
	UserType        UserType `json:"user_type"`
	Plan            Plan     `json:"plan"`
	OriginalPrice   int      `json:"original_price"`
	FinalPrice      int      `json:"final_price"`
	Savings         int      `json:"savings"`
	DiscountApplied bool     `json:"discount_applied"`
	Banner          string   `json:"banner,omitempty"`
}

// NewQuote prices a plan for a user type with an optional promo code.
func NewQuote(u UserType, p Plan, code string) Quote {
	base := Price(u, p)
	res := EvaluatePromo(code, u, p, base)
	q := Quote{
		UserType:        u,
		Plan:            p,
		OriginalPrice:   base,
		FinalPrice:      res.Price,
		Savings:         base - res.Price,
		DiscountApplied: res.Applied,
	}
	if res.Applied {
		q.Banner = fmt.Sprintf("Promo code %s applied: you save NT$%s", PartnerPromoCode, formatNTD(q.Savings))
	}
	return q
}

// formatNTD renders an amount with thousands separators.
func formatNTD(n int) string {
	if n < 0 {
		return "-" + formatNTD(-n)
	}
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
