package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceTable(t *testing.T) {
	tests := []struct {
		user UserType
		plan Plan
		want int
	}{
		{UserNew, PlanSingle, 3000},
		{UserNew, PlanFull, 10000},
		{UserNew, PlanDouble, 18000},
		{UserNew, PlanTest, 1},
		{UserReturning, PlanSingle, 2500},
		{UserReturning, PlanFull, 7000},
		{UserReturning, PlanDouble, 12000},
		{UserReturning, PlanTest, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.user)+"/"+string(tt.plan), func(t *testing.T) {
			assert.Equal(t, tt.want, Price(tt.user, tt.plan))
		})
	}
}

func TestTableCoversEveryPair(t *testing.T) {
	rows := Table()
	assert.Len(t, rows, len(UserTypes)*len(Plans))
	for _, r := range rows {
		assert.Equal(t, Price(r.UserType, r.Plan), r.Price)
	}
}

func TestParse(t *testing.T) {
	u, err := ParseUserType(" Returning ")
	require.NoError(t, err)
	assert.Equal(t, UserReturning, u)

	p, err := ParsePlan("DOUBLE")
	require.NoError(t, err)
	assert.Equal(t, PlanDouble, p)

	_, err = ParseUserType("vip")
	assert.Error(t, err)
	_, err = ParsePlan("")
	assert.Error(t, err)
}

func TestPlanShape(t *testing.T) {
	assert.Equal(t, 1, PlanSingle.SessionCount())
	assert.Equal(t, 1, PlanTest.SessionCount())
	assert.Equal(t, 4, PlanFull.SessionCount())
	assert.Equal(t, 4, PlanDouble.SessionCount())
	assert.Equal(t, 2, PlanDouble.Attendees())
	assert.Equal(t, 1, PlanFull.Attendees())
	assert.True(t, PlanSingle.ReplacesSelection())
	assert.False(t, PlanFull.ReplacesSelection())
}

func TestEvaluatePromoOnlyForNewFull(t *testing.T) {
	for _, u := range UserTypes {
		for _, p := range Plans {
			for _, code := range []string{"BNI", "bni", " Bni ", "BNI2", ""} {
				base := Price(u, p)
				got := EvaluatePromo(code, u, p, base)
				wantApplied := NormalizeCode(code) == "BNI" && u == UserNew && p == PlanFull
				assert.Equal(t, wantApplied, got.Applied, "%s/%s/%q", u, p, code)
				if wantApplied {
					assert.Equal(t, 7000, got.Price)
				} else {
					assert.Equal(t, base, got.Price)
				}
			}
		}
	}
}

func TestNewQuoteWithLowercasePromo(t *testing.T) {
	q := NewQuote(UserNew, PlanFull, "bni")
	assert.Equal(t, 10000, q.OriginalPrice)
	assert.Equal(t, 7000, q.FinalPrice)
	assert.Equal(t, 3000, q.Savings)
	assert.True(t, q.DiscountApplied)
	assert.Contains(t, q.Banner, "NT$3,000")
}

func TestNewQuoteWithoutPromo(t *testing.T) {
	q := NewQuote(UserReturning, PlanFull, "bni")
	assert.Equal(t, 7000, q.FinalPrice)
	assert.Zero(t, q.Savings)
	assert.False(t, q.DiscountApplied)
	assert.Empty(t, q.Banner)
}

func TestFormatNTD(t *testing.T) {
	assert.Equal(t, "1", formatNTD(1))
	assert.Equal(t, "999", formatNTD(999))
	assert.Equal(t, "3,000", formatNTD(3000))
	assert.Equal(t, "18,000", formatNTD(18000))
	assert.Equal(t, "1,234,567", formatNTD(1234567))
	assert.Equal(t, "-3,000", formatNTD(-3000))
}
