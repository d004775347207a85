package promocodes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-coaching/backend/internal/models"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		typ    string
		value  int
		amount int
		want   int
	}{
		{"percentage", models.DiscountPercentage, 20, 1500, 1200},
		{"full percentage", models.DiscountPercentage, 100, 1500, 0},
		{"fixed", models.DiscountFixed, 300, 1500, 1200},
		{"fixed above amount clamps to zero", models.DiscountFixed, 3000, 1500, 0},
		{"unknown type keeps amount", "bogus", 50, 1500, 1500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.PromoCode{DiscountType: tt.typ, DiscountValue: tt.value}
			assert.Equal(t, tt.want, Apply(p, tt.amount))
		})
	}
}

func TestCheck(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	event := uuid.New()
	other := uuid.New()
	base := func() *models.PromoCode {
		return &models.PromoCode{Active: true, ValidFrom: now.Add(-24 * time.Hour)}
	}

	assert.NoError(t, Check(base(), nil, now))

	p := base()
	p.Active = false
	assert.ErrorIs(t, Check(p, nil, now), ErrInactive)

	p = base()
	p.ValidFrom = now.Add(time.Hour)
	assert.ErrorIs(t, Check(p, nil, now), ErrNotYetValid)

	p = base()
	p.ValidUntil = &past
	assert.ErrorIs(t, Check(p, nil, now), ErrExpired)

	p = base()
	p.MaxUses, p.UsedCount = 5, 5
	assert.ErrorIs(t, Check(p, nil, now), ErrExhausted)

	p = base()
	p.EventID = &event
	assert.NoError(t, Check(p, &event, now))
	assert.ErrorIs(t, Check(p, &other, now), ErrWrongEvent)
	assert.ErrorIs(t, Check(p, nil, now), ErrWrongEvent)
}

type memStore struct {
	codes map[string]*models.PromoCode
}

func (m *memStore) Create(_ context.Context, p *models.PromoCode) error {
	p.ID = uuid.New()
	m.codes[p.Code] = p
	return nil
}
func (m *memStore) Update(_ context.Context, p *models.PromoCode) error {
	m.codes[p.Code] = p
	return nil
}
func (m *memStore) Delete(context.Context, uuid.UUID) error { return nil }
func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.PromoCode, error) {
	for _, p := range m.codes {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrNotFound
}
func (m *memStore) GetByCode(_ context.Context, code string) (*models.PromoCode, error) {
	p, ok := m.codes[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}
func (m *memStore) List(context.Context) ([]models.PromoCode, error) { return nil, nil }
func (m *memStore) Redeem(_ context.Context, id uuid.UUID) error {
	for _, p := range m.codes {
		if p.ID == id {
			if p.MaxUses > 0 && p.UsedCount >= p.MaxUses {
				return ErrExhausted
			}
			p.UsedCount++
			return nil
		}
	}
	return ErrNotFound
}

func TestValidateStoredCode(t *testing.T) {
	svc := NewService(&memStore{codes: map[string]*models.PromoCode{}}, nil)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, &models.PromoCode{
		Code: " early20 ", DiscountType: models.DiscountPercentage, DiscountValue: 20, Description: "Early bird", Active: true,
		ValidFrom: time.Now().Add(-time.Hour), MaxUses: 1,
	}))

	res, err := svc.Validate(ctx, ValidateRequest{Code: "Early20", Amount: 2000})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 1600, res.FinalAmount)
	assert.Equal(t, "EARLY20", res.PromoCode.Code)
	assert.Equal(t, models.DiscountPercentage, res.PromoCode.DiscountType)

	p, err := svc.Lookup(ctx, "early20", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Redeem(ctx, p))
	assert.ErrorIs(t, svc.Redeem(ctx, p), ErrExhausted)

	res, err = svc.Validate(ctx, ValidateRequest{Code: "EARLY20", Amount: 2000})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, 2000, res.FinalAmount)
	assert.Equal(t, ErrExhausted.Error(), res.Message)

	res, err = svc.Validate(ctx, ValidateRequest{Code: "NOPE", Amount: 2000})
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestValidateCourseRule(t *testing.T) {
	svc := NewService(&memStore{codes: map[string]*models.PromoCode{}}, nil)
	ctx := context.Background()

	res, err := svc.Validate(ctx, ValidateRequest{Code: "bni", Plan: "full", UserType: "new"})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 7000, res.FinalAmount)
	assert.Equal(t, models.DiscountFixed, res.PromoCode.DiscountType)
	assert.Equal(t, 3000, res.PromoCode.DiscountValue)

	res, err = svc.Validate(ctx, ValidateRequest{Code: "BNI", Plan: "full", UserType: "returning"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, 7000, res.FinalAmount)
	assert.Nil(t, res.PromoCode)

	_, err = svc.Validate(ctx, ValidateRequest{Code: "BNI", Plan: "gold", UserType: "new"})
	assert.Error(t, err)
}

func TestCreateRejectsBadDefinitions(t *testing.T) {
	svc := NewService(&memStore{codes: map[string]*models.PromoCode{}}, nil)
	ctx := context.Background()
	assert.ErrorIs(t, svc.Create(ctx, &models.PromoCode{Code: "X", DiscountType: models.DiscountPercentage, DiscountValue: 120}), ErrInvalidInput)
	assert.ErrorIs(t, svc.Create(ctx, &models.PromoCode{Code: "", DiscountType: models.DiscountFixed, DiscountValue: 10}), ErrInvalidInput)
	assert.ErrorIs(t, svc.Create(ctx, &models.PromoCode{Code: "X", DiscountType: "free", DiscountValue: 10}), ErrInvalidInput)
}
