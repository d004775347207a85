package promocodes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/pricing"
)

// Store persists promo codes.
type Store interface {
	Create(ctx context.Context, p *models.PromoCode) error
	Update(ctx context.Context, p *models.PromoCode) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error)
	GetByCode(ctx context.Context, code string) (*models.PromoCode, error)
	List(ctx context.Context) ([]models.PromoCode, error)
	Redeem(ctx context.Context, id uuid.UUID) error
}

// ValidateRequest is the body of POST /promo-codes/validate.
type ValidateRequest struct {
	Code     string     `json:"code"`
	EventID  *uuid.UUID `json:"event_id"`
	Plan     string     `json:"plan"`
	UserType string     `json:"user_type"`
	Amount   int        `json:"amount"`
}

// CodeSummary is the public view of a code that matched.
type CodeSummary struct {
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type"`
	DiscountValue int    `json:"discount_value"`
	Description   string `json:"description"`
}

// ValidateResult is the response of POST /promo-codes/validate.
type ValidateResult struct {
	Valid       bool         `json:"valid"`
	PromoCode   *CodeSummary `json:"promo_code,omitempty"`
	FinalAmount int          `json:"final_amount"`
	Message     string       `json:"message,omitempty"`
}

// Service checks and redeems promo codes.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a promo code service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Validate checks a code. With plan and user type it runs the course price rule; otherwise it looks
// up stored event codes. An unusable code is a normal result with Valid false.
func (s *Service) Validate(ctx context.Context, req ValidateRequest) (*ValidateResult, error) {
	code := pricing.NormalizeCode(req.Code)
	if req.Plan != "" || req.UserType != "" {
		return validateCourse(code, req)
	}

	res := &ValidateResult{FinalAmount: req.Amount}
	if code == "" {
		res.Message = ErrNotFound.Error()
		return res, nil
	}
	p, err := s.Lookup(ctx, code, req.EventID)
	if err != nil {
		if IsRejection(err) {
			res.Message = err.Error()
			return res, nil
		}
		return nil, err
	}
	res.Valid = true
	res.PromoCode = summarize(p)
	res.FinalAmount = Apply(p, req.Amount)
	return res, nil
}

func validateCourse(code string, req ValidateRequest) (*ValidateResult, error) {
	u, err := pricing.ParseUserType(req.UserType)
	if err != nil {
		return nil, err
	}
	plan, err := pricing.ParsePlan(req.Plan)
	if err != nil {
		return nil, err
	}
	q := pricing.NewQuote(u, plan, code)
	res := &ValidateResult{Valid: q.DiscountApplied, FinalAmount: q.FinalPrice}
	if !q.DiscountApplied {
		res.Message = "promo code does not apply to this plan"
		return res, nil
	}
	res.PromoCode = &CodeSummary{
		Code:          pricing.PartnerPromoCode,
		DiscountType:  models.DiscountFixed,
		DiscountValue: q.Savings,
		Description:   q.Banner,
	}
	return res, nil
}

// Lookup returns a stored code that is usable for eventID right now.
func (s *Service) Lookup(ctx context.Context, code string, eventID *uuid.UUID) (*models.PromoCode, error) {
	p, err := s.store.GetByCode(ctx, pricing.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if err := Check(p, eventID, s.now()); err != nil {
		return nil, err
	}
	return p, nil
}

// Redeem counts one use of a code. It fails with ErrExhausted when the last use was taken concurrently.
func (s *Service) Redeem(ctx context.Context, p *models.PromoCode) error {
	if err := s.store.Redeem(ctx, p.ID); err != nil {
		return err
	}
	s.logger.Info("promo code redeemed", zap.String("code", p.Code))
	return nil
}

// Create stores a new code.
func (s *Service) Create(ctx context.Context, p *models.PromoCode) error {
	p.Code = pricing.NormalizeCode(p.Code)
	if err := validDefinition(p); err != nil {
		return err
	}
	if p.ValidFrom.IsZero() {
		p.ValidFrom = s.now()
	}
	return s.store.Create(ctx, p)
}

// Update rewrites an existing code.
func (s *Service) Update(ctx context.Context, p *models.PromoCode) error {
	p.Code = pricing.NormalizeCode(p.Code)
	if err := validDefinition(p); err != nil {
		return err
	}
	return s.store.Update(ctx, p)
}

// Delete removes a code.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

// List returns every stored code.
func (s *Service) List(ctx context.Context) ([]models.PromoCode, error) {
	return s.store.List(ctx)
}

func summarize(p *models.PromoCode) *CodeSummary {
	return &CodeSummary{
		Code:          p.Code,
		DiscountType:  p.DiscountType,
		DiscountValue: p.DiscountValue,
		Description:   p.Description,
	}
}

// IsRejection reports whether err means the code cannot be used, as opposed to a storage failure.
func IsRejection(err error) bool {
	for _, e := range []error{ErrNotFound, ErrInactive, ErrNotYetValid, ErrExpired, ErrExhausted, ErrWrongEvent} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
