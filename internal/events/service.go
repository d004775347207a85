// Package events runs one-off workshops and their registrations.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/metrics"
	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/payments"
	"github.com/stride-coaching/backend/internal/promocodes"
	"github.com/stride-coaching/backend/internal/registrations"
)

var (
	ErrNotFound          = errors.New("event not found")
	ErrSlugTaken         = errors.New("an event with this slug already exists")
	ErrEventFull         = errors.New("event is full")
	ErrAlreadyRegistered = errors.New("this email is already registered for the event")
)

// Store persists events and their registrations.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, publishedOnly bool) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateRegistration(ctx context.Context, reg *models.EventRegistration, capacity int) error
	DeleteRegistration(ctx context.Context, id uuid.UUID) error
	ListRegistrations(ctx context.Context, eventID uuid.UUID) ([]models.EventRegistration, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Promos resolves and redeems stored promo codes.
type Promos interface {
	Lookup(ctx context.Context, code string, eventID *uuid.UUID) (*models.PromoCode, error)
	Redeem(ctx context.Context, p *models.PromoCode) error
}

// RegisterRequest is the body of POST /events/:id/register.
type RegisterRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	PromoCode     string `json:"promo_code"`
	PaymentMethod string `json:"payment_method"`
}

// RegisterResult mirrors the course submission response.
type RegisterResult struct {
	Registration    *models.EventRegistration `json:"registration"`
	PaymentRequired bool                      `json:"payment_required"`
	PaymentData     *payments.PaymentData     `json:"payment_data,omitempty"`
}

// Service runs event use cases.
type Service struct {
	store    Store
	promos   Promos
	checkout registrations.Checkout
	notifier registrations.Notifier
	feed     registrations.Publisher
	logger   *zap.Logger
}

// NewService creates an event service. checkout, notifier and feed may be nil.
func NewService(store Store, promos Promos, checkout registrations.Checkout, notifier registrations.Notifier, feed registrations.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, promos: promos, checkout: checkout, notifier: notifier, feed: feed, logger: logger}
}

// Register signs one person up for a published event.
func (s *Service) Register(ctx context.Context, eventID uuid.UUID, req RegisterRequest) (*RegisterResult, error) {
	ev, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.Published {
		return nil, ErrNotFound
	}

	errs := validateRegister(req)
	if len(errs) > 0 {
		metrics.RegistrationsRejected.WithLabelValues("validation").Inc()
		return nil, &registrations.ValidationError{Fields: errs}
	}

	final := ev.Price
	var promo *models.PromoCode
	if code := strings.TrimSpace(req.PromoCode); code != "" && s.promos != nil {
		promo, err = s.promos.Lookup(ctx, code, &ev.ID)
		if err != nil {
			if promocodes.IsRejection(err) {
				return nil, &registrations.ValidationError{Fields: registrations.FieldErrors{"promo_code": err.Error()}}
			}
			return nil, fmt.Errorf("lookup promo code: %w", err)
		}
		final = promocodes.Apply(promo, ev.Price)
	}

	online := req.PaymentMethod == models.PaymentMethodOnline && final > 0
	if online && (s.checkout == nil || !s.checkout.Enabled()) {
		return nil, payments.ErrGatewayDisabled
	}

	code, err := registrations.NewCode(registrations.CodePrefixEvent)
	if err != nil {
		return nil, err
	}
	reg := &models.EventRegistration{
		EventID:       ev.ID,
		Code:          code,
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:         registrations.NormalizePhone(req.Phone),
		PaymentMethod: req.PaymentMethod,
		OriginalPrice: ev.Price,
		FinalPrice:    final,
		PaymentStatus: models.RegistrationPending,
	}
	if promo != nil {
		reg.PromoCode = promo.Code
	}
	if final == 0 {
		reg.PaymentStatus = models.RegistrationPaid
	}
	if err := s.store.CreateRegistration(ctx, reg, ev.Capacity); err != nil {
		return nil, err
	}

	res := &RegisterResult{Registration: reg}
	if online {
		data, err := s.checkout.StartCheckout(ctx, payments.CheckoutRequest{
			Kind:        models.PaymentKindEvent,
			ReferenceID: reg.ID,
			Amount:      final,
			ItemDesc:    ev.Title,
			Email:       reg.Email,
		})
		if err != nil {
			s.logger.Error("checkout failed, dropping event registration",
				zap.Error(err), zap.String("registration_id", reg.ID.String()))
			if derr := s.store.DeleteRegistration(context.WithoutCancel(ctx), reg.ID); derr != nil {
				s.logger.Error("drop event registration after failed checkout",
					zap.Error(derr), zap.String("registration_id", reg.ID.String()))
			}
			return nil, fmt.Errorf("start checkout: %w", err)
		}
		res.PaymentRequired = true
		res.PaymentData = data
	}
	// Redeemed only once the registration is certain to stay.
	if promo != nil {
		if err := s.promos.Redeem(ctx, promo); err != nil {
			s.logger.Warn("promo redemption not counted", zap.Error(err), zap.String("code", promo.Code))
		}
	}

	metrics.RegistrationsCreated.WithLabelValues(models.PaymentKindEvent, "event", reg.PaymentMethod).Inc()
	s.logger.Info("event registration created",
		zap.String("event_id", ev.ID.String()),
		zap.String("registration_id", reg.ID.String()),
		zap.Int("final_price", final))
	ref := reg.ID
	if s.notifier != nil {
		s.notifier.Notify(context.WithoutCancel(ctx), models.NotifyEventRegistrationCreated, &ref, reg)
	}
	if s.feed != nil {
		s.feed.Publish(models.NotifyEventRegistrationCreated, reg)
	}
	return res, nil
}

// UpdatePaymentStatus applies a payment outcome to an event registration.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !models.ValidRegistrationStatus(status) {
		return registrations.ErrInvalidStatus
	}
	return s.store.UpdatePaymentStatus(ctx, id, status)
}

func validateRegister(req RegisterRequest) registrations.FieldErrors {
	errs := registrations.FieldErrors{}
	if strings.TrimSpace(req.Name) == "" {
		errs["name"] = "name is required"
	}
	if !registrations.ValidEmail(req.Email) {
		errs["email"] = "please enter a valid email address"
	}
	if !registrations.ValidMobile(req.Phone) {
		errs["phone"] = "please enter a mobile number like 0912-345-678"
	}
	switch req.PaymentMethod {
	case models.PaymentMethodTransfer, models.PaymentMethodOnline:
	default:
		errs["payment_method"] = "please choose a payment method"
	}
	return errs
}
