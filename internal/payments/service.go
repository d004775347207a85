// Package payments hands registrations to the NewebPay hosted checkout and applies its callbacks.
package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/metrics"
	"github.com/stride-coaching/backend/internal/models"
)

var (
	// ErrNotFound is returned when no payment matches.
	ErrNotFound = errors.New("payment not found")
	// ErrGatewayDisabled is returned when online payment is not configured.
	ErrGatewayDisabled = errors.New("online payment is not available")
	// ErrAmountMismatch is returned when the gateway reports a different amount than was charged.
	ErrAmountMismatch = errors.New("paid amount does not match order")
)

// Store persists payment records.
type Store interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByMerchantOrderNo(ctx context.Context, orderNo string) (*models.Payment, error)
	UpdateResult(ctx context.Context, p *models.Payment) error
	List(ctx context.Context, limit, offset int) ([]models.Payment, error)
}

// StatusUpdater applies a payment status to the registration that owns a payment.
type StatusUpdater interface {
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) error
}

// StatusReader is implemented by owners whose status can change outside the gateway, such as an
// admin override. HandleNotify never moves such a registration out of paid.
type StatusReader interface {
	PaymentStatus(ctx context.Context, id uuid.UUID) (string, error)
}

// Notifier enqueues outbound webhook notifications.
type Notifier interface {
	Notify(ctx context.Context, eventType string, referenceID *uuid.UUID, body interface{})
}

// Publisher pushes events to the admin live feed.
type Publisher interface {
	Publish(event string, data interface{})
}

// CheckoutRequest describes a registration that needs online payment.
type CheckoutRequest struct {
	Kind        string
	ReferenceID uuid.UUID
	Amount      int
	ItemDesc    string
	Email       string
}

// Service creates payment records and applies gateway notifications.
type Service struct {
	store    Store
	gateway  *Gateway
	owners   map[string]StatusUpdater
	notifier Notifier
	feed     Publisher
	logger   *zap.Logger
}

// NewService creates a payments service. gateway may be nil when online payment is disabled.
func NewService(store Store, gateway *Gateway, notifier Notifier, feed Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		gateway:  gateway,
		owners:   make(map[string]StatusUpdater),
		notifier: notifier,
		feed:     feed,
		logger:   logger,
	}
}

// SetOwner registers the registration store for a payment kind.
func (s *Service) SetOwner(kind string, u StatusUpdater) {
	s.owners[kind] = u
}

// Enabled reports whether online checkout is available.
func (s *Service) Enabled() bool { return s.gateway != nil }

// StartCheckout records a pending payment and returns the signed gateway form.
func (s *Service) StartCheckout(ctx context.Context, req CheckoutRequest) (*PaymentData, error) {
	if s.gateway == nil {
		return nil, ErrGatewayDisabled
	}
	orderNo, err := NewMerchantOrderNo(req.Kind, time.Now())
	if err != nil {
		return nil, err
	}
	p := &models.Payment{
		Kind:            req.Kind,
		ReferenceID:     req.ReferenceID,
		MerchantOrderNo: orderNo,
		Provider:        models.PaymentProviderNewebPay,
		Amount:          req.Amount,
		Status:          models.RegistrationPending,
	}
	data, err := s.gateway.Checkout(Order{
		MerchantOrderNo: orderNo,
		Amount:          req.Amount,
		ItemDesc:        req.ItemDesc,
		Email:           req.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("build checkout: %w", err)
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	s.logger.Info("checkout started",
		zap.String("merchant_order_no", orderNo),
		zap.String("kind", req.Kind),
		zap.String("reference_id", req.ReferenceID.String()),
		zap.Int("amount", req.Amount))
	return data, nil
}

// HandleNotify verifies a gateway callback and applies it to the payment and its registration.
// Repeated notifications for an already paid order are accepted and ignored.
func (s *Service) HandleNotify(ctx context.Context, tradeInfo, tradeSha string) (*models.Payment, error) {
	if s.gateway == nil {
		return nil, ErrGatewayDisabled
	}
	n, err := s.gateway.ParseNotify(tradeInfo, tradeSha)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetByMerchantOrderNo(ctx, n.Result.MerchantOrderNo)
	if err != nil {
		return nil, err
	}
	if p.Status == models.RegistrationPaid {
		s.logger.Info("duplicate payment notification ignored", zap.String("merchant_order_no", p.MerchantOrderNo))
		return p, nil
	}

	status := models.RegistrationFailed
	var notifyErr error
	switch {
	case !n.Succeeded():
	case n.Result.Amt != p.Amount:
		notifyErr = ErrAmountMismatch
		n.Message = fmt.Sprintf("amount mismatch: expected %d, got %d", p.Amount, n.Result.Amt)
	default:
		status = models.RegistrationPaid
	}
	applyNotification(p, n, status)

	if err := s.store.UpdateResult(ctx, p); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	if owner, ok := s.owners[p.Kind]; ok {
		if err := s.applyToOwner(ctx, owner, p, status); err != nil {
			return nil, err
		}
	} else {
		s.logger.Warn("no registration owner for payment kind", zap.String("kind", p.Kind))
	}

	metrics.PaymentNotifications.WithLabelValues(status).Inc()
	s.logger.Info("payment notification applied",
		zap.String("merchant_order_no", p.MerchantOrderNo),
		zap.String("status", status),
		zap.String("gateway_status", n.Status))
	s.announce(ctx, p)
	return p, notifyErr
}

func (s *Service) applyToOwner(ctx context.Context, owner StatusUpdater, p *models.Payment, status string) error {
	if r, ok := owner.(StatusReader); ok && status != models.RegistrationPaid {
		current, err := r.PaymentStatus(ctx, p.ReferenceID)
		if err != nil {
			return fmt.Errorf("read %s registration: %w", p.Kind, err)
		}
		if current == models.RegistrationPaid {
			s.logger.Warn("gateway result would downgrade a paid registration, keeping paid",
				zap.String("merchant_order_no", p.MerchantOrderNo),
				zap.String("reference_id", p.ReferenceID.String()),
				zap.String("status", status))
			return nil
		}
	}
	if err := owner.UpdatePaymentStatus(ctx, p.ReferenceID, status); err != nil {
		return fmt.Errorf("update %s registration: %w", p.Kind, err)
	}
	return nil
}

// ParseReturn decodes the payload the gateway posts when the buyer's browser comes back.
func (s *Service) ParseReturn(tradeInfo, tradeSha string) (*Notification, error) {
	if s.gateway == nil {
		return nil, ErrGatewayDisabled
	}
	return s.gateway.ParseNotify(tradeInfo, tradeSha)
}

// List returns payment records newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Payment, error) {
	return s.store.List(ctx, limit, offset)
}

func (s *Service) announce(ctx context.Context, p *models.Payment) {
	ref := p.ReferenceID
	if s.notifier != nil {
		s.notifier.Notify(context.WithoutCancel(ctx), models.NotifyPaymentUpdated, &ref, p)
	}
	if s.feed != nil {
		s.feed.Publish(models.NotifyPaymentUpdated, p)
	}
}

func applyNotification(p *models.Payment, n *Notification, status string) {
	p.Status = status
	p.TradeNo = n.Result.TradeNo
	p.PaymentType = n.Result.PaymentType
	p.Message = n.Message
	if status == models.RegistrationPaid {
		now := time.Now()
		p.PaidAt = &now
	}
}

// NewMerchantOrderNo returns a gateway order number: kind prefix, unix seconds, 4 random hex chars.
func NewMerchantOrderNo(kind string, now time.Time) (string, error) {
	prefix := "R"
	if kind == models.PaymentKindEvent {
		prefix = "E"
	}
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("order number entropy: %w", err)
	}
	return prefix + strconv.FormatInt(now.Unix(), 10) + hex.EncodeToString(b), nil
}
