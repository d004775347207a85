// Package registrations validates, prices and records course registrations.
package registrations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/metrics"
	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/payments"
	"github.com/stride-coaching/backend/internal/pricing"
)

var (
	ErrNotFound            = errors.New("registration not found")
	ErrDuplicateSubmission = errors.New("this registration was just submitted, please wait before trying again")
	ErrUnknownSession      = errors.New("unknown session")
	ErrSessionFull         = errors.New("session is full")
	ErrAttendeeNotFound    = errors.New("attendee is not on this registration")
	ErrSessionNotSelected  = errors.New("registration does not include the session to transfer from")
	ErrAlreadySelected     = errors.New("registration already includes the session to transfer to")
	ErrInvalidStatus       = errors.New("invalid payment status")
	ErrNotPaid             = errors.New("only paid registrations can be checked in")
)

const guardKeyPrefix = "registration:guard:"

// ListFilter narrows the admin registration list.
type ListFilter struct {
	Status    string
	SessionID string
	Limit     int
	Offset    int
}

// Store persists course registrations.
type Store interface {
	Create(ctx context.Context, r *models.CourseRegistration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CourseRegistration, error)
	GetByCode(ctx context.Context, code string) (*models.CourseRegistration, error)
	List(ctx context.Context, f ListFilter) ([]models.CourseRegistration, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateSessions(ctx context.Context, id uuid.UUID, sessionIDs []string, notes string) error
	MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionCatalog looks up sessions and their occupancy.
type SessionCatalog interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]models.CourseSession, error)
	SeatsTaken(ctx context.Context, sessionID string) (int, error)
}

// Checkout hands a priced registration to the payment gateway.
type Checkout interface {
	Enabled() bool
	StartCheckout(ctx context.Context, req payments.CheckoutRequest) (*payments.PaymentData, error)
}

// Guard holds short-lived keys that reject repeated submissions.
type Guard interface {
	AcquireOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Notifier enqueues outbound webhook notifications.
type Notifier interface {
	Notify(ctx context.Context, eventType string, referenceID *uuid.UUID, body interface{})
}

// Publisher pushes events to the admin live feed.
type Publisher interface {
	Publish(event string, data interface{})
}

// Deps are the collaborators of Service. Guard, Checkout, Notifier and Feed may be nil.
type Deps struct {
	Store    Store
	Sessions SessionCatalog
	Checkout Checkout
	Guard    Guard
	GuardTTL time.Duration
	Notifier Notifier
	Feed     Publisher
}

// Service runs course registration use cases.
type Service struct {
	Deps
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a registration service.
func NewService(deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.GuardTTL == 0 {
		deps.GuardTTL = 30 * time.Second
	}
	return &Service{Deps: deps, logger: logger, now: time.Now}
}

// SubmitResult is returned to the form after a successful submission.
type SubmitResult struct {
	Registration    *models.CourseRegistration `json:"registration"`
	Quote           pricing.Quote              `json:"quote"`
	PaymentRequired bool                       `json:"payment_required"`
	PaymentData     *payments.PaymentData      `json:"payment_data,omitempty"`
}

// Submit validates a draft, prices it on the server and records it. Online registrations with a
// non-zero price come back with the signed gateway form.
func (s *Service) Submit(ctx context.Context, d Draft) (result *SubmitResult, err error) {
	if errs := ValidateDraft(d); len(errs) > 0 {
		metrics.RegistrationsRejected.WithLabelValues("validation").Inc()
		return nil, &ValidationError{Fields: errs}
	}
	n := normalize(d)
	quote := pricing.NewQuote(n.userType, n.plan, n.draft.PromoCode)
	online := n.draft.PaymentMethod == models.PaymentMethodOnline && quote.FinalPrice > 0
	if online && (s.Checkout == nil || !s.Checkout.Enabled()) {
		return nil, payments.ErrGatewayDisabled
	}

	key := guardKeyPrefix + fingerprint(n)
	if s.Guard != nil {
		ok, gerr := s.Guard.AcquireOnce(ctx, key, s.GuardTTL)
		switch {
		case gerr != nil:
			s.logger.Warn("duplicate-submit guard unavailable", zap.Error(gerr))
		case !ok:
			metrics.RegistrationsRejected.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicateSubmission
		default:
			defer func() {
				if err != nil {
					if rerr := s.Guard.Release(context.WithoutCancel(ctx), key); rerr != nil {
						s.logger.Warn("release duplicate-submit guard", zap.Error(rerr))
					}
				}
			}()
		}
	}

	if err := s.checkSeats(ctx, n.selection.IDs(), len(n.attendees)); err != nil {
		metrics.RegistrationsRejected.WithLabelValues("sessions").Inc()
		return nil, err
	}

	code, err := NewCode(CodePrefixCourse)
	if err != nil {
		return nil, err
	}
	reg := &models.CourseRegistration{
		Code:          code,
		UserType:      string(n.userType),
		Plan:          string(n.plan),
		SessionIDs:    n.selection.IDs(),
		Attendees:     n.attendees,
		PaymentMethod: n.draft.PaymentMethod,
		PromoCode:     n.draft.PromoCode,
		NeedInvoice:   n.draft.NeedInvoice,
		TaxID:         n.draft.TaxID,
		InvoiceTitle:  n.draft.InvoiceTitle,
		Newsletter:    n.draft.Newsletter,
		OriginalPrice: quote.OriginalPrice,
		FinalPrice:    quote.FinalPrice,
		PaymentStatus: models.RegistrationPending,
	}
	if quote.FinalPrice == 0 {
		reg.PaymentStatus = models.RegistrationPaid
	}
	if err := s.Store.Create(ctx, reg); err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}

	result = &SubmitResult{Registration: reg, Quote: quote}
	if online {
		data, err := s.Checkout.StartCheckout(ctx, payments.CheckoutRequest{
			Kind:        models.PaymentKindCourse,
			ReferenceID: reg.ID,
			Amount:      reg.FinalPrice,
			ItemDesc:    itemDesc(n.plan),
			Email:       reg.PrimaryEmail(),
		})
		if err != nil {
			s.logger.Error("checkout failed, dropping registration",
				zap.Error(err), zap.String("registration_id", reg.ID.String()))
			if derr := s.Store.Delete(context.WithoutCancel(ctx), reg.ID); derr != nil {
				s.logger.Error("drop registration after failed checkout",
					zap.Error(derr), zap.String("registration_id", reg.ID.String()))
			}
			return nil, fmt.Errorf("start checkout: %w", err)
		}
		result.PaymentRequired = true
		result.PaymentData = data
	}

	metrics.RegistrationsCreated.WithLabelValues(models.PaymentKindCourse, reg.Plan, reg.PaymentMethod).Inc()
	s.logger.Info("registration created",
		zap.String("registration_id", reg.ID.String()),
		zap.String("code", reg.Code),
		zap.String("plan", reg.Plan),
		zap.Int("final_price", reg.FinalPrice),
		zap.Bool("payment_required", result.PaymentRequired))
	s.announce(ctx, models.NotifyRegistrationCreated, reg)
	return result, nil
}

// PreviewRequest is the body of POST /registrations/preview.
type PreviewRequest struct {
	UserType         string   `json:"user_type"`
	Plan             string   `json:"plan"`
	PromoCode        string   `json:"promo_code"`
	SelectedSessions []string `json:"selected_sessions"`
	Toggle           string   `json:"toggle"`
}

// PreviewResult is what the form renders between clicks.
type PreviewResult struct {
	Quote            pricing.Quote `json:"quote"`
	SelectedSessions []string      `json:"selected_sessions"`
	Fields           FieldErrors   `json:"fields,omitempty"`
}

// Preview prices a plan and applies an optional session click without storing anything.
func (s *Service) Preview(req PreviewRequest) (*PreviewResult, error) {
	errs := FieldErrors{}
	u, err := pricing.ParseUserType(req.UserType)
	if err != nil {
		errs.add("user_type", "please choose new or returning student")
	}
	p, err := pricing.ParsePlan(req.Plan)
	if err != nil {
		errs.add("plan", "please choose a plan")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	sel := NewSelection(p, req.SelectedSessions)
	if req.Toggle != "" {
		sel.Toggle(req.Toggle)
	}
	res := &PreviewResult{
		Quote:            pricing.NewQuote(u, p, req.PromoCode),
		SelectedSessions: sel.IDs(),
	}
	if err := sel.Validate(); err != nil {
		res.Fields = FieldErrors{"sessions": err.Error()}
	}
	return res, nil
}

// TransferRequest moves a registration from one session to another.
type TransferRequest struct {
	AttendeeEmail string `json:"attendee_email" binding:"required"`
	FromSessionID string `json:"from_session_id" binding:"required"`
	ToSessionID   string `json:"to_session_id" binding:"required"`
	Reason        string `json:"reason"`
}

// TransferSession swaps one selected session for another and appends an audit note. Every
// attendee on the registration moves, so the target needs a seat for each of them.
func (s *Service) TransferSession(ctx context.Context, id uuid.UUID, req TransferRequest) (*models.CourseRegistration, error) {
	reg, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, notes, err := applyTransfer(reg, req, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.checkSeats(ctx, []string{strings.TrimSpace(req.ToSessionID)}, len(reg.Attendees)); err != nil {
		return nil, err
	}
	if err := s.Store.UpdateSessions(ctx, reg.ID, ids, notes); err != nil {
		return nil, fmt.Errorf("update sessions: %w", err)
	}
	reg.SessionIDs = ids
	reg.Notes = notes

	s.logger.Info("session transferred",
		zap.String("registration_id", reg.ID.String()),
		zap.String("from_session_id", req.FromSessionID),
		zap.String("to_session_id", req.ToSessionID))
	s.announce(ctx, models.NotifySessionTransferred, reg)
	return reg, nil
}

// applyTransfer returns the new session list and notes without touching storage.
func applyTransfer(reg *models.CourseRegistration, req TransferRequest, now time.Time) ([]string, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.AttendeeEmail))
	from := strings.TrimSpace(req.FromSessionID)
	to := strings.TrimSpace(req.ToSessionID)

	found := false
	for _, a := range reg.Attendees {
		if strings.EqualFold(a.Email, email) {
			found = true
			break
		}
	}
	if !found {
		return nil, "", ErrAttendeeNotFound
	}
	if !reg.HasSession(from) {
		return nil, "", ErrSessionNotSelected
	}
	if reg.HasSession(to) {
		return nil, "", ErrAlreadySelected
	}

	ids := make([]string, len(reg.SessionIDs))
	for i, cur := range reg.SessionIDs {
		if cur == from {
			cur = to
		}
		ids[i] = cur
	}

	line := fmt.Sprintf("[%s] transfer %s: %s -> %s", now.UTC().Format(time.RFC3339), email, from, to)
	if r := strings.TrimSpace(req.Reason); r != "" {
		line += " (" + r + ")"
	}
	notes := line
	if reg.Notes != "" {
		notes = reg.Notes + "\n" + line
	}
	return ids, notes, nil
}

// UpdatePaymentStatus sets the payment status of a registration. Payment callbacks use it directly.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !models.ValidRegistrationStatus(status) {
		return ErrInvalidStatus
	}
	return s.Store.UpdatePaymentStatus(ctx, id, status)
}

// PaymentStatus reports the stored status so gateway callbacks can leave an admin override in place.
func (s *Service) PaymentStatus(ctx context.Context, id uuid.UUID) (string, error) {
	reg, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return reg.PaymentStatus, nil
}

// OverridePaymentStatus is the admin path for UpdatePaymentStatus, e.g. when a bank transfer arrives.
func (s *Service) OverridePaymentStatus(ctx context.Context, id uuid.UUID, status string) (*models.CourseRegistration, error) {
	if err := s.UpdatePaymentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	reg, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment status overridden", zap.String("registration_id", id.String()), zap.String("status", status))
	s.announce(ctx, models.NotifyPaymentUpdated, reg)
	return reg, nil
}

// CheckIn marks a paid registration as arrived. Checking in twice keeps the first time.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*models.CourseRegistration, error) {
	reg, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.PaymentStatus != models.RegistrationPaid {
		return nil, ErrNotPaid
	}
	if reg.CheckedInAt != nil {
		return reg, nil
	}
	at := s.now()
	if err := s.Store.MarkCheckedIn(ctx, id, at); err != nil {
		return nil, err
	}
	reg.CheckedInAt = &at
	return reg, nil
}

// Get returns one registration.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.CourseRegistration, error) {
	return s.Store.GetByID(ctx, id)
}

// GetByCode returns the registration a check-in code belongs to.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.CourseRegistration, error) {
	return s.Store.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// List returns registrations for the admin table.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.CourseRegistration, error) {
	return s.Store.List(ctx, f)
}

func (s *Service) checkSeats(ctx context.Context, ids []string, seats int) error {
	found, err := s.Sessions.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	for _, id := range ids {
		sess, ok := found[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSession, id)
		}
		if sess.Capacity == 0 {
			continue
		}
		taken, err := s.Sessions.SeatsTaken(ctx, id)
		if err != nil {
			return fmt.Errorf("count seats: %w", err)
		}
		if taken+seats > sess.Capacity {
			return fmt.Errorf("%w: %s", ErrSessionFull, sess.Name)
		}
	}
	return nil
}

// announce runs after the write has committed, so it must not depend on the caller staying connected.
func (s *Service) announce(ctx context.Context, event string, reg *models.CourseRegistration) {
	ref := reg.ID
	if s.Notifier != nil {
		s.Notifier.Notify(context.WithoutCancel(ctx), event, &ref, reg)
	}
	if s.Feed != nil {
		s.Feed.Publish(event, reg)
	}
}

func fingerprint(n normalized) string {
	ids := n.selection.IDs()
	sort.Strings(ids)
	email := ""
	if len(n.attendees) > 0 {
		email = n.attendees[0].Email
	}
	sum := sha256.Sum256([]byte(email + "|" + string(n.plan) + "|" + strings.Join(ids, ",")))
	return hex.EncodeToString(sum[:16])
}

func itemDesc(p pricing.Plan) string {
	return "Course registration (" + string(p) + " plan)"
}
