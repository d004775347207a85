// Package contacts stores messages from the public contact form.
package contacts

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/registrations"
	"github.com/stride-coaching/backend/pkg/response"
)

// EventCreated is the webhook event type for new messages.
const EventCreated = models.NotifyContactCreated

// MaxMessageLength caps the message body in characters.
const MaxMessageLength = 5000

// Store persists contact messages.
type Store interface {
	Create(ctx context.Context, m *models.Contact) error
	List(ctx context.Context, limit, offset int) ([]models.Contact, error)
}

// Notifier enqueues outbound webhooks.
type Notifier interface {
	Notify(ctx context.Context, eventType string, referenceID *uuid.UUID, body interface{})
}

// CreateRequest is the body for POST /contacts.
type CreateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Validate returns field errors; an empty map means the request is acceptable.
func (r CreateRequest) Validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(r.Name) == "" {
		errs["name"] = "name is required"
	}
	if !registrations.ValidEmail(r.Email) {
		errs["email"] = "please enter a valid email address"
	}
	if strings.TrimSpace(r.Phone) != "" && !registrations.ValidMobile(r.Phone) {
		errs["phone"] = "please enter a mobile number like 0912-345-678"
	}
	msg := strings.TrimSpace(r.Message)
	switch {
	case msg == "":
		errs["message"] = "message is required"
	case utf8.RuneCountInString(msg) > MaxMessageLength:
		errs["message"] = "message is too long"
	}
	return errs
}

// Handler handles contact endpoints.
type Handler struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a contact handler. notifier may be nil.
func NewHandler(store Store, notifier Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, notifier: notifier, logger: logger}
}

// Create handles POST /contacts.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		response.Invalid(c, "please correct the highlighted fields", fields)
		return
	}
	m := &models.Contact{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   registrations.NormalizePhone(req.Phone),
		Message: strings.TrimSpace(req.Message),
	}
	ctx := c.Request.Context()
	if err := h.store.Create(ctx, m); err != nil {
		h.logger.Error("save contact failed", zap.Error(err))
		response.Internal(c, "failed to send message")
		return
	}
	if h.notifier != nil {
		h.notifier.Notify(context.WithoutCancel(ctx), EventCreated, &m.ID, m)
	}
	h.logger.Info("contact message received", zap.String("contact_id", m.ID.String()))
	response.Created(c, gin.H{"id": m.ID})
}

// List handles GET /admin/contacts.
func (h *Handler) List(c *gin.Context) {
	limit, offset := response.Page(c)
	list, err := h.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list contacts failed", zap.Error(err))
		response.Internal(c, "failed to list messages")
		return
	}
	if list == nil {
		list = []models.Contact{}
	}
	response.OK(c, list)
}
