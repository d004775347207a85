package events

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/payments"
	"github.com/stride-coaching/backend/internal/registrations"
	"github.com/stride-coaching/backend/pkg/response"
	"github.com/stride-coaching/backend/pkg/utils"
)

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// CreateRequest is the body for POST /admin/events.
type CreateRequest struct {
	Title       string  `json:"title" binding:"required"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	StartsAt    string  `json:"starts_at" binding:"required"`
	EndsAt      *string `json:"ends_at"`
	Price       int     `json:"price" binding:"min=0"`
	Capacity    int     `json:"capacity" binding:"min=0"`
	Published   bool    `json:"published"`
}

// UpdateRequest is the body for PATCH /admin/events/:id. Absent fields keep their value.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	StartsAt    *string `json:"starts_at"`
	EndsAt      *string `json:"ends_at"`
	Price       *int    `json:"price"`
	Capacity    *int    `json:"capacity"`
	Published   *bool   `json:"published"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	store  Store
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(store Store, svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, svc: svc, logger: logger}
}

// List handles GET /events (published only).
func (h *Handler) List(c *gin.Context) {
	h.list(c, true)
}

// AdminList handles GET /admin/events (drafts included).
func (h *Handler) AdminList(c *gin.Context) {
	h.list(c, false)
}

func (h *Handler) list(c *gin.Context, publishedOnly bool) {
	list, err := h.store.List(c.Request.Context(), publishedOnly)
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	if list == nil {
		list = []models.Event{}
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil || !e.Published {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// Create handles POST /admin/events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	startsAt, err := parseTime(req.StartsAt)
	if err != nil {
		response.BadRequest(c, "invalid starts_at")
		return
	}
	var endsAt *time.Time
	if req.EndsAt != nil {
		t, err := parseTime(*req.EndsAt)
		if err != nil {
			response.BadRequest(c, "invalid ends_at")
			return
		}
		endsAt = &t
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		slug = utils.Slugify(req.Title)
	}
	if !utils.ValidSlug(slug) {
		response.BadRequest(c, "slug must be 2-64 chars, lowercase letters, numbers, hyphens only")
		return
	}

	e := &models.Event{
		Title:       strings.TrimSpace(req.Title),
		Slug:        slug,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Price:       req.Price,
		Capacity:    req.Capacity,
		Published:   req.Published,
	}
	if err := h.store.Create(c.Request.Context(), e); err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, e)
}

// Update handles PATCH /admin/events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Title != nil {
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Slug != nil {
		slug := strings.ToLower(strings.TrimSpace(*req.Slug))
		if !utils.ValidSlug(slug) {
			response.BadRequest(c, "slug must be 2-64 chars, lowercase letters, numbers, hyphens only")
			return
		}
		e.Slug = slug
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if req.StartsAt != nil {
		t, err := parseTime(*req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
		e.StartsAt = t
	}
	if req.EndsAt != nil {
		t, err := parseTime(*req.EndsAt)
		if err != nil {
			response.BadRequest(c, "invalid ends_at")
			return
		}
		e.EndsAt = &t
	}
	if req.Price != nil {
		if *req.Price < 0 {
			response.BadRequest(c, "price must not be negative")
			return
		}
		e.Price = *req.Price
	}
	if req.Capacity != nil {
		if *req.Capacity < 0 {
			response.BadRequest(c, "capacity must not be negative")
			return
		}
		e.Capacity = *req.Capacity
	}
	if req.Published != nil {
		e.Published = *req.Published
	}
	if err := h.store.Update(c.Request.Context(), e); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /admin/events/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// Register handles POST /events/:id/register.
func (h *Handler) Register(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.Register(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, res)
}

// Registrations handles GET /admin/events/:id/registrations.
func (h *Handler) Registrations(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	list, err := h.store.ListRegistrations(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []models.EventRegistration{}
	}
	response.OK(c, list)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var verr *registrations.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Invalid(c, "please correct the highlighted fields", verr.Fields)
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrSlugTaken), errors.Is(err, ErrEventFull), errors.Is(err, ErrAlreadyRegistered):
		response.Conflict(c, err.Error())
	case errors.Is(err, payments.ErrGatewayDisabled):
		response.ServiceUnavailable(c, err.Error())
	default:
		h.logger.Error("event request failed", zap.Error(err), zap.String("path", c.FullPath()))
		response.Internal(c, "something went wrong, please try again later")
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return uuid.Nil, false
	}
	return id, true
}
