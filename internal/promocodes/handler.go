package promocodes

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/pricing"
	"github.com/stride-coaching/backend/pkg/response"
)

// UpsertRequest is the body for admin create and update.
type UpsertRequest struct {
	Code          string     `json:"code" binding:"required"`
	EventID       *uuid.UUID `json:"event_id"`
	DiscountType  string     `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue int        `json:"discount_value" binding:"required,min=1"`
	Description   string     `json:"description"`
	MaxUses       int        `json:"max_uses" binding:"min=0"`
	ValidFrom     *time.Time `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until"`
	Active        *bool      `json:"active"`
}

func (r UpsertRequest) model() *models.PromoCode {
	p := &models.PromoCode{
		Code:          r.Code,
		EventID:       r.EventID,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue,
		Description:   r.Description,
		MaxUses:       r.MaxUses,
		ValidUntil:    r.ValidUntil,
		Active:        r.Active == nil || *r.Active,
	}
	if r.ValidFrom != nil {
		p.ValidFrom = *r.ValidFrom
	}
	return p
}

// Handler handles promo code endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a promo code handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Validate handles POST /promo-codes/validate.
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Amount < 0 {
		response.BadRequest(c, "amount must not be negative")
		return
	}
	res, err := h.svc.Validate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, pricing.ErrUnknownPlan) || errors.Is(err, pricing.ErrUnknownUserType) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("validate promo code failed", zap.Error(err))
		response.Internal(c, "failed to validate promo code")
		return
	}
	response.OK(c, res)
}

// List handles GET /admin/promo-codes.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list promo codes failed", zap.Error(err))
		response.Internal(c, "failed to list promo codes")
		return
	}
	response.OK(c, list)
}

// Create handles POST /admin/promo-codes.
func (h *Handler) Create(c *gin.Context) {
	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := req.model()
	if err := h.svc.Create(c.Request.Context(), p); err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, p)
}

// Update handles PUT /admin/promo-codes/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promo code id")
		return
	}
	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := req.model()
	p.ID = id
	if err := h.svc.Update(c.Request.Context(), p); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, p)
}

// Delete handles DELETE /admin/promo-codes/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promo code id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	default:
		h.logger.Error("promo code request failed", zap.Error(err))
		response.Internal(c, "failed to save promo code")
	}
}
