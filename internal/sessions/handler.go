package sessions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/pkg/response"
)

// Store is the persistence used by the handler.
type Store interface {
	Create(ctx context.Context, s *models.CourseSession) error
	Update(ctx context.Context, s *models.CourseSession) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.CourseSession, error)
}

// UpsertRequest is the body for admin create and update.
type UpsertRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name" binding:"required"`
	Date      string `json:"date" binding:"required"` // YYYY-MM-DD
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Capacity  int    `json:"capacity" binding:"min=0"`
}

// Handler handles course session endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a session handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /sessions.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		response.Internal(c, "failed to list sessions")
		return
	}
	months := GroupByMonth(list)
	if months == nil {
		months = []models.SessionMonth{}
	}
	response.OK(c, months)
}

// Create handles POST /admin/sessions.
func (h *Handler) Create(c *gin.Context) {
	s, ok := h.bind(c)
	if !ok {
		return
	}
	if s.ID == "" {
		response.BadRequest(c, "id is required")
		return
	}
	if err := h.store.Create(c.Request.Context(), s); err != nil {
		h.logger.Error("create session failed", zap.Error(err), zap.String("session_id", s.ID))
		response.Internal(c, "failed to create session")
		return
	}
	response.Created(c, s)
}

// Update handles PUT /admin/sessions/:id.
func (h *Handler) Update(c *gin.Context) {
	s, ok := h.bind(c)
	if !ok {
		return
	}
	s.ID = c.Param("id")
	if err := h.store.Update(c.Request.Context(), s); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.logger.Error("update session failed", zap.Error(err), zap.String("session_id", s.ID))
		response.Internal(c, "failed to update session")
		return
	}
	response.OK(c, s)
}

// Delete handles DELETE /admin/sessions/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.logger.Error("delete session failed", zap.Error(err))
		response.Internal(c, "failed to delete session")
		return
	}
	response.NoContent(c)
}

func (h *Handler) bind(c *gin.Context) (*models.CourseSession, bool) {
	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return nil, false
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.BadRequest(c, "invalid date")
		return nil, false
	}
	return &models.CourseSession{
		ID:        strings.TrimSpace(req.ID),
		Name:      strings.TrimSpace(req.Name),
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Month:     date.Format(MonthKey),
		Capacity:  req.Capacity,
	}, true
}
