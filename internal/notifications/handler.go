package notifications

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/pkg/queue"
	"github.com/stride-coaching/backend/pkg/response"
)

// LogStore reads delivery logs.
type LogStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.NotificationLog, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.NotificationLog, error)
}

// Handler handles notification log endpoints.
type Handler struct {
	logs   LogStore
	queue  Enqueuer
	logger *zap.Logger
}

// NewHandler creates a notification log handler.
func NewHandler(logs LogStore, q Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logs: logs, queue: q, logger: logger}
}

// List handles GET /admin/notifications. Query ?status=failed shows failures only.
func (h *Handler) List(c *gin.Context) {
	limit, offset := response.Page(c)
	logs, err := h.logs.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		h.logger.Error("list notification logs failed", zap.Error(err))
		response.Internal(c, "failed to load notification logs")
		return
	}
	if logs == nil {
		logs = []models.NotificationLog{}
	}
	response.OK(c, logs)
}

// Resend handles POST /admin/notifications/:id/resend. The logged payload is queued again for
// the same target.
func (h *Handler) Resend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	l, err := h.logs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.logger.Error("load notification log failed", zap.Error(err))
		response.Internal(c, "failed to load notification log")
		return
	}
	err = h.queue.EnqueueWebhook(c.Request.Context(), queue.WebhookPayload{
		EventType:   l.EventType,
		TargetURL:   l.TargetURL,
		ReferenceID: l.ReferenceID,
		Body:        l.Payload,
	})
	if err != nil {
		h.logger.Error("resend enqueue failed", zap.Error(err), zap.String("notification_id", id.String()))
		response.ServiceUnavailable(c, "queue unavailable")
		return
	}
	response.OK(c, gin.H{"message": "resend queued"})
}
