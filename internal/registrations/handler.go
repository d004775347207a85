package registrations

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/payments"
	"github.com/stride-coaching/backend/pkg/response"
)

// Handler handles course registration endpoints.
type Handler struct {
	svc     *Service
	siteURL string
	logger  *zap.Logger
}

// NewHandler creates a registration handler. siteURL is the base of check-in links.
func NewHandler(svc *Service, siteURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, siteURL: siteURL, logger: logger}
}

// PaymentStatusRequest is the body for PATCH /admin/registrations/:id/payment-status.
type PaymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Create handles POST /registrations.
func (h *Handler) Create(c *gin.Context) {
	var d Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.Submit(c.Request.Context(), d)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, res)
}

// Preview handles POST /registrations/preview.
func (h *Handler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.Preview(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, res)
}

// QR handles GET /registrations/:code/qr.
func (h *Handler) QR(c *gin.Context) {
	reg, err := h.svc.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	png, err := CheckInQR(h.siteURL, reg.Code)
	if err != nil {
		h.logger.Error("render qr failed", zap.Error(err), zap.String("code", reg.Code))
		response.Internal(c, "failed to generate qr")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// List handles GET /admin/registrations. Query ?status and ?session_id filter the list.
func (h *Handler) List(c *gin.Context) {
	limit, offset := response.Page(c)
	list, err := h.svc.List(c.Request.Context(), ListFilter{
		Status:    c.Query("status"),
		SessionID: c.Query("session_id"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /admin/registrations/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	reg, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, reg)
}

// UpdatePaymentStatus handles PATCH /admin/registrations/:id/payment-status.
func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reg, err := h.svc.OverridePaymentStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, reg)
}

// Transfer handles POST /admin/registrations/:id/transfer.
func (h *Handler) Transfer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reg, err := h.svc.TransferSession(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, reg)
}

// CheckIn handles POST /admin/registrations/:id/checkin.
func (h *Handler) CheckIn(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	reg, err := h.svc.CheckIn(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, reg)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.Invalid(c, "please correct the highlighted fields", verr.Fields)
	case errors.Is(err, ErrDuplicateSubmission), errors.Is(err, ErrSessionFull), errors.Is(err, ErrNotPaid):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrUnknownSession), errors.Is(err, ErrAttendeeNotFound),
		errors.Is(err, ErrSessionNotSelected), errors.Is(err, ErrAlreadySelected), errors.Is(err, ErrInvalidStatus):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, payments.ErrGatewayDisabled):
		response.ServiceUnavailable(c, err.Error())
	default:
		h.logger.Error("registration request failed", zap.Error(err), zap.String("path", c.FullPath()))
		response.Internal(c, "something went wrong, please try again later")
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return uuid.Nil, false
	}
	return id, true
}
