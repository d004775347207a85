package payments

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/pkg/response"
)

// Handler handles gateway callbacks and admin payment listing.
type Handler struct {
	svc     *Service
	siteURL string
	logger  *zap.Logger
}

// NewHandler creates a payments handler. siteURL is where browsers land after checkout.
func NewHandler(svc *Service, siteURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, siteURL: siteURL, logger: logger}
}

// Notify handles POST /payments/newebpay/notify (server-to-server, form encoded).
func (h *Handler) Notify(c *gin.Context) {
	tradeInfo := c.PostForm("TradeInfo")
	tradeSha := c.PostForm("TradeSha")
	if tradeInfo == "" || tradeSha == "" {
		response.BadRequest(c, "TradeInfo and TradeSha required")
		return
	}
	p, err := h.svc.HandleNotify(c.Request.Context(), tradeInfo, tradeSha)
	switch {
	case err == nil:
		response.OK(c, gin.H{"merchant_order_no": p.MerchantOrderNo, "status": p.Status})
	case errors.Is(err, ErrAmountMismatch):
		h.logger.Warn("payment amount mismatch", zap.String("merchant_order_no", p.MerchantOrderNo))
		response.OK(c, gin.H{"merchant_order_no": p.MerchantOrderNo, "status": p.Status})
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrMalformedTradeInfo):
		h.logger.Warn("rejected payment notification", zap.Error(err), zap.String("client_ip", c.ClientIP()))
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrGatewayDisabled):
		response.ServiceUnavailable(c, err.Error())
	default:
		h.logger.Error("payment notification failed", zap.Error(err))
		response.Internal(c, "failed to apply payment notification")
	}
}

// Return handles POST /payments/newebpay/return. The browser lands here after checkout and is
// redirected to the site result page; state changes only come from Notify.
func (h *Handler) Return(c *gin.Context) {
	q := url.Values{}
	q.Set("status", "failed")
	if n, err := h.svc.ParseReturn(c.PostForm("TradeInfo"), c.PostForm("TradeSha")); err == nil {
		if n.Succeeded() {
			q.Set("status", "paid")
		}
		q.Set("order", n.Result.MerchantOrderNo)
	}
	c.Redirect(http.StatusSeeOther, h.siteURL+"/registration/result?"+q.Encode())
}

// List handles GET /admin/payments.
func (h *Handler) List(c *gin.Context) {
	limit, offset := response.Page(c)
	list, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list payments failed", zap.Error(err))
		response.Internal(c, "failed to list payments")
		return
	}
	response.OK(c, list)
}
