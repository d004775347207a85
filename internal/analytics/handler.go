// Package analytics serves the admin dashboard summary.
package analytics

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/pricing"
	"github.com/stride-coaching/backend/pkg/response"
)

// Source provides the aggregates.
type Source interface {
	Counts(ctx context.Context) (byPlan, byStatus map[string]int, err error)
	PaidRevenue(ctx context.Context) (course, event int, err error)
	PromoRedemptions(ctx context.Context) (courseWithCode, storedUses int, err error)
	EventRegistrations(ctx context.Context) (int, error)
}

// SummaryResponse is the JSON shape for GET /admin/analytics/summary.
type SummaryResponse struct {
	TotalRegistrations int            `json:"total_registrations"`
	ByPlan             map[string]int `json:"by_plan"`
	ByPaymentStatus    map[string]int `json:"by_payment_status"`
	PaidRevenue        int            `json:"paid_revenue"`
	CourseRevenue      int            `json:"course_revenue"`
	EventRevenue       int            `json:"event_revenue"`
	PromoRedemptions   int            `json:"promo_redemptions"`
	EventRegistrations int            `json:"event_registrations"`
	PaidConversionRate *float64       `json:"paid_conversion_rate,omitempty"`
}

// Handler handles GET /admin/analytics/summary.
type Handler struct {
	source Source
	logger *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(source Source, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{source: source, logger: logger}
}

// Summary handles GET /admin/analytics/summary.
func (h *Handler) Summary(c *gin.Context) {
	ctx := c.Request.Context()

	byPlan, byStatus, err := h.source.Counts(ctx)
	if err != nil {
		h.fail(c, "registration counts", err)
		return
	}
	course, event, err := h.source.PaidRevenue(ctx)
	if err != nil {
		h.fail(c, "revenue", err)
		return
	}
	withCode, storedUses, err := h.source.PromoRedemptions(ctx)
	if err != nil {
		h.fail(c, "promo redemptions", err)
		return
	}
	eventRegs, err := h.source.EventRegistrations(ctx)
	if err != nil {
		h.fail(c, "event registrations", err)
		return
	}

	// Every plan and status appears, even at zero, so the dashboard can render fixed columns.
	plans := make(map[string]int, len(pricing.Plans))
	for _, p := range pricing.Plans {
		plans[string(p)] = 0
	}
	total := 0
	for k, n := range byPlan {
		plans[k] = n
		total += n
	}
	statuses := map[string]int{
		models.RegistrationPending: 0,
		models.RegistrationPaid:    0,
		models.RegistrationFailed:  0,
	}
	for k, n := range byStatus {
		statuses[k] = n
	}

	out := SummaryResponse{
		TotalRegistrations: total,
		ByPlan:             plans,
		ByPaymentStatus:    statuses,
		PaidRevenue:        course + event,
		CourseRevenue:      course,
		EventRevenue:       event,
		PromoRedemptions:   withCode + storedUses,
		EventRegistrations: eventRegs,
	}
	if total > 0 {
		conv := float64(statuses[models.RegistrationPaid]) / float64(total)
		out.PaidConversionRate = &conv
	}
	response.OK(c, out)
}

func (h *Handler) fail(c *gin.Context, what string, err error) {
	h.logger.Error("analytics query failed", zap.String("query", what), zap.Error(err))
	response.Internal(c, "failed to load "+what)
}
