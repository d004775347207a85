package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	byPlan, byStatus map[string]int
	err              error
}

func (f fakeSource) Counts(context.Context) (map[string]int, map[string]int, error) {
	return f.byPlan, f.byStatus, f.err
}

func (f fakeSource) PaidRevenue(context.Context) (int, int, error) { return 25000, 1500, nil }

func (f fakeSource) PromoRedemptions(context.Context) (int, int, error) { return 3, 2, nil }

func (f fakeSource) EventRegistrations(context.Context) (int, error) { return 7, nil }

func serve(src Source) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/analytics/summary", NewHandler(src, nil).Summary)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/analytics/summary", nil))
	return w
}

func TestSummary(t *testing.T) {
	w := serve(fakeSource{
		byPlan:   map[string]int{"single": 3, "full": 1},
		byStatus: map[string]int{"paid": 2, "pending": 2},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data SummaryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	got := resp.Data
	assert.Equal(t, 4, got.TotalRegistrations)
	assert.Equal(t, map[string]int{"single": 3, "full": 1, "double": 0, "test": 0}, got.ByPlan)
	assert.Equal(t, 0, got.ByPaymentStatus["failed"])
	assert.Equal(t, 26500, got.PaidRevenue)
	assert.Equal(t, 5, got.PromoRedemptions)
	assert.Equal(t, 7, got.EventRegistrations)
	require.NotNil(t, got.PaidConversionRate)
	assert.InDelta(t, 0.5, *got.PaidConversionRate, 1e-9)
}

func TestSummaryEmptyHasNoConversion(t *testing.T) {
	w := serve(fakeSource{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "paid_conversion_rate")
}

func TestSummaryQueryError(t *testing.T) {
	w := serve(fakeSource{err: errors.New("db down")})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
