package payments

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func returnRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, "https://stride.example.com", nil)
	r := gin.New()
	r.POST("/payments/newebpay/return", h.Return)
	return r
}

func TestReturnRedirects(t *testing.T) {
	svc, _, _, _, orderNo, _ := setup(t)
	r := returnRouter(svc)

	info, sha := notifyPayload(t, svc.gateway, GatewaySuccess, orderNo, 10000)
	w := postForm(r, "/payments/newebpay/return", url.Values{"TradeInfo": {info}, "TradeSha": {sha}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/registration/result", loc.Path)
	assert.Equal(t, "paid", loc.Query().Get("status"))
	assert.Equal(t, orderNo, loc.Query().Get("order"))

	w = postForm(r, "/payments/newebpay/return", url.Values{"TradeInfo": {info}, "TradeSha": {"00"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	loc, err = url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "failed", loc.Query().Get("status"))
	assert.Empty(t, loc.Query().Get("order"))
}

func TestReturnWithoutGateway(t *testing.T) {
	r := returnRouter(NewService(newMemStore(), nil, nil, nil, nil))
	w := postForm(r, "/payments/newebpay/return", url.Values{"TradeInfo": {"x"}, "TradeSha": {"y"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "status=failed")
}
